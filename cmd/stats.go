package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"codelore/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		st, err := store.Open(path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		stats, err := st.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Files indexed:      %d\n", stats.TotalFiles)
		fmt.Printf("Dependency edges:   %d\n", stats.TotalDependencies)
		if !stats.LastIndexed.IsZero() {
			fmt.Printf("Last indexed:       %s\n", stats.LastIndexed.Format("2006-01-02 15:04:05 MST"))
		}
		printCounts("By repository", stats.ByRepo)
		printCounts("By file type", stats.ByFileType)
		printCounts("By technology", stats.ByTechnology)
		return nil
	},
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, counts[k])
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
