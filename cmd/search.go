package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codelore/internal/knowledge"
	"codelore/internal/logger"
	"codelore/internal/store"
)

var (
	flagSearchLimit int
	flagSearchRepo  string
	flagSearchType  string
	flagSearchTech  string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base by keyword",
	Args:  cobra.MinimumNArgs(1),
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

		svc := knowledge.New(st, logger.ForComponent("search"))
		query := strings.Join(args, " ")

		results, err := svc.Search(query, flagSearchLimit, knowledge.SearchFilter{
			Repo:       flagSearchRepo,
			FileType:   flagSearchType,
			Technology: flagSearchTech,
		})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Printf("No results for %q\n", query)
			return nil
		}

		fmt.Printf("%d results for %q\n\n", len(results), query)
		for i, r := range results {
			rec := r.Record
			fmt.Printf("%2d. [%d] %s\n", i+1, r.Score, rec.Path)
			fmt.Printf("    %s / %s / %s\n", rec.Repo, rec.FileType, rec.Technology)
			fmt.Printf("    %s\n", firstLine(rec.Summary))
			if len(rec.Tags) > 0 {
				fmt.Printf("    tags: %s\n", strings.Join(rec.Tags, ", "))
			}
			fmt.Println()
		}
		return nil
	},
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[:idx]
	}
	if runes := []rune(s); len(runes) > 120 {
		s = string(runes[:120]) + "..."
	}
	return s
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 0, "maximum results (default 50)")
	searchCmd.Flags().StringVar(&flagSearchRepo, "repo", "", "filter by repository")
	searchCmd.Flags().StringVar(&flagSearchType, "type", "", "filter by file type")
	searchCmd.Flags().StringVar(&flagSearchTech, "tech", "", "filter by technology")
	rootCmd.AddCommand(searchCmd)
}
