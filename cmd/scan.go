package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"codelore/internal/scanner"
	"codelore/internal/store"
)

var flagScanRepo string

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Check a working tree against the indexed knowledge",
	Long: `Walks the tree, hashes file content, and reports which indexed records are
stale (content changed since indexing), missing on disk, or not indexed at
all. Records must have been indexed with paths relative to the scanned root.
The store is never modified; re-index stale files to bring it up to date.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagScanRepo == "" {
			return fmt.Errorf("--repo is required")
		}
		path, err := dbPath()
		if err != nil {
			return err
		}
		st, err := store.Open(path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		report, err := scanner.Scan(st, args[0], flagScanRepo)
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %s (repo %s)\n", args[0], flagScanRepo)
		fmt.Printf("  Unchanged: %d\n", len(report.Unchanged))
		fmt.Printf("  Stale:     %d\n", len(report.Stale))
		fmt.Printf("  Missing:   %d\n", len(report.Missing))
		fmt.Printf("  Unindexed: %d\n", len(report.Unindexed))

		printPaths("Stale (re-index these)", report.Stale)
		printPaths("Missing on disk", report.Missing)
		return nil
	},
}

func printPaths(title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, p := range paths {
		fmt.Printf("  %s\n", p)
	}
}

func init() {
	scanCmd.Flags().StringVar(&flagScanRepo, "repo", "", "repository name the records were indexed under")
	rootCmd.AddCommand(scanCmd)
}
