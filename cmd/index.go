package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"codelore/internal/knowledge"
	"codelore/internal/logger"
	"codelore/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index <manifest.jsonl>",
	Short: "Bulk-load extracted knowledge records from a JSONL manifest",
	Long: `Reads one JSON record per line (the index_file argument shape) and indexes
them as a batch. Items fail independently; failed lines are reported and can
be retried on their own.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := dbPath()
		if err != nil {
			return err
		}
		if err := ensureDBDir(path); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}

		st, err := store.Open(path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		inputs, parseErrs, err := readManifest(args[0])
		if err != nil {
			return err
		}

		svc := knowledge.New(st, logger.ForComponent("index"))

		fmt.Printf("Indexing %d records from %s...\n", len(inputs), args[0])
		start := time.Now()
		results := svc.IndexBatch(inputs)
		elapsed := time.Since(start)

		counts := map[store.Outcome]int{}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "  %s: %v\n", r.Path, r.Err)
				continue
			}
			counts[r.Outcome]++
		}
		for _, e := range parseErrs {
			fmt.Fprintln(os.Stderr, "  "+e)
		}

		fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
		fmt.Printf("  Created:   %d\n", counts[store.OutcomeCreated])
		fmt.Printf("  Replaced:  %d\n", counts[store.OutcomeReplaced])
		fmt.Printf("  Unchanged: %d\n", counts[store.OutcomeUnchanged])
		fmt.Printf("  Failed:    %d\n", failed+len(parseErrs))
		return nil
	},
}

// readManifest parses a JSONL manifest. Malformed lines are collected as
// errors rather than aborting the import.
func readManifest(path string) ([]knowledge.IndexInput, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var inputs []knowledge.IndexInput
	var parseErrs []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var in knowledge.IndexInput
		if err := json.Unmarshal(line, &in); err != nil {
			parseErrs = append(parseErrs, fmt.Sprintf("line %d: %v", lineNo, err))
			continue
		}
		inputs = append(inputs, in)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	return inputs, parseErrs, nil
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
