package cmd

import (
	"github.com/spf13/cobra"

	"codelore/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the knowledge base interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func runTUI() error {
	path, err := dbPath()
	if err != nil {
		return err
	}
	return tui.Run(tui.Config{DBPath: path})
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
