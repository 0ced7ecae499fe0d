package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codelore/internal/logger"
)

var (
	flagDB        string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "codelore",
	Short: "Structured knowledge store for source-code metadata",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(flagLogLevel, flagLogFormat)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// dbPath resolves the database location: --db flag, then CODELORE_DB,
// then <cwd>/.codelore/knowledge.db.
func dbPath() (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}
	if env := os.Getenv("CODELORE_DB"); env != "" {
		return env, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, ".codelore", "knowledge.db"), nil
}

// ensureDBDir creates the directory holding the database file.
func ensureDBDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default <cwd>/.codelore/knowledge.db, or $CODELORE_DB)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")
}
