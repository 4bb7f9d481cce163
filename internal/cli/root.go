// Package cli implements the Cobra command tree named in SPEC_FULL.md §6:
// extract, validate, shard, version. Structured the way the teacher's
// internal/cli/root.go does (a package-level rootCmd, persistent flags
// read through accessor functions, subcommands registered from init()).
package cli

import (
	"github.com/spf13/cobra"

	"github.com/n0roo/aces/internal/config"
)

var (
	runDBPath string
	verbose   bool
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "aces",
	Short: "Cohort extraction over per-subject event-stream predicate tables",
	Long: `aces extracts per-subject cohort rows from a predicate-count table
according to a declarative window-tree task configuration: a trigger event,
a tree of temporal/event-bounded windows anchored off it and off each other,
and an optional label and index timestamp.`,
	Version: Version,
}

// Execute runs the root command, returning any error it produced.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&runDBPath, "run-db", "", "run ledger SQLite path (default: ~/.aces/runs.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON output")
}

// GetRunDBPath returns the run-ledger database path: the --run-db flag if
// given, else the global default under ~/.aces.
func GetRunDBPath() string {
	if runDBPath != "" {
		return runDBPath
	}
	if err := config.EnsureGlobalDir(); err != nil {
		return "aces-runs.db"
	}
	return config.GlobalRunDBPath()
}

// IsVerbose returns the --verbose flag.
func IsVerbose() bool { return verbose }

// IsJSON returns the --json flag.
func IsJSON() bool { return jsonOut }
