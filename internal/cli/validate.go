package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n0roo/aces/internal/taskconfig"
)

var validateConfigPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile a task configuration and report any errors",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "task configuration YAML (required)")
	validateCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := taskconfig.Load(validateConfigPath)
	if err != nil {
		return err
	}

	windows := cfg.Tree.PreOrder()
	fmt.Printf("aces: %s is valid (trigger %q, %d predicates, %d windows)\n",
		validateConfigPath, cfg.Trigger, len(cfg.Predicates.Names()), len(windows))
	if IsVerbose() {
		for _, w := range windows {
			fmt.Printf("  - %s\n", w.Name)
		}
	}
	return nil
}
