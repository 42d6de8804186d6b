package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/validator"
	"github.com/aretw0/parley/pkg/adapters/file"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check rule sets for consistency",
	Long: `Loads the rule sets and reports unknown rule types, missing parameters,
dangling rule set references and endpoints claimed twice.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := rulesPath(cmd, args)
		if err != nil {
			return err
		}

		ruleSets, err := file.NewProvider(path).RuleSets(cmd.Context())
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}

		issues := validator.Check(ruleSets, nil)
		out := cmd.OutOrStdout()
		for _, issue := range issues {
			fmt.Fprintln(out, "-", issue)
		}
		if len(issues) > 0 {
			return fmt.Errorf("validation failed: %d issue(s)", len(issues))
		}
		fmt.Fprintf(out, "%d rule set(s) valid\n", len(ruleSets))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// rulesPath prefers the positional argument over the configured rules path.
func rulesPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.RulesPath, nil
}
