package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a rule based dialogue engine",
	Long: `Parley interprets declarative rule sets to drive voice and chat conversations,
one turn at a time, with session state kept in a pluggable store.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Path to a .env file (defaults to ./.env when present)")
	rootCmd.PersistentFlags().String("rules", "", "Rule set file or directory (overrides PARLEY_RULES)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides PARLEY_LOG_LEVEL)")
}

// loadConfig reads the process configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if rules, _ := cmd.Flags().GetString("rules"); rules != "" {
		cfg.RulesPath = rules
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}
