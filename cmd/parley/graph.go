package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/domain"
)

var graphCmd = &cobra.Command{
	Use:   "graph [path]",
	Short: "Export the rule set graph",
	Long: `Outputs a Mermaid diagram (graph TD) of how rule sets hand over to each other.
With --session the rule sets on the session's path are highlighted.`,
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

		var overlay *graph.GraphOverlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			overlay, err = sessionOverlay(cmd, sessionID)
			if err != nil {
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(ruleSets, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of a stored session")
}

func sessionOverlay(cmd *cobra.Command, sessionID string) (*graph.GraphOverlay, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, _, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	doc, err := store.Get(cmd.Context(), sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	overlay := &graph.GraphOverlay{CurrentRuleSet: doc.GetString(domain.KeyCurrentRuleSet)}
	for _, frame := range doc.ReturnStack() {
		overlay.VisitedRuleSets = append(overlay.VisitedRuleSets, frame.RuleSetName)
	}
	if overlay.CurrentRuleSet != "" {
		overlay.VisitedRuleSets = append(overlay.VisitedRuleSets, overlay.CurrentRuleSet)
	}
	return overlay, nil
}
