package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/internal/rules"
	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	VisitedRuleSets []string
	CurrentRuleSet  string
}

// GenerateMermaid produces a Mermaid flowchart of rule-set composition.
// It applies semantic styling:
// - Entry (enabled, serves endpoints): ((Circle))
// - Ends the contact (Queue/Terminate/ExternalNumber): ([Stadium])
// - Disabled: [/Parallelogram/]
// - Default: [Rectangle]
// Calls that return (returnHere) are dotted; templated destinations are omitted.
func GenerateMermaid(ruleSets []domain.RuleSet, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, rs := range ruleSets {
		safeID := sanitizeMermaidID(rs.Name)

		opener, closer := "[", "]"
		switch {
		case rs.Enabled && len(rs.EndPoints) > 0:
			opener, closer = "((", "))"
		case !rs.Enabled:
			opener, closer = "[/", "/]"
		case endsContact(rs):
			opener, closer = "([", "])"
		}

		label := escape(rs.Name)
		if len(rs.EndPoints) > 0 {
			label = fmt.Sprintf("%s <br/> %s", label, escape(strings.Join(rs.EndPoints, ", ")))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, r := range rs.Rules {
			dests, err := rules.Destinations(r)
			if err != nil {
				sb.WriteString(fmt.Sprintf("    %%%% %s: %s\n", r.Name, escape(err.Error())))
				continue
			}
			for _, d := range dests {
				if templating.HasTemplate(d.RuleSet) {
					continue
				}
				text := r.Name
				if d.Label != "" {
					text = fmt.Sprintf("%s: %s", r.Name, d.Label)
				}
				arrow := fmt.Sprintf("-- \"%s\" -->", escape(text))
				if d.Call {
					arrow = fmt.Sprintf("-. \"%s\" .->", escape(text))
				}
				sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(d.RuleSet)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedRuleSets {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentRuleSet != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentRuleSet)))
		}
	}

	return sb.String()
}

// OverlayFromState builds an overlay from a session document: the current rule set
// and every caller on the return stack.
func OverlayFromState(doc *domain.Document) *GraphOverlay {
	overlay := &GraphOverlay{CurrentRuleSet: doc.GetString(domain.KeyCurrentRuleSet)}
	for _, frame := range doc.ReturnStack() {
		overlay.VisitedRuleSets = append(overlay.VisitedRuleSets, frame.RuleSetName)
	}
	return overlay
}

func endsContact(rs domain.RuleSet) bool {
	for _, r := range rs.Rules {
		if domain.IsTerminalType(r.Type) || r.Type == domain.RuleTypeExternalNumber {
			return true
		}
	}
	return false
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
