// Package validator performs static checks over rule sets before they are served.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/parley/internal/rules"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/domain"
)

// Issue is a single validation finding.
type Issue struct {
	RuleSet string
	Rule    string
	Message string
}

func (i Issue) String() string {
	switch {
	case i.RuleSet == "":
		return i.Message
	case i.Rule == "":
		return fmt.Sprintf("%s: %s", i.RuleSet, i.Message)
	default:
		return fmt.Sprintf("%s/%s: %s", i.RuleSet, i.Rule, i.Message)
	}
}

// Check returns every issue found in ruleSets. knownTypes lists the rule types
// the handler registry serves; nil means the built-in types.
func Check(ruleSets []domain.RuleSet, knownTypes []string) []Issue {
	if knownTypes == nil {
		knownTypes = rules.DefaultRegistry(rules.Deps{}).Types()
	}
	types := make(map[string]bool, len(knownTypes))
	for _, t := range knownTypes {
		types[t] = true
	}

	var issues []Issue
	names := make(map[string]bool, len(ruleSets))
	for i, rs := range ruleSets {
		if rs.Name == "" {
			issues = append(issues, Issue{Message: fmt.Sprintf("rule set at position %d has no name", i)})
			continue
		}
		if names[rs.Name] {
			issues = append(issues, Issue{RuleSet: rs.Name, Message: "duplicate rule set name"})
		}
		names[rs.Name] = true
	}

	endpoints := make(map[string][]string)
	for _, rs := range ruleSets {
		if rs.Enabled {
			for _, ep := range rs.EndPoints {
				endpoints[ep] = append(endpoints[ep], rs.Name)
			}
		}
		issues = append(issues, checkRuleSet(rs, names, types)...)
	}

	eps := make([]string, 0, len(endpoints))
	for ep := range endpoints {
		eps = append(eps, ep)
	}
	sort.Strings(eps)
	for _, ep := range eps {
		if owners := endpoints[ep]; len(owners) > 1 {
			issues = append(issues, Issue{Message: fmt.Sprintf("endpoint %q claimed by enabled rule sets %s", ep, strings.Join(owners, ", "))})
		}
	}
	return issues
}

func checkRuleSet(rs domain.RuleSet, names map[string]bool, types map[string]bool) []Issue {
	var issues []Issue
	report := func(rule, format string, args ...any) {
		issues = append(issues, Issue{RuleSet: rs.Name, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	if len(rs.Rules) == 0 {
		report("", "rule set has no rules")
	}
	seen := make(map[string]bool, len(rs.Rules))
	for i, r := range rs.Rules {
		if r.Name == "" {
			report(fmt.Sprintf("#%d", i), "rule has no name")
		} else if seen[r.Name] {
			report(r.Name, "duplicate rule name")
		}
		seen[r.Name] = true

		if !types[r.Type] {
			report(r.Name, "unknown rule type %q", r.Type)
			continue
		}

		var missing []string
		for _, p := range rules.RequiredParams[r.Type] {
			if domain.IsEmpty(r.Params[p]) {
				missing = append(missing, p)
			}
		}
		if len(missing) > 0 {
			report(r.Name, "missing required parameters: %s", strings.Join(missing, ", "))
		}

		for _, w := range r.Weights {
			if w.Field == "" {
				report(r.Name, "weight without field")
			}
			if !runtime.KnownOperation(w.Operation) {
				report(r.Name, "unknown weight operation %q", w.Operation)
			}
		}

		for _, msg := range checkDataType(r) {
			report(r.Name, "%s", msg)
		}

		if r.Type == domain.RuleTypeIntegration && !templating.HasTemplate(domain.ToString(r.Params["timeout"])) {
			if d, err := rules.IntegrationTimeout(r); err != nil {
				report(r.Name, "invalid timeout: %v", err)
			} else if d > rules.MaxIntegrationTimeout {
				report(r.Name, "timeout %s exceeds the %s limit", d, rules.MaxIntegrationTimeout)
			}
		}

		if r.Type == domain.RuleTypeDistribution {
			opts, err := rules.DistributionOptions(r)
			if err != nil {
				report(r.Name, "invalid options: %v", err)
			} else if _, err := rules.ValidateDistribution(opts); err != nil {
				report(r.Name, "%v", err)
			}
		}

		dests, err := rules.Destinations(r)
		if err != nil {
			report(r.Name, "%v", err)
			continue
		}
		for _, d := range dests {
			if templating.HasTemplate(d.RuleSet) {
				continue
			}
			if !names[d.RuleSet] {
				report(r.Name, "destination rule set %q does not exist", d.RuleSet)
			}
		}
	}
	return issues
}

func checkDataType(r domain.Rule) []string {
	dataType := domain.ToString(r.Params["dataType"])
	if dataType == "" || templating.HasTemplate(dataType) {
		return nil
	}
	switch r.Type {
	case domain.RuleTypeDTMFInput:
		if !rules.KnownDTMFType(dataType) {
			return []string{fmt.Sprintf("unknown DTMF data type %q", dataType)}
		}
	case domain.RuleTypeNLUInput:
		if !rules.KnownNLUType(dataType) {
			return []string{fmt.Sprintf("unknown NLU data type %q", dataType)}
		}
	}
	return nil
}

// Validate runs Check and folds the issues into one error.
func Validate(ruleSets []domain.RuleSet, knownTypes []string) error {
	issues := Check(ruleSets, knownTypes)
	if len(issues) == 0 {
		return nil
	}
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(issues), strings.Join(lines, "\n- "))
}
