package rules

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// DistributionOption is one weighted destination.
type DistributionOption struct {
	RuleSetName string  `mapstructure:"ruleSetName"`
	Percentage  float64 `mapstructure:"percentage"`
}

type distributionParams struct {
	Options            []DistributionOption `mapstructure:"options"`
	DefaultRuleSetName string               `mapstructure:"defaultRuleSetName"`
	OutputStateKey     string               `mapstructure:"outputStateKey"`
}

// Distribution picks a destination rule set by weighted random selection. The
// default destination absorbs whatever the explicit options leave below 100%.
type Distribution struct {
	executeOnly
	deps Deps
}

// ValidateDistribution checks option percentages; a total above 100 is a
// configuration error.
func ValidateDistribution(options []DistributionOption) (float64, error) {
	var total float64
	for _, o := range options {
		if o.Percentage < 0 {
			return 0, &domain.ConfigError{Reason: "negative distribution percentage for " + o.RuleSetName}
		}
		total += o.Percentage
	}
	if total > 100 {
		return total, &domain.ConfigError{Reason: "distribution options total more than 100%"}
	}
	return total, nil
}

func (h *Distribution) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	var p distributionParams
	if err := decodeParams(s, &p, required(domain.RuleTypeDistribution)...); err != nil {
		return Outcome{}, err
	}
	if _, err := ValidateDistribution(p.Options); err != nil {
		return Outcome{}, s.ConfigError("%v", err)
	}

	dest := p.DefaultRuleSetName
	roll := h.deps.Random() * 100
	var cumulative float64
	for _, o := range p.Options {
		if o.Percentage <= 0 {
			continue
		}
		cumulative += o.Percentage
		if roll < cumulative {
			dest = o.RuleSetName
			break
		}
	}
	s.Logger.Debug("distribution selected", "destination", dest, "roll", roll)

	if p.OutputStateKey != "" {
		s.State.Set(p.OutputStateKey, dest)
	}
	return transfer(s, dest), nil
}

type ruleSetParams struct {
	RuleSetName string `mapstructure:"ruleSetName"`
	ReturnHere  bool   `mapstructure:"returnHere"`
}

// RuleSetTransfer moves the session to another rule set, optionally recording
// the current position on the return stack.
type RuleSetTransfer struct {
	executeOnly
}

func (h *RuleSetTransfer) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	var p ruleSetParams
	if err := decodeParams(s, &p, required(domain.RuleTypeRuleSet)...); err != nil {
		return Outcome{}, err
	}
	if p.ReturnHere {
		s.State.PushReturn(domain.ReturnFrame{RuleSetName: s.RuleSetName(), RuleName: s.RuleName()})
	}
	return transfer(s, p.RuleSetName), nil
}
