package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

type dtmfInputParams struct {
	InputParams `mapstructure:",squash"`
	DataType    string `mapstructure:"dataType"`
	MinLength   int    `mapstructure:"minLength"`
	MaxLength   int    `mapstructure:"maxLength"`
}

// DTMFInput captures a fixed-format keypad token.
type DTMFInput struct {
	inputRules
}

func (h *DTMFInput) params(s *domain.Session) (*dtmfInputParams, error) {
	var p dtmfInputParams
	if err := decodeParams(s, &p, required(domain.RuleTypeDTMFInput)...); err != nil {
		return nil, err
	}
	if !KnownDTMFType(p.DataType) {
		return nil, s.ConfigError("unknown dataType %q", p.DataType)
	}
	if p.MinLength > 0 && p.MaxLength > 0 && p.MinLength > p.MaxLength {
		return nil, s.ConfigError("minLength %d exceeds maxLength %d", p.MinLength, p.MaxLength)
	}
	return &p, nil
}

func (h *DTMFInput) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	return h.offer(s, &p.InputParams), nil
}

func (h *DTMFInput) Input(_ context.Context, s *domain.Session, input string) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	value, ok := ValidateDTMF(p.DataType, input, p.MinLength, p.MaxLength, h.deps.Clock())
	if !ok {
		return h.reject(s, &p.InputParams, input), nil
	}
	return h.capture(s, &p.InputParams, value)
}

func (h *DTMFInput) Confirm(_ context.Context, s *domain.Session, input string) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	return h.confirm(s, &p.InputParams, input)
}

type dtmfMenuParams struct {
	InputParams        `mapstructure:",squash"`
	Dtmf0              string `mapstructure:"dtmf0"`
	Dtmf1              string `mapstructure:"dtmf1"`
	Dtmf2              string `mapstructure:"dtmf2"`
	Dtmf3              string `mapstructure:"dtmf3"`
	Dtmf4              string `mapstructure:"dtmf4"`
	Dtmf5              string `mapstructure:"dtmf5"`
	Dtmf6              string `mapstructure:"dtmf6"`
	Dtmf7              string `mapstructure:"dtmf7"`
	Dtmf8              string `mapstructure:"dtmf8"`
	Dtmf9              string `mapstructure:"dtmf9"`
	DtmfStar           string `mapstructure:"dtmfStar"`
	DtmfHash           string `mapstructure:"dtmfHash"`
	NoInputRuleSetName string `mapstructure:"noInputRuleSetName"`
}

// destinations maps each key to its rule set; unmapped keys are omitted.
func (p *dtmfMenuParams) destinations() map[string]string {
	all := map[string]string{
		"0": p.Dtmf0, "1": p.Dtmf1, "2": p.Dtmf2, "3": p.Dtmf3, "4": p.Dtmf4,
		"5": p.Dtmf5, "6": p.Dtmf6, "7": p.Dtmf7, "8": p.Dtmf8, "9": p.Dtmf9,
		"*": p.DtmfStar, "#": p.DtmfHash,
	}
	out := make(map[string]string, len(all))
	for key, dest := range all {
		if dest = strings.TrimSpace(dest); dest != "" {
			out[key] = dest
		}
	}
	return out
}

// DTMFMenu maps a single keypress to a destination rule set.
type DTMFMenu struct {
	inputRules
}

func (h *DTMFMenu) params(s *domain.Session) (*dtmfMenuParams, error) {
	var p dtmfMenuParams
	if err := decodeParams(s, &p, required(domain.RuleTypeDTMFMenu)...); err != nil {
		return nil, err
	}
	if len(p.destinations()) == 0 {
		return nil, s.ConfigError("menu has no dtmf destinations")
	}
	return &p, nil
}

func (h *DTMFMenu) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	return h.offer(s, &p.InputParams), nil
}

func (h *DTMFMenu) Input(_ context.Context, s *domain.Session, input string) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	input = strings.TrimSpace(input)
	if input == domain.InputNoInput && p.NoInputRuleSetName != "" {
		return transfer(s, p.NoInputRuleSetName), nil
	}
	dest, ok := p.destinations()[input]
	if !ok {
		return h.reject(s, &p.InputParams, input), nil
	}
	if p.OutputStateKey != "" {
		s.State.Set(p.OutputStateKey, input)
	}
	return transfer(s, dest), nil
}

func (h *DTMFMenu) Confirm(_ context.Context, s *domain.Session, _ string) (Outcome, error) {
	return Outcome{}, fmt.Errorf("%w: menus do not confirm", domain.ErrUnsupportedPhase)
}
