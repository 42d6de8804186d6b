package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// DefaultAutoConfirmConfidence is the classification confidence that allows a
// value to be committed without a yes/no turn.
const DefaultAutoConfirmConfidence = 0.8

// classify maps the channel sentinels to synthetic intents and delegates
// everything else to the classifier.
func (h *inputRules) classify(ctx context.Context, s *domain.Session, botID, input string) (*domain.Classification, error) {
	switch strings.TrimSpace(input) {
	case "", domain.InputNoInput:
		return &domain.Classification{Intent: domain.IntentNoData}, nil
	case domain.InputNoMatch:
		return &domain.Classification{Intent: domain.IntentFallback}, nil
	}
	if h.deps.Classifier == nil {
		return nil, s.ConfigError("no NLU classifier configured")
	}
	c, err := h.deps.Classifier.Classify(ctx, botID, input, s.ID)
	if err != nil {
		return nil, fmt.Errorf("classify with bot %q: %w", botID, err)
	}
	if c == nil {
		return &domain.Classification{Intent: domain.IntentFallback}, nil
	}
	return c, nil
}

type nluInputParams struct {
	InputParams           `mapstructure:",squash"`
	BotName               string  `mapstructure:"botName"`
	BotID                 string  `mapstructure:"botId"`
	DataType              string  `mapstructure:"dataType"`
	MinValue              string  `mapstructure:"minValue"`
	MaxValue              string  `mapstructure:"maxValue"`
	AutoConfirm           bool    `mapstructure:"autoConfirm"`
	AutoConfirmConfidence float64 `mapstructure:"autoConfirmConfidence"`
	AutoConfirmMessage    string  `mapstructure:"autoConfirmMessage"`
	NoDataRuleSetName     string  `mapstructure:"noDataRuleSetName"`
}

func (p *nluInputParams) threshold() float64 {
	if p.AutoConfirmConfidence <= 0 {
		return DefaultAutoConfirmConfidence
	}
	return p.AutoConfirmConfidence
}

// NLUInput captures a typed value from free speech or text.
type NLUInput struct {
	inputRules
}

func (h *NLUInput) params(s *domain.Session) (*nluInputParams, error) {
	var p nluInputParams
	if err := decodeParams(s, &p, required(domain.RuleTypeNLUInput)...); err != nil {
		return nil, err
	}
	if !KnownNLUType(p.DataType) {
		return nil, s.ConfigError("unknown dataType %q", p.DataType)
	}
	if p.BotID == "" {
		p.BotID = p.BotName
	}
	return &p, nil
}

func (h *NLUInput) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	return h.offer(s, &p.InputParams), nil
}

func (h *NLUInput) Input(ctx context.Context, s *domain.Session, input string) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	c, err := h.classify(ctx, s, p.BotID, input)
	if err != nil {
		return Outcome{}, err
	}

	if c.Intent == domain.IntentNoData && p.NoDataRuleSetName != "" && c.Confidence >= p.threshold() {
		return transfer(s, p.NoDataRuleSetName), nil
	}
	if c.Intent == domain.IntentNoData || c.Intent == domain.IntentFallback {
		return h.reject(s, &p.InputParams, input), nil
	}

	raw := c.Slot(p.DataType)
	if raw == "" {
		raw = input
	}
	value, ok := ValidateNLU(p.DataType, raw, p.MinValue, p.MaxValue)
	if !ok {
		return h.reject(s, &p.InputParams, input), nil
	}

	if p.AutoConfirm && c.Confidence >= p.threshold() {
		s.State.Set(domain.KeyCaptured, value)
		out, err := h.commit(s, &p.InputParams)
		if err != nil {
			return Outcome{}, err
		}
		msg, err := h.renderWith(s, p.AutoConfirmMessage, "", nil)
		if err != nil {
			return Outcome{}, err
		}
		out.Message = msg
		return out, nil
	}
	return h.capture(s, &p.InputParams, value)
}

func (h *NLUInput) Confirm(_ context.Context, s *domain.Session, input string) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	return h.confirm(s, &p.InputParams, input)
}

// IntentRoute maps one intent of an NLU menu to a destination.
type IntentRoute struct {
	Intent              string `mapstructure:"intent"`
	RuleSetName         string `mapstructure:"ruleSetName"`
	ConfirmationMessage string `mapstructure:"confirmationMessage"`
}

type nluMenuParams struct {
	InputParams `mapstructure:",squash"`
	BotName     string        `mapstructure:"botName"`
	BotID       string        `mapstructure:"botId"`
	Intents     []IntentRoute `mapstructure:"intents"`
}

func (p *nluMenuParams) route(intent string) (*IntentRoute, bool) {
	for i := range p.Intents {
		if strings.EqualFold(p.Intents[i].Intent, intent) {
			return &p.Intents[i], true
		}
	}
	return nil, false
}

// NLUMenu classifies free text into one of several named intents.
type NLUMenu struct {
	inputRules
}

func (h *NLUMenu) params(s *domain.Session) (*nluMenuParams, error) {
	var p nluMenuParams
	if err := decodeParams(s, &p, required(domain.RuleTypeNLUMenu)...); err != nil {
		return nil, err
	}
	for i, r := range p.Intents {
		if r.Intent == "" || r.RuleSetName == "" {
			return nil, s.ConfigError("intent %d needs both intent and ruleSetName", i)
		}
	}
	if p.BotID == "" {
		p.BotID = p.BotName
	}
	return &p, nil
}

func (h *NLUMenu) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	return h.offer(s, &p.InputParams), nil
}

func (h *NLUMenu) Input(ctx context.Context, s *domain.Session, input string) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	c, err := h.classify(ctx, s, p.BotID, input)
	if err != nil {
		return Outcome{}, err
	}
	route, ok := p.route(c.Intent)
	if !ok {
		return h.reject(s, &p.InputParams, input), nil
	}
	if p.OutputStateKey != "" {
		s.State.Set(p.OutputStateKey, route.Intent)
	}
	if strings.TrimSpace(route.ConfirmationMessage) == "" {
		return transfer(s, route.RuleSetName), nil
	}
	msg, err := h.renderWith(s, route.ConfirmationMessage, "", nil)
	if err != nil {
		return Outcome{}, err
	}
	s.State.Set(domain.KeyCaptured, route.Intent)
	s.SetPhase(domain.PhaseConfirm)
	return AwaitInput(msg), nil
}

func (h *NLUMenu) Confirm(_ context.Context, s *domain.Session, input string) (Outcome, error) {
	p, err := h.params(s)
	if err != nil {
		return Outcome{}, err
	}
	if !Affirmative(input) {
		return h.reject(s, &p.InputParams, input), nil
	}
	route, ok := p.route(s.State.GetString(domain.KeyCaptured))
	if !ok {
		return Outcome{}, s.ConfigError("confirmed intent %q is not mapped", s.State.GetString(domain.KeyCaptured))
	}
	return transfer(s, route.RuleSetName), nil
}
