package rules

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// DefaultMaxErrorCount is used when a rule does not set maxErrorCount.
const DefaultMaxErrorCount = 3

// InputParams are shared by every rule type that captures customer input.
type InputParams struct {
	OfferMessage        string `mapstructure:"offerMessage"`
	OutputStateKey      string `mapstructure:"outputStateKey"`
	ErrorMessage1       string `mapstructure:"errorMessage1"`
	ErrorMessage2       string `mapstructure:"errorMessage2"`
	ErrorMessage3       string `mapstructure:"errorMessage3"`
	ConfirmationMessage string `mapstructure:"confirmationMessage"`
	MaxErrorCount       int    `mapstructure:"maxErrorCount"`
	ErrorRuleSetName    string `mapstructure:"errorRuleSetName"`
}

func (p *InputParams) maxErrors() int {
	if p.MaxErrorCount <= 0 {
		return DefaultMaxErrorCount
	}
	return p.MaxErrorCount
}

// errorMessage picks the re-prompt for the n-th error, falling back to earlier
// error messages and finally to the offer.
func (p *InputParams) errorMessage(n int) string {
	messages := []string{p.ErrorMessage1, p.ErrorMessage2, p.ErrorMessage3}
	if n > len(messages) {
		n = len(messages)
	}
	for i := n - 1; i >= 0; i-- {
		if messages[i] != "" {
			return messages[i]
		}
	}
	return p.OfferMessage
}

var affirmatives = map[string]struct{}{
	"1": {}, "yes": {}, "y": {}, "yeah": {}, "yep": {}, "yup": {},
	"correct": {}, "true": {}, "right": {}, "ok": {}, "okay": {}, "sure": {},
	"that's right": {}, "that is right": {}, "that's correct": {}, "that is correct": {},
}

// Affirmative reports whether a confirmation answer means "yes".
func Affirmative(input string) bool {
	clean := strings.ToLower(strings.TrimSpace(input))
	clean = strings.TrimRight(clean, ".!")
	_, ok := affirmatives[clean]
	return ok
}

// inputRules holds the lifecycle shared by the input-capturing handlers.
type inputRules struct {
	deps Deps
}

func errorCount(s *domain.Session) int {
	n, _ := s.State.GetNumber(domain.KeyErrorCount)
	return int(n)
}

// offer puts the rule in the input phase and plays the offer.
func (h *inputRules) offer(s *domain.Session, p *InputParams) Outcome {
	s.State.Set(domain.KeyErrorCount, 0)
	s.SetPhase(domain.PhaseInput)
	return AwaitInput(p.OfferMessage)
}

// reject counts an invalid answer and either re-prompts or escalates.
func (h *inputRules) reject(s *domain.Session, p *InputParams, input string) Outcome {
	n := errorCount(s) + 1
	s.State.Set(domain.KeyErrorCount, n)
	s.Logger.Debug("input rejected", "input", input, "error_count", n, "max_error_count", p.maxErrors())

	if n >= p.maxErrors() {
		return h.escalate(s, p, n)
	}
	s.SetPhase(domain.PhaseInput)
	return AwaitInput(p.errorMessage(n))
}

// escalate routes to the error rule set, or terminates when none is configured.
func (h *inputRules) escalate(s *domain.Session, p *InputParams, n int) Outcome {
	s.SetPhase("")
	if p.ErrorRuleSetName != "" {
		s.Logger.Info("max errors reached, routing to error rule set", "error_rule_set", p.ErrorRuleSetName, "error_count", n)
		s.State.Set(domain.KeyNextRuleSet, p.ErrorRuleSetName)
		return Continue("")
	}
	s.Logger.Info("max errors reached, terminating", "error_count", n)
	s.State.Set(domain.KeyTerminating, true)
	msg := p.errorMessage(n)
	if msg == p.OfferMessage {
		msg = ""
	}
	return Terminate(msg)
}

// capture accepts a valid value: it asks for confirmation when a confirmation
// message is configured and commits directly otherwise.
func (h *inputRules) capture(s *domain.Session, p *InputParams, value any) (Outcome, error) {
	s.State.Set(domain.KeyCaptured, value)
	if strings.TrimSpace(p.ConfirmationMessage) == "" {
		return h.commit(s, p)
	}
	msg, err := h.renderWith(s, p.ConfirmationMessage, p.OutputStateKey, value)
	if err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(msg) == "" {
		return h.commit(s, p)
	}
	s.SetPhase(domain.PhaseConfirm)
	return AwaitInput(msg), nil
}

// confirm handles a yes/no answer for a captured value.
func (h *inputRules) confirm(s *domain.Session, p *InputParams, input string) (Outcome, error) {
	if Affirmative(input) {
		return h.commit(s, p)
	}
	return h.reject(s, p, input), nil
}

// commit writes the captured value to the output key and leaves the input phase.
func (h *inputRules) commit(s *domain.Session, p *InputParams) (Outcome, error) {
	value, ok := s.State.Get(domain.KeyCaptured)
	if !ok {
		return Outcome{}, s.ConfigError("nothing captured to commit")
	}
	if p.OutputStateKey != "" && !s.State.Set(p.OutputStateKey, value) {
		return Outcome{}, s.ConfigError("cannot write output state key %q", p.OutputStateKey)
	}
	s.SetPhase("")
	return Continue(""), nil
}

// renderWith renders tmpl against a clone of state holding value at key, so the
// message can refer to the value before it is committed.
func (h *inputRules) renderWith(s *domain.Session, tmpl, key string, value any) (string, error) {
	doc := s.State
	if key != "" {
		doc = s.State.Clone()
		doc.Set(key, value)
	}
	out, err := h.deps.Resolver.Render(tmpl, doc)
	if err != nil {
		return "", fmt.Errorf("rule %q: %w", s.RuleName(), err)
	}
	return out, nil
}

// transfer sets the rule set activated next and leaves the input phase.
func transfer(s *domain.Session, ruleSet string) Outcome {
	s.SetPhase("")
	s.State.Set(domain.KeyNextRuleSet, ruleSet)
	return Continue("")
}
