package rules

import (
	"context"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
)

// Controller dispatches lifecycle operations to the handler of the rule in scope.
type Controller struct {
	registry *Registry
}

// NewController creates a Controller over registry.
func NewController(registry *Registry) *Controller {
	return &Controller{registry: registry}
}

// Registry exposes the handler registry.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Execute runs the activation step of the rule in scope.
func (c *Controller) Execute(ctx context.Context, s *domain.Session) (Outcome, error) {
	h, err := c.handler(s)
	if err != nil {
		return Outcome{}, err
	}
	return h.Execute(ctx, s)
}

// Resume delivers input to the rule in scope according to the recorded phase.
func (c *Controller) Resume(ctx context.Context, s *domain.Session, input string) (Outcome, error) {
	h, err := c.handler(s)
	if err != nil {
		return Outcome{}, err
	}
	switch phase := s.Phase(); phase {
	case domain.PhaseInput:
		return h.Input(ctx, s, input)
	case domain.PhaseConfirm:
		return h.Confirm(ctx, s, input)
	default:
		return Outcome{}, fmt.Errorf("%w: rule %q is not awaiting input (phase %q)", domain.ErrUnsupportedPhase, s.RuleName(), phase)
	}
}

func (c *Controller) handler(s *domain.Session) (Handler, error) {
	ruleType := s.RuleType()
	h, ok := c.registry.Get(ruleType)
	if !ok {
		return nil, &domain.ConfigError{
			RuleSet: s.RuleSetName(),
			Rule:    s.RuleName(),
			Type:    ruleType,
			Err:     domain.ErrUnknownRuleType,
		}
	}
	return h, nil
}

// executeOnly is embedded by rule types that never await input.
type executeOnly struct{}

func (executeOnly) Input(_ context.Context, s *domain.Session, _ string) (Outcome, error) {
	return Outcome{}, fmt.Errorf("%w: %s rules do not accept input", domain.ErrUnsupportedPhase, s.RuleType())
}

func (executeOnly) Confirm(_ context.Context, s *domain.Session, _ string) (Outcome, error) {
	return Outcome{}, fmt.Errorf("%w: %s rules do not confirm", domain.ErrUnsupportedPhase, s.RuleType())
}
