package rules

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Handler is the lifecycle contract shared by every rule type.
type Handler interface {
	Execute(ctx context.Context, s *domain.Session) (Outcome, error)
	Input(ctx context.Context, s *domain.Session, input string) (Outcome, error)
	Confirm(ctx context.Context, s *domain.Session, input string) (Outcome, error)
}

// Registry maps rule types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds ruleType to h, replacing any previous binding.
func (r *Registry) Register(ruleType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[ruleType] = h
}

// Get returns the handler for ruleType.
func (r *Registry) Get(ruleType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[ruleType]
	return h, ok
}

// Types lists the registered rule types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultRegistry registers the built-in handler for every rule type.
func DefaultRegistry(deps Deps) *Registry {
	deps = deps.withDefaults()
	reg := NewRegistry()
	reg.Register(domain.RuleTypeDTMFInput, &DTMFInput{inputRules{deps: deps}})
	reg.Register(domain.RuleTypeDTMFMenu, &DTMFMenu{inputRules{deps: deps}})
	reg.Register(domain.RuleTypeNLUInput, &NLUInput{inputRules{deps: deps}})
	reg.Register(domain.RuleTypeNLUMenu, &NLUMenu{inputRules{deps: deps}})
	reg.Register(domain.RuleTypeDistribution, &Distribution{deps: deps})
	reg.Register(domain.RuleTypeRuleSet, &RuleSetTransfer{})
	reg.Register(domain.RuleTypeIntegration, &Integration{deps: deps})
	reg.Register(domain.RuleTypeSetAttributes, &BulkUpdate{deps: deps, param: "setAttributes", prefix: domain.KeyContactAttributes + "."})
	reg.Register(domain.RuleTypeUpdateStates, &BulkUpdate{deps: deps, param: "updateStates"})
	reg.Register(domain.RuleTypeMessage, &Message{})
	reg.Register(domain.RuleTypeMetric, &Metric{deps: deps})
	reg.Register(domain.RuleTypeQueue, &Queue{})
	reg.Register(domain.RuleTypeExternalNumber, &ExternalNumber{})
	reg.Register(domain.RuleTypeTerminate, &TerminateRule{})
	return reg
}
