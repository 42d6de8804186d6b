package dsl

import (
	"fmt"

	"github.com/aretw0/parley/internal/validator"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
)

// Builder manages rule set construction.
type Builder struct {
	sets  map[string]*RuleSetBuilder
	order []string
}

// New creates a new rule set builder.
func New() *Builder {
	return &Builder{
		sets: make(map[string]*RuleSetBuilder),
	}
}

// RuleSet creates a new enabled rule set.
// If the rule set already exists, it returns the existing builder.
func (b *Builder) RuleSet(name string) *RuleSetBuilder {
	if rb, ok := b.sets[name]; ok {
		return rb
	}
	rb := &RuleSetBuilder{
		set: domain.RuleSet{Name: name, Enabled: true},
	}
	b.sets[name] = rb
	b.order = append(b.order, name)
	return rb
}

// RuleSets returns the declared rule sets in declaration order without validating them.
func (b *Builder) RuleSets() []domain.RuleSet {
	out := make([]domain.RuleSet, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.sets[name].build())
	}
	return out
}

// Build validates the declared rule sets and returns them.
func (b *Builder) Build() ([]domain.RuleSet, error) {
	sets := b.RuleSets()
	if err := validator.Validate(sets, nil); err != nil {
		return nil, fmt.Errorf("invalid rule sets: %w", err)
	}
	return sets, nil
}

// Provider compiles the rule sets into an in-memory Config Provider.
func (b *Builder) Provider() (*memory.Provider, error) {
	sets, err := b.Build()
	if err != nil {
		return nil, err
	}
	return memory.NewProvider(sets...), nil
}

// MustProvider is like Provider but panics on invalid rule sets.
func (b *Builder) MustProvider() *memory.Provider {
	p, err := b.Provider()
	if err != nil {
		panic(err)
	}
	return p
}
