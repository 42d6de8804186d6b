package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// Provider implements ports.ConfigProvider over rule sets held in memory.
// Replacing the rule sets moves LastChangedAt, which invalidates engine caches.
type Provider struct {
	mu        sync.RWMutex
	ruleSets  []domain.RuleSet
	lookups   domain.Lookups
	changedAt time.Time
}

// NewProvider creates a provider serving ruleSets.
func NewProvider(ruleSets ...domain.RuleSet) *Provider {
	return &Provider{
		ruleSets:  ruleSets,
		changedAt: time.Now(),
	}
}

// WithLookups sets the name lookup tables and returns the provider.
func (p *Provider) WithLookups(l domain.Lookups) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups = l
	p.touch()
	return p
}

// SetRuleSets replaces the served rule sets.
func (p *Provider) SetRuleSets(ruleSets ...domain.RuleSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ruleSets = ruleSets
	p.touch()
}

// touch guarantees a strictly later timestamp even within one clock tick.
func (p *Provider) touch() {
	now := time.Now()
	if !now.After(p.changedAt) {
		now = p.changedAt.Add(time.Nanosecond)
	}
	p.changedAt = now
}

func (p *Provider) LastChangedAt(ctx context.Context) (time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.changedAt, nil
}

func (p *Provider) RuleSets(ctx context.Context) ([]domain.RuleSet, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.RuleSet, len(p.ruleSets))
	copy(out, p.ruleSets)
	return out, nil
}

func (p *Provider) Lookups(ctx context.Context) (domain.Lookups, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookups, nil
}
