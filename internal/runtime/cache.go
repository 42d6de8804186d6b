package runtime

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// ConfigCache holds the process-wide configuration snapshot. Every GetOrLoad
// checks the provider's last-changed timestamp; concurrent reloads collapse
// into one provider call.
type ConfigCache struct {
	provider ports.ConfigProvider

	mu         sync.RWMutex
	cfg        *domain.Config
	generation uint64

	group singleflight.Group
}

// NewConfigCache creates an empty cache over provider.
func NewConfigCache(provider ports.ConfigProvider) *ConfigCache {
	return &ConfigCache{provider: provider}
}

// GetOrLoad returns the cached snapshot, reloading it when the provider reports a
// change or the cache was invalidated.
func (c *ConfigCache) GetOrLoad(ctx context.Context) (*domain.Config, error) {
	changedAt, err := c.provider.LastChangedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("config last changed: %w", err)
	}

	c.mu.RLock()
	cfg, gen := c.cfg, c.generation
	c.mu.RUnlock()

	if cfg != nil && cfg.ChangedAt.Equal(changedAt) {
		return cfg, nil
	}

	// Keying by generation keeps a caller that arrives after Invalidate from
	// joining a load that started before it.
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		c.mu.RLock()
		current := c.cfg
		c.mu.RUnlock()
		if current != nil && current.ChangedAt.Equal(changedAt) {
			return current, nil
		}
		loaded, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.cfg = loaded
		}
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Config), nil
}

// Invalidate drops the cached snapshot; the next GetOrLoad reloads.
func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	c.cfg = nil
	c.generation++
	c.mu.Unlock()
}

func (c *ConfigCache) load(ctx context.Context) (*domain.Config, error) {
	// Read the timestamp first so a change racing the load triggers another reload.
	changedAt, err := c.provider.LastChangedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("config last changed: %w", err)
	}
	ruleSets, err := c.provider.RuleSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rule sets: %w", err)
	}
	lookups, err := c.provider.Lookups(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lookups: %w", err)
	}
	return domain.NewConfig(ruleSets, lookups, changedAt)
}
