package ports

import (
	"context"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// ConfigProvider defines how the engine retrieves rule sets and lookup tables.
// The engine polls LastChangedAt at the start of every turn and reloads its cache
// when the timestamp moves.
type ConfigProvider interface {
	LastChangedAt(ctx context.Context) (time.Time, error)
	RuleSets(ctx context.Context) ([]domain.RuleSet, error)
	Lookups(ctx context.Context) (domain.Lookups, error)
}
