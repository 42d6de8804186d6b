package rules

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/ports"
)

const (
	// DefaultPollInterval is the sleep between integration status reads.
	DefaultPollInterval = 250 * time.Millisecond
	// DefaultIntegrationTimeout bounds the wait for an integration worker.
	DefaultIntegrationTimeout = 5 * time.Second
	// MaxIntegrationTimeout keeps the wait inside the distributed session lock TTL.
	MaxIntegrationTimeout = 25 * time.Second
)

// Deps are the collaborators shared by the built-in handlers.
type Deps struct {
	Resolver     *templating.Resolver
	Classifier   ports.Classifier
	Invoker      ports.AsyncInvoker
	Store        ports.StateStore
	Metrics      ports.MetricSink
	Clock        func() time.Time
	Random       func() float64
	PollInterval time.Duration
	Logger       *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Resolver == nil {
		d.Resolver = templating.New(nil)
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Random == nil {
		d.Random = rand.Float64
	}
	if d.PollInterval <= 0 {
		d.PollInterval = DefaultPollInterval
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = nopSink{}
	}
	return d
}

type nopSink struct{}

func (nopSink) Emit(context.Context, string, float64) {}
