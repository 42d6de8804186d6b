package parley

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/rules"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/adapters/gotemplate"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
	"github.com/aretw0/parley/pkg/session"
)

// Engine is the high-level entry point of the parley library.
// It wires the configuration cache, the rule handlers and the session lock
// around the internal runtime and exposes the Turn API.
type Engine struct {
	runtime  *runtime.Engine
	cache    *runtime.ConfigCache
	sessions *session.Manager
	logger   *slog.Logger

	templates    ports.TemplateEngine
	classifier   ports.Classifier
	speech       ports.SpeechRenderer
	invoker      ports.AsyncInvoker
	functions    *registry.Registry
	local        *registry.Invoker
	metrics      ports.MetricSink
	hooks        domain.LifecycleHooks
	locker       ports.DistributedLocker
	clock        func() time.Time
	random       func() float64
	pollInterval time.Duration
	maxSteps     int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTemplateEngine sets the engine rendering "{{ }}" expressions. The default
// is gotemplate with the sprig function library.
func WithTemplateEngine(t ports.TemplateEngine) Option {
	return func(e *Engine) {
		e.templates = t
	}
}

// WithClassifier sets the NLU classifier used by NLUInput and NLUMenu rules.
func WithClassifier(c ports.Classifier) Option {
	return func(e *Engine) {
		e.classifier = c
	}
}

// WithSpeechRenderer enables audio for requests with WantAudio set.
func WithSpeechRenderer(s ports.SpeechRenderer) Option {
	return func(e *Engine) {
		e.speech = s
	}
}

// WithInvoker sets the dispatcher used by Integration rules.
func WithInvoker(i ports.AsyncInvoker) Option {
	return func(e *Engine) {
		e.invoker = i
	}
}

// WithRegistry runs Integration functions in-process from reg. It is ignored
// when WithInvoker is also given.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.functions = reg
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithMetricSink receives the values emitted by Metric rules.
func WithMetricSink(sink ports.MetricSink) Option {
	return func(e *Engine) {
		e.metrics = sink
	}
}

// WithLocker coordinates turns of the same session across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithRandom overrides the [0,1) source used by Distribution rules.
func WithRandom(random func() float64) Option {
	return func(e *Engine) {
		e.random = random
	}
}

// WithPollInterval sets the sleep between integration status reads.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.pollInterval = d
	}
}

// WithMaxSteps bounds the rules activated automatically in one turn.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// New creates an Engine serving the rule sets of provider and persisting
// sessions in store.
func New(provider ports.ConfigProvider, store ports.StateStore, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, errors.New("parley: config provider is required")
	}
	if store == nil {
		return nil, errors.New("parley: state store is required")
	}

	e := &Engine{logger: logging.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.templates == nil {
		e.templates = gotemplate.New()
	}
	if e.invoker == nil && e.functions != nil {
		e.local = registry.NewInvoker(e.functions, store, registry.WithLogger(e.logger))
		e.invoker = e.local
	}

	resolver := templating.New(e.templates)
	deps := rules.Deps{
		Resolver:     resolver,
		Classifier:   e.classifier,
		Invoker:      e.invoker,
		Store:        store,
		Metrics:      e.metrics,
		Clock:        e.clock,
		Random:       e.random,
		PollInterval: e.pollInterval,
		Logger:       e.logger,
	}
	controller := rules.NewController(rules.DefaultRegistry(deps))

	e.cache = runtime.NewConfigCache(provider)
	e.runtime = runtime.NewEngine(e.cache, store, controller,
		runtime.WithLogger(e.logger),
		runtime.WithResolver(resolver),
		runtime.WithSpeechRenderer(e.speech),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithClock(e.clock),
		runtime.WithMaxSteps(e.maxSteps),
	)

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(store, sessionOpts...)
	return e, nil
}

// Turn processes one request under the session lock.
func (e *Engine) Turn(ctx context.Context, req domain.Request) (*domain.Response, error) {
	var resp *domain.Response
	err := e.sessions.WithLock(ctx, req.SessionID, func(ctx context.Context) error {
		var err error
		resp, err = e.runtime.Turn(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Invalidate forces the configuration to reload on the next turn.
func (e *Engine) Invalidate() {
	e.cache.Invalidate()
}

// RuleSets returns the currently served rule sets, loading them if needed.
func (e *Engine) RuleSets(ctx context.Context) ([]domain.RuleSet, error) {
	cfg, err := e.cache.GetOrLoad(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.RuleSets, nil
}

// Sessions exposes the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Wait blocks until in-process integration functions started by WithRegistry
// have finished.
func (e *Engine) Wait() {
	if e.local != nil {
		e.local.Wait()
	}
}
