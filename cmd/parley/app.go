package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/adapters/gotemplate"
	"github.com/aretw0/parley/pkg/adapters/memory"
	natsAdapter "github.com/aretw0/parley/pkg/adapters/nats"
	"github.com/aretw0/parley/pkg/adapters/openai"
	"github.com/aretw0/parley/pkg/adapters/postgres"
	"github.com/aretw0/parley/pkg/adapters/process"
	redisAdapter "github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/persistence/middleware"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
)

// app holds the collaborators shared by the long-running commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	provider  *file.Provider
	store     ports.StateStore
	engine    *parley.Engine
	functions *registry.Registry
	metrics   *prometheus.Registry
	nc        *natsgo.Conn

	closers []func() error
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// newApp wires the engine from cfg. Callers must Close the result.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		provider: file.NewProvider(cfg.RulesPath),
		metrics:  prometheus.NewRegistry(),
	}
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, locker, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	if a.functions, err = loadFunctions(cfg, logger); err != nil {
		_ = a.Close()
		return nil, err
	}

	metrics := observability.NewMetrics(a.metrics)
	opts := []parley.Option{
		parley.WithLogger(logger),
		parley.WithTemplateEngine(gotemplate.New()),
		parley.WithLifecycleHooks(observability.Merge(observability.LogHooks(logger), metrics.Hooks())),
		parley.WithMetricSink(metrics),
		parley.WithPollInterval(cfg.PollInterval),
		parley.WithMaxSteps(cfg.MaxSteps),
	}
	if locker != nil {
		opts = append(opts, parley.WithLocker(locker))
	}

	if client := openai.NewClient(cfg.OpenAI); client != nil {
		opts = append(opts,
			parley.WithClassifier(openai.NewClassifier(client, cfg.OpenAI.Model)),
			parley.WithSpeechRenderer(openai.NewSpeech(client, "", cfg.OpenAI.Voice)),
		)
		logger.Debug("openai collaborators enabled", "model", cfg.OpenAI.Model)
	}

	if cfg.NATS.URL != "" {
		nc, err := natsgo.Connect(cfg.NATS.URL, natsgo.Name("parley"))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.nc = nc
		a.closers = append(a.closers, func() error { return nc.Drain() })
		opts = append(opts, parley.WithInvoker(natsAdapter.NewInvoker(nc, cfg.NATS.SubjectPrefix)))
		logger.Debug("integration functions dispatched over nats", "url", cfg.NATS.URL)
	} else {
		opts = append(opts, parley.WithRegistry(a.functions))
	}

	engine, err := parley.New(a.provider, a.store, opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}

// Close waits for in-process integrations and releases connections.
func (a *app) Close() error {
	if a.engine != nil {
		a.engine.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openStore builds the configured State Store, wrapped with encryption when keys
// are configured. The locker is nil unless the backend is shared across processes.
func openStore(ctx context.Context, cfg *config.Config) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.StateStore
		locker ports.DistributedLocker
		closer = func() error { return nil }
	)

	switch cfg.Store {
	case "memory":
		store = memory.NewStore()
	case "file":
		store = file.NewStore(cfg.FileStorePath)
	case "redis":
		rs := redisAdapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisAdapter.WithPrefix(cfg.Redis.Prefix),
			redisAdapter.WithTTL(cfg.Redis.TTL),
		)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			_ = rs.Close()
			return nil, nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		store = rs
		locker = redisAdapter.NewLocker(rs.Client(), cfg.Redis.Prefix+"lock:")
		closer = rs.Close
	case "postgres":
		ps := postgres.New(cfg.PostgresDSN)
		if err := ps.Migrate(ctx); err != nil {
			_ = ps.Close()
			return nil, nil, nil, err
		}
		store = ps
		closer = ps.Close
	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	keys, err := cfg.EncryptionKeys()
	if err != nil {
		_ = closer()
		return nil, nil, nil, err
	}
	if len(keys) > 0 {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    keys[0],
			FallbackKeys: keys[1:],
		}))
	}
	return store, locker, closer, nil
}

func loadFunctions(cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	defs, err := process.LoadFunctions(cfg.FunctionsPath)
	if err != nil {
		return nil, err
	}
	if names := process.Register(reg, defs); len(names) > 0 {
		logger.Debug("integration functions registered", "functions", names)
	}
	return reg, nil
}
