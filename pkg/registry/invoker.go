package registry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Invoker implements ports.AsyncInvoker by running registered functions on
// background goroutines within the same process.
type Invoker struct {
	registry *Registry
	store    ports.StateStore
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithLogger sets the logger for function failures.
func WithLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// NewInvoker creates an in-process invoker reporting through store.
func NewInvoker(reg *Registry, store ports.StateStore, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		registry: reg,
		store:    store,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// InvokeAsync starts the function and returns immediately. The function outlives
// the caller's context cancellation but keeps its values.
func (i *Invoker) InvokeAsync(ctx context.Context, functionRef string, inv domain.Invocation) error {
	if _, ok := i.registry.Lookup(functionRef, inv.FunctionName); !ok {
		return errors.New("function not found: " + functionRef)
	}
	bg := context.WithoutCancel(ctx)
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := Complete(bg, i.registry, i.store, inv); err != nil {
			i.logger.Warn("integration function failed",
				"session_id", inv.SessionID,
				"function", functionRef,
				"request_id", inv.RequestID,
				"error", err)
		}
	}()
	return nil
}

// Wait blocks until every started function has reported.
func (i *Invoker) Wait() {
	i.wg.Wait()
}
