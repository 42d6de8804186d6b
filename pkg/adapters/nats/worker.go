package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
	"github.com/nats-io/nats.go"
)

// DefaultQueueGroup load-balances invocations across workers.
const DefaultQueueGroup = "parley-workers"

// Worker consumes invocations and runs them against a function registry.
type Worker struct {
	conn     *nats.Conn
	prefix   string
	queue    string
	registry *registry.Registry
	store    ports.StateStore
	logger   *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the worker logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithQueueGroup overrides the queue group.
func WithQueueGroup(queue string) WorkerOption {
	return func(w *Worker) {
		w.queue = queue
	}
}

// WithSubjectPrefix overrides DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) WorkerOption {
	return func(w *Worker) {
		w.prefix = prefix
	}
}

// NewWorker creates a worker. It does not subscribe until Run is called.
func NewWorker(conn *nats.Conn, reg *registry.Registry, store ports.StateStore, opts ...WorkerOption) *Worker {
	w := &Worker{
		conn:     conn,
		prefix:   DefaultSubjectPrefix,
		queue:    DefaultQueueGroup,
		registry: reg,
		store:    store,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run subscribes and processes invocations until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := w.conn.QueueSubscribe(w.prefix+">", w.queue, func(msg *nats.Msg) {
		w.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s>: %w", w.prefix, err)
	}
	if err := w.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain subscription: %w", err)
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, msg *nats.Msg) {
	var inv domain.Invocation
	if err := json.Unmarshal(msg.Data, &inv); err != nil {
		w.logger.Error("invalid invocation payload", "subject", msg.Subject, "error", err)
		return
	}
	log := w.logger.With("session_id", inv.SessionID, "function", inv.FunctionName, "request_id", inv.RequestID)

	err := registry.Complete(context.WithoutCancel(ctx), w.registry, w.store, inv)
	switch {
	case err == nil:
		log.Debug("integration completed")
	case errors.Is(err, registry.ErrStaleInvocation):
		log.Info("integration result discarded, session moved on")
	default:
		log.Warn("integration failed", "error", err)
	}
}
