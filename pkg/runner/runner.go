package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// DefaultMaxResumes bounds consecutive resume turns that produce no input request.
const DefaultMaxResumes = 50

// ErrResumeLimit is returned when the engine keeps handing control back without
// ever asking for input or terminating.
var ErrResumeLimit = errors.New("runner: too many consecutive resumes")

// hangupTimeout bounds the best-effort hangup sent when the customer leaves.
const hangupTimeout = 5 * time.Second

// Runner drives a conversation against a TurnEngine: it opens the session with
// a new event, prints every response, reads a line when input is required and
// resumes otherwise, until a response terminates the session.
type Runner struct {
	// Handler is the IO strategy. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Logger is used for debug logging. Defaults to a no-op logger.
	Logger *slog.Logger

	// SessionID identifies the conversation. A random one is used when empty.
	SessionID string

	// EndPoint selects the entry rule set.
	EndPoint string

	// ContactAttributes are sent with every request.
	ContactAttributes map[string]string

	// MaxResumes bounds consecutive resumes. Zero means DefaultMaxResumes.
	MaxResumes int
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:     logging.NewNop(),
		MaxResumes: DefaultMaxResumes,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.SessionID == "" {
		r.SessionID = uuid.NewString()
	}
	return r
}

// Run executes the conversation loop. It returns nil when the session
// terminates or the customer leaves (EOF, "exit", "quit" or an interrupt).
func (r *Runner) Run(ctx context.Context, engine ports.TurnEngine) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	maxResumes := r.MaxResumes
	if maxResumes <= 0 {
		maxResumes = DefaultMaxResumes
	}

	resp, err := engine.Turn(ctx, r.request(domain.EventNew, ""))
	resumes := 0
	for {
		if err != nil {
			return fmt.Errorf("turn error: %w", err)
		}
		if err := r.Handler.Output(ctx, resp); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		r.Logger.Debug("turn complete",
			"rule_set", resp.RuleSet, "rule", resp.Rule,
			"input_required", resp.InputRequired, "terminate", resp.Terminate)

		if resp.Terminate {
			return nil
		}

		if !resp.InputRequired {
			resumes++
			if resumes > maxResumes {
				return ErrResumeLimit
			}
			resp, err = engine.Turn(ctx, r.request(domain.EventResume, ""))
			continue
		}
		resumes = 0

		input, err := r.Handler.Input(signals.Context())
		if err != nil {
			signals.CheckRace()
			if signals.Interrupted() || errors.Is(err, io.EOF) {
				r.Logger.Debug("customer left", "error", err)
				r.hangup(ctx, engine)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		if input == "exit" || input == "quit" {
			r.hangup(ctx, engine)
			return nil
		}

		resp, err = engine.Turn(ctx, r.request(domain.EventInput, input))
	}
}

func (r *Runner) request(event domain.EventType, input string) domain.Request {
	return domain.Request{
		SessionID:         r.SessionID,
		EndPoint:          r.EndPoint,
		EventType:         event,
		Input:             input,
		ContactAttributes: r.ContactAttributes,
	}
}

// hangup tells the engine the customer is gone. Failures are only logged.
func (r *Runner) hangup(ctx context.Context, engine ports.TurnEngine) {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hangupTimeout)
	defer cancel()
	if _, err := engine.Turn(hctx, r.request(domain.EventHangup, "")); err != nil {
		r.Logger.Debug("hangup failed", "error", err)
	}
}
