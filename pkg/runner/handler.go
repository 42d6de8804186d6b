package runner

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// IOHandler defines how the runner talks to the person on the other end.
// This allows switching between text (terminal) and JSON-lines (piped) modes.
type IOHandler interface {
	// Output presents the result of a turn.
	Output(ctx context.Context, resp *domain.Response) error

	// Input reads the next customer utterance. It returns io.EOF when the
	// customer is gone.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (transfers, errors, notices) that is
	// not part of the dialogue content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms prompt text before it is printed, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)
