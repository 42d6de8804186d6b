package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// TemplateEngine renders a template against a data tree.
type TemplateEngine interface {
	Render(tmpl string, data map[string]any) (string, error)
}

// Classifier resolves free text (or a keypad token) to an intent.
type Classifier interface {
	Classify(ctx context.Context, botID, text, sessionID string) (*domain.Classification, error)
}

// SpeechRenderer turns prompt text into audio bytes.
type SpeechRenderer interface {
	Render(ctx context.Context, text string) ([]byte, error)
}

// AsyncInvoker dispatches a long-running function without waiting for its result.
// The function reports back by updating the session state through the StateStore.
type AsyncInvoker interface {
	InvokeAsync(ctx context.Context, functionRef string, inv domain.Invocation) error
}

// MetricSink receives values emitted by Metric rules.
type MetricSink interface {
	Emit(ctx context.Context, name string, value float64)
}

// TurnEngine is the driving port used by transport adapters (HTTP, MCP, CLI).
type TurnEngine interface {
	Turn(ctx context.Context, req domain.Request) (*domain.Response, error)
}
