// Package nats dispatches integration functions over NATS subjects.
//
// The engine side publishes each invocation to "<prefix><functionRef>" and returns
// immediately. A Worker subscribed to "<prefix>>" runs the function from a
// registry.Registry and reports back through the shared State Store.
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the function reference.
const DefaultSubjectPrefix = "parley.integration."

// Invoker implements ports.AsyncInvoker by publishing to NATS.
type Invoker struct {
	conn   *nats.Conn
	prefix string
}

// NewInvoker creates an invoker publishing on conn. An empty prefix selects
// DefaultSubjectPrefix.
func NewInvoker(conn *nats.Conn, prefix string) *Invoker {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Invoker{conn: conn, prefix: prefix}
}

// Subject returns the subject an invocation of functionRef is published on.
func (i *Invoker) Subject(functionRef string) string {
	return i.prefix + functionRef
}

// InvokeAsync publishes the invocation. Delivery is fire-and-forget; the
// waiting rule observes the outcome through the store.
func (i *Invoker) InvokeAsync(ctx context.Context, functionRef string, inv domain.Invocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invocation: %w", err)
	}
	if err := i.conn.Publish(i.Subject(functionRef), data); err != nil {
		return fmt.Errorf("publish invocation: %w", err)
	}
	return nil
}
