package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// KeyIntegrationError holds the failure message of the last integration.
const KeyIntegrationError = "IntegrationError"

// ErrStaleInvocation is returned when the session has moved on to another
// invocation, or the waiting turn already gave up on this one, by the time a
// function finishes.
var ErrStaleInvocation = errors.New("stale invocation")

// Complete runs the function named by inv and reports its outcome into the
// session: result values are merged, then IntegrationStatus becomes DONE or ERROR.
// Only the touched keys are written, so the waiting turn's own keys survive.
func Complete(ctx context.Context, reg *Registry, store ports.StateStore, inv domain.Invocation) error {
	var result map[string]any
	fn, ok := reg.Lookup(inv.FunctionID, inv.FunctionName)
	runErr := fmt.Errorf("function not found: %s", inv.FunctionName)
	if ok {
		result, runErr = fn(ctx, inv.State)
	}

	doc, err := store.Get(ctx, inv.SessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", inv.SessionID, err)
	}
	if doc.GetString(domain.KeyIntegrationRequestID) != inv.RequestID ||
		doc.GetString(domain.KeyIntegrationStatus) != domain.IntegrationStart {
		return ErrStaleInvocation
	}

	if runErr != nil {
		doc.Set(domain.KeyIntegrationStatus, domain.IntegrationError)
		doc.Set(KeyIntegrationError, runErr.Error())
	} else {
		for k, v := range result {
			doc.Set(k, v)
		}
		doc.Set(domain.KeyIntegrationStatus, domain.IntegrationDone)
		doc.Delete(KeyIntegrationError)
	}

	if err := store.Put(ctx, inv.SessionID, doc, doc.Dirty()); err != nil {
		return fmt.Errorf("report integration result: %w", err)
	}
	return runErr
}
