package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/oklog/ulid/v2"
)

type integrationParams struct {
	FunctionName string  `mapstructure:"functionName"`
	FunctionID   string  `mapstructure:"functionId"`
	Timeout      float64 `mapstructure:"timeout"`
}

func (p *integrationParams) requested() time.Duration {
	if p.Timeout <= 0 {
		return DefaultIntegrationTimeout
	}
	return time.Duration(p.Timeout * float64(time.Second))
}

func (p *integrationParams) timeout() time.Duration {
	return min(p.requested(), MaxIntegrationTimeout)
}

// IntegrationTimeout reports the wait an Integration rule asks for, before
// it is capped at MaxIntegrationTimeout.
func IntegrationTimeout(r domain.Rule) (time.Duration, error) {
	var p integrationParams
	if err := mapstructure.WeakDecode(r.Params, &p); err != nil {
		return 0, err
	}
	return p.requested(), nil
}

// Integration dispatches a long-running function and waits, bounded by a timeout,
// for the worker to flip the integration status out of START.
type Integration struct {
	executeOnly
	deps Deps
}

func (h *Integration) Execute(ctx context.Context, s *domain.Session) (Outcome, error) {
	var p integrationParams
	if err := decodeParams(s, &p, required(domain.RuleTypeIntegration)...); err != nil {
		return Outcome{}, err
	}
	if h.deps.Invoker == nil {
		return Outcome{}, s.ConfigError("no async invoker configured")
	}
	if h.deps.Store == nil {
		return Outcome{}, s.ConfigError("integration requires a state store")
	}
	ref := p.FunctionID
	if ref == "" {
		ref = p.FunctionName
	}

	requestID := ulid.Make().String()
	s.State.Set(domain.KeyIntegrationStatus, domain.IntegrationStart)
	s.State.Set(domain.KeyIntegrationRequestID, requestID)

	// Checkpoint before dispatching so the worker sees the current state and
	// its status write is not overwritten by a stale document.
	if err := h.deps.Store.Put(ctx, s.ID, s.State, s.State.Dirty()); err != nil {
		return Outcome{}, fmt.Errorf("checkpoint before integration: %w", err)
	}

	inv := domain.Invocation{
		RequestID:    requestID,
		SessionID:    s.ID,
		FunctionName: p.FunctionName,
		FunctionID:   ref,
		State:        s.State.Snapshot(),
	}
	if err := h.deps.Invoker.InvokeAsync(ctx, ref, inv); err != nil {
		return Outcome{}, fmt.Errorf("invoke %s: %w", p.FunctionName, err)
	}

	log := s.Logger.With("function", p.FunctionName, "request_id", requestID)
	status, err := h.await(ctx, s, requestID, p.timeout())
	if err != nil {
		return Outcome{}, err
	}
	if status == domain.IntegrationTimeout {
		log.Warn("integration timed out", "timeout", p.timeout())
	} else {
		log.Debug("integration finished", "status", status)
	}
	return Continue(""), nil
}

// await polls the store until the worker reports, adopting its document, or
// times out. On timeout the request id is dropped and the status checkpointed
// so a late worker finds its invocation stale.
func (h *Integration) await(ctx context.Context, s *domain.Session, requestID string, timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(h.deps.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			if status, done, err := h.poll(ctx, s, requestID); err != nil || done {
				return status, err
			}
			s.State.Set(domain.KeyIntegrationStatus, domain.IntegrationTimeout)
			s.State.Delete(domain.KeyIntegrationRequestID)
			keys := []string{domain.KeyIntegrationStatus, domain.KeyIntegrationRequestID}
			if err := h.deps.Store.Put(ctx, s.ID, s.State, keys); err != nil {
				return "", fmt.Errorf("checkpoint integration timeout: %w", err)
			}
			return domain.IntegrationTimeout, nil
		case <-ticker.C:
			if status, done, err := h.poll(ctx, s, requestID); err != nil || done {
				return status, err
			}
		}
	}
}

// poll reports whether the worker has finished requestID, adopting the stored
// document when it has.
func (h *Integration) poll(ctx context.Context, s *domain.Session, requestID string) (string, bool, error) {
	fresh, err := h.deps.Store.Get(ctx, s.ID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("poll integration status: %w", err)
	}
	if fresh.GetString(domain.KeyIntegrationRequestID) != requestID {
		return "", false, nil
	}
	status := fresh.GetString(domain.KeyIntegrationStatus)
	if status == "" || status == domain.IntegrationStart {
		return "", false, nil
	}
	s.State.Replace(fresh.Snapshot())
	return status, true, nil
}
