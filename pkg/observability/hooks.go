package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
)

// Merge combines multiple hook sets into one. Callbacks run in argument order;
// nil callbacks are skipped.
func Merge(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var enter, leave []func(context.Context, *domain.RuleEvent)
	var turn []func(context.Context, *domain.TurnEvent)
	for _, h := range sets {
		if h.OnRuleEnter != nil {
			enter = append(enter, h.OnRuleEnter)
		}
		if h.OnRuleLeave != nil {
			leave = append(leave, h.OnRuleLeave)
		}
		if h.OnTurnComplete != nil {
			turn = append(turn, h.OnTurnComplete)
		}
	}

	var merged domain.LifecycleHooks
	if len(enter) > 0 {
		merged.OnRuleEnter = func(ctx context.Context, e *domain.RuleEvent) {
			for _, fn := range enter {
				fn(ctx, e)
			}
		}
	}
	if len(leave) > 0 {
		merged.OnRuleLeave = func(ctx context.Context, e *domain.RuleEvent) {
			for _, fn := range leave {
				fn(ctx, e)
			}
		}
	}
	if len(turn) > 0 {
		merged.OnTurnComplete = func(ctx context.Context, e *domain.TurnEvent) {
			for _, fn := range turn {
				fn(ctx, e)
			}
		}
	}
	return merged
}

// LogHooks logs rule activity at Debug and turn summaries at Info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRuleEnter: func(ctx context.Context, e *domain.RuleEvent) {
			logger.DebugContext(ctx, "rule_enter",
				"session_id", e.SessionID,
				"rule_set", e.RuleSet,
				"rule", e.Rule,
				"type", e.RuleType,
			)
		},
		OnRuleLeave: func(ctx context.Context, e *domain.RuleEvent) {
			logger.DebugContext(ctx, "rule_leave",
				"session_id", e.SessionID,
				"rule", e.Rule,
				"outcome", e.Outcome,
			)
		},
		OnTurnComplete: func(ctx context.Context, e *domain.TurnEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"event", e.EventType,
				"rule_set", e.RuleSet,
				"rule", e.Rule,
				"steps", e.Steps,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "turn_failed", append(attrs, "error", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "turn_complete", attrs...)
		},
	}
}
