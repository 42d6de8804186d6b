package domain

import (
	"context"
	"time"
)

// HookKind defines the category of a lifecycle event.
type HookKind string

const (
	HookRuleEnter    HookKind = "rule_enter"
	HookRuleLeave    HookKind = "rule_leave"
	HookTurnComplete HookKind = "turn_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      HookKind  `json:"kind"`
	SessionID string    `json:"session_id"`
}

// RuleEvent represents activation or completion of a rule.
type RuleEvent struct {
	EventBase
	RuleSet  string `json:"rule_set"`
	Rule     string `json:"rule"`
	RuleType string `json:"rule_type"`
	Phase    string `json:"phase,omitempty"`
	// Outcome is set on leave: "continue", "input", "terminate" or "stop".
	Outcome string `json:"outcome,omitempty"`
}

// TurnEvent summarises a finished turn.
type TurnEvent struct {
	EventBase
	EventType     EventType     `json:"event_type"`
	RuleSet       string        `json:"rule_set"`
	Rule          string        `json:"rule"`
	InputRequired bool          `json:"input_required"`
	Terminate     bool          `json:"terminate"`
	Steps         int           `json:"steps"`
	Duration      time.Duration `json:"duration"`
	Err           error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnRuleEnter    func(context.Context, *RuleEvent)
	OnRuleLeave    func(context.Context, *RuleEvent)
	OnTurnComplete func(context.Context, *TurnEvent)
}
