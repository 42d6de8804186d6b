package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrConfiguration marks authoring mistakes: missing parameters, unknown operations,
// dead-end rule sets. They are fatal for the turn and never retried.
var ErrConfiguration = errors.New("configuration error")

// ErrNoMoreRules is returned when a rule set is exhausted and the return stack is empty.
var ErrNoMoreRules = errors.New("no more rules")

// ErrUnsupportedPhase is returned when input or confirm is invoked on an execute-only rule type.
var ErrUnsupportedPhase = errors.New("unsupported phase")

// ErrRuleSetNotFound is returned when a rule set name or endpoint does not resolve.
var ErrRuleSetNotFound = errors.New("rule set not found")

// ErrRuleNotFound is returned when a recorded rule name no longer exists in its rule set.
var ErrRuleNotFound = errors.New("rule not found")

// ErrUnknownRuleType is returned when no handler is registered for a rule type.
var ErrUnknownRuleType = errors.New("unknown rule type")

// ErrUnknownOperation is returned when a weight uses an operation the evaluator does not know.
var ErrUnknownOperation = errors.New("unknown weight operation")

// ConfigError carries the location of an authoring mistake.
type ConfigError struct {
	RuleSet string
	Rule    string
	Type    string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.RuleSet != "" {
		fmt.Fprintf(&b, " in rule set %q", e.RuleSet)
	}
	if e.Rule != "" {
		fmt.Fprintf(&b, " rule %q", e.Rule)
	}
	if e.Type != "" {
		fmt.Fprintf(&b, " (%s)", e.Type)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is makes every ConfigError match ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a ConfigError for the rule currently in scope.
func NewConfigError(ruleSet, rule, ruleType, format string, args ...any) *ConfigError {
	return &ConfigError{
		RuleSet: ruleSet,
		Rule:    rule,
		Type:    ruleType,
		Reason:  fmt.Sprintf(format, args...),
	}
}

// MissingParamsError lists required rule parameters that were absent or empty.
type MissingParamsError struct {
	Rule   string
	Type   string
	Params []string
}

func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("rule %q of type %s is missing required parameters: %s",
		e.Rule, e.Type, strings.Join(e.Params, ", "))
}

func (e *MissingParamsError) Is(target error) bool {
	return target == ErrConfiguration
}
