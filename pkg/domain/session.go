package domain

import (
	"log/slog"
	"time"
)

// Session is the ephemeral per-turn context handed to rule handlers. It is rebuilt
// every turn from persisted state plus the incoming request and is never persisted.
type Session struct {
	ID      string
	Request *Request
	Config  *Config
	RuleSet *RuleSet
	Rule    *Rule
	State   *Document
	Now     time.Time
	Logger  *slog.Logger
}

// Param reads an exported rule parameter from state.
func (s *Session) Param(name string) (any, bool) {
	return s.State.Get(RulePrefix + name)
}

// ParamString reads an exported rule parameter as a string.
func (s *Session) ParamString(name string) string {
	return s.State.GetString(RulePrefix + name)
}

// Phase returns the current rule phase, empty when the rule is not awaiting anything.
func (s *Session) Phase() string {
	return s.State.GetString(KeyPhase)
}

// SetPhase records the phase; an empty phase clears it.
func (s *Session) SetPhase(phase string) {
	if phase == "" {
		s.State.Delete(KeyPhase)
		return
	}
	s.State.Set(KeyPhase, phase)
}

// RuleSetName returns the name of the rule set in scope.
func (s *Session) RuleSetName() string {
	if s.RuleSet == nil {
		return ""
	}
	return s.RuleSet.Name
}

// RuleName returns the name of the rule in scope.
func (s *Session) RuleName() string {
	if s.Rule == nil {
		return ""
	}
	return s.Rule.Name
}

// RuleType returns the type of the rule in scope.
func (s *Session) RuleType() string {
	if s.Rule == nil {
		return s.State.GetString(KeyRuleType)
	}
	return s.Rule.Type
}

// ConfigError builds a ConfigError located at the rule in scope.
func (s *Session) ConfigError(format string, args ...any) *ConfigError {
	return NewConfigError(s.RuleSetName(), s.RuleName(), s.RuleType(), format, args...)
}

// Terminating reports whether the session has been marked as ending.
func (s *Session) Terminating() bool {
	v, _ := s.State.Get(KeyTerminating)
	return ToBool(v)
}
