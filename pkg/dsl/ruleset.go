package dsl

import "github.com/aretw0/parley/pkg/domain"

// RuleSetBuilder provides a fluent API for configuring a rule set.
type RuleSetBuilder struct {
	set   domain.RuleSet
	rules []*RuleBuilder
}

// EndPoints sets the channel addresses served by the rule set.
func (s *RuleSetBuilder) EndPoints(endPoints ...string) *RuleSetBuilder {
	s.set.EndPoints = append(s.set.EndPoints, endPoints...)
	return s
}

// Description documents the rule set.
func (s *RuleSetBuilder) Description(text string) *RuleSetBuilder {
	s.set.Description = text
	return s
}

// Disabled excludes the rule set from endpoint lookup.
func (s *RuleSetBuilder) Disabled() *RuleSetBuilder {
	s.set.Enabled = false
	return s
}

// Rule appends a rule of any type.
func (s *RuleSetBuilder) Rule(name, ruleType string) *RuleBuilder {
	rb := &RuleBuilder{rule: domain.Rule{Name: name, Type: ruleType, Params: map[string]any{}}}
	s.rules = append(s.rules, rb)
	return rb
}

func (s *RuleSetBuilder) build() domain.RuleSet {
	rs := s.set
	rs.Rules = make([]domain.Rule, 0, len(s.rules))
	for _, rb := range s.rules {
		rs.Rules = append(rs.Rules, rb.build())
	}
	return rs
}

// Message plays text and returns control to the channel.
func (s *RuleSetBuilder) Message(name, text string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeMessage).Param("message", text)
}

// Terminate ends the contact, optionally with a farewell.
func (s *RuleSetBuilder) Terminate(name, text string) *RuleBuilder {
	rb := s.Rule(name, domain.RuleTypeTerminate)
	if text != "" {
		rb.Param("message", text)
	}
	return rb
}

// Goto transfers to another rule set without returning.
func (s *RuleSetBuilder) Goto(name, ruleSet string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeRuleSet).Param("ruleSetName", ruleSet)
}

// Call transfers to another rule set and resumes after this rule once it is exhausted.
func (s *RuleSetBuilder) Call(name, ruleSet string) *RuleBuilder {
	return s.Goto(name, ruleSet).Param("returnHere", true)
}

// Queue hands the contact to a queue.
func (s *RuleSetBuilder) Queue(name, queueName string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeQueue).Param("queueName", queueName)
}

// ExternalNumber transfers the contact to a phone number.
func (s *RuleSetBuilder) ExternalNumber(name, number string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeExternalNumber).Param("externalNumber", number)
}

// Metric emits a named metric.
func (s *RuleSetBuilder) Metric(name, metricName string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeMetric).Param("metricName", metricName)
}

// Integration runs a function and waits for its result.
func (s *RuleSetBuilder) Integration(name, functionName string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeIntegration).Param("functionName", functionName)
}

// SetAttributes writes contact attributes; kv alternates keys and values.
func (s *RuleSetBuilder) SetAttributes(name string, kv ...string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeSetAttributes).Param("setAttributes", pairs(kv))
}

// UpdateStates writes top-level state keys; kv alternates keys and values.
func (s *RuleSetBuilder) UpdateStates(name string, kv ...string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeUpdateStates).Param("updateStates", pairs(kv))
}

// Distribution splits traffic; add destinations with Option.
func (s *RuleSetBuilder) Distribution(name, defaultRuleSet string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeDistribution).
		Param("defaultRuleSetName", defaultRuleSet).
		Param("options", []any{})
}

// DTMFInput collects keypad digits into outputStateKey.
func (s *RuleSetBuilder) DTMFInput(name, offer, outputStateKey, dataType string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeDTMFInput).
		Param("offerMessage", offer).
		Param("outputStateKey", outputStateKey).
		Param("dataType", dataType)
}

// DTMFMenu offers a keypad menu; add choices with Key.
func (s *RuleSetBuilder) DTMFMenu(name, offer string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeDTMFMenu).Param("offerMessage", offer)
}

// NLUInput collects a spoken value into outputStateKey.
func (s *RuleSetBuilder) NLUInput(name, offer, botName, outputStateKey, dataType string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeNLUInput).
		Param("offerMessage", offer).
		Param("botName", botName).
		Param("outputStateKey", outputStateKey).
		Param("dataType", dataType)
}

// NLUMenu routes by spoken intent; add routes with Intent.
func (s *RuleSetBuilder) NLUMenu(name, offer, botName string) *RuleBuilder {
	return s.Rule(name, domain.RuleTypeNLUMenu).
		Param("offerMessage", offer).
		Param("botName", botName).
		Param("intents", []any{})
}

func pairs(kv []string) []any {
	out := make([]any, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, map[string]any{"key": kv[i], "value": kv[i+1]})
	}
	return out
}
