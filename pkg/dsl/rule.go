package dsl

import "github.com/aretw0/parley/pkg/domain"

// RuleBuilder provides a fluent API for configuring a rule.
type RuleBuilder struct {
	rule domain.Rule
}

// Param sets a rule parameter.
func (r *RuleBuilder) Param(key string, value any) *RuleBuilder {
	r.rule.Params[key] = value
	return r
}

// When adds an activation weight.
func (r *RuleBuilder) When(field, operation, value string, weight float64) *RuleBuilder {
	r.rule.Weights = append(r.rule.Weights, domain.Weight{
		Field:     field,
		Operation: operation,
		Value:     value,
		Weight:    weight,
	})
	return r
}

// Activation sets the score the satisfied weights must reach.
func (r *RuleBuilder) Activation(threshold float64) *RuleBuilder {
	r.rule.Activation = threshold
	return r
}

// Key routes a DTMF menu digit ("0"-"9", "*" or "#") to a rule set.
func (r *RuleBuilder) Key(digit, ruleSet string) *RuleBuilder {
	param := "dtmf" + digit
	switch digit {
	case "*":
		param = "dtmfStar"
	case "#":
		param = "dtmfHash"
	}
	return r.Param(param, ruleSet)
}

// Intent routes an NLU menu intent to a rule set.
func (r *RuleBuilder) Intent(intent, ruleSet, confirmation string) *RuleBuilder {
	route := map[string]any{"intent": intent, "ruleSetName": ruleSet}
	if confirmation != "" {
		route["confirmationMessage"] = confirmation
	}
	return r.appendParam("intents", route)
}

// Option adds a Distribution destination.
func (r *RuleBuilder) Option(ruleSet string, percentage float64) *RuleBuilder {
	return r.appendParam("options", map[string]any{"ruleSetName": ruleSet, "percentage": percentage})
}

// OnError sets the rule set input rules escalate to after too many errors.
func (r *RuleBuilder) OnError(ruleSet string) *RuleBuilder {
	return r.Param("errorRuleSetName", ruleSet)
}

// Errors sets the re-prompt messages used after the first, second and third error.
func (r *RuleBuilder) Errors(messages ...string) *RuleBuilder {
	for i, m := range messages {
		if i >= 3 {
			break
		}
		r.Param("errorMessage"+string(rune('1'+i)), m)
	}
	return r
}

// Confirm asks the customer to confirm a captured value.
func (r *RuleBuilder) Confirm(message string) *RuleBuilder {
	return r.Param("confirmationMessage", message)
}

func (r *RuleBuilder) appendParam(key string, item map[string]any) *RuleBuilder {
	list, _ := r.rule.Params[key].([]any)
	r.rule.Params[key] = append(list, item)
	return r
}

func (r *RuleBuilder) build() domain.Rule {
	rule := r.rule
	rule.Params = make(map[string]any, len(r.rule.Params))
	for k, v := range r.rule.Params {
		rule.Params[k] = domain.Normalize(v)
	}
	rule.Weights = append([]domain.Weight(nil), r.rule.Weights...)
	return rule
}
