package rules

import (
	"fmt"
	"strconv"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// RequiredParams lists the parameters each rule type cannot run without.
var RequiredParams = map[string][]string{
	domain.RuleTypeDTMFInput:      {"offerMessage", "outputStateKey", "dataType"},
	domain.RuleTypeDTMFMenu:       {"offerMessage"},
	domain.RuleTypeNLUInput:       {"offerMessage", "outputStateKey", "botName", "dataType"},
	domain.RuleTypeNLUMenu:        {"offerMessage", "botName", "intents"},
	domain.RuleTypeDistribution:   {"options", "defaultRuleSetName"},
	domain.RuleTypeRuleSet:        {"ruleSetName"},
	domain.RuleTypeIntegration:    {"functionName"},
	domain.RuleTypeSetAttributes:  {"setAttributes"},
	domain.RuleTypeUpdateStates:   {"updateStates"},
	domain.RuleTypeMessage:        {"message"},
	domain.RuleTypeMetric:         {"metricName"},
	domain.RuleTypeQueue:          {"queueName"},
	domain.RuleTypeExternalNumber: {"externalNumber"},
	domain.RuleTypeTerminate:      nil,
}

func required(ruleType string) []string {
	return RequiredParams[ruleType]
}

// Destination is a rule set a rule may hand control to.
type Destination struct {
	Label   string
	RuleSet string
	// Call is set when control returns to the calling rule set afterwards.
	Call bool
}

var menuKeys = []struct{ param, label string }{
	{"dtmf0", "0"}, {"dtmf1", "1"}, {"dtmf2", "2"}, {"dtmf3", "3"}, {"dtmf4", "4"},
	{"dtmf5", "5"}, {"dtmf6", "6"}, {"dtmf7", "7"}, {"dtmf8", "8"}, {"dtmf9", "9"},
	{"dtmfStar", "*"}, {"dtmfHash", "#"},
}

// Destinations lists the rule sets r can transfer to, read from its declared
// parameters. Empty names are skipped; templated names are returned as written.
func Destinations(r domain.Rule) ([]Destination, error) {
	var out []Destination
	add := func(label, name string, call bool) {
		if name != "" {
			out = append(out, Destination{Label: label, RuleSet: name, Call: call})
		}
	}
	str := func(key string) string {
		return domain.ToString(r.Params[key])
	}

	switch r.Type {
	case domain.RuleTypeDTMFMenu:
		for _, k := range menuKeys {
			add(k.label, str(k.param), false)
		}
		add("no input", str("noInputRuleSetName"), false)
	case domain.RuleTypeNLUInput:
		add("no data", str("noDataRuleSetName"), false)
	case domain.RuleTypeNLUMenu:
		var routes []IntentRoute
		if err := mapstructure.WeakDecode(r.Params["intents"], &routes); err != nil {
			return nil, fmt.Errorf("rule %s: invalid intents: %w", r.Name, err)
		}
		for _, route := range routes {
			add(route.Intent, route.RuleSetName, false)
		}
	case domain.RuleTypeDistribution:
		var opts []DistributionOption
		if err := mapstructure.WeakDecode(r.Params["options"], &opts); err != nil {
			return nil, fmt.Errorf("rule %s: invalid options: %w", r.Name, err)
		}
		for _, o := range opts {
			add(strconv.FormatFloat(o.Percentage, 'f', -1, 64)+"%", o.RuleSetName, false)
		}
		add("default", str("defaultRuleSetName"), false)
	case domain.RuleTypeRuleSet:
		add("", str("ruleSetName"), domain.ToBool(r.Params["returnHere"]))
	}

	switch r.Type {
	case domain.RuleTypeDTMFInput, domain.RuleTypeDTMFMenu, domain.RuleTypeNLUInput, domain.RuleTypeNLUMenu:
		add("error", str("errorRuleSetName"), false)
	}
	return out, nil
}

// DistributionOptions decodes the options parameter of a Distribution rule.
func DistributionOptions(r domain.Rule) ([]DistributionOption, error) {
	var opts []DistributionOption
	if err := mapstructure.WeakDecode(r.Params["options"], &opts); err != nil {
		return nil, err
	}
	return opts, nil
}
