package domain

import (
	"fmt"
	"sort"
	"time"
)

// Rule types understood by the default handler registry.
const (
	RuleTypeDTMFInput      = "DTMFInput"
	RuleTypeDTMFMenu       = "DTMFMenu"
	RuleTypeNLUInput       = "NLUInput"
	RuleTypeNLUMenu        = "NLUMenu"
	RuleTypeDistribution   = "Distribution"
	RuleTypeRuleSet        = "RuleSet"
	RuleTypeIntegration    = "Integration"
	RuleTypeSetAttributes  = "SetAttributes"
	RuleTypeUpdateStates   = "UpdateStates"
	RuleTypeMessage        = "Message"
	RuleTypeMetric         = "Metric"
	RuleTypeQueue          = "Queue"
	RuleTypeExternalNumber = "ExternalNumber"
	RuleTypeTerminate      = "Terminate"
)

// IsTerminalType reports whether a rule type always ends automatic stepping.
func IsTerminalType(ruleType string) bool {
	return ruleType == RuleTypeQueue || ruleType == RuleTypeTerminate
}

// Weight is a single activation condition.
type Weight struct {
	Field     string  `json:"field" yaml:"field" mapstructure:"field"`
	Operation string  `json:"operation" yaml:"operation" mapstructure:"operation"`
	Value     string  `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Weight    float64 `json:"weight" yaml:"weight" mapstructure:"weight"`
}

// Rule is one activatable step of a rule set.
type Rule struct {
	Name       string         `json:"name" yaml:"name" mapstructure:"name"`
	Type       string         `json:"type" yaml:"type" mapstructure:"type"`
	Params     map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
	Weights    []Weight       `json:"weights,omitempty" yaml:"weights,omitempty" mapstructure:"weights"`
	Activation float64        `json:"activation" yaml:"activation" mapstructure:"activation"`
}

// RuleSet is a named, ordered list of rules. Rules are evaluated strictly in order.
type RuleSet struct {
	Name        string   `json:"name" yaml:"name" mapstructure:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	EndPoints   []string `json:"endPoints,omitempty" yaml:"endPoints,omitempty" mapstructure:"endPoints"`
	Enabled     bool     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Rules       []Rule   `json:"rules" yaml:"rules" mapstructure:"rules"`
}

// IndexOf returns the position of the named rule or -1.
func (rs *RuleSet) IndexOf(rule string) int {
	for i := range rs.Rules {
		if rs.Rules[i].Name == rule {
			return i
		}
	}
	return -1
}

// Lookups resolve human-readable resource names to deployment identifiers.
type Lookups struct {
	ContactFlows map[string]string `json:"contactFlows,omitempty" yaml:"contactFlows,omitempty" mapstructure:"contactFlows"`
	Prompts      map[string]string `json:"prompts,omitempty" yaml:"prompts,omitempty" mapstructure:"prompts"`
	Queues       map[string]string `json:"queues,omitempty" yaml:"queues,omitempty" mapstructure:"queues"`
	Bots         map[string]string `json:"bots,omitempty" yaml:"bots,omitempty" mapstructure:"bots"`
	Functions    map[string]string `json:"functions,omitempty" yaml:"functions,omitempty" mapstructure:"functions"`
}

// Config is an immutable snapshot of everything the Config Provider serves.
type Config struct {
	LoadedAt   time.Time
	ChangedAt  time.Time
	RuleSets   []RuleSet
	Lookups    Lookups
	byName     map[string]int
	byEndPoint map[string]int
}

// NewConfig indexes rule sets by name and endpoint. Duplicate names are rejected;
// an endpoint claimed by several enabled rule sets resolves to the first.
func NewConfig(ruleSets []RuleSet, lookups Lookups, changedAt time.Time) (*Config, error) {
	c := &Config{
		LoadedAt:   time.Now(),
		ChangedAt:  changedAt,
		RuleSets:   ruleSets,
		Lookups:    lookups,
		byName:     make(map[string]int, len(ruleSets)),
		byEndPoint: make(map[string]int),
	}
	for i, rs := range ruleSets {
		if rs.Name == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("rule set at position %d has no name", i)}
		}
		if _, dup := c.byName[rs.Name]; dup {
			return nil, &ConfigError{RuleSet: rs.Name, Reason: "duplicate rule set name"}
		}
		c.byName[rs.Name] = i
		if !rs.Enabled {
			continue
		}
		for _, ep := range rs.EndPoints {
			if _, claimed := c.byEndPoint[ep]; !claimed {
				c.byEndPoint[ep] = i
			}
		}
	}
	return c, nil
}

// RuleSet returns the named rule set.
func (c *Config) RuleSet(name string) (*RuleSet, error) {
	i, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRuleSetNotFound, name)
	}
	return &c.RuleSets[i], nil
}

// RuleSetForEndPoint returns the enabled rule set serving endPoint.
func (c *Config) RuleSetForEndPoint(endPoint string) (*RuleSet, error) {
	i, ok := c.byEndPoint[endPoint]
	if !ok {
		return nil, fmt.Errorf("%w: no enabled rule set for endpoint %q", ErrRuleSetNotFound, endPoint)
	}
	return &c.RuleSets[i], nil
}

// Names returns the rule set names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
