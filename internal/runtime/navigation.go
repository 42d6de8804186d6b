package runtime

import (
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
)

// Position is the result of NextIndex.
type Position struct {
	// Index is where the forward scan starts.
	Index int
	// Pop is set when the rule set is exhausted and the return stack holds a caller.
	Pop bool
}

// NextIndex computes where the scan for the next rule starts: 0 when no rule is
// recorded (or the recorded rule is no longer in the set), otherwise one past it.
// An exhausted rule set signals Pop when the return stack is non-empty and is a
// dead-end configuration error otherwise.
func NextIndex(rs *domain.RuleSet, doc *domain.Document) (Position, error) {
	start := 0
	if current := doc.GetString(domain.KeyCurrentRule); current != "" {
		start = rs.IndexOf(current) + 1
	}
	if start < len(rs.Rules) {
		return Position{Index: start}, nil
	}
	if len(doc.ReturnStack()) > 0 {
		return Position{Index: start, Pop: true}, nil
	}
	return Position{}, &domain.ConfigError{
		RuleSet: rs.Name,
		Rule:    doc.GetString(domain.KeyCurrentRule),
		Reason:  "dead-end rule set with an empty return stack",
		Err:     domain.ErrNoMoreRules,
	}
}

// FindNextActivated scans rules from start and returns the index of the first
// activated rule, or -1 when the scan reaches the end.
func (e *WeightEvaluator) FindNextActivated(rs *domain.RuleSet, start int, doc *domain.Document) (int, error) {
	for i := start; i < len(rs.Rules); i++ {
		rule := &rs.Rules[i]
		ok, err := e.Activated(rule, doc)
		if err != nil {
			return -1, &domain.ConfigError{RuleSet: rs.Name, Rule: rule.Name, Type: rule.Type, Err: err}
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

func (p Position) String() string {
	if p.Pop {
		return "pop"
	}
	return fmt.Sprintf("index %d", p.Index)
}
