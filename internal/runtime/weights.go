package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/domain"
)

// MobilePrefix is the national mobile prefix tested by ismobile/isnotmobile.
const MobilePrefix = "+614"

type operation func(left any, right string) bool

var operations = map[string]operation{
	"contains":      func(l any, r string) bool { return contains(l, r) },
	"notcontains":   func(l any, r string) bool { return !contains(l, r) },
	"startswith":    func(l any, r string) bool { return strings.HasPrefix(domain.ToString(l), r) },
	"notstartswith": func(l any, r string) bool { return !strings.HasPrefix(domain.ToString(l), r) },
	"endswith":      func(l any, r string) bool { return strings.HasSuffix(domain.ToString(l), r) },
	"notendswith":   func(l any, r string) bool { return !strings.HasSuffix(domain.ToString(l), r) },
	"equals":        func(l any, r string) bool { return domain.ToString(l) == r },
	"notequals":     func(l any, r string) bool { return domain.ToString(l) != r },
	"isempty":       func(l any, _ string) bool { return domain.IsEmpty(l) },
	"isnotempty":    func(l any, _ string) bool { return !domain.IsEmpty(l) },
	"isnull":        func(l any, _ string) bool { return l == nil },
	"isnotnull":     func(l any, _ string) bool { return l != nil },
	"ismobile":      func(l any, _ string) bool { return isMobile(l) },
	"isnotmobile":   func(l any, _ string) bool { return !isMobile(l) },
	"lessthan":      func(l any, r string) bool { return compare(l, r) < 0 },
	"greaterthan":   func(l any, r string) bool { return compare(l, r) > 0 },
}

// KnownOperation reports whether op is a supported weight operation.
func KnownOperation(op string) bool {
	_, ok := operations[strings.ToLower(op)]
	return ok
}

// Operations returns the supported operation names.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	return names
}

// WeightEvaluator scores rule weights against a session Document.
type WeightEvaluator struct {
	resolver *templating.Resolver
}

// NewWeightEvaluator creates an evaluator rendering weight values with resolver.
func NewWeightEvaluator(resolver *templating.Resolver) *WeightEvaluator {
	return &WeightEvaluator{resolver: resolver}
}

// Score returns w.Weight when the condition holds, zero otherwise.
func (e *WeightEvaluator) Score(w domain.Weight, doc *domain.Document) (float64, error) {
	op, ok := operations[strings.ToLower(strings.TrimSpace(w.Operation))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownOperation, w.Operation)
	}
	value, err := e.resolver.Render(w.Value, doc)
	if err != nil {
		return 0, fmt.Errorf("weight value for %s: %w", w.Field, err)
	}
	left, _ := doc.Get(w.Field)
	if op(left, value) {
		return w.Weight, nil
	}
	return 0, nil
}

// Activated reports whether the satisfied weights of rule sum to at least its
// activation. A rule without weights and with zero activation is always activated.
func (e *WeightEvaluator) Activated(rule *domain.Rule, doc *domain.Document) (bool, error) {
	if len(rule.Weights) == 0 {
		return rule.Activation <= 0, nil
	}
	var sum float64
	for _, w := range rule.Weights {
		score, err := e.Score(w, doc)
		if err != nil {
			return false, err
		}
		sum += score
	}
	return sum >= rule.Activation, nil
}

// contains tests substring membership, or element membership for arrays.
func contains(left any, right string) bool {
	if items, ok := left.([]any); ok {
		for _, item := range items {
			if domain.ToString(item) == right {
				return true
			}
		}
		return false
	}
	if left == nil {
		return false
	}
	return strings.Contains(domain.ToString(left), right)
}

func isMobile(v any) bool {
	s := strings.ReplaceAll(domain.ToString(v), " ", "")
	return strings.HasPrefix(s, MobilePrefix)
}

// compare orders numerically when both sides are numeric, lexically otherwise.
// An absent left side never compares, so neither lessthan nor greaterthan holds.
func compare(left any, right string) int {
	if left == nil {
		return 0
	}
	ln, lok := domain.ToNumber(left)
	rn, rok := domain.ToNumber(right)
	if lok && rok {
		switch {
		case ln < rn:
			return -1
		case ln > rn:
			return 1
		}
		return 0
	}
	return strings.Compare(domain.ToString(left), right)
}
