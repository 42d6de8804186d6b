package rules

import (
	"context"
	"strings"

	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// IncrementValue is the literal value meaning "add one to the current number".
const IncrementValue = "increment"

// BulkUpdate applies a list of key/value writes. It backs both SetAttributes
// (keys under ContactAttributes) and UpdateStates (top-level keys).
type BulkUpdate struct {
	executeOnly
	deps   Deps
	param  string
	prefix string
}

func (h *BulkUpdate) Execute(_ context.Context, s *domain.Session) (Outcome, error) {
	raw := rawParams(s)
	if domain.IsEmpty(raw[h.param]) {
		return Outcome{}, &domain.MissingParamsError{Rule: s.RuleName(), Type: s.RuleType(), Params: []string{h.param}}
	}
	var items []templating.KeyValue
	if err := mapstructure.WeakDecode(raw[h.param], &items); err != nil {
		return Outcome{}, s.ConfigError("invalid %s: %v", h.param, err)
	}

	resolved, err := h.deps.Resolver.ResolveItems(items, s.State)
	if err != nil {
		return Outcome{}, err
	}
	for i, item := range resolved {
		if item.Key == "" || item.Value == "" {
			s.Logger.Warn("skipping empty update", "param", h.param, "index", i, "key", item.Key)
			continue
		}
		path := h.prefix + item.Key
		var value any = item.Value
		if strings.EqualFold(strings.TrimSpace(item.Value), IncrementValue) {
			current, _ := s.State.GetNumber(path)
			value = current + 1
		}
		if !s.State.Set(path, value) {
			s.Logger.Warn("update rejected by state document", "param", h.param, "path", path)
		}
	}
	return Continue(""), nil
}
