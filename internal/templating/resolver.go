// Package templating decides when rule parameters are rendered and which ones wait
// for the rule handler to render them later.
package templating

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

const (
	openMarker  = "{{"
	closeMarker = "}}"
)

// deferred lists parameters whose value depends on data captured later in the rule
// lifecycle (the just-collected input), or that nest their own templates.
var deferred = map[string]struct{}{
	"confirmationMessage": {},
	"autoConfirmMessage":  {},
	"setAttributes":       {},
	"updateStates":        {},
	"intents":             {},
}

// HasTemplate reports whether s holds both an opening and a closing marker.
func HasTemplate(s string) bool {
	open := strings.Index(s, openMarker)
	return open >= 0 && strings.Contains(s[open:], closeMarker)
}

// IsDeferred reports whether a parameter is skipped by ResolveParams.
func IsDeferred(param string) bool {
	_, ok := deferred[param]
	return ok
}

// KeyValue is one entry of the SetAttributes / UpdateStates lists.
type KeyValue struct {
	Key   string `mapstructure:"key"`
	Value string `mapstructure:"value"`
}

// Resolver renders rule parameters against a session Document.
type Resolver struct {
	engine ports.TemplateEngine
}

// New creates a Resolver. A nil engine passes every value through unchanged.
func New(engine ports.TemplateEngine) *Resolver {
	return &Resolver{engine: engine}
}

// Render renders tmpl against doc when it holds a template, otherwise returns it as is.
func (r *Resolver) Render(tmpl string, doc *domain.Document) (string, error) {
	if r == nil || r.engine == nil || !HasTemplate(tmpl) {
		return tmpl, nil
	}
	out, err := r.engine.Render(tmpl, doc.Snapshot())
	if err != nil {
		return "", fmt.Errorf("render %q: %w", abbreviate(tmpl), err)
	}
	return out, nil
}

// ResolveValue renders string values holding a template. Every other value,
// including non-string types, passes through unchanged.
func (r *Resolver) ResolveValue(v any, doc *domain.Document) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	return r.Render(s, doc)
}

// ResolveParams renders the top-level parameters of a rule, leaving deferred
// parameters untouched. The input map is not modified.
func (r *Resolver) ResolveParams(params map[string]any, doc *domain.Document) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for name, v := range params {
		if IsDeferred(name) {
			out[name] = v
			continue
		}
		resolved, err := r.ResolveValue(v, doc)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
		out[name] = resolved
	}
	return out, nil
}

// ResolveItems renders the value of each key/value item. Keys are rendered too so
// authors can address dynamic paths.
func (r *Resolver) ResolveItems(items []KeyValue, doc *domain.Document) ([]KeyValue, error) {
	out := make([]KeyValue, len(items))
	for i, item := range items {
		key, err := r.Render(item.Key, doc)
		if err != nil {
			return nil, fmt.Errorf("item %d key: %w", i, err)
		}
		value, err := r.Render(item.Value, doc)
		if err != nil {
			return nil, fmt.Errorf("item %d value: %w", i, err)
		}
		out[i] = KeyValue{Key: strings.TrimSpace(key), Value: value}
	}
	return out, nil
}

func abbreviate(s string) string {
	const max = 60
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
