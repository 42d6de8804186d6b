package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Mask replaces values whose key matches a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a read-side redaction layer: values under keys matching
// any pattern are masked on Get at any depth. Writes pass through untouched, so the
// wrapped store is meant for inspection surfaces, not for the engine itself.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Get(ctx context.Context, sessionID string) (*domain.Document, error) {
	doc, err := m.next.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	data := doc.Snapshot()
	maskMap(data, m.patterns)
	return domain.NewDocument(data), nil
}

func (m *piiMiddleware) Put(ctx context.Context, sessionID string, doc *domain.Document, keys []string) error {
	return m.next.Put(ctx, sessionID, doc, keys)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matchesAny(k, patterns) {
			m[k] = Mask
			continue
		}
		maskValue(v, patterns)
	}
}

func maskValue(v any, patterns []*regexp.Regexp) {
	switch c := v.(type) {
	case map[string]any:
		maskMap(c, patterns)
	case []any:
		for _, item := range c {
			maskValue(item, patterns)
		}
	}
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
