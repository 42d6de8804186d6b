// Package gotemplate implements ports.TemplateEngine with text/template and the sprig
// function library, plus a few helpers prompt authors rely on.
package gotemplate

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/aretw0/parley/pkg/domain"
)

const noValue = "<no value>"

// Engine renders templates, caching parsed templates by source text.
type Engine struct {
	funcs template.FuncMap
	cache sync.Map // string -> *template.Template
	loc   *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the time zone used by the date helpers (default UTC).
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.loc = loc
	}
}

// WithFuncs adds or overrides template functions.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for k, v := range funcs {
			e.funcs[k] = v
		}
	}
}

// New creates an Engine with sprig and the dialogue helpers installed.
func New(opts ...Option) *Engine {
	e := &Engine{
		funcs: sprig.TxtFuncMap(),
		loc:   time.UTC,
	}
	for k, v := range e.helpers() {
		e.funcs[k] = v
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render executes tmpl against data. Missing values render as the empty string.
func (e *Engine) Render(tmpl string, data map[string]any) (string, error) {
	t, err := e.parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return strings.ReplaceAll(buf.String(), noValue, ""), nil
}

func (e *Engine) parse(tmpl string) (*template.Template, error) {
	if cached, ok := e.cache.Load(tmpl); ok {
		return cached.(*template.Template), nil
	}
	t, err := template.New("param").Funcs(e.funcs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	actual, _ := e.cache.LoadOrStore(tmpl, t)
	return actual.(*template.Template), nil
}

func (e *Engine) helpers() template.FuncMap {
	return template.FuncMap{
		// equals compares the string forms, so "3" equals 3.
		"equals": func(a, b any) bool {
			return domain.ToString(a) == domain.ToString(b)
		},
		"notEquals": func(a, b any) bool {
			return domain.ToString(a) != domain.ToString(b)
		},
		"isEmpty": domain.IsEmpty,
		// formatDate parses an ISO date (YYYY-MM-DD or RFC 3339) and renders it with layout.
		"formatDate": func(layout string, v any) string {
			t, ok := e.parseTime(domain.ToString(v))
			if !ok {
				return domain.ToString(v)
			}
			return t.Format(layout)
		},
		// sayDate renders a date the way a voice prompt reads it: "Tuesday 3 March 2026".
		"sayDate": func(v any) string {
			t, ok := e.parseTime(domain.ToString(v))
			if !ok {
				return domain.ToString(v)
			}
			return fmt.Sprintf("%s %d %s %d", t.Weekday(), t.Day(), t.Month(), t.Year())
		},
		"formatCurrency": formatCurrency,
		// spell separates characters so a TTS engine reads digits one by one.
		"spell": func(v any) string {
			return strings.Join(strings.Split(domain.ToString(v), ""), " ")
		},
	}
}

func (e *Engine) parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "15:04"} {
		if t, err := time.ParseInLocation(layout, s, e.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatCurrency renders an amount as dollars and cents with thousands separators.
func formatCurrency(v any) string {
	n, ok := domain.ToNumber(v)
	if !ok {
		return domain.ToString(v)
	}
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	cents := int64(n*100 + 0.5)
	whole := fmt.Sprintf("%d", cents/100)

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, grouped.String(), cents%100)
}
