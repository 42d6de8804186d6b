package gotemplate_test

import (
	"testing"

	"github.com/aretw0/parley/pkg/adapters/gotemplate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Render(t *testing.T) {
	eng := gotemplate.New()

	tests := []struct {
		name string
		tmpl string
		data map[string]any
		want string
	}{
		{"field", "Hi {{.customer.name}}", map[string]any{"customer": map[string]any{"name": "Ada"}}, "Hi Ada"},
		{"missing renders empty", "[{{.nope}}]", nil, "[]"},
		{"equals helper", `{{if equals .count 3}}three{{end}}`, map[string]any{"count": "3"}, "three"},
		{"sprig upper", `{{upper .x}}`, map[string]any{"x": "abc"}, "ABC"},
		{"currency", `{{formatCurrency .amt}}`, map[string]any{"amt": 1234567.5}, "$1,234,567.50"},
		{"date", `{{formatDate "02/01/2006" .d}}`, map[string]any{"d": "2026-03-03"}, "03/03/2026"},
		{"say date", `{{sayDate .d}}`, map[string]any{"d": "2026-03-03"}, "Tuesday 3 March 2026"},
		{"spell", `{{spell .n}}`, map[string]any{"n": "042"}, "0 4 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eng.Render(tt.tmpl, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_ParseError(t *testing.T) {
	_, err := gotemplate.New().Render("{{ .unterminated", nil)
	assert.Error(t, err)
}
