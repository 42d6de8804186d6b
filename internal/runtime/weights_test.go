package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/adapters/gotemplate"
	"github.com/aretw0/parley/pkg/domain"
)

func testDocument() *domain.Document {
	return domain.NewDocument(map[string]any{
		"ContactAttributes": map[string]any{
			"tier":   "gold",
			"mobile": "+61 412 345 678",
			"phone":  "+61298765432",
			"empty":  "",
		},
		"Balance": 120,
		"Code":    "B7",
		"Tags":    []any{"vip", "late"},
		"Wanted":  "gold",
	})
}

func TestWeightEvaluator_Score(t *testing.T) {
	e := runtime.NewWeightEvaluator(templating.New(gotemplate.New()))
	doc := testDocument()

	tests := []struct {
		field, op, value string
		want             bool
	}{
		{"ContactAttributes.tier", "equals", "gold", true},
		{"ContactAttributes.tier", "EQUALS", "gold", true},
		{"ContactAttributes.tier", "notequals", "gold", false},
		{"ContactAttributes.tier", "equals", "{{ .Wanted }}", true},
		{"ContactAttributes.tier", "contains", "ol", true},
		{"ContactAttributes.tier", "notcontains", "ol", false},
		{"Tags", "contains", "vip", true},
		{"Tags", "contains", "vi", false},
		{"Missing", "contains", "x", false},
		{"Missing", "notcontains", "x", true},
		{"Code", "startswith", "B", true},
		{"Code", "notstartswith", "B", false},
		{"Code", "endswith", "7", true},
		{"Code", "notendswith", "7", false},
		{"ContactAttributes.empty", "isempty", "", true},
		{"Missing", "isempty", "", true},
		{"Code", "isnotempty", "", true},
		{"Missing", "isnull", "", true},
		{"ContactAttributes.empty", "isnull", "", false},
		{"Code", "isnotnull", "", true},
		{"ContactAttributes.mobile", "ismobile", "", true},
		{"ContactAttributes.phone", "ismobile", "", false},
		{"ContactAttributes.phone", "isnotmobile", "", true},
		{"Balance", "greaterthan", "100", true},
		{"Balance", "lessthan", "100", false},
		{"Balance", "lessthan", "1000", true},
		{"Code", "greaterthan", "A9", true},
		{"Missing", "lessthan", "5", false},
		{"Missing", "greaterthan", "5", false},
	}
	for _, tt := range tests {
		t.Run(tt.field+" "+tt.op+" "+tt.value, func(t *testing.T) {
			score, err := e.Score(domain.Weight{Field: tt.field, Operation: tt.op, Value: tt.value, Weight: 5}, doc)
			require.NoError(t, err)
			if tt.want {
				assert.Equal(t, float64(5), score)
			} else {
				assert.Zero(t, score)
			}
		})
	}
}

func TestWeightEvaluator_UnknownOperation(t *testing.T) {
	e := runtime.NewWeightEvaluator(templating.New(nil))

	_, err := e.Score(domain.Weight{Field: "Code", Operation: "roughly", Value: "B7", Weight: 1}, testDocument())
	assert.ErrorIs(t, err, domain.ErrUnknownOperation)
	assert.False(t, runtime.KnownOperation("roughly"))
	assert.True(t, runtime.KnownOperation("IsMobile"))
	assert.Len(t, runtime.Operations(), 16)
}

func TestWeightEvaluator_Activated(t *testing.T) {
	e := runtime.NewWeightEvaluator(templating.New(nil))
	doc := testDocument()

	tier := domain.Weight{Field: "ContactAttributes.tier", Operation: "equals", Value: "gold", Weight: 10}
	rich := domain.Weight{Field: "Balance", Operation: "greaterthan", Value: "500", Weight: 10}

	tests := []struct {
		name string
		rule domain.Rule
		want bool
	}{
		{"no weights", domain.Rule{}, true},
		{"no weights with threshold", domain.Rule{Activation: 1}, false},
		{"threshold reached", domain.Rule{Activation: 10, Weights: []domain.Weight{tier, rich}}, true},
		{"threshold missed", domain.Rule{Activation: 20, Weights: []domain.Weight{tier, rich}}, false},
		{"negative weight", domain.Rule{Activation: 5, Weights: []domain.Weight{tier, {Field: "Code", Operation: "equals", Value: "B7", Weight: -10}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Activated(&tt.rule, doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
