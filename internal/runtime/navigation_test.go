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

func threeRules() *domain.RuleSet {
	return &domain.RuleSet{Name: "Main", Enabled: true, Rules: []domain.Rule{
		{Name: "A", Type: domain.RuleTypeMessage},
		{Name: "B", Type: domain.RuleTypeMessage, Activation: 1},
		{Name: "C", Type: domain.RuleTypeMessage},
	}}
}

func TestNextIndex(t *testing.T) {
	rs := threeRules()

	t.Run("Start Of Rule Set", func(t *testing.T) {
		pos, err := runtime.NextIndex(rs, domain.NewDocument(nil))
		require.NoError(t, err)
		assert.Equal(t, runtime.Position{Index: 0}, pos)
	})

	t.Run("After Current Rule", func(t *testing.T) {
		doc := domain.NewDocument(map[string]any{domain.KeyCurrentRule: "A"})
		pos, err := runtime.NextIndex(rs, doc)
		require.NoError(t, err)
		assert.Equal(t, 1, pos.Index)
		assert.Equal(t, "index 1", pos.String())
	})

	t.Run("Unknown Current Rule Restarts", func(t *testing.T) {
		doc := domain.NewDocument(map[string]any{domain.KeyCurrentRule: "Gone"})
		pos, err := runtime.NextIndex(rs, doc)
		require.NoError(t, err)
		assert.Equal(t, 0, pos.Index)
	})

	t.Run("Exhausted With Caller Pops", func(t *testing.T) {
		doc := domain.NewDocument(map[string]any{domain.KeyCurrentRule: "C"})
		doc.PushReturn(domain.ReturnFrame{RuleSetName: "Caller", RuleName: "Call"})
		pos, err := runtime.NextIndex(rs, doc)
		require.NoError(t, err)
		assert.True(t, pos.Pop)
		assert.Equal(t, "pop", pos.String())
	})

	t.Run("Dead End", func(t *testing.T) {
		doc := domain.NewDocument(map[string]any{domain.KeyCurrentRule: "C"})
		_, err := runtime.NextIndex(rs, doc)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
		assert.ErrorIs(t, err, domain.ErrNoMoreRules)
	})
}

func TestFindNextActivated(t *testing.T) {
	e := runtime.NewWeightEvaluator(templating.New(gotemplate.New()))
	rs := threeRules()
	doc := domain.NewDocument(nil)

	idx, err := e.FindNextActivated(rs, 1, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, idx, "B needs a score of 1 and has no weights")

	idx, err = e.FindNextActivated(rs, 3, doc)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	rs.Rules[2].Weights = []domain.Weight{{Field: "x", Operation: "bogus", Weight: 1}}
	_, err = e.FindNextActivated(rs, 1, doc)
	var ce *domain.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "C", ce.Rule)
}
