package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()

	main := b.RuleSet("Main").EndPoints("+61300000000")
	main.Message("Greeting", "Hello")
	main.DTMFMenu("Menu", "Press 1 or 2").
		Key("1", "Sales").
		Key("#", "Goodbye").
		OnError("Goodbye").
		Errors("Sorry?", "Once more?")
	main.Call("Auth", "Goodbye").When("ContactAttributes.tier", "equals", "gold", 1).Activation(1)

	b.RuleSet("Sales").Queue("ToSales", "SalesQueue")
	b.RuleSet("Goodbye").Terminate("Bye", "Goodbye")

	sets, err := b.Build()
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, []string{"Main", "Sales", "Goodbye"}, []string{sets[0].Name, sets[1].Name, sets[2].Name})

	menu := sets[0].Rules[1]
	assert.Equal(t, domain.RuleTypeDTMFMenu, menu.Type)
	assert.Equal(t, "Sales", menu.Params["dtmf1"])
	assert.Equal(t, "Goodbye", menu.Params["dtmfHash"])
	assert.Equal(t, "Sorry?", menu.Params["errorMessage1"])
	assert.Equal(t, "Once more?", menu.Params["errorMessage2"])

	auth := sets[0].Rules[2]
	assert.Equal(t, true, auth.Params["returnHere"])
	assert.Equal(t, 1.0, auth.Activation)
	require.Len(t, auth.Weights, 1)
}

func TestBuilder_Lists(t *testing.T) {
	b := New()
	rs := b.RuleSet("Main")
	rs.Distribution("Split", "B").Option("A", 30).Option("B", 20)
	rs.NLUMenu("Ask", "How can I help?", "Billing").Intent("pay", "A", "Pay a bill?")
	rs.SetAttributes("Tag", "tier", "gold", "lang", "en")
	b.RuleSet("A").Terminate("End", "")
	b.RuleSet("B").Terminate("End", "")

	sets, err := b.Build()
	require.NoError(t, err)

	split := sets[0].Rules[0]
	assert.Len(t, split.Params["options"], 2)
	ask := sets[0].Rules[1]
	assert.Equal(t, []any{map[string]any{"intent": "pay", "ruleSetName": "A", "confirmationMessage": "Pay a bill?"}}, ask.Params["intents"])
	tag := sets[0].Rules[2]
	assert.Equal(t, []any{
		map[string]any{"key": "tier", "value": "gold"},
		map[string]any{"key": "lang", "value": "en"},
	}, tag.Params["setAttributes"])
}

func TestBuilder_InvalidRejected(t *testing.T) {
	b := New()
	b.RuleSet("Main").Goto("Jump", "Nowhere")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")
	assert.Panics(t, func() { b.MustProvider() })
}

func TestBuilder_Provider(t *testing.T) {
	b := New()
	b.RuleSet("Main").EndPoints("ep").Terminate("Bye", "")
	assert.Same(t, b.RuleSet("Main"), b.RuleSet("Main"))

	p, err := b.Provider()
	require.NoError(t, err)
	sets, err := p.RuleSets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Main", sets[0].Name)
}
