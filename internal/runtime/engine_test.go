package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/rules"
	"github.com/aretw0/parley/internal/runtime"
	"github.com/aretw0/parley/internal/templating"
	"github.com/aretw0/parley/pkg/adapters/gotemplate"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/registry"
)

type fixture struct {
	engine *runtime.Engine
	store  *memory.Store
}

func newFixture(t *testing.T, provider ports.ConfigProvider, deps rules.Deps, opts ...runtime.EngineOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	resolver := templating.New(gotemplate.New())
	deps.Store = store
	deps.Resolver = resolver
	if deps.PollInterval == 0 {
		deps.PollInterval = 5 * time.Millisecond
	}
	controller := rules.NewController(rules.DefaultRegistry(deps))
	opts = append([]runtime.EngineOption{runtime.WithResolver(resolver)}, opts...)
	return &fixture{
		engine: runtime.NewEngine(runtime.NewConfigCache(provider), store, controller, opts...),
		store:  store,
	}
}

func (f *fixture) start(t *testing.T, session string, attrs map[string]string) *domain.Response {
	t.Helper()
	resp, err := f.engine.Turn(context.Background(), domain.Request{
		SessionID: session, EndPoint: "chat", EventType: domain.EventNew, ContactAttributes: attrs,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) resume(t *testing.T, session string) *domain.Response {
	t.Helper()
	resp, err := f.engine.Turn(context.Background(), domain.Request{SessionID: session, EventType: domain.EventResume})
	require.NoError(t, err)
	return resp
}

func (f *fixture) input(t *testing.T, session, input string) *domain.Response {
	t.Helper()
	resp, err := f.engine.Turn(context.Background(), domain.Request{SessionID: session, EventType: domain.EventInput, Input: input})
	require.NoError(t, err)
	return resp
}

func TestEngine_MessageThenTerminate(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Message("Hi", "Hello.")
	main.Terminate("Bye", "Goodbye.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	resp := f.start(t, "s1", nil)
	assert.Equal(t, "Hello.", resp.Message)
	assert.False(t, resp.InputRequired)
	assert.False(t, resp.Terminate)
	assert.Equal(t, "Main", resp.RuleSet)
	assert.Equal(t, "Hi", resp.Rule)
	assert.Equal(t, domain.RuleTypeMessage, resp.RuleType)
	assert.Equal(t, "Hello.", resp.State["CurrentRule_message"])

	resp = f.resume(t, "s1")
	assert.Equal(t, "Goodbye.", resp.Message)
	assert.True(t, resp.Terminate)
	assert.Equal(t, true, resp.State[domain.KeyTerminating])
	assert.NotContains(t, resp.State, "CurrentRule_message", "previous rule state is pruned")

	resp = f.resume(t, "s1")
	assert.True(t, resp.Terminate)
	assert.Empty(t, resp.Message)
}

func TestEngine_NewResetsSession(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Message("One", "First.")
	main.Message("Two", "Second.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	f.start(t, "s1", map[string]string{"old": "value"})
	f.resume(t, "s1")

	resp := f.start(t, "s1", nil)
	assert.Equal(t, "First.", resp.Message)
	assert.NotContains(t, resp.State, domain.KeyContactAttributes)

	system, ok := resp.State[domain.KeySystem].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "new", system["eventType"])
	assert.Equal(t, "chat", system["endPoint"])

	resp = f.resume(t, "s1")
	system = resp.State[domain.KeySystem].(map[string]any)
	assert.Equal(t, "chat", system["endPoint"], "endpoint survives later turns")
}

func TestEngine_Hangup(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("chat").Message("Hi", "Hello.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	f.start(t, "s1", nil)
	resp, err := f.engine.Turn(context.Background(), domain.Request{SessionID: "s1", EventType: domain.EventHangup})
	require.NoError(t, err)
	assert.True(t, resp.Terminate)
	assert.Equal(t, true, resp.State[domain.KeyTerminating])
}

func TestEngine_RequestErrors(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("chat").Message("Hi", "Hello.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})
	ctx := context.Background()

	_, err := f.engine.Turn(ctx, domain.Request{SessionID: "s1", EndPoint: "voice", EventType: domain.EventNew})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorIs(t, err, domain.ErrRuleSetNotFound)

	_, err = f.engine.Turn(ctx, domain.Request{SessionID: "ghost", EventType: domain.EventResume})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = f.engine.Turn(ctx, domain.Request{SessionID: "s1", EventType: "poke"})
	assert.ErrorContains(t, err, "unknown event type")

	_, err = f.engine.Turn(ctx, domain.Request{EventType: domain.EventNew, EndPoint: "chat"})
	assert.Error(t, err)
}

func TestEngine_CallAndReturn(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Call("CallSub", "Sub")
	main.Message("Back", "Back in main.")
	b.RuleSet("Sub").Message("InSub", "In sub.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	resp := f.start(t, "s1", nil)
	assert.Equal(t, "In sub.", resp.Message)
	assert.Equal(t, "Sub", resp.RuleSet)
	assert.Equal(t, []any{map[string]any{"ruleSetName": "Main", "ruleName": "CallSub"}}, resp.State[domain.KeyReturnStack])

	resp = f.resume(t, "s1")
	assert.Equal(t, "Back in main.", resp.Message)
	assert.Equal(t, "Main", resp.RuleSet)
	assert.NotContains(t, resp.State, domain.KeyReturnStack)

	_, err := f.engine.Turn(context.Background(), domain.Request{SessionID: "s1", EventType: domain.EventResume})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorIs(t, err, domain.ErrNoMoreRules)
}

func TestEngine_InputEscalatesToErrorRuleSet(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("chat").
		DTMFInput("Account", "Enter your account.", "Account", rules.DTMFNumber).
		Errors("Try again.").
		OnError("Agent").
		Param("maxErrorCount", 2)
	b.RuleSet("Agent").Queue("ToAgent", "Support").Param("message", "Transferring.")
	provider := b.MustProvider().WithLookups(domain.Lookups{Queues: map[string]string{"Support": "q-7"}})
	f := newFixture(t, provider, rules.Deps{})

	resp := f.start(t, "s1", nil)
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "Enter your account.", resp.Message)
	assert.Equal(t, domain.PhaseInput, resp.State[domain.KeyPhase])

	resp = f.input(t, "s1", "abc")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "Try again.", resp.Message)
	assert.Equal(t, float64(1), resp.State[domain.KeyErrorCount])

	resp = f.input(t, "s1", "xyz")
	assert.False(t, resp.InputRequired)
	assert.Equal(t, "Agent", resp.RuleSet)
	assert.Equal(t, "q-7", resp.QueueID)
	assert.Equal(t, "Transferring.", resp.Message)
	assert.False(t, resp.Terminate)

	resp = f.resume(t, "s1")
	assert.True(t, resp.Terminate)
}

func TestEngine_InputEscalatesToTerminate(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("chat").
		DTMFInput("Pin", "Enter your PIN.", "Pin", rules.DTMFNumber).
		Errors("First.", "Second.", "Last.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	f.start(t, "s1", nil)
	assert.Equal(t, "First.", f.input(t, "s1", "x").Message)
	assert.Equal(t, "Second.", f.resume(t, "s1").Message, "no input counts as an error")

	resp := f.input(t, "s1", "y")
	assert.True(t, resp.Terminate)
	assert.Equal(t, "Last.", resp.Message)
	assert.Equal(t, true, resp.State[domain.KeyTerminating])
}

func TestEngine_InputWithConfirmation(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.DTMFInput("Account", "Enter your account.", "Account", rules.DTMFNumber).
		Confirm("You entered {{ .Account }}. Correct?")
	main.Message("Thanks", "Thanks {{ .Account }}.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	f.start(t, "s1", nil)
	resp := f.input(t, "s1", "1234")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "You entered 1234. Correct?", resp.Message)
	assert.NotContains(t, resp.State, "Account", "value is held until confirmed")

	resp = f.input(t, "s1", "no")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "Enter your account.", resp.Message)

	f.input(t, "s1", "1234")
	resp = f.input(t, "s1", "Yes.")
	assert.Equal(t, "Thanks 1234.", resp.Message)
	assert.Equal(t, "1234", resp.State["Account"])
}

func TestEngine_Distribution(t *testing.T) {
	build := func() *memory.Provider {
		b := dsl.New()
		b.RuleSet("Main").EndPoints("chat").
			Distribution("Split", "B").
			Option("A", 30).
			Param("outputStateKey", "Variant")
		b.RuleSet("A").Message("InA", "In A.")
		b.RuleSet("B").Message("InB", "In B.")
		return b.MustProvider()
	}

	low := newFixture(t, build(), rules.Deps{Random: func() float64 { return 0.1 }})
	resp := low.start(t, "s1", nil)
	assert.Equal(t, "In A.", resp.Message)
	assert.Equal(t, "A", resp.State["Variant"])

	high := newFixture(t, build(), rules.Deps{Random: func() float64 { return 0.5 }})
	resp = high.start(t, "s1", nil)
	assert.Equal(t, "In B.", resp.Message)
	assert.Equal(t, "B", resp.State["Variant"])
}

// workerInvoker completes integrations by writing results into the store.
type workerInvoker struct {
	store   ports.StateStore
	respond bool
	fail    error

	mu    sync.Mutex
	calls []domain.Invocation
}

func (w *workerInvoker) InvokeAsync(ctx context.Context, ref string, inv domain.Invocation) error {
	w.mu.Lock()
	w.calls = append(w.calls, inv)
	w.mu.Unlock()
	if w.fail != nil {
		return w.fail
	}
	if !w.respond {
		return nil
	}
	go func() {
		doc, err := w.store.Get(context.Background(), inv.SessionID)
		if err != nil {
			return
		}
		doc.Set("Balance", 42)
		doc.Set(domain.KeyIntegrationStatus, domain.IntegrationDone)
		_ = w.store.Put(context.Background(), inv.SessionID, doc, doc.Keys())
	}()
	return nil
}

// deferredInvoker lets a registry invoker be bound to the fixture's store after
// the fixture is built.
type deferredInvoker struct {
	*registry.Invoker
}

func integrationProvider(timeout float64) *memory.Provider {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Integration("Lookup", "Balance").Param("timeout", timeout)
	main.Message("Say", "Balance {{ .Balance }} status {{ .IntegrationStatus }}.")
	return b.MustProvider().WithLookups(domain.Lookups{Functions: map[string]string{"Balance": "fn-balance"}})
}

func TestEngine_Integration(t *testing.T) {
	t.Run("Worker Responds", func(t *testing.T) {
		invoker := &workerInvoker{respond: true}
		f := newFixture(t, integrationProvider(2), rules.Deps{Invoker: invoker})
		invoker.store = f.store

		resp := f.start(t, "s1", nil)
		assert.Equal(t, "Balance 42 status DONE.", resp.Message)
		require.Len(t, invoker.calls, 1)
		inv := invoker.calls[0]
		assert.Equal(t, "fn-balance", inv.FunctionID)
		assert.Equal(t, "Balance", inv.FunctionName)
		assert.Equal(t, "s1", inv.SessionID)
		assert.Len(t, inv.RequestID, 26)
		assert.Equal(t, inv.RequestID, resp.State[domain.KeyIntegrationRequestID])
	})

	t.Run("Timeout", func(t *testing.T) {
		invoker := &workerInvoker{}
		f := newFixture(t, integrationProvider(0.05), rules.Deps{Invoker: invoker})
		invoker.store = f.store

		resp := f.start(t, "s1", nil)
		assert.Equal(t, "Balance  status TIMEOUT.", resp.Message)
		assert.Equal(t, domain.IntegrationTimeout, resp.State[domain.KeyIntegrationStatus])
	})

	t.Run("Late Result Is Dropped", func(t *testing.T) {
		reg := registry.NewRegistry()
		reg.Register("Balance", func(ctx context.Context, state map[string]any) (map[string]any, error) {
			time.Sleep(200 * time.Millisecond)
			return map[string]any{"Balance": 42}, nil
		})
		invoker := &deferredInvoker{}
		f := newFixture(t, integrationProvider(0.05), rules.Deps{Invoker: invoker})
		invoker.Invoker = registry.NewInvoker(reg, f.store)

		resp := f.start(t, "s1", nil)
		assert.Equal(t, "Balance  status TIMEOUT.", resp.Message)
		assert.NotContains(t, resp.State, domain.KeyIntegrationRequestID)

		invoker.Wait()
		doc, err := f.store.Get(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, domain.IntegrationTimeout, doc.GetString(domain.KeyIntegrationStatus))
		assert.False(t, doc.Has("Balance"))
	})

	t.Run("Dispatch Fails", func(t *testing.T) {
		invoker := &workerInvoker{fail: errors.New("broker down")}
		f := newFixture(t, integrationProvider(1), rules.Deps{Invoker: invoker})
		invoker.store = f.store

		_, err := f.engine.Turn(context.Background(), domain.Request{SessionID: "s1", EndPoint: "chat", EventType: domain.EventNew})
		assert.ErrorContains(t, err, "broker down")
	})
}

func TestEngine_MaxSteps(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.UpdateStates("Count", "Loops", "increment")
	main.Goto("Again", "Main")
	f := newFixture(t, b.MustProvider(), rules.Deps{}, runtime.WithMaxSteps(10))

	_, err := f.engine.Turn(context.Background(), domain.Request{SessionID: "s1", EndPoint: "chat", EventType: domain.EventNew})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorContains(t, err, "more than 10 rules")
}

func TestEngine_BulkUpdates(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.SetAttributes("Attrs", "tier", "gold", "greeting", "Hi {{ .ContactAttributes.name }}")
	main.UpdateStates("Count", "Visits", "increment", "Visits", "increment")
	main.Message("Done", "Visits {{ .Visits }}, {{ .ContactAttributes.greeting }}.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	resp := f.start(t, "s1", map[string]string{"name": "Ana"})
	assert.Equal(t, "Visits 2, Hi Ana.", resp.Message)
	attrs := resp.State[domain.KeyContactAttributes].(map[string]any)
	assert.Equal(t, "gold", attrs["tier"])
}

func TestEngine_WeightedActivation(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Message("Gold", "Welcome, gold member.").
		When("ContactAttributes.tier", "equals", "gold", 1).
		Activation(1)
	main.Message("Standard", "Welcome.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	assert.Equal(t, "Welcome, gold member.", f.start(t, "gold", map[string]string{"tier": "gold"}).Message)
	assert.Equal(t, "Welcome.", f.start(t, "silver", map[string]string{"tier": "silver"}).Message)
}

func TestEngine_ConfigReload(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Message("One", "Old first.")
	main.Message("Two", "Old second.")
	provider := b.MustProvider()
	f := newFixture(t, provider, rules.Deps{})

	f.start(t, "s1", nil)

	nb := dsl.New()
	next := nb.RuleSet("Main").EndPoints("chat")
	next.Message("One", "New first.")
	next.Message("Two", "New second.")
	provider.SetRuleSets(nb.RuleSets()...)

	assert.Equal(t, "New second.", f.resume(t, "s1").Message)
}

func TestEngine_Hooks(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Metric("Count", "calls")
	main.Message("Hi", "Hello.")

	var mu sync.Mutex
	var entered, left []string
	var turns []*domain.TurnEvent
	hooks := domain.LifecycleHooks{
		OnRuleEnter: func(_ context.Context, e *domain.RuleEvent) {
			mu.Lock()
			defer mu.Unlock()
			entered = append(entered, e.Rule)
		},
		OnRuleLeave: func(_ context.Context, e *domain.RuleEvent) {
			mu.Lock()
			defer mu.Unlock()
			left = append(left, e.Rule+":"+e.Outcome)
		},
		OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) {
			mu.Lock()
			defer mu.Unlock()
			turns = append(turns, e)
		},
	}
	f := newFixture(t, b.MustProvider(), rules.Deps{}, runtime.WithLifecycleHooks(hooks))

	f.start(t, "s1", nil)
	assert.Equal(t, []string{"Count", "Hi"}, entered)
	assert.Equal(t, []string{"Count:continue", "Hi:stop"}, left)
	require.Len(t, turns, 1)
	assert.Equal(t, 2, turns[0].Steps)
	assert.Equal(t, "Hi", turns[0].Rule)
	assert.NoError(t, turns[0].Err)

	_, err := f.engine.Turn(context.Background(), domain.Request{SessionID: "ghost", EventType: domain.EventResume})
	require.Error(t, err)
	require.Len(t, turns, 2)
	assert.ErrorIs(t, turns[1].Err, domain.ErrSessionNotFound)
}

type recordingSink struct {
	mu     sync.Mutex
	values map[string]float64
}

func (s *recordingSink) Emit(_ context.Context, name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] += value
}

func TestEngine_Metrics(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.Metric("Calls", "calls")
	main.Metric("Weighted", "weighted").Param("metricValue", 2.5)
	main.Message("Hi", "Hello.")
	sink := &recordingSink{values: map[string]float64{}}
	f := newFixture(t, b.MustProvider(), rules.Deps{Metrics: sink})

	f.start(t, "s1", nil)
	assert.Equal(t, map[string]float64{"calls": 1, "weighted": 2.5}, sink.values)
}

type echoSpeech struct{}

func (echoSpeech) Render(_ context.Context, text string) ([]byte, error) {
	return []byte("audio:" + text), nil
}

func TestEngine_Speech(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("chat").Message("Hi", "Hello.")
	f := newFixture(t, b.MustProvider(), rules.Deps{}, runtime.WithSpeechRenderer(echoSpeech{}))

	resp, err := f.engine.Turn(context.Background(), domain.Request{SessionID: "s1", EndPoint: "chat", EventType: domain.EventNew, WantAudio: true})
	require.NoError(t, err)
	assert.Equal(t, []byte("audio:Hello."), resp.Audio)

	resp = f.start(t, "s2", nil)
	assert.Nil(t, resp.Audio)
}

// keywordClassifier maps exact phrases to intents.
type keywordClassifier struct {
	intents map[string]string
	bots    []string
}

func (c *keywordClassifier) Classify(_ context.Context, botID, text, _ string) (*domain.Classification, error) {
	c.bots = append(c.bots, botID)
	intent, ok := c.intents[text]
	if !ok {
		return &domain.Classification{Intent: domain.IntentFallback}, nil
	}
	return &domain.Classification{Intent: intent, Confidence: 0.9}, nil
}

func TestEngine_NLUMenu(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("chat").
		NLUMenu("Menu", "How can I help?", "Helper").
		Intent("Billing", "Billing", "").
		Intent("Sales", "Sales", "Sales, right?").
		Param("outputStateKey", "Intent")
	b.RuleSet("Billing").Message("Bill", "Billing here.")
	b.RuleSet("Sales").Message("Sell", "Sales here.")
	provider := b.MustProvider().WithLookups(domain.Lookups{Bots: map[string]string{"Helper": "bot-1"}})
	classifier := &keywordClassifier{intents: map[string]string{"my bill": "Billing", "buy": "Sales"}}
	f := newFixture(t, provider, rules.Deps{Classifier: classifier})

	resp := f.start(t, "s1", nil)
	assert.Equal(t, "How can I help?", resp.Message)

	resp = f.input(t, "s1", "something else")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "How can I help?", resp.Message)

	resp = f.input(t, "s1", "my bill")
	assert.Equal(t, "Billing here.", resp.Message)
	assert.Equal(t, "Billing", resp.State["Intent"])
	assert.Equal(t, []string{"bot-1", "bot-1"}, classifier.bots)

	f.start(t, "s2", nil)
	resp = f.input(t, "s2", "buy")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "Sales, right?", resp.Message)
	resp = f.input(t, "s2", "yes")
	assert.Equal(t, "Sales here.", resp.Message)
}

// scriptedClassifier answers with a fixed classification per utterance.
type scriptedClassifier struct {
	answers map[string]domain.Classification
	heard   []string
}

func (c *scriptedClassifier) Classify(_ context.Context, _, text, _ string) (*domain.Classification, error) {
	c.heard = append(c.heard, text)
	answer, ok := c.answers[text]
	if !ok {
		return &domain.Classification{Intent: domain.IntentFallback}, nil
	}
	return &answer, nil
}

func TestEngine_NLUInput(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("chat")
	main.NLUInput("Qty", "How many?", "Helper", "Qty", "number").
		Param("maxValue", "10").
		Param("autoConfirm", true).
		Param("autoConfirmMessage", "Got {{ .Qty }}.").
		Param("noDataRuleSetName", "NoData").
		Confirm("You said {{ .Qty }}?").
		Errors("Say a number.")
	main.Message("Done", "Qty {{ .Qty }}.")
	b.RuleSet("NoData").Terminate("Bye", "No data.")
	provider := b.MustProvider().WithLookups(domain.Lookups{Bots: map[string]string{"Helper": "bot-1"}})

	number := func(value string, confidence float64) domain.Classification {
		return domain.Classification{Intent: "number", Confidence: confidence, Slots: map[string]string{"number": value}}
	}
	classifier := &scriptedClassifier{answers: map[string]domain.Classification{
		"five":       number("5", 0.9),
		"maybe five": number("5", 0.5),
		"fifty":      number("50", 0.9),
		"nothing":    {Intent: domain.IntentNoData, Confidence: 0.95},
		"mumble":     {Intent: domain.IntentNoData, Confidence: 0.3},
	}}
	f := newFixture(t, provider, rules.Deps{Classifier: classifier})

	t.Run("Auto Confirm Above Threshold", func(t *testing.T) {
		assert.Equal(t, "How many?", f.start(t, "auto", nil).Message)
		resp := f.input(t, "auto", "five")
		assert.False(t, resp.InputRequired)
		assert.Equal(t, "Got 5. Qty 5.", resp.Message)
		assert.Equal(t, "5", resp.State["Qty"])
	})

	t.Run("Confirms Below Threshold", func(t *testing.T) {
		f.start(t, "confirm", nil)
		resp := f.input(t, "confirm", "maybe five")
		assert.True(t, resp.InputRequired)
		assert.Equal(t, "You said 5?", resp.Message)
		assert.NotContains(t, resp.State, "Qty")

		resp = f.input(t, "confirm", "yes")
		assert.Equal(t, "Qty 5.", resp.Message)
	})

	t.Run("Out Of Range Counts As Error", func(t *testing.T) {
		f.start(t, "range", nil)
		resp := f.input(t, "range", "fifty")
		assert.True(t, resp.InputRequired)
		assert.Equal(t, "Say a number.", resp.Message)
		assert.EqualValues(t, 1, resp.State[domain.KeyErrorCount])
	})

	t.Run("No Input Is Rejected", func(t *testing.T) {
		f.start(t, "silent", nil)
		heard := len(classifier.heard)
		resp := f.input(t, "silent", domain.InputNoInput)
		assert.True(t, resp.InputRequired)
		assert.Equal(t, "Say a number.", resp.Message)
		assert.EqualValues(t, 1, resp.State[domain.KeyErrorCount])
		assert.Len(t, classifier.heard, heard, "sentinels never reach the classifier")
	})

	t.Run("Confident No Data Routes Away", func(t *testing.T) {
		f.start(t, "nodata", nil)
		resp := f.input(t, "nodata", "nothing")
		assert.True(t, resp.Terminate)
		assert.Equal(t, "No data.", resp.Message)
		assert.Equal(t, "NoData", resp.RuleSet)
	})

	t.Run("Unsure No Data Is Rejected", func(t *testing.T) {
		f.start(t, "unsure", nil)
		resp := f.input(t, "unsure", "mumble")
		assert.True(t, resp.InputRequired)
		assert.Equal(t, "Say a number.", resp.Message)
	})
}

func TestEngine_DTMFMenuNoInput(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("chat").
		DTMFMenu("Menu", "Press 1.").
		Key("1", "One").
		Param("noInputRuleSetName", "Silent")
	b.RuleSet("One").Message("Picked", "One.")
	b.RuleSet("Silent").Message("Nobody", "Nobody there.")
	f := newFixture(t, b.MustProvider(), rules.Deps{})

	f.start(t, "s1", nil)
	resp := f.input(t, "s1", "7")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "Press 1.", resp.Message)

	resp = f.input(t, "s1", domain.InputNoInput)
	assert.False(t, resp.InputRequired)
	assert.Equal(t, "Nobody there.", resp.Message)
	assert.Equal(t, "Silent", resp.RuleSet)
}
