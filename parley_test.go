package parley_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/adapters/gotemplate"
	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/aretw0/parley/pkg/registry"
)

func menuProvider(t *testing.T) *memory.Provider {
	t.Helper()
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("+15550100")
	main.Message("Welcome", "Welcome to support.")
	main.DTMFMenu("Menu", "Press 1 for sales or 2 to leave.").
		Key("1", "Sales").
		Key("2", "Goodbye").
		Errors("Sorry, press 1 or 2.")
	b.RuleSet("Sales").Queue("ToSales", "SalesQueue").Param("message", "Connecting you.")
	b.RuleSet("Goodbye").Terminate("Bye", "Goodbye.")

	provider, err := b.Provider()
	require.NoError(t, err)
	return provider.WithLookups(domain.Lookups{Queues: map[string]string{"SalesQueue": "q-sales"}})
}

func turn(t *testing.T, e *parley.Engine, id string, event domain.EventType, input string) *domain.Response {
	t.Helper()
	resp, err := e.Turn(context.Background(), domain.Request{
		SessionID: id,
		EndPoint:  "+15550100",
		EventType: event,
		Input:     input,
	})
	require.NoError(t, err)
	return resp
}

func TestEngine_Turn_MenuToQueue(t *testing.T) {
	store := memory.NewStore()
	engine, err := parley.New(menuProvider(t), store)
	require.NoError(t, err)

	resp := turn(t, engine, "c1", domain.EventNew, "")
	assert.Equal(t, "Welcome to support.", resp.Message)
	assert.False(t, resp.InputRequired)
	assert.Equal(t, "Welcome", resp.Rule)

	resp = turn(t, engine, "c1", domain.EventResume, "")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "Press 1 for sales or 2 to leave.", resp.Message)

	resp = turn(t, engine, "c1", domain.EventInput, "7")
	assert.True(t, resp.InputRequired)
	assert.Equal(t, "Sorry, press 1 or 2.", resp.Message)

	resp = turn(t, engine, "c1", domain.EventInput, "1")
	assert.Equal(t, "q-sales", resp.QueueID)
	assert.Equal(t, "Connecting you.", resp.Message)
	assert.Equal(t, "Sales", resp.RuleSet)
	assert.False(t, resp.InputRequired)

	resp = turn(t, engine, "c1", domain.EventResume, "")
	assert.True(t, resp.Terminate)

	doc, err := store.Get(context.Background(), "c1")
	require.NoError(t, err)
	terminating, _ := doc.Get(domain.KeyTerminating)
	assert.Equal(t, true, terminating)
}

func TestEngine_Turn_RendersTemplatesByDefault(t *testing.T) {
	b := dsl.New()
	b.RuleSet("Main").EndPoints("+15550100").
		Message("Greet", "Hello {{ .ContactAttributes.name | upper }}.")
	provider, err := b.Provider()
	require.NoError(t, err)

	engine, err := parley.New(provider, memory.NewStore())
	require.NoError(t, err)

	resp, err := engine.Turn(context.Background(), domain.Request{
		SessionID:         "c1",
		EndPoint:          "+15550100",
		EventType:         domain.EventNew,
		ContactAttributes: map[string]string{"name": "ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello ADA.", resp.Message)
}

func TestEngine_Turn_UnknownSession(t *testing.T) {
	engine, err := parley.New(menuProvider(t), memory.NewStore())
	require.NoError(t, err)

	_, err = engine.Turn(context.Background(), domain.Request{SessionID: "ghost", EventType: domain.EventInput, Input: "1"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngine_Turn_ConcurrentSessions(t *testing.T) {
	engine, err := parley.New(menuProvider(t), memory.NewStore())
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("c%d", i)
		g.Go(func() error {
			ctx := context.Background()
			for _, req := range []domain.Request{
				{SessionID: id, EndPoint: "+15550100", EventType: domain.EventNew},
				{SessionID: id, EventType: domain.EventResume},
				{SessionID: id, EventType: domain.EventInput, Input: "2"},
			} {
				resp, err := engine.Turn(ctx, req)
				if err != nil {
					return err
				}
				if req.EventType == domain.EventInput && !resp.Terminate {
					return fmt.Errorf("session %s did not terminate", id)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestEngine_Turn_InProcessIntegration(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("+15550100")
	main.Integration("Lookup", "GetBalance").Param("timeout", 2)
	main.Message("Balance", "Your balance is {{ .Balance }}.").
		When(domain.KeyIntegrationStatus, "equals", domain.IntegrationDone, 1).Activation(1)
	main.Message("Failed", "We could not find your balance.")
	provider, err := b.Provider()
	require.NoError(t, err)
	provider.WithLookups(domain.Lookups{Functions: map[string]string{"GetBalance": "fn-balance"}})

	functions := registry.NewRegistry()
	functions.Register("fn-balance", func(ctx context.Context, state map[string]any) (map[string]any, error) {
		return map[string]any{"Balance": "42"}, nil
	})

	engine, err := parley.New(provider, memory.NewStore(),
		parley.WithRegistry(functions),
		parley.WithTemplateEngine(gotemplate.New()),
		parley.WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)
	defer engine.Wait()

	resp := turn(t, engine, "c1", domain.EventNew, "")
	assert.Equal(t, "Your balance is 42.", resp.Message)
	assert.Equal(t, domain.IntegrationDone, resp.State[domain.KeyIntegrationStatus])
}

func TestEngine_Metrics(t *testing.T) {
	b := dsl.New()
	main := b.RuleSet("Main").EndPoints("+15550100")
	main.Metric("Count", "CallsOffered")
	main.Terminate("Bye", "Bye.")
	provider, err := b.Provider()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	engine, err := parley.New(provider, memory.NewStore(),
		parley.WithMetricSink(metrics),
		parley.WithLifecycleHooks(metrics.Hooks()),
	)
	require.NoError(t, err)

	resp := turn(t, engine, "c1", domain.EventNew, "")
	assert.True(t, resp.Terminate)
	assert.Equal(t, "Bye.", resp.Message)

	expected := `
		# HELP parley_rule_metric_total Values emitted by Metric rules
		# TYPE parley_rule_metric_total counter
		parley_rule_metric_total{name="CallsOffered"} 1
	`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "parley_rule_metric_total"))

	turns := `
		# HELP parley_turns_total Total number of turns by event type and result
		# TYPE parley_turns_total counter
		parley_turns_total{event_type="new",result="terminate"} 1
	`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(turns), "parley_turns_total"))
}

func TestEngine_InvalidateAndRuleSets(t *testing.T) {
	provider := menuProvider(t)
	engine, err := parley.New(provider, memory.NewStore())
	require.NoError(t, err)

	sets, err := engine.RuleSets(context.Background())
	require.NoError(t, err)
	assert.Len(t, sets, 3)

	b := dsl.New()
	b.RuleSet("Main").EndPoints("+15550100").Terminate("Bye", "Closed today.")
	provider.SetRuleSets(b.RuleSets()...)
	engine.Invalidate()

	resp := turn(t, engine, "c1", domain.EventNew, "")
	assert.True(t, resp.Terminate)
	assert.Equal(t, "Closed today.", resp.Message)

	sets, err = engine.RuleSets(context.Background())
	require.NoError(t, err)
	assert.Len(t, sets, 1)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := parley.New(nil, memory.NewStore())
	assert.Error(t, err)
	_, err = parley.New(memory.NewProvider(), nil)
	assert.Error(t, err)
}
