package tests

import (
	"context"
	"testing"

	"github.com/aretw0/parley/pkg/ports"
)

// ConfigProviderContractTest is a reusable test suite that verifies if an adapter complies
// with ports.ConfigProvider. wantRuleSets lists names the provider must serve.
func ConfigProviderContractTest(t *testing.T, provider ports.ConfigProvider, wantRuleSets []string) {
	t.Helper()
	ctx := context.Background()

	t.Run("RuleSets_Served", func(t *testing.T) {
		ruleSets, err := provider.RuleSets(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading rule sets: %v", err)
		}
		names := make(map[string]bool, len(ruleSets))
		for _, rs := range ruleSets {
			names[rs.Name] = true
		}
		for _, want := range wantRuleSets {
			if !names[want] {
				t.Errorf("rule set %q not served", want)
			}
		}
	})

	t.Run("LastChangedAt_Stable", func(t *testing.T) {
		first, err := provider.LastChangedAt(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := provider.LastChangedAt(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !first.Equal(second) {
			t.Errorf("timestamp moved without a change: %v -> %v", first, second)
		}
	})

	t.Run("Lookups", func(t *testing.T) {
		if _, err := provider.Lookups(ctx); err != nil {
			t.Fatalf("unexpected error loading lookups: %v", err)
		}
	})
}
