package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
lookups:
  queues:
    Sales: arn:queue:sales
  bots:
    Billing: bot-123
ruleSets:
  - name: Main
    endPoints: ["+61300000000"]
    rules:
      - name: Greeting
        type: Message
        params:
          message: "Hello {{ .ContactAttributes.name }}"
      - name: VIP
        type: RuleSet
        activation: "10"
        weights:
          - field: ContactAttributes.tier
            operation: equals
            value: gold
            weight: "10"
        params:
          ruleSetName: Vip
          returnHere: "true"
  - name: Vip
    enabled: false
    rules:
      - name: Bye
        type: Terminate
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileProvider_Contract(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", rulesYAML)
	tests.ConfigProviderContractTest(t, file.NewProvider(path), []string{"Main", "Vip"})
}

func TestFileProvider_WeakDecoding(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", rulesYAML)
	p := file.NewProvider(path)

	sets, err := p.RuleSets(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 2)

	mainSet := sets[0]
	assert.True(t, mainSet.Enabled, "rule sets default to enabled")
	assert.Equal(t, []string{"+61300000000"}, mainSet.EndPoints)
	require.Len(t, mainSet.Rules, 2)
	vip := mainSet.Rules[1]
	assert.Equal(t, 10.0, vip.Activation)
	assert.Equal(t, 10.0, vip.Weights[0].Weight)
	assert.Equal(t, "true", vip.Params["returnHere"])
	assert.False(t, sets[1].Enabled)

	lookups, err := p.Lookups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "arn:queue:sales", lookups.Queues["Sales"])
	assert.Equal(t, "bot-123", lookups.Bots["Billing"])
}

func TestFileProvider_DirectoryMergeAndReload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: First\nrules:\n  - name: M\n    type: Message\n    params: {message: hi}\n")
	second := writeFile(t, dir, "b.yml", "ruleSets:\n  - name: Second\n    rules: []\n")
	writeFile(t, dir, "notes.txt", "ignored")

	p := file.NewProvider(dir)
	ctx := context.Background()
	before, err := p.LastChangedAt(ctx)
	require.NoError(t, err)

	sets, err := p.RuleSets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "First", sets[0].Name)
	assert.Equal(t, "Second", sets[1].Name)

	writeFile(t, dir, "b.yml", "ruleSets:\n  - name: Renamed\n    rules: []\n")
	later := before.Add(time.Second)
	require.NoError(t, os.Chtimes(second, later, later))

	after, err := p.LastChangedAt(ctx)
	require.NoError(t, err)
	assert.True(t, after.After(before))

	sets, err = p.RuleSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", sets[1].Name)
}

func TestParse_Errors(t *testing.T) {
	_, _, err := file.Parse([]byte("ruleSets: [unclosed"))
	assert.Error(t, err)

	_, _, err = file.Parse([]byte("ruleSets:\n  - name: X\n    rules: not-a-list-of-rules\n"))
	assert.Error(t, err)

	sets, _, err := file.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, sets)

}
