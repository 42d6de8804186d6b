package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/registry"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestFunction(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	t.Run("Merges JSON Output", func(t *testing.T) {
		fn := Function(Config{
			Name:    "balance",
			Command: "sh",
			Args:    []string{"-c", `echo "{\"Balance\": 42, \"Account\": \"$PARLEY_STATE_ACCOUNTNUMBER\"}"`},
		})

		out, err := fn(ctx, map[string]any{"AccountNumber": "1234"})
		require.NoError(t, err)
		assert.Equal(t, float64(42), out["Balance"])
		assert.Equal(t, "1234", out["Account"])
	})

	t.Run("Reads State From Stdin", func(t *testing.T) {
		fn := Function(Config{Name: "cat", Command: "cat"})

		out, err := fn(ctx, map[string]any{"greeting": "hi"})
		require.NoError(t, err)
		assert.Equal(t, "hi", out["greeting"])
	})

	t.Run("Plain Output", func(t *testing.T) {
		fn := Function(Config{
			Name:        "echo",
			Command:     "sh",
			Args:        []string{"-c", "echo $GREETING"},
			Environment: map[string]string{"GREETING": "hello"},
		})

		out, err := fn(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{OutputKey: "hello"}, out)
	})

	t.Run("Failure Includes Stderr", func(t *testing.T) {
		fn := Function(Config{
			Name:    "broken",
			Command: "sh",
			Args:    []string{"-c", "echo boom >&2; exit 3"},
		})

		_, err := fn(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Timeout", func(t *testing.T) {
		fn := Function(Config{
			Name:    "slow",
			Command: "sleep",
			Args:    []string{"5"},
			Timeout: 50 * time.Millisecond,
		})

		start := time.Now()
		_, err := fn(ctx, nil)
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 4*time.Second)
	})

	t.Run("Base Dir", func(t *testing.T) {
		dir := t.TempDir()
		fn := Function(Config{Name: "pwd", Command: "pwd"}, WithBaseDir(dir))

		out, err := fn(ctx, nil)
		require.NoError(t, err)
		resolved, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(out[OutputKey].(string))
		require.NoError(t, err)
		assert.Equal(t, resolved, got)
	})
}

func TestRegister(t *testing.T) {
	requireShell(t)
	reg := registry.NewRegistry()

	names := Register(reg, map[string]Config{
		"b": {Name: "b", Command: "true"},
		"a": {Name: "a", Command: "true"},
	})
	assert.Equal(t, []string{"a", "b"}, names)

	out, err := reg.Execute(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{OutputKey: ""}, out)
}

func TestLoadFunctions(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "functions.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
functions:
  - name: lookup
    command: ./lookup.sh
    args: ["--fast"]
    timeout: 2s
  - name: ""
    command: ignored
`), 0o600))

		fns, err := LoadFunctions(path)
		require.NoError(t, err)
		require.Len(t, fns, 1)
		assert.Equal(t, []string{"--fast"}, fns["lookup"].Args)
		assert.Equal(t, 2*time.Second, fns["lookup"].Timeout)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "functions.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"functions":[{"name":"x","command":"true"}]}`), 0o600))

		fns, err := LoadFunctions(path)
		require.NoError(t, err)
		assert.Contains(t, fns, "x")
	})

	t.Run("Missing File", func(t *testing.T) {
		fns, err := LoadFunctions(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Empty(t, fns)
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("functions: [\n"), 0o600))

		_, err := LoadFunctions(path)
		assert.Error(t, err)
	})
}
