package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/config"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/domain"
)

const validRules = `
ruleSets:
  - name: Main
    endPoints: ["chat"]
    rules:
      - name: Hello
        type: Message
        params:
          message: Hello.
      - name: Next
        type: RuleSet
        params:
          ruleSetName: Bye
  - name: Bye
    rules:
      - name: End
        type: Terminate
        params:
          message: Goodbye.
`

const brokenRules = `
ruleSets:
  - name: Main
    endPoints: ["chat"]
    rules:
      - name: Dance
        type: Tango
      - name: Jump
        type: RuleSet
        params:
          ruleSetName: Nowhere
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "parley version "))
}

func TestValidateCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "validate", writeRules(t, validRules))
	require.NoError(t, err)
	assert.Contains(t, out, "2 rule set(s) valid")

	out, err = execute(t, "validate", writeRules(t, brokenRules))
	require.Error(t, err)
	assert.Contains(t, out, `unknown rule type "Tango"`)
	assert.Contains(t, out, `destination rule set "Nowhere" does not exist`)
}

func TestGraphCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	rules := writeRules(t, validRules)

	out, err := execute(t, "graph", rules, "--session=")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "Bye")

	sessions := filepath.Join(dir, "sessions")
	t.Setenv("PARLEY_STORE", "file")
	t.Setenv("PARLEY_FILE_STORE_PATH", sessions)
	doc := domain.NewDocument(map[string]any{domain.KeyCurrentRuleSet: "Bye"})
	require.NoError(t, file.NewStore(sessions).Put(context.Background(), "s1", doc, doc.Keys()))

	out, err = execute(t, "graph", rules, "--session=s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Bye")

	_, err = execute(t, "graph", rules, "--session=ghost")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32))

	t.Run("Memory With Encryption", func(t *testing.T) {
		cfg := &config.Config{Store: "memory", EncryptionKey: key}
		store, locker, closeStore, err := openStore(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()
		assert.Nil(t, locker)

		doc := domain.NewDocument(map[string]any{"Secret": "1234"})
		require.NoError(t, store.Put(ctx, "s", doc, doc.Keys()))
		loaded, err := store.Get(ctx, "s")
		require.NoError(t, err)
		assert.Equal(t, "1234", loaded.GetString("Secret"))
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{Store: "redis", Redis: config.RedisConfig{Addr: mr.Addr(), Prefix: "test:"}}
		store, locker, closeStore, err := openStore(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()
		require.NotNil(t, locker)

		doc := domain.NewDocument(map[string]any{"a": "b"})
		require.NoError(t, store.Put(ctx, "s", doc, doc.Keys()))
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "s")
	})

	t.Run("Redis Unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, _, _, err := openStore(ctx, &config.Config{Store: "redis", Redis: config.RedisConfig{Addr: addr}})
		assert.ErrorContains(t, err, "connect redis")
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, _, err := openStore(ctx, &config.Config{Store: "etcd"})
		assert.Error(t, err)
	})
}

func TestNewApp_Chat(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := &config.Config{
		Store:         "memory",
		RulesPath:     writeRules(t, validRules),
		LogLevel:      "error",
		FunctionsPath: "functions.yaml",
		MaxSteps:      20,
	}

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.engine.Turn(context.Background(), domain.Request{SessionID: "c", EndPoint: "chat", EventType: domain.EventNew})
	require.NoError(t, err)
	assert.Equal(t, "Hello.", resp.Message)

	resp, err = a.engine.Turn(context.Background(), domain.Request{SessionID: "c", EventType: domain.EventResume})
	require.NoError(t, err)
	assert.Equal(t, "Goodbye.", resp.Message)
}
