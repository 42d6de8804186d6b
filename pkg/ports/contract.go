package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405.000000")

	t.Run("Put and Get", func(t *testing.T) {
		doc := domain.NewDocument(nil)
		doc.Set("foo", "bar")
		doc.Set("nested.count", 42)

		require.NoError(t, store.Put(ctx, sessionID, doc, doc.Dirty()), "Put should not return error")

		loaded, err := store.Get(ctx, sessionID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, "bar", loaded.GetString("foo"))
		n, ok := loaded.GetNumber("nested.count")
		assert.True(t, ok)
		assert.Equal(t, float64(42), n)
		assert.Empty(t, loaded.Dirty(), "a loaded document starts clean")
	})

	t.Run("Put writes only listed keys", func(t *testing.T) {
		other := domain.NewDocument(map[string]any{"foo": "stale", "extra": "x"})
		require.NoError(t, store.Put(ctx, sessionID, other, []string{"extra"}))

		loaded, err := store.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "bar", loaded.GetString("foo"), "unlisted key must not be overwritten")
		assert.Equal(t, "x", loaded.GetString("extra"))
	})

	t.Run("Put removes listed absent keys", func(t *testing.T) {
		loaded, err := store.Get(ctx, sessionID)
		require.NoError(t, err)
		loaded.Delete("extra")

		require.NoError(t, store.Put(ctx, sessionID, loaded, loaded.Dirty()))

		reloaded, err := store.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, reloaded.Has("extra"))
		assert.True(t, reloaded.Has("foo"))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		doc := domain.NewDocument(map[string]any{"k": "v"})
		require.NoError(t, store.Put(ctx, id1, doc, doc.Keys()))
		require.NoError(t, store.Put(ctx, id2, doc, doc.Keys()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Get(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")
	})
}
