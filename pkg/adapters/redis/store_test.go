package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunStateStoreContract(t, store)
}

func TestRedisStore_HashFields(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	doc := domain.NewDocument(nil)
	doc.Set("CurrentRuleSet", "Main")
	doc.Set("ContactAttributes.tier", "gold")
	require.NoError(t, store.Put(ctx, "s1", doc, doc.Dirty()))

	assert.Equal(t, `"Main"`, mr.HGet("test:s1", "CurrentRuleSet"))
	assert.Equal(t, `{"tier":"gold"}`, mr.HGet("test:s1", "ContactAttributes"))

	// A worker writing a disjoint field is not clobbered by the next turn.
	worker := domain.NewDocument(map[string]any{"IntegrationStatus": "DONE"})
	require.NoError(t, store.Put(ctx, "s1", worker, []string{"IntegrationStatus"}))
	doc.ClearDirty()
	doc.Set("CurrentRule", "Ask")
	require.NoError(t, store.Put(ctx, "s1", doc, doc.Dirty()))

	loaded, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "DONE", loaded.GetString("IntegrationStatus"))
	assert.Equal(t, "Ask", loaded.GetString("CurrentRule"))
	assert.Equal(t, "gold", loaded.GetString("ContactAttributes.tier"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute))
	ctx := context.Background()

	doc := domain.NewDocument(map[string]any{"k": "v"})
	require.NoError(t, store.Put(ctx, "ttl-session", doc, doc.Keys()))
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultPrefix+"ttl-session"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "ttl-session")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
