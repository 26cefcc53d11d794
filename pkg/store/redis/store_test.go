package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store"
	"github.com/doodlesbykumbi/who-can-in-go/pkg/store/storetest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestStore(t *testing.T) {
	storetest.Suite{
		New: func(t *testing.T) store.GrantStore {
			_, rdb := newTestRedis(t)
			return New(rdb)
		},
		Count: func(t *testing.T, s store.GrantStore, tr grant.Triple) int {
			keys, err := s.(*Store).client.Keys(context.Background(), DefaultPrefix+":grant:*").Result()
			require.NoError(t, err)
			return len(keys)
		},
	}.Run(t)
}

func TestAllowTimestamps(t *testing.T) {
	_, rdb := newTestRedis(t)
	first := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	current := first
	s := New(rdb, WithClock(func() time.Time { return current }))
	ctx := context.Background()

	require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))
	current = first.Add(time.Minute)
	require.NoError(t, s.Allow(ctx, "u1", "read", "doc1"))

	g, ok, err := s.Get(ctx, "u1", "read", "doc1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", g.Identifier)
	assert.True(t, first.Equal(g.CreatedAt))
	assert.True(t, first.Add(time.Minute).Equal(g.UpdatedAt))
}

func TestGetStructuredValue(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := New(rdb, WithPrefix("test"))
	ctx := context.Background()
	target := bson.D{{Key: "type", Value: "doc"}, {Key: "id", Value: "1"}}

	require.NoError(t, s.Allow(ctx, "u1", "read", target))

	g, ok, err := s.Get(ctx, "u1", "read", target)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, target, g.Target)

	keys, err := rdb.Keys(ctx, "test:grant:*").Result()
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestGetMissing(t *testing.T) {
	_, rdb := newTestRedis(t)
	s := New(rdb)

	_, ok, err := s.Get(context.Background(), "u1", "read", "doc1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	s := New(rdb)
	mr.Close()

	ctx := context.Background()
	assert.ErrorIs(t, s.CheckConnectivity(ctx), store.ErrUnavailable)
	assert.Error(t, s.Allow(ctx, "u1", "read", "doc1"))

	_, err = s.Can(ctx, "u1", "read", "doc1")
	assert.Error(t, err)
}
