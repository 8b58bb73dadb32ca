package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/hybridrec/core"
)

func redisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("HYBRIDREC_REDIS_ADDR")
	if addr == "" {
		t.Skip("HYBRIDREC_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisConfig{Addr: addr, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStoreModelRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := redisStore(t)
	a := NewModelAdapter(s, "hybridrec_test")
	require.NoError(t, a.Save(ctx, testSnapshot()))

	vec, err := a.ItemVector(ctx, "i2")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, vec)

	nbs, err := a.Neighbors(ctx, core.SideItem, "i1", 0)
	require.NoError(t, err)
	assert.Equal(t, []NeighborEntry{{ID: "i2", Weight: 0.9}, {ID: "i3", Weight: 0.2}}, nbs)

	_, err = s.Get(ctx, "hybridrec_test:nothing")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestRedisStoreUnavailable(t *testing.T) {
	if os.Getenv("HYBRIDREC_REDIS_ADDR") == "" {
		t.Skip("HYBRIDREC_REDIS_ADDR not set")
	}
	_, err := NewRedisStore(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	assert.True(t, core.IsUnavailable(err))
}
