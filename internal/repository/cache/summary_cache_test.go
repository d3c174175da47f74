package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSummaryCache(rdb, time.Hour), mr
}

func TestSummaryCache_RoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	session := uuid.New()

	got, err := c.Get(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.Set(ctx, session, `{"headline":"x"}`))
	got, err = c.Get(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, `{"headline":"x"}`, got)
	assert.Equal(t, time.Hour, mr.TTL("ai_summary:"+session.String()))

	mr.FastForward(2 * time.Hour)
	got, err = c.Get(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummaryCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	session := uuid.New()

	require.NoError(t, c.Set(ctx, session, `{}`))
	require.NoError(t, c.Delete(ctx, session))
	got, err := c.Get(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummaryCache_NilIsNoop(t *testing.T) {
	var c *SummaryCache
	ctx := context.Background()

	assert.Nil(t, NewSummaryCache(nil, time.Hour))
	assert.NoError(t, c.Set(ctx, uuid.New(), `{}`))
	got, err := c.Get(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Empty(t, got)
}
