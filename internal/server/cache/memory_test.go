package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := NewMemoryStore().WithClock(clock.Now)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Second))
	require.NoError(t, s.Set(ctx, "forever", []byte("v"), 0))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	// returned slices are copies
	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("v"), again)

	clock.t = clock.t.Add(time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	clock.t = clock.t.Add(24 * time.Hour)
	_, err = s.Get(ctx, "forever")
	assert.NoError(t, err)

	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore_SetSweepsUnreadExpiredKeys(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := NewMemoryStore().WithClock(clock.Now)

	require.NoError(t, s.Set(ctx, "stale", []byte("v"), time.Second))
	require.NoError(t, s.Set(ctx, "forever", []byte("v"), 0))

	// expired but inside the sweep interval: kept until read or swept
	clock.t = clock.t.Add(2 * time.Second)
	require.NoError(t, s.Set(ctx, "a", []byte("v"), time.Hour))
	assert.Len(t, s.entries, 3)

	clock.t = clock.t.Add(sweepInterval)
	require.NoError(t, s.Set(ctx, "b", []byte("v"), time.Hour))
	assert.NotContains(t, s.entries, "stale")
	assert.Contains(t, s.entries, "forever")
	assert.Len(t, s.entries, 3)
}
