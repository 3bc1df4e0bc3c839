package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jojo/pkg/testutil"
)

func TestInMemory_SlidingWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store := NewInMemory(WithClock(func() time.Time { return now }))
	ctx := context.Background()
	key := SendKey("instructor-1", ChannelEmail)

	for i := 0; i < 3; i++ {
		res, err := store.Allow(ctx, key, 3, 15*time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(time.Minute)
	}

	res, err := store.Allow(ctx, key, 3, 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 12*time.Minute, res.RetryAfter, "oldest hit leaves the window 15m after it was recorded")

	now = now.Add(12 * time.Minute)
	res, err = store.Allow(ctx, key, 3, 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestInMemory_KeysAreIndependent(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	_, _ = store.Allow(ctx, SendKey("a", ChannelEmail), 1, time.Minute)
	res, _ := store.Allow(ctx, SendKey("a", ChannelEmail), 1, time.Minute)
	assert.False(t, res.Allowed)

	res, _ = store.Allow(ctx, SendKey("a", ChannelPhone), 1, time.Minute)
	assert.True(t, res.Allowed)
}

func TestInMemory_Reset(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	for _, key := range SendKeys("a") {
		_, _ = store.Allow(ctx, key, 1, time.Hour)
	}
	require.NoError(t, store.Reset(ctx, SendKeys("a")...))

	for _, key := range SendKeys("a") {
		res, _ := store.Allow(ctx, key, 1, time.Hour)
		assert.True(t, res.Allowed, key)
	}
}

func TestInMemory_Release(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	key := SendKey("a", ChannelPhone)

	first, err := store.Allow(ctx, key, 2, time.Hour)
	require.NoError(t, err)
	second, err := store.Allow(ctx, key, 2, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, first.Hit, second.Hit)

	denied, _ := store.Allow(ctx, key, 2, time.Hour)
	assert.False(t, denied.Allowed)
	assert.Empty(t, denied.Hit)

	require.NoError(t, store.Release(ctx, key, second.Hit))
	res, _ := store.Allow(ctx, key, 2, time.Hour)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	require.NoError(t, store.Release(ctx, key, "unknown"))
	require.NoError(t, store.Release(ctx, SendKey("b", ChannelPhone), first.Hit))
}

func TestInMemory_ConcurrentAllowNeverExceedsLimit(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	successes, errs := testutil.RunConcurrentCollect(50, func(int) error {
		res, err := store.Allow(ctx, "k", 3, time.Hour)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return assert.AnError
		}
		return nil
	})
	assert.Equal(t, int32(3), successes)
	assert.Len(t, errs, 47)
}
