package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter_Window(t *testing.T) {
	clock := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	allow := func() bool {
		_, ok, err := limiter.Allow(ctx)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, allow())
	assert.True(t, allow())
	assert.False(t, allow(), "third start inside the window must wait")
	assert.False(t, allow(), "the window is shared; no caller gets a side door")

	// Once the window slides past the first start a slot opens up
	clock = clock.Add(61 * time.Second)
	assert.True(t, allow())
}

func TestMemoryRateLimiter_SlidesGradually(t *testing.T) {
	clock := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	_, ok, _ := limiter.Allow(ctx)
	require.True(t, ok)
	clock = clock.Add(30 * time.Second)
	_, ok, _ = limiter.Allow(ctx)
	require.True(t, ok)

	// 45s in: both starts still inside the window
	clock = clock.Add(15 * time.Second)
	_, ok, _ = limiter.Allow(ctx)
	assert.False(t, ok)

	// 61s in: the first start has aged out, the second has not
	clock = clock.Add(16 * time.Second)
	_, ok, _ = limiter.Allow(ctx)
	assert.True(t, ok)
	_, ok, _ = limiter.Allow(ctx)
	assert.False(t, ok)
}

func TestMemoryRateLimiter_ReleaseReturnsSlot(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Minute)
	ctx := context.Background()

	token, ok, err := limiter.Allow(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = limiter.Allow(ctx)
	require.False(t, ok)

	// a poll that found no job hands its slot back
	require.NoError(t, limiter.Release(ctx, token))
	_, ok, _ = limiter.Allow(ctx)
	assert.True(t, ok)

	// releasing an unknown token is a no-op, not an error
	assert.NoError(t, limiter.Release(ctx, "not-a-token"))
}

func TestMemoryRateLimiter_Defaults(t *testing.T) {
	limiter := NewMemoryRateLimiter(0, 0)
	assert.Equal(t, 10, limiter.limit)
	assert.Equal(t, time.Minute, limiter.window)
}

func TestMemoryRateLimiter_Concurrent(t *testing.T) {
	limiter := NewMemoryRateLimiter(10, time.Minute)
	ctx := context.Background()

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := limiter.Allow(ctx)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), allowed, "exactly the window's worth of slots may be granted")
}
