package sessions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySessionStore_PutAndGet(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	userID := uuid.New()

	sess := &platform.Session{
		UserID:   userID,
		Platform: platform.CodePoshmark,
		Cookies: []platform.Cookie{
			{Name: "_web_session", Value: "opaque", Domain: ".poshmark.com"},
		},
		PlatformUserID: "closet-42",
	}
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, userID, platform.CodePoshmark)
	require.NoError(t, err)
	assert.Equal(t, "closet-42", got.PlatformUserID)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "_web_session", got.Cookies[0].Name)
}

func TestInMemorySessionStore_GetMissing(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	defer store.Close()

	_, err := store.Get(context.Background(), uuid.New(), platform.CodeDepop)
	assert.ErrorIs(t, err, platform.ErrSessionNotFound)
}

func TestInMemorySessionStore_Expiry(t *testing.T) {
	store := NewInMemorySessionStore(10 * time.Millisecond)
	defer store.Close()

	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, store.Put(ctx, &platform.Session{UserID: userID, Platform: platform.CodeMercari}))

	time.Sleep(20 * time.Millisecond)

	_, err := store.Get(ctx, userID, platform.CodeMercari)
	assert.ErrorIs(t, err, platform.ErrSessionNotFound)
}

func TestInMemorySessionStore_PlatformsAreIsolated(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, store.Put(ctx, &platform.Session{UserID: userID, Platform: platform.CodePoshmark}))

	_, err := store.Get(ctx, userID, platform.CodeMercari)
	assert.ErrorIs(t, err, platform.ErrSessionNotFound,
		"a Poshmark session must never satisfy a Mercari lookup")
}

func TestInMemorySessionStore_PutReplaces(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, store.Put(ctx, &platform.Session{
		UserID: userID, Platform: platform.CodeDepop, PlatformUserID: "stale",
	}))
	require.NoError(t, store.Put(ctx, &platform.Session{
		UserID: userID, Platform: platform.CodeDepop, PlatformUserID: "fresh",
	}))

	got, err := store.Get(ctx, userID, platform.CodeDepop)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.PlatformUserID)
	assert.Equal(t, 1, store.Size())
}

func TestInMemorySessionStore_Invalidate(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, store.Put(ctx, &platform.Session{UserID: userID, Platform: platform.CodePoshmark}))

	require.NoError(t, store.Invalidate(ctx, userID, platform.CodePoshmark))

	_, err := store.Get(ctx, userID, platform.CodePoshmark)
	assert.ErrorIs(t, err, platform.ErrSessionNotFound)

	// Invalidating a session that is already gone is not an error.
	assert.NoError(t, store.Invalidate(ctx, userID, platform.CodePoshmark))
}

func TestInMemorySessionStore_GetReturnsCopy(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	userID := uuid.New()
	require.NoError(t, store.Put(ctx, &platform.Session{
		UserID: userID, Platform: platform.CodePoshmark, PlatformUserID: "original",
	}))

	first, err := store.Get(ctx, userID, platform.CodePoshmark)
	require.NoError(t, err)
	first.PlatformUserID = "mutated"

	second, err := store.Get(ctx, userID, platform.CodePoshmark)
	require.NoError(t, err)
	assert.Equal(t, "original", second.PlatformUserID)
}

func TestInMemorySessionStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	defer store.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := uuid.New()
			for j := 0; j < 50; j++ {
				_ = store.Put(ctx, &platform.Session{
					UserID:         userID,
					Platform:       platform.CodePoshmark,
					PlatformUserID: fmt.Sprintf("closet-%d-%d", n, j),
				})
				_, _ = store.Get(ctx, userID, platform.CodePoshmark)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, store.Size())
}

func TestInMemorySessionStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
