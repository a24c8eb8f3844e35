package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/listing"
	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAdapter scripts CheckLogin and Login outcomes
type fakeAdapter struct {
	code        platform.Code
	checkResult bool
	checkErr    error
	checkCalls  int
	loginSess   *platform.Session
	loginErr    error
	loginCalls  int
}

func (f *fakeAdapter) Code() platform.Code { return f.code }

func (f *fakeAdapter) Capabilities() platform.Capabilities {
	return platform.Capabilities{MaxImages: 16}
}

func (f *fakeAdapter) CheckLogin(ctx context.Context, page platform.Page, sess *platform.Session) (bool, error) {
	f.checkCalls++
	return f.checkResult, f.checkErr
}

func (f *fakeAdapter) Login(ctx context.Context, page platform.Page, creds platform.Credentials) (*platform.Session, error) {
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	sess := *f.loginSess
	return &sess, nil
}

func (f *fakeAdapter) CreateListing(ctx context.Context, page platform.Page, sess *platform.Session, item *listing.Normalized) (*platform.CreateResult, error) {
	return nil, nil
}

func (f *fakeAdapter) DeleteListing(ctx context.Context, page platform.Page, sess *platform.Session, platformListingID string) error {
	return nil
}

// fakeVault scripts Decrypt outcomes
type fakeVault struct {
	creds platform.Credentials
	err   error
}

func (v *fakeVault) Encrypt(creds platform.Credentials) (string, error) {
	return "sealed", nil
}

func (v *fakeVault) Decrypt(blob string) (platform.Credentials, error) {
	if v.err != nil {
		return platform.Credentials{}, v.err
	}
	return v.creds, nil
}

// failingStore wraps a store and fails writes
type failingStore struct {
	platform.SessionStore
	putErr error
}

func (s *failingStore) Put(ctx context.Context, sess *platform.Session) error {
	return s.putErr
}

func newTestStore(t *testing.T) *InMemorySessionStore {
	t.Helper()
	store := NewInMemorySessionStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func capturedSession(userID uuid.UUID, code platform.Code) *platform.Session {
	return &platform.Session{
		UserID:   userID,
		Platform: code,
		Cookies: []platform.Cookie{
			{Name: "_web_session", Value: "opaque", Domain: ".poshmark.com"},
		},
		PlatformUserID: "closet-99",
		CreatedAt:      time.Now().Add(-time.Hour),
	}
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "closet-99",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("a-key-this-service-never-holds"))
	require.NoError(t, err)
	return signed
}

func TestManager_Resolve(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("stored session accepted by the probe is reused without login", func(t *testing.T) {
		store := newTestStore(t)
		stored := capturedSession(userID, platform.CodePoshmark)
		require.NoError(t, store.Put(ctx, stored))

		adapter := &fakeAdapter{code: platform.CodePoshmark, checkResult: true}
		mgr := NewManager(store, &fakeVault{}, zap.NewNop())

		sess, err := mgr.Resolve(ctx, nil, adapter, userID, "sealed")

		require.NoError(t, err)
		assert.Equal(t, "closet-99", sess.PlatformUserID)
		assert.Equal(t, 1, adapter.checkCalls)
		assert.Zero(t, adapter.loginCalls)
		assert.False(t, sess.LastValidatedAt.IsZero(), "probe success should touch the session")
	})

	t.Run("rejected stored session falls back to credential login", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Put(ctx, capturedSession(userID, platform.CodePoshmark)))

		adapter := &fakeAdapter{
			code:        platform.CodePoshmark,
			checkResult: false,
			loginSess: &platform.Session{
				Cookies:        []platform.Cookie{{Name: "jwt", Value: "fresh", Domain: ".poshmark.com"}},
				PlatformUserID: "closet-99",
			},
		}
		mgr := NewManager(store, &fakeVault{creds: platform.Credentials{Username: "u", Password: "p"}}, zap.NewNop())

		sess, err := mgr.Resolve(ctx, nil, adapter, userID, "sealed")

		require.NoError(t, err)
		assert.Equal(t, 1, adapter.checkCalls)
		assert.Equal(t, 1, adapter.loginCalls)
		assert.Equal(t, userID, sess.UserID)
		assert.Equal(t, platform.CodePoshmark, sess.Platform)

		persisted, err := store.Get(ctx, userID, platform.CodePoshmark)
		require.NoError(t, err)
		cookie, ok := persisted.Cookie("jwt")
		require.True(t, ok)
		assert.Equal(t, "fresh", cookie.Value)
	})

	t.Run("no stored session goes straight to login", func(t *testing.T) {
		store := newTestStore(t)
		adapter := &fakeAdapter{
			code:      platform.CodeMercari,
			loginSess: &platform.Session{BearerToken: signedToken(t, time.Now().Add(time.Hour))},
		}
		mgr := NewManager(store, &fakeVault{creds: platform.Credentials{Username: "u", Password: "p"}}, zap.NewNop())

		sess, err := mgr.Resolve(ctx, nil, adapter, userID, "sealed")

		require.NoError(t, err)
		assert.Zero(t, adapter.checkCalls)
		assert.Equal(t, 1, adapter.loginCalls)
		assert.Equal(t, userID, sess.UserID)
		assert.False(t, sess.CreatedAt.IsZero())

		_, err = store.Get(ctx, userID, platform.CodeMercari)
		assert.NoError(t, err, "fresh session should be persisted for the next job")
	})

	t.Run("expired bearer token skips the probe entirely", func(t *testing.T) {
		store := newTestStore(t)
		stored := capturedSession(userID, platform.CodeMercari)
		stored.BearerToken = signedToken(t, time.Now().Add(-time.Hour))
		require.NoError(t, store.Put(ctx, stored))

		adapter := &fakeAdapter{
			code:      platform.CodeMercari,
			loginSess: &platform.Session{BearerToken: signedToken(t, time.Now().Add(time.Hour))},
		}
		mgr := NewManager(store, &fakeVault{creds: platform.Credentials{Username: "u", Password: "p"}}, zap.NewNop())

		_, err := mgr.Resolve(ctx, nil, adapter, userID, "sealed")

		require.NoError(t, err)
		assert.Zero(t, adapter.checkCalls, "an expired token is not worth a browser probe")
		assert.Equal(t, 1, adapter.loginCalls)
	})

	t.Run("undecryptable blob is an authentication failure, not a crash", func(t *testing.T) {
		store := newTestStore(t)
		adapter := &fakeAdapter{code: platform.CodeDepop}
		mgr := NewManager(store, &fakeVault{err: platform.ErrCredentialDecrypt}, zap.NewNop())

		_, err := mgr.Resolve(ctx, nil, adapter, userID, "tampered")

		require.Error(t, err)
		assert.Equal(t, platform.FailureAuthentication, platform.KindOf(err))
		assert.Zero(t, adapter.loginCalls)
	})

	t.Run("probe errors propagate with their classification", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Put(ctx, capturedSession(userID, platform.CodePoshmark)))

		adapter := &fakeAdapter{
			code:     platform.CodePoshmark,
			checkErr: platform.NewNetworkError("probe request timed out", nil),
		}
		mgr := NewManager(store, &fakeVault{}, zap.NewNop())

		_, err := mgr.Resolve(ctx, nil, adapter, userID, "sealed")

		require.Error(t, err)
		assert.Equal(t, platform.FailureNetwork, platform.KindOf(err))
		assert.Zero(t, adapter.loginCalls)
	})

	t.Run("a store outage on persist does not fail a successful login", func(t *testing.T) {
		store := newTestStore(t)
		adapter := &fakeAdapter{
			code:      platform.CodeDepop,
			loginSess: &platform.Session{Cookies: []platform.Cookie{{Name: "sid", Value: "v", Domain: ".depop.com"}}},
		}
		mgr := NewManager(
			&failingStore{SessionStore: store, putErr: assert.AnError},
			&fakeVault{creds: platform.Credentials{Username: "u", Password: "p"}},
			zap.NewNop(),
		)

		sess, err := mgr.Resolve(ctx, nil, adapter, userID, "sealed")

		require.NoError(t, err)
		assert.NotNil(t, sess)
	})
}

func TestManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	store := newTestStore(t)
	require.NoError(t, store.Put(ctx, capturedSession(userID, platform.CodePoshmark)))

	mgr := NewManager(store, &fakeVault{}, zap.NewNop())
	require.NoError(t, mgr.Invalidate(ctx, userID, platform.CodePoshmark))

	_, err := store.Get(ctx, userID, platform.CodePoshmark)
	assert.ErrorIs(t, err, platform.ErrSessionNotFound)
}
