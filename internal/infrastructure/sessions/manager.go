package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/CarsonReik/Compr-sub000/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tokenExpirySkew treats bearer tokens about to expire as already expired,
// so a job never starts on a session that dies mid-operation
const tokenExpirySkew = 2 * time.Minute

// Manager resolves an authenticated session for each job: the stored session
// when the platform still accepts it, a fresh credential login otherwise.
// Login flows are the slowest and most challenge-prone path, so the manager
// goes out of its way to avoid them.
type Manager struct {
	store  platform.SessionStore
	vault  platform.Vault
	logger *zap.Logger
}

// NewManager creates a new session Manager
func NewManager(store platform.SessionStore, v platform.Vault, log *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		vault:  v,
		logger: log.Named("sessions"),
	}
}

// Resolve returns a session the platform currently accepts.
//
// The stored session is tried first: a readable bearer expiry short-circuits
// the probe, otherwise CheckLogin asks the platform directly. Only when no
// stored session holds are the credentials opened and a fresh Login driven
// through the page. The captured session is persisted before returning so
// the next job skips the whole flow.
func (m *Manager) Resolve(ctx context.Context, page platform.Page, adapter platform.Adapter, userID uuid.UUID, encryptedCredentials string) (*platform.Session, error) {
	code := adapter.Code()
	log := m.logger.With(logger.UserID(userID), logger.Platform(code))

	sess, err := m.store.Get(ctx, userID, code)
	switch {
	case err == nil:
		if sess.BearerToken != "" && TokenExpired(sess.BearerToken, tokenExpirySkew) {
			log.Debug("stored bearer token expired, skipping probe")
			_ = m.store.Invalidate(ctx, userID, code)
		} else {
			ok, probeErr := adapter.CheckLogin(ctx, page, sess)
			if probeErr != nil {
				return nil, probeErr
			}
			if ok {
				sess.Touch()
				if putErr := m.store.Put(ctx, sess); putErr != nil {
					log.Warn("failed to refresh stored session", zap.Error(putErr))
				}
				log.Debug("reusing stored session", logger.CookieNames(sess.Cookies))
				return sess, nil
			}
			log.Info("stored session rejected by platform, logging in again")
			_ = m.store.Invalidate(ctx, userID, code)
		}
	case errors.Is(err, platform.ErrSessionNotFound):
		log.Debug("no stored session")
	default:
		return nil, err
	}

	creds, err := m.vault.Decrypt(encryptedCredentials)
	if err != nil {
		log.Warn("credential blob did not decrypt", zap.Error(err))
		return nil, platform.NewAuthenticationFailure("credential blob cannot be decrypted")
	}

	fresh, err := adapter.Login(ctx, page, creds)
	if err != nil {
		return nil, err
	}

	fresh.UserID = userID
	fresh.Platform = code
	if fresh.CreatedAt.IsZero() {
		fresh.CreatedAt = time.Now()
	}
	fresh.Touch()

	if putErr := m.store.Put(ctx, fresh); putErr != nil {
		// The login itself succeeded; a store outage only costs the next
		// job a fresh login.
		log.Warn("failed to store fresh session", zap.Error(putErr))
	}

	log.Info("fresh login captured", logger.CookieNames(fresh.Cookies))
	return fresh, nil
}

// Invalidate drops the stored session for the user on the platform.
// The dispatcher calls this when a platform rejects the session mid-job.
func (m *Manager) Invalidate(ctx context.Context, userID uuid.UUID, code platform.Code) error {
	return m.store.Invalidate(ctx, userID, code)
}
