package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/google/uuid"
)

// storedSession is a session with its expiration
type storedSession struct {
	sess      platform.Session
	expiresAt time.Time
}

// InMemorySessionStore implements platform.SessionStore using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemorySessionStore struct {
	mu        sync.RWMutex
	entries   map[string]storedSession
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySessionStore creates a new in-memory session store.
// It starts a background goroutine to clean up expired entries.
func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	store := &InMemorySessionStore{
		entries:  make(map[string]storedSession),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

var _ platform.SessionStore = (*InMemorySessionStore)(nil)

// Get returns the stored session or platform.ErrSessionNotFound
func (s *InMemorySessionStore) Get(ctx context.Context, userID uuid.UUID, code platform.Code) (*platform.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[sessionKey(userID, code)]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, platform.ErrSessionNotFound
	}

	sess := e.sess
	return &sess, nil
}

// Put stores the session, replacing any previous one
func (s *InMemorySessionStore) Put(ctx context.Context, sess *platform.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionKey(sess.UserID, sess.Platform)] = storedSession{
		sess:      *sess,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Invalidate removes the stored session, if any
func (s *InMemorySessionStore) Invalidate(ctx context.Context, userID uuid.UUID, code platform.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sessionKey(userID, code))
	return nil
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (s *InMemorySessionStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemorySessionStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cleanupLoop periodically removes expired entries
func (s *InMemorySessionStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemorySessionStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func sessionKey(userID uuid.UUID, code platform.Code) string {
	return userID.String() + ":" + string(code)
}
