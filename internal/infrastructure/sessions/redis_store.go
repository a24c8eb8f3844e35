package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CarsonReik/Compr-sub000/internal/domain/platform"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// defaultKeyPrefix namespaces session keys in a shared Redis
const defaultKeyPrefix = "crosslist:session"

// RedisSessionStore implements platform.SessionStore using Redis.
// This is suitable for distributed deployments where multiple engine
// instances need to reuse each other's captured sessions.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSessionStore creates a store on an existing Redis client.
// Sessions expire after ttl; a fresh Put restarts the clock.
func NewRedisSessionStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSessionStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

var _ platform.SessionStore = (*RedisSessionStore)(nil)

// Get returns the stored session or platform.ErrSessionNotFound
func (s *RedisSessionStore) Get(ctx context.Context, userID uuid.UUID, code platform.Code) (*platform.Session, error) {
	payload, err := s.client.Get(ctx, s.key(userID, code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, platform.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess platform.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode stored session: %w", err)
	}
	return &sess, nil
}

// Put stores the session, replacing any previous one. Concurrent writers
// resolve last-write-wins; both held a session that was valid when captured.
func (s *RedisSessionStore) Put(ctx context.Context, sess *platform.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sess.UserID, sess.Platform), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Invalidate removes the stored session, if any
func (s *RedisSessionStore) Invalidate(ctx context.Context, userID uuid.UUID, code platform.Code) error {
	if err := s.client.Del(ctx, s.key(userID, code)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

func (s *RedisSessionStore) key(userID uuid.UUID, code platform.Code) string {
	return fmt.Sprintf("%s:%s:%s", s.keyPrefix, userID, code)
}
