package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter bounds job starts inside one sliding window shared by every
// worker and every platform. Marketplaces throttle sellers who list too
// fast; keeping the whole engine under one window is what keeps the
// accounts it operates alive.
type RateLimiter interface {
	// Allow consumes one start slot when the window has room. The token
	// identifies the slot so Release can hand it back if no job starts.
	Allow(ctx context.Context) (token string, ok bool, err error)
	// Release backs out a slot consumed by Allow that never became a start
	Release(ctx context.Context, token string) error
}

// ---------------------------------------------------------------------------
// MemoryRateLimiter
// ---------------------------------------------------------------------------

// Ensure MemoryRateLimiter implements RateLimiter
var _ RateLimiter = (*MemoryRateLimiter)(nil)

// MemoryRateLimiter tracks start timestamps in process memory. Suitable for
// single-instance deployments; a multi-instance engine shares its window
// through the Redis limiter instead.
type MemoryRateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	seq    uint64
	starts []memorySlot
	now    func() time.Time
}

type memorySlot struct {
	token string
	at    time.Time
}

// NewMemoryRateLimiter creates an in-process sliding-window limiter
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryRateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow consumes a slot when fewer than limit starts happened in the window
func (l *MemoryRateLimiter) Allow(ctx context.Context) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.starts[:0]
	for _, s := range l.starts {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	l.starts = kept

	if len(l.starts) >= l.limit {
		return "", false, nil
	}
	l.seq++
	token := strconv.FormatUint(l.seq, 10)
	l.starts = append(l.starts, memorySlot{token: token, at: now})
	return token, true, nil
}

// Release removes the slot so an unclaimed poll does not count as a start
func (l *MemoryRateLimiter) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.starts {
		if s.token == token {
			l.starts = append(l.starts[:i], l.starts[i+1:]...)
			return nil
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// RedisRateLimiter
// ---------------------------------------------------------------------------

// Ensure RedisRateLimiter implements RateLimiter
var _ RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter shares the sliding window across engine instances through
// one sorted set scored by start time.
type RedisRateLimiter struct {
	client *redis.Client
	key    string
	limit  int
	window time.Duration
}

// NewRedisRateLimiter creates a limiter over an existing Redis client
func NewRedisRateLimiter(client *redis.Client, key string, limit int, window time.Duration) *RedisRateLimiter {
	if key == "" {
		key = "dispatch:rate:starts"
	}
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{
		client: client,
		key:    key,
		limit:  limit,
		window: window,
	}
}

// Allow adds the start optimistically and backs it out if the window
// overflowed. Concurrent callers racing over the limit are all denied rather
// than letting one slip through.
func (l *RedisRateLimiter) Allow(ctx context.Context) (string, bool, error) {
	now := time.Now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())
	cutoff := strconv.FormatInt(now.Add(-l.window).UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, l.key, "0", cutoff)
	pipe.ZAdd(ctx, l.key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, l.key)
	pipe.Expire(ctx, l.key, l.window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", false, fmt.Errorf("failed to update rate window: %w", err)
	}

	if card.Val() > int64(l.limit) {
		if err := l.client.ZRem(ctx, l.key, member).Err(); err != nil {
			return "", false, fmt.Errorf("failed to release rate slot: %w", err)
		}
		return "", false, nil
	}
	return member, true, nil
}

// Release removes the slot so an unclaimed poll does not count as a start
func (l *RedisRateLimiter) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := l.client.ZRem(ctx, l.key, token).Err(); err != nil {
		return fmt.Errorf("failed to release rate slot: %w", err)
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisRateLimiter) GetClient() *redis.Client {
	return l.client
}
