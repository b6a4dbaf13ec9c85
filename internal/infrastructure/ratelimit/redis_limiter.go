package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "eportfolio/backend/internal/domain/auth"
	usecase "eportfolio/backend/internal/usecase/auth"

	"github.com/redis/go-redis/v9"
)

var errRedisUnavailable = errors.New("login throttle redis unavailable")

const keyPrefix = "login-attempts:"

// RedisLimiter is a fixed-window login attempt counter keyed by email.
type RedisLimiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

var _ usecase.LoginLimiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows maxAttempts logins per email within window.
func NewRedisLimiter(client *redis.Client, maxAttempts int, window time.Duration) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if maxAttempts <= 0 {
		return nil, errors.New("max attempts must be positive")
	}
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	return &RedisLimiter{
		redis:       client,
		maxAttempts: maxAttempts,
		window:      window,
	}, nil
}

// attemptScript increments the counter and arms its expiry in one atomic step.
// The TTL is set only when the key has none, so the window is fixed and a
// counter stranded without one heals on the next attempt.
var attemptScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Allow counts one attempt for key and fails once the window budget is spent.
func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	count, err := attemptScript.Run(ctx, l.redis, []string{keyPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}

	if count > int64(l.maxAttempts) {
		return domain.ErrLoginRateLimited
	}
	return nil
}

// Reset clears the attempt counter for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return nil
}
