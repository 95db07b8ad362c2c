package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Tracker counts open connections per user. Implementations must be safe
// for concurrent use by every session of the same user.
type Tracker interface {
	Increment(ctx context.Context, userID string) int64
	Decrement(ctx context.Context, userID string) int64
	IsOnline(ctx context.Context, userID string) bool
}

// Counter is a redis-backed Tracker. Counters self-heal: any failure or
// corrupted value resets the key to 0 with a fresh expiry instead of
// surfacing an error or going negative, so abnormal disconnects cannot
// leave a user permanently "online".
type Counter struct {
	client    *redis.Client
	keyExpire time.Duration
	logger    *zap.Logger
}

// NewCounter connects to redis and returns a Counter.
func NewCounter(ctx context.Context, redisURL string, keyExpire time.Duration, logger *zap.Logger) (*Counter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewCounterWithClient(client, keyExpire, logger), nil
}

// NewCounterWithClient wraps an existing redis client.
func NewCounterWithClient(client *redis.Client, keyExpire time.Duration, logger *zap.Logger) *Counter {
	return &Counter{client: client, keyExpire: keyExpire, logger: logger}
}

// Increment atomically raises the user's connection count and refreshes its
// expiry. It never fails the caller: on any error the key is reset to 0.
func (c *Counter) Increment(ctx context.Context, userID string) int64 {
	value, err := c.client.Incr(ctx, userID).Result()
	if err != nil {
		c.logger.Warn("presence increment failed, resetting counter",
			zap.String("user_id", userID), zap.Error(err))
		return c.reset(ctx, userID)
	}

	if err := c.client.Expire(ctx, userID, c.keyExpire).Err(); err != nil {
		c.logger.Warn("presence expire failed, resetting counter",
			zap.String("user_id", userID), zap.Error(err))
		return c.reset(ctx, userID)
	}

	return value
}

// Decrement atomically lowers the user's connection count, but only when
// the stored value is a valid positive integer. Anything else resets to 0
// so double-disconnects can never drive the counter negative.
func (c *Counter) Decrement(ctx context.Context, userID string) int64 {
	current, err := c.current(ctx, userID)
	if err != nil || current <= 0 {
		return c.reset(ctx, userID)
	}

	value, err := c.client.Decr(ctx, userID).Result()
	if err != nil {
		c.logger.Warn("presence decrement failed, resetting counter",
			zap.String("user_id", userID), zap.Error(err))
		return c.reset(ctx, userID)
	}

	return value
}

// IsOnline reports whether the user has at least one open connection. Any
// read failure is treated as offline.
func (c *Counter) IsOnline(ctx context.Context, userID string) bool {
	current, err := c.current(ctx, userID)
	if err != nil {
		return false
	}
	return current > 0
}

// Close releases the redis connection.
func (c *Counter) Close() error {
	return c.client.Close()
}

func (c *Counter) current(ctx context.Context, userID string) (int64, error) {
	raw, err := c.client.Get(ctx, userID).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (c *Counter) reset(ctx context.Context, userID string) int64 {
	if err := c.client.Set(ctx, userID, 0, c.keyExpire).Err(); err != nil {
		c.logger.Error("presence counter reset failed",
			zap.String("user_id", userID), zap.Error(err))
	}
	return 0
}
