package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestCounter(t *testing.T) (*Counter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCounterWithClient(client, time.Hour, zap.NewNop()), mr
}

func TestIncrementThenDecrementReturnsToZero(t *testing.T) {
	c, _ := newTestCounter(t)
	ctx := context.Background()

	if got := c.Increment(ctx, "u1"); got != 1 {
		t.Errorf("first increment = %d, want 1", got)
	}
	if got := c.Increment(ctx, "u1"); got != 2 {
		t.Errorf("second increment = %d, want 2", got)
	}
	if got := c.Decrement(ctx, "u1"); got != 1 {
		t.Errorf("first decrement = %d, want 1", got)
	}
	if got := c.Decrement(ctx, "u1"); got != 0 {
		t.Errorf("second decrement = %d, want 0", got)
	}
}

func TestDecrementWithoutIncrementNeverGoesNegative(t *testing.T) {
	c, _ := newTestCounter(t)
	ctx := context.Background()

	if got := c.Decrement(ctx, "u2"); got != 0 {
		t.Errorf("decrement on fresh user = %d, want 0", got)
	}
	if got := c.Decrement(ctx, "u2"); got != 0 {
		t.Errorf("repeated decrement = %d, want 0", got)
	}
}

func TestDecrementResetsCorruptedValue(t *testing.T) {
	c, mr := newTestCounter(t)
	ctx := context.Background()

	mr.Set("u3", "garbage")
	if got := c.Decrement(ctx, "u3"); got != 0 {
		t.Errorf("decrement on corrupted value = %d, want 0", got)
	}
	if c.IsOnline(ctx, "u3") {
		t.Error("user with reset counter should be offline")
	}
}

func TestIsOnline(t *testing.T) {
	c, _ := newTestCounter(t)
	ctx := context.Background()

	if c.IsOnline(ctx, "u4") {
		t.Error("fresh user should be offline")
	}

	c.Increment(ctx, "u4")
	if !c.IsOnline(ctx, "u4") {
		t.Error("user with one connection should be online")
	}

	c.Decrement(ctx, "u4")
	if c.IsOnline(ctx, "u4") {
		t.Error("user back at zero should be offline")
	}
}

func TestIncrementRefreshesExpiry(t *testing.T) {
	c, mr := newTestCounter(t)
	ctx := context.Background()

	c.Increment(ctx, "u5")
	if mr.TTL("u5") <= 0 {
		t.Error("counter key should carry an expiry")
	}

	// Expired keys read as absent: the user drops offline on their own.
	mr.FastForward(2 * time.Hour)
	if c.IsOnline(ctx, "u5") {
		t.Error("expired counter should report offline")
	}
}
