// Package quota enforces per-session scan quotas backed by Redis, so the
// limit holds across gateway replicas.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scan-gateway/internal/types"
)

// Default quota configuration values.
const (
	DefaultFreeTierScans = 60   // scans per window for free tier sessions
	DefaultPaidTierScans = 600  // scans per window for paid tier sessions
	DefaultWindow        = time.Minute
)

// keyPrefix namespaces quota counters in Redis
const keyPrefix = "quota:scan:"

// Tracker counts scans per session in fixed windows. Counters live in Redis
// with a TTL slightly past the window so stale keys clean themselves up.
type Tracker struct {
	redis     redis.Cmdable
	freeScans int
	paidScans int
	window    time.Duration
}

// TrackerConfig holds configuration for a scan quota tracker.
type TrackerConfig struct {
	// Redis is required; the quota is shared across instances.
	Redis redis.Cmdable

	// FreeTierScans is the per-window allowance for free sessions. Default: 60.
	FreeTierScans int

	// PaidTierScans is the per-window allowance for paid sessions. Default: 600.
	PaidTierScans int

	// Window is the fixed quota window. Default: 1 minute.
	Window time.Duration
}

// Validate checks if the configuration is valid.
func (c *TrackerConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.FreeTierScans < 0 || c.PaidTierScans < 0 {
		return errors.New("scan allowances cannot be negative")
	}
	return nil
}

// NewTracker creates a scan quota tracker with the given configuration.
func NewTracker(cfg *TrackerConfig) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	freeScans := cfg.FreeTierScans
	if freeScans == 0 {
		freeScans = DefaultFreeTierScans
	}
	paidScans := cfg.PaidTierScans
	if paidScans == 0 {
		paidScans = DefaultPaidTierScans
	}
	window := cfg.Window
	if window == 0 {
		window = DefaultWindow
	}

	return &Tracker{
		redis:     cfg.Redis,
		freeScans: freeScans,
		paidScans: paidScans,
		window:    window,
	}, nil
}

// TryConsume takes one scan from the session's window allowance.
//
// Returns:
//   - allowed: true if the session is still within quota
//   - remaining: scans left in the current window
//
// Redis failures fail open: a broken quota store must not take scanning down.
func (t *Tracker) TryConsume(ctx context.Context, sessionID string, tier types.UserTier) (allowed bool, remaining int, err error) {
	limit := t.limitFor(tier)
	key := t.key(sessionID)

	pipe := t.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, limit, fmt.Errorf("quota check failed: %w", err)
	}

	count := int(incr.Val())
	if count > limit {
		return false, 0, nil
	}
	return true, limit - count, nil
}

// Remaining reports the session's unused allowance without consuming any
func (t *Tracker) Remaining(ctx context.Context, sessionID string, tier types.UserTier) (int, error) {
	limit := t.limitFor(tier)

	val, err := t.redis.Get(ctx, t.key(sessionID)).Result()
	if err == redis.Nil {
		return limit, nil
	}
	if err != nil {
		return limit, fmt.Errorf("quota lookup failed: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return limit, nil
	}
	if count >= limit {
		return 0, nil
	}
	return limit - count, nil
}

func (t *Tracker) limitFor(tier types.UserTier) int {
	if tier == types.TierPaid {
		return t.paidScans
	}
	return t.freeScans
}

// key aligns the counter to the current window boundary, one key per
// session per window.
func (t *Tracker) key(sessionID string) string {
	windowStart := time.Now().Truncate(t.window).UnixMilli()
	return keyPrefix + sessionID + ":" + strconv.FormatInt(windowStart, 10)
}
