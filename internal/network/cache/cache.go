// Package cache provides the Redis read cache in front of the buyer profile
// store. Score lookups are the hot path; aggregation rewrites profiles at
// most daily, so a short TTL keeps reads fresh enough.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"creditnet/internal/network/models"
	id "creditnet/pkg/domain"
	"creditnet/pkg/platform/circuit"
)

const keyPrefix = "creditnet:profile:"

// ProfileCache caches buyer profiles by global buyer ID. A nil *ProfileCache
// is valid and behaves as a pass-through, so callers never branch on whether
// Redis is configured. A circuit breaker stops the hot path from waiting on
// Redis timeouts when the cache is down.
type ProfileCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuit.Breaker
}

// New constructs a ProfileCache. Returns nil when client is nil.
func New(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileCache{
		client:  client,
		ttl:     ttl,
		logger:  logger,
		breaker: circuit.New("profile-cache"),
	}
}

// Get returns the cached profile or (nil, false). Cache failures degrade to a
// miss; the profile store remains authoritative.
func (c *ProfileCache) Get(ctx context.Context, buyerID id.GlobalBuyerID) (*models.BuyerProfile, bool) {
	if c == nil || c.breaker.IsOpen() {
		return nil, false
	}
	raw, err := c.client.Get(ctx, keyPrefix+buyerID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.recordSuccess()
			return nil, false
		}
		c.recordFailure(ctx, "profile cache read failed", err)
		return nil, false
	}
	c.recordSuccess()

	var profile models.BuyerProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		c.logger.WarnContext(ctx, "profile cache entry corrupt", "buyer", buyerID.String(), "error", err)
		return nil, false
	}
	return &profile, true
}

// Set stores a profile with the configured TTL. Failures are logged and
// swallowed.
func (c *ProfileCache) Set(ctx context.Context, profile *models.BuyerProfile) {
	if c == nil || c.breaker.IsOpen() {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		c.logger.WarnContext(ctx, "profile cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+profile.GlobalBuyerID.String(), raw, c.ttl).Err(); err != nil {
		c.recordFailure(ctx, "profile cache write failed", err)
		return
	}
	c.recordSuccess()
}

// Invalidate drops a buyer's cached profile after reaggregation. Runs even
// with the breaker open: a stale entry surviving a Redis brownout is worse
// than one extra failed call.
func (c *ProfileCache) Invalidate(ctx context.Context, buyerID id.GlobalBuyerID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+buyerID.String()).Err(); err != nil {
		c.recordFailure(ctx, "profile cache invalidation failed", err)
		return
	}
	c.recordSuccess()
}

func (c *ProfileCache) recordSuccess() {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("profile cache circuit closed")
	}
}

func (c *ProfileCache) recordFailure(ctx context.Context, msg string, err error) {
	c.logger.WarnContext(ctx, msg, "error", err)
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("profile cache circuit opened, serving from store only")
	}
}
