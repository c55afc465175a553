package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"schedulix/backend/config"
)

// Client wraps go-redis for the few cross-request concerns the API keeps
// outside PostgreSQL: token blacklist, rate limiting, the tenant status
// cache and appointment event fan-out.
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient connects and pings.
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// Wrap adapts an existing go-redis client.
func Wrap(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// Ping health check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ── token blacklist ──

const blacklistPrefix = "schedulix:token:blacklist:"

// BlacklistToken stores the JWT ID until the token would have expired anyway.
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted reports whether the JWT ID was revoked.
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── rate limiting ──

const rateLimitPrefix = "schedulix:ratelimit:"

// Allow implements a fixed-window counter. The window starts on the first hit.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := rateLimitPrefix + key

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(limit), nil
}

// ── tenant status cache ──

const tenantStatusPrefix = "schedulix:tenant:status:"

// GetTenantStatus returns ("", false, nil) on a cache miss.
func (c *Client) GetTenantStatus(ctx context.Context, tenantID string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, tenantStatusPrefix+tenantID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetTenantStatus caches a tenant status.
func (c *Client) SetTenantStatus(ctx context.Context, tenantID, status string, ttl time.Duration) error {
	return c.rdb.Set(ctx, tenantStatusPrefix+tenantID, status, ttl).Err()
}

// InvalidateTenantStatus drops a cached status after the tenant changes.
func (c *Client) InvalidateTenantStatus(ctx context.Context, tenantID string) error {
	return c.rdb.Del(ctx, tenantStatusPrefix+tenantID).Err()
}

// ── events ──

// EventChannel is the Pub/Sub channel for one tenant's appointment events.
func EventChannel(tenantID string) string {
	return "schedulix:events:" + tenantID
}

// Publish sends a payload to a Pub/Sub channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription; the caller closes it.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *goredis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
