//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	c := Wrap(rdb, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBlacklist(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := c.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.BlacklistToken(ctx, jti, time.Minute))

	revoked, err = c.IsBlacklisted(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAllow_FixedWindow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	for i := 0; i < 3; i++ {
		ok, err := c.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}

	ok, err := c.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTenantStatusCache(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	tid := uuid.NewString()

	_, hit, err := c.GetTenantStatus(ctx, tid)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetTenantStatus(ctx, tid, "Active", time.Minute))
	status, hit, err := c.GetTenantStatus(ctx, tid)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Active", status)

	require.NoError(t, c.InvalidateTenantStatus(ctx, tid))
	_, hit, err = c.GetTenantStatus(ctx, tid)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestPublishSubscribe(t *testing.T) {
	c := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := EventChannel(uuid.NewString())
	sub := c.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, channel, []byte(`{"type":"appointment.created"}`)))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"appointment.created"}`, msg.Payload)
}
