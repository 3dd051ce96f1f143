package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client)
	c := &clock{now: time.Now().UTC()}
	m := newTestManager(t, store, c)

	s, err := m.Login(ctx, "0903")
	require.NoError(t, err)

	ttl, err := client.TTL(ctx, "session:"+s.ID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 29*time.Minute)

	got, err := m.Validate(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Equal(s.ExpiresAt))

	require.NoError(t, m.Logout(ctx, s.ID))
	_, err = m.Validate(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
