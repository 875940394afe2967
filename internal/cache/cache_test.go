package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-memory Redis server and connects to it
func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := New("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	require.NoError(t, r.Ping(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("http://localhost:6379")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "epgrab:run:lguplus", RunLockKey("lguplus"))
	r, err := New("redis://localhost:6379/0")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Equal(t, "epgrab:guide:lguplus", NewGuideCache(r, "lguplus", time.Minute).Key())
}

func TestGuideCache_RoundTrip(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()
	c := NewGuideCache(r, "test-"+uuid.NewString(), time.Minute)
	t.Cleanup(func() { _ = c.Invalidate(ctx) })

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, []byte("<tv/>")))
	data, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<tv/>", string(data))

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryLock(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()
	key := RunLockKey("test-" + uuid.NewString())

	unlock, err := TryLock(ctx, r, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, IsLocked(ctx, r, key))

	_, err = TryLock(ctx, r, key, time.Minute)
	assert.True(t, errors.Is(err, ErrLocked))

	unlock()
	assert.False(t, IsLocked(ctx, r, key))

	again, err := TryLock(ctx, r, key, time.Minute)
	require.NoError(t, err)
	again()
}

func TestGuideCache_Expires(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()
	c := NewGuideCache(r, "lguplus", time.Minute)

	require.NoError(t, c.Set(ctx, []byte("<tv/>")))
	assert.Equal(t, time.Minute, mr.TTL(c.Key()))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryLock_ExpiresAfterTTL(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()
	key := RunLockKey("lguplus")

	stale, err := TryLock(ctx, r, key, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	assert.False(t, IsLocked(ctx, r, key))

	unlock, err := TryLock(ctx, r, key, time.Minute)
	require.NoError(t, err)

	// the expired holder must not release the new holder's lock
	stale()
	assert.True(t, IsLocked(ctx, r, key))
	unlock()
	assert.False(t, IsLocked(ctx, r, key))
}
