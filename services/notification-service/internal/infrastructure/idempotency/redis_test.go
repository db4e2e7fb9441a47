package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client, err := NewRedisClient(s.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return s, NewRedisStore(client, zerolog.Nop())
}

func TestRedisStore_FirstMarkIsNotSeen(t *testing.T) {
	_, store := newTestStore(t)

	seen, err := store.SeenOrMark(context.Background(), "msg-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStore_SecondMarkIsSeen(t *testing.T) {
	_, store := newTestStore(t)

	_, err := store.SeenOrMark(context.Background(), "msg-1", time.Hour)
	require.NoError(t, err)

	seen, err := store.SeenOrMark(context.Background(), "msg-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisStore_KeyExpires(t *testing.T) {
	s, store := newTestStore(t)

	_, err := store.SeenOrMark(context.Background(), "msg-1", time.Minute)
	require.NoError(t, err)

	s.FastForward(2 * time.Minute)

	seen, err := store.SeenOrMark(context.Background(), "msg-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStore_EmptyKeyRejected(t *testing.T) {
	_, store := newTestStore(t)

	_, err := store.SeenOrMark(context.Background(), "", time.Hour)
	assert.Error(t, err)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestNoopStore_NeverSeen(t *testing.T) {
	store := NewNoopStore()

	seen, err := store.SeenOrMark(context.Background(), "msg-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = store.SeenOrMark(context.Background(), "msg-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, seen)
}
