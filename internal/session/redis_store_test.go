package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestRedisStore_CreateGetDelete(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := Session{
		SessionID: "abc",
		UserID:    "user-1",
		Role:      "admin",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Create(ctx, s))
	assert.True(t, mr.Exists("session:abc"))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "admin", got.Role)

	require.NoError(t, store.Delete(ctx, "abc"))
	got, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_TTLFollowsExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Session{
		SessionID: "abc",
		UserID:    "user-1",
		Role:      "user",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}))

	mr.FastForward(11 * time.Minute)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_CreateRejectsInvalid(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	assert.Error(t, store.Create(ctx, Session{SessionID: "abc", ExpiresAt: time.Now().Add(time.Hour)}))
	assert.Error(t, store.Create(ctx, Session{SessionID: "abc", UserID: "u", ExpiresAt: time.Now().Add(-time.Second)}))
}

func TestRedisStore_UpdateExpiredDeletes(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := Session{SessionID: "abc", UserID: "user-1", Role: "user", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Create(ctx, s))

	s.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Update(ctx, s))
	assert.False(t, mr.Exists("session:abc"))
}

func TestRedisStore_CreateNeverOverwrites(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	s := Session{SessionID: "abc", UserID: "user-1", Role: "user", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Create(ctx, s))

	s.UserID = "intruder"
	assert.ErrorIs(t, store.Create(ctx, s), ErrDuplicateSession)

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
}

func TestRedisStore_UpdateDoesNotResurrect(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := Session{SessionID: "abc", UserID: "user-1", Role: "user", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Create(ctx, s))
	require.NoError(t, store.Delete(ctx, "abc"))

	s.GeoVerified = true
	assert.ErrorIs(t, store.Update(ctx, s), ErrUnknownSession)
	assert.False(t, mr.Exists("session:abc"))
}

func TestRedisStore_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "webapp:sess:")

	require.NoError(t, store.Create(context.Background(), Session{
		SessionID: "abc", UserID: "u", Role: "user", ExpiresAt: time.Now().Add(time.Hour),
	}))
	assert.True(t, mr.Exists("webapp:sess:abc"))
}
