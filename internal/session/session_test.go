package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/pkg/jwt"
)

func newRedisStore(t *testing.T) (RevocationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "abc", time.Minute))
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists("warbler:revoked:abc"))

	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewRedisStore(rdb)
	mr.Close()

	_, err = store.IsRevoked(context.Background(), "abc")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore().(*memoryStore)
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Revoke(ctx, "a", time.Minute))
	require.NoError(t, s.Revoke(ctx, "b", 0))
	ok, _ := s.IsRevoked(ctx, "a")
	assert.True(t, ok)
	ok, _ = s.IsRevoked(ctx, "b")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = s.IsRevoked(ctx, "a")
	assert.False(t, ok)
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)
	m := NewManager(jwt.NewManager("secret", time.Hour), store)

	anon, err := m.Identify(ctx, "")
	require.NoError(t, err)
	assert.True(t, anon.IsAnonymous())

	token, exp, err := m.Issue(7)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	who, err := m.Identify(ctx, token)
	require.NoError(t, err)
	id, ok := who.UserID()
	require.True(t, ok)
	assert.Equal(t, uint(7), id)

	require.NoError(t, m.Logout(ctx, token))
	require.NoError(t, m.Logout(ctx, token))
	who, err = m.Identify(ctx, token)
	assert.ErrorIs(t, err, ErrRevoked)
	assert.True(t, who.IsAnonymous())

	// other tokens of the same user stay valid
	other, _, err := m.Issue(7)
	require.NoError(t, err)
	_, err = m.Identify(ctx, other)
	assert.NoError(t, err)
}

func TestIdentifyBadToken(t *testing.T) {
	m := NewManager(jwt.NewManager("secret", time.Hour), NewMemoryStore())
	_, err := m.Identify(context.Background(), "garbage")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	assert.ErrorIs(t, m.Logout(context.Background(), "garbage"), jwt.ErrInvalidToken)
}
