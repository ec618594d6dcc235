package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTokenStore(t *testing.T, ttl time.Duration) (*QRTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewQRTokenStore(rdb, ttl), mr
}

func TestQRTokenStore_IssueAndVerify(t *testing.T) {
	store, mr := newTokenStore(t, 5*time.Minute)
	ctx := context.Background()

	p, expires, err := store.Issue(ctx, "req-1")
	require.NoError(t, err)
	require.Equal(t, QRType, p.Type)
	require.NotEmpty(t, p.Token)
	require.True(t, expires.After(time.Now()))
	require.Equal(t, 5*time.Minute, mr.TTL(qrKeyPrefix+"req-1"))

	require.NoError(t, store.Verify(ctx, "req-1", p.Token))
	require.ErrorIs(t, store.Verify(ctx, "req-1", "forged"), ErrQRTokenInvalid)
	require.ErrorIs(t, store.Verify(ctx, "req-2", p.Token), ErrQRTokenInvalid)
}

func TestQRTokenStore_ReissueReplaces(t *testing.T) {
	store, _ := newTokenStore(t, time.Minute)
	ctx := context.Background()

	first, _, err := store.Issue(ctx, "req-1")
	require.NoError(t, err)
	second, _, err := store.Issue(ctx, "req-1")
	require.NoError(t, err)

	require.ErrorIs(t, store.Verify(ctx, "req-1", first.Token), ErrQRTokenInvalid)
	require.NoError(t, store.Verify(ctx, "req-1", second.Token))
}

func TestQRTokenStore_Expires(t *testing.T) {
	store, mr := newTokenStore(t, time.Minute)
	ctx := context.Background()

	p, _, err := store.Issue(ctx, "req-1")
	require.NoError(t, err)
	mr.FastForward(61 * time.Second)
	require.ErrorIs(t, store.Verify(ctx, "req-1", p.Token), ErrQRTokenInvalid)
}
