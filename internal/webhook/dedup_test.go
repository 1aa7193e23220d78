package webhook

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestDeduper(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	d := NewDeduper(client, time.Minute)
	ctx := context.Background()

	first, err := d.Claim(ctx, "msg_1")
	require.NoError(t, err)
	require.True(t, first)

	again, err := d.Claim(ctx, "msg_1")
	require.NoError(t, err)
	require.False(t, again)

	require.NoError(t, d.Release(ctx, "msg_1"))
	retry, err := d.Claim(ctx, "msg_1")
	require.NoError(t, err)
	require.True(t, retry)

	m.FastForward(2 * time.Minute)
	expired, err := d.Claim(ctx, "msg_1")
	require.NoError(t, err)
	require.True(t, expired)
}

func TestDeduper_NoClient(t *testing.T) {
	d := NewDeduper(nil, 0)
	ok, err := d.Claim(context.Background(), "x")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, d.Release(context.Background(), "x"))
}
