package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

func TestRedisDeduperFirstSeen(t *testing.T) {
	mr := miniredis.RunT(t)
	d, err := NewDeduper(logger.NewNop(), Config{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	defer d.Close()
	ctx := context.Background()

	first, err := d.FirstSeen(ctx, "SM1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstSeen(ctx, "SM1")
	require.NoError(t, err)
	assert.False(t, again)

	assert.True(t, mr.Exists("waxal:inbound:SM1"))
	assert.Equal(t, time.Minute, mr.TTL("waxal:inbound:SM1"))

	mr.FastForward(2 * time.Minute)
	expired, err := d.FirstSeen(ctx, "SM1")
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestRedisDeduperBlankIDPassesThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	d := newRedisDeduper(logger.NewNop(), rdb, Config{Prefix: "t:"})
	defer d.Close()

	for i := 0; i < 2; i++ {
		ok, err := d.FirstSeen(context.Background(), " ")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Empty(t, mr.Keys())
}

func TestRedisDeduperSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	d := newRedisDeduper(logger.NewNop(), rdb, Config{})
	defer d.Close()

	mr.SetError("LOADING")
	_, err := d.FirstSeen(context.Background(), "SM9")
	assert.Error(t, err)
}

func TestNewDeduperRequiresAddr(t *testing.T) {
	_, err := NewDeduper(logger.NewNop(), Config{})
	assert.Error(t, err)
}

func TestMemoryDeduper(t *testing.T) {
	d := NewMemoryDeduper(time.Minute).(*memoryDeduper)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := d.FirstSeen(ctx, "SM1")
	assert.True(t, ok)
	ok, _ = d.FirstSeen(ctx, "SM1")
	assert.False(t, ok)
	ok, _ = d.FirstSeen(ctx, "SM2")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = d.FirstSeen(ctx, "SM1")
	assert.True(t, ok)
	assert.NotContains(t, d.seen, "SM2", "expired ids are swept")
}
