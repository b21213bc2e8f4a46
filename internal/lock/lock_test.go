package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techsymposium/internal/config"
	"techsymposium/internal/logger"
)

// setupTestRedis creates a Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedis(client, logger.NewTestLogger(nil)), mr
}

func TestAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	r, _ := setupTestRedis(t)

	ok, err := r.Acquire(ctx, "registration:evt1:ann@x.com", "owner-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first acquire should succeed")

	ok, err = r.Acquire(ctx, "registration:evt1:ann@x.com", "owner-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire a held key")

	holder, err := r.Holder(ctx, "registration:evt1:ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", holder)

	require.NoError(t, r.Release(ctx, "registration:evt1:ann@x.com", "owner-1"))

	ok, err = r.Acquire(ctx, "registration:evt1:ann@x.com", "owner-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "key should be free after release")
}

func TestReleaseOnlyByOwner(t *testing.T) {
	ctx := context.Background()
	r, _ := setupTestRedis(t)

	ok, err := r.Acquire(ctx, "wizard:d1", "owner-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Release(ctx, "wizard:d1", "owner-2"))

	holder, err := r.Holder(ctx, "wizard:d1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", holder, "lock must survive a release by another owner")
}

func TestLockExpires(t *testing.T) {
	ctx := context.Background()
	r, mr := setupTestRedis(t)

	ok, err := r.Acquire(ctx, "wizard:d2", "owner-1", 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	holder, err := r.Holder(ctx, "wizard:d2")
	require.NoError(t, err)
	assert.Empty(t, holder)

	ok, err = r.Acquire(ctx, "wizard:d2", "owner-2", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentAcquireHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	r, _ := setupTestRedis(t)

	const attempts = 10
	var wg sync.WaitGroup
	var winners int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := r.Acquire(ctx, "registration:evt1:race@x.com", fmt.Sprintf("owner-%d", n), time.Minute)
			if err == nil && ok {
				atomic.AddInt32(&winners, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	log := logger.NewTestLogger(nil)

	client, err := Connect(context.Background(), config.RedisConfig{Addr: mr.Addr()}, log)
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = Connect(context.Background(), config.RedisConfig{Addr: mr.Addr()}, log)
	assert.Error(t, err)
}
