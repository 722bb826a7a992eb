package rating

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "guild:7", ScopeKey("guild", 7))
}

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "t:1")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, locker.locks, "idle keys are released")
}

func TestLocalLocker_DisjointKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker()
	unlockA, err := locker.Lock(context.Background(), "t:1")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "t:2")
	require.NoError(t, err)
	unlockB()
}

func TestLocalLocker_HonoursContextWhileWaiting(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "t:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "t:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op

	again, err := locker.Lock(context.Background(), "t:1")
	require.NoError(t, err)
	again()
	assert.Empty(t, locker.locks)
}

func setupRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis not available:", err)
	}
	return client
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()
	ctx := context.Background()
	client.Del(ctx, redisLockPrefix+"t:1")

	locker := NewRedisLocker(client, 5*time.Second)
	unlock, err := locker.Lock(ctx, "t:1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "t:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	exists, err := client.Exists(ctx, redisLockPrefix+"t:1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	unlock, err = locker.Lock(ctx, "t:1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client := setupRedisClient(t)
	defer client.Close()
	ctx := context.Background()

	locker := NewRedisLocker(client, 50*time.Millisecond)
	unlock, err := locker.Lock(ctx, "t:2")
	require.NoError(t, err)

	// The lease expires and someone else takes the scope.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, client.Set(ctx, redisLockPrefix+"t:2", "other", time.Second).Err())

	unlock()
	val, err := client.Get(ctx, redisLockPrefix+"t:2").Result()
	require.NoError(t, err)
	assert.Equal(t, "other", val)
	client.Del(ctx, redisLockPrefix+"t:2")
}
