package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-bank/simple_bank/internal/apperrors"
)

func newRedisLocker(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedis(client, time.Second), mr
}

func lockers(t *testing.T) map[string]Locker {
	r, _ := newRedisLocker(t)
	return map[string]Locker{"local": NewLocal(), "redis": r}
}

func TestLockerSerializesHolders(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var inside, maxInside int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					release, err := l.Acquire(ctx, "acct-1")
					if !assert.NoError(t, err) {
						return
					}
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					atomic.AddInt32(&inside, -1)
					release()
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), atomic.LoadInt32(&maxInside))
		})
	}
}

func TestLockerTimesOutWithConflict(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := l.Acquire(context.Background(), "b", "a")
			require.NoError(t, err)
			defer release()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			_, err = l.Acquire(ctx, "a")
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		})
	}
}

func TestLockerReleaseIsIdempotent(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			release, err := l.Acquire(context.Background(), "a", "a")
			require.NoError(t, err)
			release()
			release()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			again, err := l.Acquire(ctx, "a")
			require.NoError(t, err)
			again()
		})
	}
}

func TestRedisReleaseKeepsForeignLock(t *testing.T) {
	l, mr := newRedisLocker(t)

	release, err := l.Acquire(context.Background(), "a")
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	require.NoError(t, mr.Set(redisLockPrefix+"a", "someone-else"))
	release()

	got, err := mr.Get(redisLockPrefix + "a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLocalDropsIdleEntries(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "x", "y")
	require.NoError(t, err)
	release()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}
