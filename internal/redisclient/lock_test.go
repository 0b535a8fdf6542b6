package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisWindowLocker(client, 5*time.Second), mr
}

func testKey() WindowKey {
	return WindowKey{
		ClinicianID: uuid.New(),
		Date:        "2025-06-02",
		Window:      "09:00-09:30",
	}
}

func TestWithWindowLockRunsAndReleases(t *testing.T) {
	locker, mr := newTestLocker(t)
	key := testKey()

	ran := false
	err := locker.WithWindowLock(context.Background(), key, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:window:"+key.String()))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	assert.False(t, mr.Exists("lock:window:"+key.String()), "lock must be released after fn returns")
}

func TestWithWindowLockHeldElsewhere(t *testing.T) {
	locker, _ := newTestLocker(t)
	key := testKey()

	inner := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- locker.WithWindowLock(context.Background(), key, func(ctx context.Context) error {
			close(inner)
			<-release
			return nil
		})
	}()

	<-inner

	err := locker.WithWindowLock(context.Background(), key, func(ctx context.Context) error {
		t.Error("second holder must not enter the critical section")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	close(release)
	require.NoError(t, <-done)

	// Once released, the key is free again.
	err = locker.WithWindowLock(context.Background(), key, func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestWithWindowLockPropagatesError(t *testing.T) {
	locker, mr := newTestLocker(t)
	key := testKey()

	sentinel := errors.New("boom")
	err := locker.WithWindowLock(context.Background(), key, func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, mr.Exists("lock:window:"+key.String()), "lock released even on failure")
}

func TestDistinctWindowsDoNotContend(t *testing.T) {
	locker, _ := newTestLocker(t)

	a := testKey()
	b := a
	b.Window = "09:30-10:00"

	err := locker.WithWindowLock(context.Background(), a, func(ctx context.Context) error {
		return locker.WithWindowLock(ctx, b, func(ctx context.Context) error {
			return nil
		})
	})
	assert.NoError(t, err)
}
