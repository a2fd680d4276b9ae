package redisclient

import (
	"context"
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

	return NewRedisCalendarLocker(client, 5*time.Second), mr
}

func TestWithCalendarLockRunsAndReleases(t *testing.T) {
	locker, mr := newTestLocker(t)

	doctorID := uuid.New()
	date := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	ran := false
	err := locker.WithCalendarLock(context.Background(), doctorID, date, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:calendar:"+doctorID.String()+":2026-06-02"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// The lock key is gone once fn returns.
	assert.False(t, mr.Exists("lock:calendar:"+doctorID.String()+":2026-06-02"))
}

func TestWithCalendarLockContention(t *testing.T) {
	locker, _ := newTestLocker(t)

	doctorID := uuid.New()
	date := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	err := locker.WithCalendarLock(context.Background(), doctorID, date, func(ctx context.Context) error {
		// Same doctor-day inside the critical section is contended.
		inner := locker.WithCalendarLock(ctx, doctorID, date, func(context.Context) error {
			t.Fatal("inner critical section must not run")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// A different doctor is an independent lock.
		other := locker.WithCalendarLock(ctx, uuid.New(), date, func(context.Context) error { return nil })
		assert.NoError(t, other)
		return nil
	})
	require.NoError(t, err)
}

func TestWithCalendarLockPropagatesError(t *testing.T) {
	locker, mr := newTestLocker(t)

	doctorID := uuid.New()
	date := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	wantErr := assert.AnError
	err := locker.WithCalendarLock(context.Background(), doctorID, date, func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// Released even on failure, so the next caller can proceed.
	assert.False(t, mr.Exists("lock:calendar:"+doctorID.String()+":2026-06-02"))
}
