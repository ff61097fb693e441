package locks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocker(t *testing.T) (*ProjectLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewProjectLocker(client, time.Minute), mr
}

func TestProjectLocker_SerializesSameProject(t *testing.T) {
	locker, _ := setupLocker(t)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, 1)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	require.NoError(t, lock.Release(ctx))

	lock2, err := locker.Acquire(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, lock2.Release(ctx))
}

func TestProjectLocker_DifferentProjectsIndependent(t *testing.T) {
	locker, _ := setupLocker(t)
	ctx := context.Background()

	lock1, err := locker.Acquire(ctx, 1)
	require.NoError(t, err)
	defer lock1.Release(ctx)

	lock2, err := locker.Acquire(ctx, 2)
	require.NoError(t, err)
	defer lock2.Release(ctx)
}

func TestProjectLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()

	old, err := locker.Acquire(ctx, 1)
	require.NoError(t, err)

	// The holder's TTL lapses and another transition takes over.
	mr.FastForward(2 * time.Minute)
	fresh, err := locker.Acquire(ctx, 1)
	require.NoError(t, err)

	// The stale holder's release must not free the new holder's lock.
	require.NoError(t, old.Release(ctx))
	_, err = locker.Acquire(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	require.NoError(t, fresh.Release(ctx))
}
