// Package locks serializes stage transitions per project. The engine assumes
// at most one in-flight transition per project; this lock enforces it for the
// whole deployment, not just one process.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAlreadyLocked is returned when another transition holds the project lock.
var ErrAlreadyLocked = errors.New("project has a stage transition in flight")

// ProjectLocker acquires per-project advance locks in redis.
type ProjectLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProjectLocker creates a locker. ttl bounds how long a crashed holder can
// block a project.
func NewProjectLocker(client *redis.Client, ttl time.Duration) *ProjectLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ProjectLocker{client: client, ttl: ttl}
}

// Lock is a held project lock. Release it when the transition commits or
// fails.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

func lockKey(projectID int64) string {
	return fmt.Sprintf("pipeline:advance:%d", projectID)
}

// Acquire takes the lock for projectID or fails immediately with
// ErrAlreadyLocked. It does not wait: a concurrent advance on the same
// project is a caller error, not a queueing request.
func (l *ProjectLocker) Acquire(ctx context.Context, projectID int64) (*Lock, error) {
	token := uuid.NewString()
	key := lockKey(projectID)

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyLocked
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// releaseScript deletes the key only when the stored token matches, so an
// expired lock re-acquired by another holder is never released by the old one.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Release frees the lock. Releasing an expired or stolen lock is a no-op.
func (lk *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("release project lock: %w", err)
	}
	return nil
}
