// services/run_lock.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"player-monitor-system/logging"
)

// ErrRunInProgress is returned when another run holds the monitoring lock.
var ErrRunInProgress = errors.New("a monitoring run is already in progress")

const runLockKey = "player-monitor:lock:monitoring"

// RunLock serializes pipeline runs. TryAcquire never blocks: ok is false
// when the lock is held elsewhere.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// NewRunLock builds the lock for mode: local, redis or none.
func NewRunLock(mode string, rdb *redis.Client, ttl time.Duration) (RunLock, error) {
	switch mode {
	case "", "local":
		return &LocalRunLock{}, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("lock mode redis requires a redis client")
		}
		return NewRedisRunLock(rdb, ttl), nil
	case "none":
		return NoopRunLock{}, nil
	}
	return nil, fmt.Errorf("unknown lock mode %q", mode)
}

// LocalRunLock covers a single instance.
type LocalRunLock struct {
	mu sync.Mutex
}

func (l *LocalRunLock) TryAcquire(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

// NoopRunLock lets runs overlap.
type NoopRunLock struct{}

func (NoopRunLock) TryAcquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock is shared by every instance pointed at the same redis. The TTL
// frees the lock if the holder dies mid-run.
type RedisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisRunLock{client: client, key: runLockKey, ttl: ttl}
}

func (l *RedisRunLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			logging.Warn().Err(err).Msg("[MONITOR] Failed to release run lock, it will expire")
		}
	}
	return release, true, nil
}
