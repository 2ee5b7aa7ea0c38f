package images

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/pkg/redis"
)

// ProjectLock is a held per-project lock. Owner identifies the holder so the
// lock can be handed across processes and released owner-checked.
type ProjectLock interface {
	Owner() string
	Release(ctx context.Context) error
}

// ProjectLocker serializes generation runs per project. Acquire is wait-free:
// a held lock reports acquired=false instead of blocking. Adopt resumes a
// lock handed off by another process; it re-arms an expired lock for the same
// owner and refuses one taken over by somebody else.
type ProjectLocker interface {
	Acquire(ctx context.Context, projectID string) (ProjectLock, bool, error)
	Adopt(ctx context.Context, projectID string, owner string) (ProjectLock, bool, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	GenerationLockKey(projectID string) string
}

// RedisProjectLocker implements ProjectLocker with Redis SETNX + TTL. The TTL
// bounds how long a crashed worker can keep a project blocked.
type RedisProjectLocker struct {
	client lockStore
	ttl    time.Duration
}

// NewRedisProjectLocker constructs a Redis-backed project locker.
func NewRedisProjectLocker(client lockStore, ttl time.Duration) (*RedisProjectLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for project locker")
	}
	if ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}
	return &RedisProjectLocker{client: client, ttl: ttl}, nil
}

// Acquire tries to own the project's lock for the configured TTL.
func (l *RedisProjectLocker) Acquire(ctx context.Context, projectID string) (ProjectLock, bool, error) {
	key := l.client.GenerationLockKey(projectID)
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisProjectLock{client: l.client, key: key, owner: owner}, true, nil
}

// Adopt resumes ownership of a handed-off lock. A missing key means the TTL
// ran out while the work sat in the queue; the lock is re-armed for the same
// owner rather than dropping the run.
func (l *RedisProjectLocker) Adopt(ctx context.Context, projectID string, owner string) (ProjectLock, bool, error) {
	if owner == "" {
		return nil, false, errors.New("lock owner required")
	}
	key := l.client.GenerationLockKey(projectID)

	value, err := l.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, false, fmt.Errorf("read lock owner: %w", err)
		}
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, false, fmt.Errorf("setnx: %w", err)
		}
		if !ok {
			return nil, false, nil
		}
		return &redisProjectLock{client: l.client, key: key, owner: owner}, true, nil
	}
	if value != owner {
		return nil, false, nil
	}
	return &redisProjectLock{client: l.client, key: key, owner: owner}, true, nil
}

type redisProjectLock struct {
	client lockStore
	key    string
	owner  string
}

func (l *redisProjectLock) Owner() string {
	return l.owner
}

// Release frees the lock only if the owner value still matches. An expired
// lock re-acquired by someone else is left alone.
func (l *redisProjectLock) Release(ctx context.Context) error {
	value, err := l.client.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}

// MemoryProjectLocker implements ProjectLocker in process. Single-instance
// deployments and tests use it in place of Redis.
type MemoryProjectLocker struct {
	mu   sync.Mutex
	held map[string]string
}

// NewMemoryProjectLocker constructs an in-process project locker.
func NewMemoryProjectLocker() *MemoryProjectLocker {
	return &MemoryProjectLocker{held: map[string]string{}}
}

// Acquire takes the project's lock if nobody holds it.
func (l *MemoryProjectLocker) Acquire(ctx context.Context, projectID string) (ProjectLock, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.held[projectID]; exists {
		return nil, false, nil
	}
	owner := uuid.NewString()
	l.held[projectID] = owner
	return &memoryProjectLock{locker: l, projectID: projectID, owner: owner}, true, nil
}

// Adopt resumes a handed-off lock when the stored owner matches, or re-takes
// a freed one for the same owner.
func (l *MemoryProjectLocker) Adopt(ctx context.Context, projectID string, owner string) (ProjectLock, bool, error) {
	if owner == "" {
		return nil, false, errors.New("lock owner required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.held[projectID]
	if exists && current != owner {
		return nil, false, nil
	}
	l.held[projectID] = owner
	return &memoryProjectLock{locker: l, projectID: projectID, owner: owner}, true, nil
}

type memoryProjectLock struct {
	locker    *MemoryProjectLocker
	projectID string
	owner     string
	once      sync.Once
}

func (l *memoryProjectLock) Owner() string {
	return l.owner
}

func (l *memoryProjectLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		defer l.locker.mu.Unlock()
		if l.locker.held[l.projectID] == l.owner {
			delete(l.locker.held, l.projectID)
		}
	})
	return nil
}
