package cron

import (
	"context"
	"time"

	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/redis"
)

// Locker keeps two workers from running the same job concurrently.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// RedisLock is the distributed implementation. The TTL bounds how long
// a crashed worker can hold a job hostage.
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(client *redis.Client) (*RedisLock, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis lock requires a client")
	}
	return &RedisLock{client: client}, nil
}

func (l *RedisLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.client.LockKey(name), time.Now().UTC().Format(time.RFC3339), ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cron lock")
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context, name string) error {
	if err := l.client.Del(ctx, l.client.LockKey(name)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release cron lock")
	}
	return nil
}

// NoopLock runs jobs without coordination, for single-instance setups
// and tests.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }
func (NoopLock) Release(context.Context, string) error                        { return nil }
