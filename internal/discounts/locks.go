package discounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/dealerbridge/dealerdesk-backend/pkg/errors"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
	"github.com/dealerbridge/dealerdesk-backend/pkg/redis"
)

// UsageLock serializes the limit-check-and-record critical section for a
// single discount. Without it two concurrent orders can both pass the
// usage-limit check and overshoot the limit by one.
type UsageLock interface {
	Acquire(ctx context.Context, discountID uuid.UUID) (release func(), err error)
}

const (
	lockTTL         = 10 * time.Second
	lockRetryEvery  = 25 * time.Millisecond
	lockWaitTimeout = 5 * time.Second
)

// RedisUsageLock takes a short-lived SETNX lock per discount id. Release
// is best effort; the TTL bounds how long a crashed holder blocks others.
type RedisUsageLock struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisUsageLock(client *redis.Client, log *logger.Logger) (*RedisUsageLock, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage lock requires a redis client")
	}
	return &RedisUsageLock{client: client, log: log}, nil
}

func (l *RedisUsageLock) Acquire(ctx context.Context, discountID uuid.UUID) (func(), error) {
	key := l.client.DiscountLockKey(discountID.String())
	token := uuid.NewString()

	deadline := time.NewTimer(lockWaitTimeout)
	defer deadline.Stop()
	retry := time.NewTicker(lockRetryEvery)
	defer retry.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, lockTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire discount lock")
		}
		if ok {
			release := func() {
				if err := l.client.Del(context.Background(), key); err != nil && l.log != nil {
					l.log.Error(context.Background(), "releasing discount lock "+key+" failed", err)
				}
			}
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "acquire discount lock")
		case <-deadline.C:
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "discount is busy, retry the request")
		case <-retry.C:
		}
	}
}

// LocalUsageLock is the in-process fallback used when redis is not
// configured. It only protects against races within one process.
type LocalUsageLock struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLocalUsageLock() *LocalUsageLock {
	return &LocalUsageLock{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *LocalUsageLock) Acquire(_ context.Context, discountID uuid.UUID) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[discountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[discountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
