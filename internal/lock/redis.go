package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseTimeout = 2 * time.Second

// RedisLocker guards names across processes sharing one Redis. A guard
// expires after ttl even if its holder dies.
type RedisLocker struct {
	client *redislock.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		prefix: "stockledger:lock:",
		ttl:    ttl,
		wait:   25 * time.Millisecond,
		log:    log,
	}
}

// Acquire polls for each guard until it is obtained or ctx's deadline
// passes. Without a deadline a contended guard is attempted only once.
func (l *RedisLocker) Acquire(ctx context.Context, names []string) (Release, error) {
	names = normalize(names)
	held := make([]*redislock.Lock, 0, len(names))

	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.log.Warn("release lock", zap.String("key", held[i].Key()), zap.Error(err))
			}
		}
	}

	opts := &redislock.Options{}
	if _, ok := ctx.Deadline(); ok {
		opts.RetryStrategy = redislock.LinearBackoff(l.wait)
	}

	for _, name := range names {
		lk, err := l.client.Obtain(ctx, l.prefix+name, l.ttl, opts)
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrNotObtained, name)
			}
			return nil, err
		}
		held = append(held, lk)
	}
	return release, nil
}
