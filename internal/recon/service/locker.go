package service

import (
	"context"
	"time"

	"github.com/bsm/redislock"
)

// Lock is a held exclusive lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out distributed exclusive locks. Matching runs take one per
// vendor; the expiration sweep takes a singleton.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (Lock, error)
}

type redisLocker struct {
	client *redislock.Client
}

// NewRedisLocker adapts a redislock client to the Locker interface.
func NewRedisLocker(client *redislock.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (Lock, error) {
	return l.client.Obtain(ctx, key, ttl, opt)
}
