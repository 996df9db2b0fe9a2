package runlock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrHeld is returned when another process already owns the lock.
var ErrHeld = errors.New("run lock held by another process")

// Locker guards a live run so two schedulers never write the same ledger
// concurrently. A Locker without a redis client always succeeds.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Locker{rdb: rdb, ttl: ttl}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire takes key for the run identified by token. The returned release
// func is safe to call once the run finishes.
func (l *Locker) Acquire(ctx context.Context, key, token string) (func(), error) {
	if l == nil || l.rdb == nil {
		return func() {}, nil
	}

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	return func() {
		if err := releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil {
			zap.L().Warn("[Redis] failed to release run lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
