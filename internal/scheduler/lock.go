package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
)

const (
	lockKeyPrefix      = "quote_assistant:lock:identity:"
	defaultLockTTL     = 45 * time.Second
	lockRetryInterval  = 50 * time.Millisecond
	lockReleaseTimeout = 2 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdentityLock serializes conversation turns per identity across processes.
type IdentityLock struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

var _ ports.IdentityLocker = (*IdentityLock)(nil)

// NewIdentityLock connects to Redis. ttl bounds how long a crashed holder
// can block an identity.
func NewIdentityLock(cfg config.RedisConfig, ttl time.Duration, log *logger.Logger) (*IdentityLock, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewIdentityLockWithClient(redis.NewClient(opt), ttl, log), nil
}

func NewIdentityLockWithClient(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *IdentityLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &IdentityLock{rdb: rdb, ttl: ttl, log: log}
}

// Lock blocks until identity is free or ctx is done.
func (l *IdentityLock) Lock(ctx context.Context, identity string) (func(), error) {
	key := lockKeyPrefix + identity
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire identity lock: %w", err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, token) })
	}, nil
}

func (l *IdentityLock) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
		l.log.Warn("failed to release identity lock", "key", key, "error", err)
	}
}

func (l *IdentityLock) Close() error {
	return l.rdb.Close()
}
