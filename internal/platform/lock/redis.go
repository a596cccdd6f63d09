package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("lock wait timed out")

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisConfig tunes the Redis lock.
type RedisConfig struct {
	Prefix  string
	TTL     time.Duration
	Retry   time.Duration
	MaxWait time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:  "portal-gateway:lock:",
		TTL:     30 * time.Second,
		Retry:   25 * time.Millisecond,
		MaxWait: 15 * time.Second,
	}
}

// RedisLocker is a Locker backed by SET NX PX on a shared Redis.
type RedisLocker struct {
	rc  *redis.Client
	cfg RedisConfig
}

func NewRedisLocker(rc *redis.Client, cfg RedisConfig) *RedisLocker {
	def := DefaultRedisConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Retry <= 0 {
		cfg.Retry = def.Retry
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	return &RedisLocker{rc: rc, cfg: cfg}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.cfg.Prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.cfg.MaxWait)
	defer cancel()

	ticker := time.NewTicker(l.cfg.Retry)
	defer ticker.Stop()

	for {
		ok, err := l.rc.SetNX(ctx, redisKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.rc, []string{redisKey}, token).Err()
	}, nil
}

// Connect parses a redis:// URL and verifies connectivity.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rc := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rc, nil
}
