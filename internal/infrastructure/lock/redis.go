package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-engine/internal/application/port"
	"github.com/garyjia/procurement-engine/internal/domain/entity"
)

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds the redis lock settings
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	KeyPrefix    string
	TTL          time.Duration
	RetryBackoff time.Duration
}

// RedisLocker holds locks in redis so several engine processes can share one database
type RedisLocker struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	backoff time.Duration
	logger  *zap.Logger
}

// NewRedisLocker connects to redis and verifies the connection
func NewRedisLocker(cfg RedisConfig, logger *zap.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisLockerWithClient(client, cfg, logger), nil
}

// NewRedisLockerWithClient wraps an existing client
func NewRedisLockerWithClient(client redis.UniversalClient, cfg RedisConfig, logger *zap.Logger) *RedisLocker {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "procurement:lock:"
	}
	return &RedisLocker{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		backoff: backoff,
		logger:  logger,
	}
}

// Lock retries SET NX until it wins the key or ctx ends
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", entity.ErrEntityBusy, key)
			}
			l.logger.Error("Failed to acquire lock", zap.String("key", redisKey), zap.Error(err))
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s", entity.ErrEntityBusy, key)
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		// The caller's ctx may already be done; release on a fresh one.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Error("Failed to release lock", zap.String("key", redisKey), zap.Error(err))
		}
	}
}

// Close closes the redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

var _ port.EntityLocker = (*RedisLocker)(nil)
