package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"dytto/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPollInterval = 50 * time.Millisecond

// releaseLockScript deletes the lock only if it is still held by the caller
var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisService provides the Redis connection, distributed locks and pub/sub
type RedisService struct {
	client *redis.Client
	mu     sync.RWMutex

	lockTTL  time.Duration
	lockWait time.Duration
}

// NewRedisService connects to redisURL and verifies the connection
func NewRedisService(redisURL string, lockTimeout time.Duration) (*RedisService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connection established")
	return NewRedisServiceFromClient(client, lockTimeout), nil
}

// NewRedisServiceFromClient wraps an existing client
func NewRedisServiceFromClient(client *redis.Client, lockTimeout time.Duration) *RedisService {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &RedisService{
		client:   client,
		lockTTL:  2 * lockTimeout,
		lockWait: lockTimeout,
	}
}

// Client returns the underlying Redis client
func (r *RedisService) Client() *redis.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

// Close closes the Redis connection
func (r *RedisService) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping checks if Redis is healthy
func (r *RedisService) Ping(ctx context.Context) error {
	return r.Client().Ping(ctx).Err()
}

// Publish publishes a message to a channel
func (r *RedisService) Publish(ctx context.Context, channel string, message interface{}) error {
	return r.Client().Publish(ctx, channel, message).Err()
}

// PSubscribe subscribes to channel patterns
func (r *RedisService) PSubscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	return r.Client().PSubscribe(ctx, patterns...)
}

// AcquireLock attempts to acquire a distributed lock
// Returns true if lock was acquired, false otherwise
func (r *RedisService) AcquireLock(ctx context.Context, lockKey string, lockValue string, expiration time.Duration) (bool, error) {
	return r.Client().SetNX(ctx, lockKey, lockValue, expiration).Result()
}

// ReleaseLock releases a distributed lock if it's still held by the given value
func (r *RedisService) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	result, err := releaseLockScript.Run(ctx, r.Client(), []string{lockKey}, lockValue).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// WithLock runs fn while holding lockKey. It polls for up to the configured
// lock timeout and returns ErrConflict when the lock stays taken.
func (r *RedisService) WithLock(ctx context.Context, lockKey string, fn func() error) error {
	token := uuid.New().String()
	waitCtx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.AcquireLock(waitCtx, lockKey, token, r.lockTTL)
		if err != nil && waitCtx.Err() == nil {
			return fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s is busy", models.ErrConflict, lockKey)
		case <-ticker.C:
		}
	}

	defer func() {
		// Release on a fresh context so a cancelled request still frees the key
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer releaseCancel()
		if released, err := r.ReleaseLock(releaseCtx, lockKey, token); err != nil || !released {
			log.Printf("⚠️ [REDIS] Lock %s not released cleanly (released=%v, err=%v)", lockKey, released, err)
		}
	}()

	return fn()
}
