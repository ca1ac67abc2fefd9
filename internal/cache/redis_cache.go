package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration
}

// RedisCache stores blobs as plain redis strings without expiry, under a key prefix.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRedisCache(opts RedisOptions, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, newError("init", opts.Addr, fmt.Errorf("failed to connect to redis: %w", err))
	}

	logger.Info("Redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))

	return &RedisCache{
		client:  client,
		prefix:  opts.Prefix,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *RedisCache) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newError("read", key, err)
	}
	return val, true, nil
}

func (c *RedisCache) Has(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	return err == nil && n > 0
}

func (c *RedisCache) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, value, 0).Err(); err != nil {
		return newError("write", key, err)
	}
	return nil
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return newError("clear", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return newError("clear", c.prefix, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.client.Close()
}
