package cache

import (
	"fmt"

	"go.uber.org/zap"
)

type Options struct {
	Type          string // file, memory, redis, disabled
	Dir           string
	MemoryEntries int
	Redis         RedisOptions
}

// NewCache creates a cache instance based on the cache type
func NewCache(opts Options, log *zap.Logger) (Cache, error) {
	switch opts.Type {
	case "file", "":
		log.Info("Using file cache", zap.String("cache_dir", opts.Dir))
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "memory":
		log.Info("Using memory cache", zap.Int("max_entries", opts.MemoryEntries))
		return NewMemoryCache(opts.MemoryEntries), nil
	case "redis":
		log.Info("Using redis cache", zap.String("addr", opts.Redis.Addr))
		c, err := NewRedisCache(opts.Redis, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "disabled":
		log.Info("Cache disabled")
		return NewNoopCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s (supported: file, memory, redis, disabled)", opts.Type)
	}
}
