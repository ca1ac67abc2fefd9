package export

import (
	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"
)

type VipsOptions struct {
	MaxCacheMB  int
	Concurrency int
}

// StartVips initializes libvips and routes its warnings to log. Call the returned
// function on shutdown.
func StartVips(opts VipsOptions, log *zap.Logger) func() {
	vips.SetLogging(func(domain string, level vips.LogLevel, message string) {
		if level >= vips.LogLevelError {
			log.Error("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		} else if level >= vips.LogLevelWarning {
			log.Warn("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		}
	}, vips.LogLevelError)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: opts.Concurrency,
		MaxCacheMem:      opts.MaxCacheMB * 1024 * 1024,
		MaxCacheFiles:    0,
		MaxCacheSize:     0,
		ReportLeaks:      false,
		CacheTrace:       false,
		VectorEnabled:    true,
	})

	log.Info("VIPS initialized",
		zap.Int("max_cache_mb", opts.MaxCacheMB),
		zap.Int("concurrency", opts.Concurrency))

	return vips.Shutdown
}
