package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	CacheType          string
	CacheDir           string
	CacheMemoryEntries int
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	ThemesDir          string
	PostersDir         string
	LogLevel           string
	NominatimURL       string
	OSMAPIURL          string
	UserAgent          string
	HTTPTimeout        time.Duration
	GeocodeDelay       time.Duration
	NetworkDelay       time.Duration
	FeatureDelay       time.Duration
	MaxTileDegrees     float64
	VipsMaxCacheMB     int
	VipsConcurrency    int
}

var defaults = map[string]any{
	"CACHE":                "file",
	"CACHE_DIR":            "cache",
	"CACHE_MEMORY_ENTRIES": 256,
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"THEMES_DIR":           "themes",
	"POSTERS_DIR":          "posters",
	"LOG_LEVEL":            "info",
	"NOMINATIM_URL":        "https://nominatim.openstreetmap.org",
	"OSM_API_URL":          "https://api.openstreetmap.org/api/0.6",
	"USER_AGENT":           "city_map_poster",
	"HTTP_TIMEOUT":         60,
	"GEOCODE_DELAY":        "1s",
	"NETWORK_DELAY":        "500ms",
	"FEATURE_DELAY":        "300ms",
	"MAX_TILE_DEGREES":     0.05,
	"VIPS_MAX_CACHE_MB":    64,
	"VIPS_CONCURRENCY":     1,
}

// Flags that override their environment variable when set on the command line.
var flagKeys = map[string]string{
	"cache":       "CACHE",
	"cache-dir":   "CACHE_DIR",
	"themes-dir":  "THEMES_DIR",
	"posters-dir": "POSTERS_DIR",
	"log-level":   "LOG_LEVEL",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("cache", defaults["CACHE"].(string), "cache backend: file, memory, redis or disabled")
	fs.String("cache-dir", defaults["CACHE_DIR"].(string), "directory for the file cache")
	fs.String("themes-dir", defaults["THEMES_DIR"].(string), "directory holding theme JSON files")
	fs.String("posters-dir", defaults["POSTERS_DIR"].(string), "directory posters are written to")
	fs.String("log-level", defaults["LOG_LEVEL"].(string), "log level: debug, info, warn or error")
}

// Load reads the environment, letting flags registered with RegisterFlags win.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		CacheType:          strings.ToLower(v.GetString("CACHE")),
		CacheDir:           v.GetString("CACHE_DIR"),
		CacheMemoryEntries: v.GetInt("CACHE_MEMORY_ENTRIES"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		ThemesDir:          v.GetString("THEMES_DIR"),
		PostersDir:         v.GetString("POSTERS_DIR"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		NominatimURL:       v.GetString("NOMINATIM_URL"),
		OSMAPIURL:          v.GetString("OSM_API_URL"),
		UserAgent:          v.GetString("USER_AGENT"),
		HTTPTimeout:        time.Duration(v.GetInt("HTTP_TIMEOUT")) * time.Second,
		GeocodeDelay:       v.GetDuration("GEOCODE_DELAY"),
		NetworkDelay:       v.GetDuration("NETWORK_DELAY"),
		FeatureDelay:       v.GetDuration("FEATURE_DELAY"),
		MaxTileDegrees:     v.GetFloat64("MAX_TILE_DEGREES"),
		VipsMaxCacheMB:     v.GetInt("VIPS_MAX_CACHE_MB"),
		VipsConcurrency:    v.GetInt("VIPS_CONCURRENCY"),
	}

	if cfg.MaxTileDegrees <= 0 {
		return nil, fmt.Errorf("MAX_TILE_DEGREES must be positive, got %v", cfg.MaxTileDegrees)
	}
	return cfg, nil
}
