package location

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mapposter/internal/cache"
	"mapposter/internal/geo"
	"mapposter/internal/ratelimit"
)

// Resolver looks up city coordinates, consulting the cache before the geocoder.
type Resolver struct {
	geocoder Geocoder
	cache    cache.Cache
	delay    time.Duration
	logger   *zap.Logger
}

// NewResolver creates a resolver that waits delay before every geocoder call.
func NewResolver(g Geocoder, c cache.Cache, delay time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		geocoder: g,
		cache:    c,
		delay:    delay,
		logger:   logger,
	}
}

func coordsKey(city, country string) string {
	return cache.Key("coords", strings.ToLower(city), strings.ToLower(country))
}

func (r *Resolver) Resolve(ctx context.Context, city, country string) (geo.Coordinate, error) {
	key := coordsKey(city, country)

	coord, ok, err := cache.GetValue[geo.Coordinate](r.cache, key)
	if err != nil {
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		r.logger.Info("Using cached coordinates",
			zap.String("city", city),
			zap.String("country", country),
			zap.Float64("lat", coord.Lat),
			zap.Float64("lon", coord.Lon))
		return coord, nil
	}

	r.logger.Info("Looking up coordinates", zap.String("city", city), zap.String("country", country))

	if err := ratelimit.Sleep(ctx, r.delay); err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: %s, %s: %w", ErrGeocoding, city, country, err)
	}

	res, err := r.geocoder.Geocode(ctx, city+", "+country)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: %s, %s: %w", ErrGeocoding, city, country, err)
	}
	if res == nil {
		return geo.Coordinate{}, fmt.Errorf("%w: %s, %s: %w", ErrGeocoding, city, country, ErrNotFound)
	}

	coord = geo.Coordinate{Lat: res.Lat, Lon: res.Lon}
	r.logger.Info("Found location",
		zap.String("address", res.DisplayName),
		zap.Float64("lat", coord.Lat),
		zap.Float64("lon", coord.Lon))

	if err := cache.SetValue(r.cache, key, coord); err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return coord, nil
}
