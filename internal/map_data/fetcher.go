package map_data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"mapposter/internal/cache"
	"mapposter/internal/geo"
	"mapposter/internal/ratelimit"
)

type FetcherOptions struct {
	// NetworkDelay is waited after every successful street network download.
	NetworkDelay time.Duration
	// FeatureDelay is waited after every successful feature download.
	FeatureDelay time.Duration
}

// Fetcher retrieves street networks and tagged features around a point. Results
// are cached; failures are logged and reported as nil.
type Fetcher struct {
	source Source
	cache  cache.Cache
	opts   FetcherOptions
	logger *zap.Logger

	mu  sync.Mutex
	raw map[string]*osm.OSM
}

func NewFetcher(src Source, c cache.Cache, opts FetcherOptions, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		source: src,
		cache:  c,
		opts:   opts,
		logger: logger,
		raw:    make(map[string]*osm.OSM),
	}
}

func networkKey(point geo.Coordinate, dist float64) string {
	return cache.Key("graph", point.Lat, point.Lon, dist)
}

func featuresKey(name string, point geo.Coordinate, dist float64, tags TagFilter) string {
	return cache.Key(name, point.Lat, point.Lon, dist, tags.Key())
}

// FetchNetwork returns the street network within dist meters of point, or nil.
func (f *Fetcher) FetchNetwork(ctx context.Context, point geo.Coordinate, dist float64) *geo.StreetNetwork {
	key := networkKey(point, dist)

	net, ok, err := cache.GetValue[*geo.StreetNetwork](f.cache, key)
	if err != nil {
		f.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok && net != nil {
		f.logger.Info("Using cached street network", zap.String("key", key))
		return net
	}

	f.logger.Info("Downloading street network",
		zap.Float64("lat", point.Lat),
		zap.Float64("lon", point.Lon),
		zap.Float64("dist", dist))

	o, err := f.download(ctx, point, dist)
	if err != nil {
		f.logger.Warn("Street network download failed", zap.Error(err))
		return nil
	}

	net = BuildNetwork(o)
	if net.Empty() {
		f.logger.Warn("No streets found", zap.Float64("dist", dist))
		return nil
	}

	if err := ratelimit.Sleep(ctx, f.opts.NetworkDelay); err != nil {
		f.logger.Warn("Street network fetch interrupted", zap.Error(err))
		return nil
	}

	if err := cache.SetValue(f.cache, key, net); err != nil {
		f.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return net
}

// FetchFeatures returns the features matching tags within dist meters of point, or nil.
// name labels the layer in logs and in the cache key.
func (f *Fetcher) FetchFeatures(ctx context.Context, point geo.Coordinate, dist float64, tags TagFilter, name string) *geo.FeatureCollection {
	key := featuresKey(name, point, dist, tags)

	fc, ok, err := cache.GetValue[*geo.FeatureCollection](f.cache, key)
	if err != nil {
		f.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok && fc != nil {
		f.logger.Info("Using cached features", zap.String("layer", name), zap.String("key", key))
		return fc
	}

	f.logger.Info("Downloading features",
		zap.String("layer", name),
		zap.Float64("lat", point.Lat),
		zap.Float64("lon", point.Lon),
		zap.Float64("dist", dist))

	o, err := f.download(ctx, point, dist)
	if err != nil {
		f.logger.Warn("Feature download failed", zap.String("layer", name), zap.Error(err))
		return nil
	}

	fc, err = ExtractFeatures(o, tags)
	if err != nil {
		f.logger.Warn("Feature extraction failed", zap.String("layer", name), zap.Error(err))
		return nil
	}
	if fc.Len() == 0 {
		f.logger.Info("No features found", zap.String("layer", name))
		return nil
	}

	if err := ratelimit.Sleep(ctx, f.opts.FeatureDelay); err != nil {
		f.logger.Warn("Feature fetch interrupted", zap.String("layer", name), zap.Error(err))
		return nil
	}

	if err := cache.SetValue(f.cache, key, fc); err != nil {
		f.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return fc
}

// download returns raw OSM data for the box around point. Each box is downloaded
// once per process; the street and feature layers share it.
func (f *Fetcher) download(ctx context.Context, point geo.Coordinate, dist float64) (*osm.OSM, error) {
	bounds := boundsFromBBox(geo.BBoxFromPoint(point, dist))
	key := fmt.Sprintf("%f_%f_%f_%f", bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon)

	f.mu.Lock()
	defer f.mu.Unlock()

	if o, ok := f.raw[key]; ok {
		return o, nil
	}

	o, err := f.source.Map(ctx, bounds)
	if err != nil {
		return nil, err
	}
	f.raw[key] = o
	return o, nil
}
