package location

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mapposter/internal/cache"
	"mapposter/internal/geo"
)

type fakeGeocoder struct {
	calls  atomic.Int32
	query  string
	result *Result
	err    error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	f.calls.Add(1)
	f.query = query
	return f.result, f.err
}

func TestResolver_Resolve(t *testing.T) {
	log := zap.NewNop()

	t.Run("miss calls geocoder once and caches", func(t *testing.T) {
		c := cache.NewMemoryCache(8)
		g := &fakeGeocoder{result: &Result{Lat: 48.8566, Lon: 2.3522, DisplayName: "Paris"}}
		r := NewResolver(g, c, 0, log)

		coord, err := r.Resolve(context.Background(), "Paris", "France")
		require.NoError(t, err)
		assert.Equal(t, geo.Coordinate{Lat: 48.8566, Lon: 2.3522}, coord)
		assert.Equal(t, "Paris, France", g.query)
		assert.True(t, c.Has("coords_paris_france"))

		coord, err = r.Resolve(context.Background(), "PARIS", "france")
		require.NoError(t, err)
		assert.Equal(t, geo.Coordinate{Lat: 48.8566, Lon: 2.3522}, coord)
		assert.Equal(t, int32(1), g.calls.Load())
	})

	t.Run("cache hit skips the delay", func(t *testing.T) {
		c := cache.NewMemoryCache(8)
		require.NoError(t, cache.SetValue(c, "coords_tokyo_japan", geo.Coordinate{Lat: 35.6762, Lon: 139.6503}))
		g := &fakeGeocoder{}
		r := NewResolver(g, c, time.Hour, log)

		coord, err := r.Resolve(context.Background(), "Tokyo", "Japan")
		require.NoError(t, err)
		assert.Equal(t, 35.6762, coord.Lat)
		assert.Equal(t, int32(0), g.calls.Load())
	})

	t.Run("waits before calling", func(t *testing.T) {
		g := &fakeGeocoder{result: &Result{Lat: 1, Lon: 2}}
		r := NewResolver(g, cache.NewNoopCache(), 30*time.Millisecond, log)

		start := time.Now()
		_, err := r.Resolve(context.Background(), "A", "B")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("geocoder error", func(t *testing.T) {
		g := &fakeGeocoder{err: errors.New("boom")}
		r := NewResolver(g, cache.NewMemoryCache(8), 0, log)

		_, err := r.Resolve(context.Background(), "Nowhere", "Land")
		assert.ErrorIs(t, err, ErrGeocoding)
	})

	t.Run("no result", func(t *testing.T) {
		c := cache.NewMemoryCache(8)
		r := NewResolver(&fakeGeocoder{}, c, 0, log)

		_, err := r.Resolve(context.Background(), "Nowhere", "Land")
		assert.ErrorIs(t, err, ErrGeocoding)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.False(t, c.Has("coords_nowhere_land"))
	})

	t.Run("corrupt cache entry is treated as a miss", func(t *testing.T) {
		c := cache.NewMemoryCache(8)
		require.NoError(t, c.Set("coords_rome_italy", []byte("garbage")))
		g := &fakeGeocoder{result: &Result{Lat: 41.9, Lon: 12.5}}
		r := NewResolver(g, c, 0, log)

		coord, err := r.Resolve(context.Background(), "Rome", "Italy")
		require.NoError(t, err)
		assert.Equal(t, 41.9, coord.Lat)
		assert.Equal(t, int32(1), g.calls.Load())
	})
}

type fakeAsync struct {
	ch chan AsyncResult
}

func (f *fakeAsync) GeocodeAsync(ctx context.Context, query string) <-chan AsyncResult {
	return f.ch
}

func TestFromAsync(t *testing.T) {
	t.Run("delivers result", func(t *testing.T) {
		ch := make(chan AsyncResult, 1)
		ch <- AsyncResult{Result: &Result{Lat: 1, Lon: 2}}
		res, err := FromAsync(&fakeAsync{ch: ch}).Geocode(context.Background(), "q")
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.Lat)
	})

	t.Run("never answers", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := FromAsync(&fakeAsync{ch: make(chan AsyncResult)}).Geocode(ctx, "q")
		assert.ErrorIs(t, err, ErrRuntime)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("never answers without a deadline", func(t *testing.T) {
		start := time.Now()
		_, err := FromAsyncTimeout(&fakeAsync{ch: make(chan AsyncResult)}, 20*time.Millisecond).
			Geocode(context.Background(), "q")
		assert.ErrorIs(t, err, ErrRuntime)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("caller deadline wins", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := FromAsyncTimeout(&fakeAsync{ch: make(chan AsyncResult)}, time.Hour).Geocode(ctx, "q")
		assert.ErrorIs(t, err, ErrRuntime)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("closed channel", func(t *testing.T) {
		ch := make(chan AsyncResult)
		close(ch)
		_, err := FromAsync(&fakeAsync{ch: ch}).Geocode(context.Background(), "q")
		assert.ErrorIs(t, err, ErrRuntime)
	})

	t.Run("through the resolver", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		r := NewResolver(FromAsync(&fakeAsync{ch: make(chan AsyncResult)}), cache.NewNoopCache(), 0, zap.NewNop())
		_, err := r.Resolve(ctx, "Paris", "France")
		assert.ErrorIs(t, err, ErrGeocoding)
		assert.ErrorIs(t, err, ErrRuntime)
	})
}

func TestNominatim_Geocode(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "Paris, France", r.URL.Query().Get("q"))
			assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "city_map_poster", r.Header.Get("User-Agent"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris, France"}]`))
		}))
		defer server.Close()

		n := NewNominatim(server.URL, "city_map_poster", 5*time.Second, logger)
		res, err := n.Geocode(context.Background(), "Paris, France")
		require.NoError(t, err)
		assert.Equal(t, 48.8566, res.Lat)
		assert.Equal(t, 2.3522, res.Lon)
		assert.Equal(t, "Paris, France", res.DisplayName)
	})

	t.Run("empty result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		_, err := NewNominatim(server.URL, "ua", time.Second, logger).Geocode(context.Background(), "x")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := NewNominatim(server.URL, "ua", time.Second, logger).Geocode(context.Background(), "x")
		assert.Error(t, err)
	})

	t.Run("bad coordinates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"lat":"north","lon":"2"}]`))
		}))
		defer server.Close()

		_, err := NewNominatim(server.URL, "ua", time.Second, logger).Geocode(context.Background(), "x")
		assert.Error(t, err)
	})
}
