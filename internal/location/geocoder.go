package location

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrGeocoding is returned when a location cannot be resolved.
	ErrGeocoding = errors.New("geocoding failed")
	// ErrRuntime is returned when an asynchronous geocoder cannot deliver a result
	// before the caller's context ends.
	ErrRuntime = errors.New("geocoder could not be driven synchronously")
	// ErrNotFound is returned by geocoders when the query matches nothing.
	ErrNotFound = errors.New("location not found")
)

type Result struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder turns a free-form query into a location.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

type AsyncResult struct {
	Result *Result
	Err    error
}

// AsyncGeocoder delivers its answer on a channel.
type AsyncGeocoder interface {
	GeocodeAsync(ctx context.Context, query string) <-chan AsyncResult
}

// DefaultAsyncTimeout bounds FromAsync calls whose context has no deadline.
const DefaultAsyncTimeout = 30 * time.Second

type asyncAdapter struct {
	async   AsyncGeocoder
	timeout time.Duration
}

// FromAsync wraps an asynchronous geocoder so callers block until it answers.
// If no answer arrives before ctx ends, or within DefaultAsyncTimeout when ctx
// has no deadline, the call fails with ErrRuntime instead of waiting forever.
func FromAsync(a AsyncGeocoder) Geocoder {
	return FromAsyncTimeout(a, DefaultAsyncTimeout)
}

// FromAsyncTimeout is FromAsync with a custom fallback deadline.
func FromAsyncTimeout(a AsyncGeocoder, timeout time.Duration) Geocoder {
	return &asyncAdapter{async: a, timeout: timeout}
}

func (a *asyncAdapter) Geocode(ctx context.Context, query string) (*Result, error) {
	if _, ok := ctx.Deadline(); !ok && a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	ch := a.async.GeocodeAsync(ctx, query)
	if ch == nil {
		return nil, fmt.Errorf("%w: nil result channel", ErrRuntime)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: result channel closed", ErrRuntime)
		}
		return res.Result, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrRuntime, ctx.Err())
	}
}
