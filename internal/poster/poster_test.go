package poster

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mapposter/internal/export"
	"mapposter/internal/geo"
	"mapposter/internal/location"
	"mapposter/internal/map_data"
	"mapposter/internal/poster_renderer"
)

var paris = geo.Coordinate{Lat: 48.8566, Lon: 2.3522}

type fakeLocator struct {
	calls int
	coord geo.Coordinate
	err   error
}

func (f *fakeLocator) Resolve(ctx context.Context, city, country string) (geo.Coordinate, error) {
	f.calls++
	return f.coord, f.err
}

type fakeData struct {
	network *geo.StreetNetwork
	water   *geo.FeatureCollection
	parks   *geo.FeatureCollection
	dists   []float64
}

func (f *fakeData) FetchNetwork(ctx context.Context, point geo.Coordinate, dist float64) *geo.StreetNetwork {
	f.dists = append(f.dists, dist)
	return f.network
}

func (f *fakeData) FetchFeatures(ctx context.Context, point geo.Coordinate, dist float64, tags map_data.TagFilter, name string) *geo.FeatureCollection {
	switch name {
	case "water":
		return f.water
	case "parks":
		return f.parks
	}
	return nil
}

// geographicNetwork is a small two-way grid around center.
func geographicNetwork(center geo.Coordinate) *geo.StreetNetwork {
	n := geo.NewStreetNetwork("EPSG:4326")
	n.AddNode(geo.Node{ID: 1, X: center.Lon - 0.004, Y: center.Lat})
	n.AddNode(geo.Node{ID: 2, X: center.Lon + 0.004, Y: center.Lat})
	n.AddNode(geo.Node{ID: 3, X: center.Lon, Y: center.Lat + 0.004})
	n.AddEdge(geo.Edge{From: 1, To: 2, Highway: "primary"})
	n.AddEdge(geo.Edge{From: 2, To: 1, Highway: "primary"})
	n.AddEdge(geo.Edge{From: 2, To: 3, Highway: "residential"})
	return n
}

type failingExporter struct {
	next   Exporter
	failOn string
}

func (f *failingExporter) Export(doc *poster_renderer.Document, bg color.RGBA, format export.Format, path string) error {
	if strings.Contains(filepath.Base(path), f.failOn) {
		return &export.Error{Format: format, Path: path, Err: errors.New("disk full")}
	}
	return f.next.Export(doc, bg, format, path)
}

func newTestGenerator(t *testing.T, locator Locator, data DataSource, exporter Exporter) (*Generator, string) {
	t.Helper()
	fonts, err := poster_renderer.DefaultFonts()
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "posters")
	if exporter == nil {
		exporter = export.New(zap.NewNop())
	}
	g := NewGenerator(Config{
		PostersDir: dir,
		ThemesDir:  filepath.Join(t.TempDir(), "themes"),
		Fonts:      fonts,
	}, locator, data, exporter, zap.NewNop())
	g.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return g, dir
}

func baseRequest() Request {
	p := paris
	return Request{
		City:    "Paris",
		Country: "France",
		Point:   &p,
		Radius:  5000,
		Width:   12,
		Height:  16,
		Format:  "svg",
		Theme:   "terracotta",
	}
}

func TestGenerate_EndToEnd(t *testing.T) {
	data := &fakeData{network: geographicNetwork(paris)}
	locator := &fakeLocator{}
	g, dir := newTestGenerator(t, locator, data, nil)

	res, err := g.Generate(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "paris_terracotta_20260102_030405.svg"), res.Path)
	assert.FileExists(t, res.Path)
	assert.Equal(t, "P  A  R  I  S", res.Title)
	assert.Greater(t, res.RoadSegments, 0)
	assert.NotEmpty(t, res.RenderID)
	assert.Equal(t, 0, locator.calls, "explicit point skips geocoding")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.Len(t, data.dists, 1)
	assert.InDelta(t, 5000*(16.0/12.0)/4, data.dists[0], 1e-9)
}

func TestGenerate_Geocodes(t *testing.T) {
	locator := &fakeLocator{coord: paris}
	g, _ := newTestGenerator(t, locator, &fakeData{network: geographicNetwork(paris)}, nil)

	req := baseRequest()
	req.Point = nil
	_, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, locator.calls)
}

func TestGenerate_GeocodingFailure(t *testing.T) {
	locator := &fakeLocator{err: location.ErrGeocoding}
	g, dir := newTestGenerator(t, locator, &fakeData{network: geographicNetwork(paris)}, nil)

	req := baseRequest()
	req.Point = nil
	_, err := g.Generate(context.Background(), req)
	assert.ErrorIs(t, err, location.ErrGeocoding)
	assert.NoDirExists(t, dir)
}

func TestGenerate_MissingOptionalLayers(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeLocator{}, &fakeData{network: geographicNetwork(paris)}, nil)

	res, err := g.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}

func TestGenerate_WithLayers(t *testing.T) {
	lake := orbSquare(paris, 0.001)
	data := &fakeData{
		network: geographicNetwork(paris),
		water:   &geo.FeatureCollection{CRS: "EPSG:4326", Features: []geo.Feature{{Geometry: lake}}},
		parks:   &geo.FeatureCollection{CRS: "EPSG:4326", Features: []geo.Feature{{Geometry: lake}}},
	}
	g, _ := newTestGenerator(t, &fakeLocator{}, data, nil)

	res, err := g.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}

func TestGenerate_NoStreetNetwork(t *testing.T) {
	g, dir := newTestGenerator(t, &fakeLocator{}, &fakeData{}, nil)

	_, err := g.Generate(context.Background(), baseRequest())
	assert.ErrorIs(t, err, poster_renderer.ErrNoStreetNetwork)
	assert.NoDirExists(t, dir)
}

func TestGenerate_Validation(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeLocator{}, &fakeData{network: geographicNetwork(paris)}, nil)

	tests := []struct {
		name   string
		modify func(r *Request)
	}{
		{"missing city", func(r *Request) { r.City = "" }},
		{"missing country", func(r *Request) { r.Country = "" }},
		{"zero radius", func(r *Request) { r.Radius = 0 }},
		{"negative width", func(r *Request) { r.Width = -1 }},
		{"unknown format", func(r *Request) { r.Format = "gif" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.modify(&req)
			_, err := g.Generate(context.Background(), req)
			var verrs validator.ValidationErrors
			assert.True(t, errors.As(err, &verrs), "got %v", err)
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	req := baseRequest()
	req.Width = 30
	req.Height = 25
	req.Format = "PDF"

	require.NoError(t, req.normalize(zap.NewNop()))
	assert.Equal(t, MaxSize, req.Width)
	assert.Equal(t, MaxSize, req.Height)
	assert.Equal(t, "pdf", req.Format)

	req = baseRequest()
	req.Format = ""
	require.NoError(t, req.normalize(zap.NewNop()))
	assert.Equal(t, "png", req.Format)
}

func TestRequest_DisplayNames(t *testing.T) {
	req := Request{City: "Tokyo", Country: "Japan"}
	assert.Equal(t, "Tokyo", req.displayCity())
	assert.Equal(t, "Japan", req.displayCountry())

	req.CountryLabel = "Nippon"
	assert.Equal(t, "Nippon", req.displayCountry())

	req.DisplayCity = "東京"
	req.DisplayCountry = "日本"
	assert.Equal(t, "東京", req.displayCity())
	assert.Equal(t, "日本", req.displayCountry())
}

func TestGenerate_DisplayCity(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeLocator{}, &fakeData{network: geographicNetwork(paris)}, nil)

	req := baseRequest()
	req.DisplayCity = "Lutetia"
	res, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "L  U  T  E  T  I  A", res.Title)
	assert.Contains(t, filepath.Base(res.Path), "paris_")
}

func TestGenerateAll(t *testing.T) {
	exporter := &failingExporter{next: export.New(zap.NewNop()), failOn: "_noir_"}
	g, dir := newTestGenerator(t, &fakeLocator{}, &fakeData{network: geographicNetwork(paris)}, exporter)

	results, err := g.GenerateAll(context.Background(), baseRequest(), []string{"terracotta", "noir", "autumn"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme noir")

	var exportErr *export.Error
	assert.True(t, errors.As(err, &exportErr))

	require.Len(t, results, 2)
	assert.Equal(t, "terracotta", results[0].Theme)
	assert.Equal(t, "autumn", results[1].Theme)
	assert.NotEqual(t, results[0].RenderID, results[1].RenderID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "noir")
	}
}

func TestOutputFilename(t *testing.T) {
	at := time.Date(2025, 12, 31, 23, 59, 1, 0, time.UTC)
	assert.Equal(t,
		filepath.Join("posters", "new_york_noir_20251231_235901.png"),
		OutputFilename("posters", "New York", "noir", "png", at))

	tests := []struct {
		name  string
		city  string
		theme string
		want  string
	}{
		{"parent directories", "../../etc/passwd", "noir", "______etc_passwd_noir_20251231_235901.png"},
		{"absolute path", "/tmp/x", "noir", "_tmp_x_noir_20251231_235901.png"},
		{"windows separator", `a\b`, "noir", "a_b_noir_20251231_235901.png"},
		{"theme name", "Paris", "../noir", "paris____noir_20251231_235901.png"},
		{"non-latin", "東京", "noir", "東京_noir_20251231_235901.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutputFilename("posters", tt.city, tt.theme, "png", at)
			assert.Equal(t, "posters", filepath.Dir(got))
			assert.Equal(t, tt.want, filepath.Base(got))
		})
	}
}
