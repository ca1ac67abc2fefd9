package poster

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"mapposter/internal/export"
	"mapposter/internal/geo"
	"mapposter/internal/map_data"
	"mapposter/internal/poster_renderer"
	"mapposter/internal/projection"
	"mapposter/internal/theme"
)

// Locator resolves a city to coordinates.
type Locator interface {
	Resolve(ctx context.Context, city, country string) (geo.Coordinate, error)
}

// DataSource fetches map layers. A nil result means no data.
type DataSource interface {
	FetchNetwork(ctx context.Context, point geo.Coordinate, dist float64) *geo.StreetNetwork
	FetchFeatures(ctx context.Context, point geo.Coordinate, dist float64, tags map_data.TagFilter, name string) *geo.FeatureCollection
}

type Exporter interface {
	Export(doc *poster_renderer.Document, background color.RGBA, format export.Format, path string) error
}

// Config is shared by every poster a Generator produces.
type Config struct {
	PostersDir string
	ThemesDir  string
	Fonts      *poster_renderer.Fonts
	// Progress receives the fetch progress bar. Nil disables it.
	Progress io.Writer
}

// Result describes a written poster.
type Result struct {
	Path         string
	Theme        string
	Title        string
	RenderID     string
	RoadSegments int
}

type Generator struct {
	cfg      Config
	locator  Locator
	data     DataSource
	exporter Exporter
	now      func() time.Time
	logger   *zap.Logger
}

func NewGenerator(cfg Config, locator Locator, data DataSource, exporter Exporter, logger *zap.Logger) *Generator {
	return &Generator{
		cfg:      cfg,
		locator:  locator,
		data:     data,
		exporter: exporter,
		now:      time.Now,
		logger:   logger,
	}
}

// scene is the projected map data shared by every theme of one request.
type scene struct {
	network *geo.StreetNetwork
	water   *geo.FeatureCollection
	parks   *geo.FeatureCollection
	crop    projection.CropWindow
	labels  poster_renderer.Labels
}

// Generate renders req with req.Theme.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.normalize(g.logger); err != nil {
		return nil, err
	}
	sc, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.render(sc, req, req.Theme)
}

// GenerateAll renders req once per theme, one after another. A failing theme does
// not stop the rest; all failures are returned together.
func (g *Generator) GenerateAll(ctx context.Context, req Request, themes []string) ([]Result, error) {
	if err := req.normalize(g.logger); err != nil {
		return nil, err
	}
	sc, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var results []Result
	var errs []error
	for _, name := range themes {
		res, err := g.render(sc, req, name)
		if err != nil {
			g.logger.Error("Poster failed", zap.String("theme", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("theme %s: %w", name, err))
			continue
		}
		results = append(results, *res)
	}
	return results, errors.Join(errs...)
}

func (g *Generator) prepare(ctx context.Context, req Request) (*scene, error) {
	point, err := g.locate(ctx, req)
	if err != nil {
		return nil, err
	}

	dist := projection.CompensatedRadius(req.Radius, req.Width, req.Height)
	g.logger.Info("Fetching map data",
		zap.String("city", req.City),
		zap.Float64("radius", req.Radius),
		zap.Float64("fetch_radius", dist))

	w := g.cfg.Progress
	if w == nil {
		w = io.Discard
	}
	bar := progressbar.NewOptions(3,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Fetching map data"),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	bar.Describe("Downloading street network")
	network := g.data.FetchNetwork(ctx, point, dist)
	if network.Empty() {
		return nil, poster_renderer.ErrNoStreetNetwork
	}
	bar.Add(1)

	bar.Describe("Downloading water features")
	water := g.data.FetchFeatures(ctx, point, dist, map_data.WaterTags, "water")
	bar.Add(1)

	bar.Describe("Downloading parks")
	parks := g.data.FetchFeatures(ctx, point, dist, map_data.ParkTags, "parks")
	bar.Add(1)

	projected, crs, err := projection.ProjectNetwork(network)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", poster_renderer.ErrNoStreetNetwork, err)
	}

	sc := &scene{
		network: projected,
		water:   g.projectLayer("water", water, crs),
		parks:   g.projectLayer("parks", parks, crs),
		crop:    projection.ComputeCropWindow(projection.ProjectPoint(point, crs), req.Width, req.Height, dist),
		labels: poster_renderer.Labels{
			City:    req.displayCity(),
			Country: req.displayCountry(),
			Point:   point,
		},
	}
	return sc, nil
}

func (g *Generator) locate(ctx context.Context, req Request) (geo.Coordinate, error) {
	if req.Point != nil {
		g.logger.Info("Using provided coordinates",
			zap.Float64("lat", req.Point.Lat),
			zap.Float64("lon", req.Point.Lon))
		return *req.Point, nil
	}
	return g.locator.Resolve(ctx, req.City, req.Country)
}

func (g *Generator) projectLayer(name string, fc *geo.FeatureCollection, crs projection.CRS) *geo.FeatureCollection {
	if fc == nil {
		return nil
	}
	projected, err := projection.ProjectFeatures(fc, crs)
	if err != nil {
		g.logger.Warn("Skipping layer that could not be projected", zap.String("layer", name), zap.Error(err))
		return nil
	}
	return projected
}

func (g *Generator) render(sc *scene, req Request, themeName string) (*Result, error) {
	renderID := uuid.NewString()
	log := g.logger.With(zap.String("render_id", renderID), zap.String("theme", themeName))

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	th := theme.Load(g.cfg.ThemesDir, themeName, log)

	log.Info("Rendering poster", zap.String("city", sc.labels.City))
	doc, err := poster_renderer.New(th, g.cfg.Fonts, log).Render(poster_renderer.Input{
		Network: sc.network,
		Water:   sc.water,
		Parks:   sc.parks,
		Crop:    sc.crop,
		Labels:  sc.labels,
		Width:   req.Width,
		Height:  req.Height,
	})
	if err != nil {
		return nil, err
	}

	name := themeName
	if name == "" {
		name = th.ID
	}
	path := OutputFilename(g.cfg.PostersDir, req.City, name, string(format), g.now())
	if err := g.exporter.Export(doc, th.Background, format, path); err != nil {
		return nil, err
	}

	return &Result{
		Path:         path,
		Theme:        name,
		Title:        doc.Title,
		RenderID:     renderID,
		RoadSegments: doc.RoadSegments,
	}, nil
}
