package map_data

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmapi"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"mapposter/internal/geo"
)

const DefaultOSMAPIURL = "https://api.openstreetmap.org/api/0.6"

// Source downloads raw OSM data inside a bounding box.
type Source interface {
	Map(ctx context.Context, bounds *osm.Bounds) (*osm.OSM, error)
}

type OSMAPIOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// MaxTileDegrees bounds each request edge; the API rejects large areas.
	MaxTileDegrees float64
	// Progress receives a tile progress bar. Nil disables it.
	Progress io.Writer
}

// OSMAPISource fetches from the OSM editing API, splitting the box into tiles.
type OSMAPISource struct {
	ds       *osmapi.Datasource
	maxTile  float64
	progress io.Writer
	logger   *zap.Logger
}

func NewOSMAPISource(opts OSMAPIOptions, logger *zap.Logger) *OSMAPISource {
	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: &userAgentTransport{userAgent: opts.UserAgent, next: http.DefaultTransport},
	}
	ds := osmapi.NewDatasource(client)
	if opts.BaseURL != "" {
		ds.BaseURL = opts.BaseURL
	}

	maxTile := opts.MaxTileDegrees
	if maxTile <= 0 {
		maxTile = 0.05
	}

	return &OSMAPISource{
		ds:       ds,
		maxTile:  maxTile,
		progress: opts.Progress,
		logger:   logger,
	}
}

func (s *OSMAPISource) Map(ctx context.Context, bounds *osm.Bounds) (*osm.OSM, error) {
	tiles := splitBounds(bounds, s.maxTile)
	s.logger.Debug("Downloading OSM data",
		zap.Float64("min_lat", bounds.MinLat),
		zap.Float64("max_lat", bounds.MaxLat),
		zap.Float64("min_lon", bounds.MinLon),
		zap.Float64("max_lon", bounds.MaxLon),
		zap.Int("tiles", len(tiles)))

	w := s.progress
	if w == nil {
		w = io.Discard
	}
	bar := progressbar.NewOptions(len(tiles),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Downloading OSM tiles"),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	parts := make([]*osm.OSM, 0, len(tiles))
	for _, tile := range tiles {
		o, err := s.ds.Map(ctx, tile)
		if err != nil {
			return nil, fmt.Errorf("failed to download tile %v: %w", *tile, err)
		}
		parts = append(parts, o)
		bar.Add(1)
	}
	return mergeOSM(parts...), nil
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.next.RoundTrip(req)
}

func boundsFromBBox(b geo.BBox) *osm.Bounds {
	return &osm.Bounds{MinLat: b.South, MaxLat: b.North, MinLon: b.West, MaxLon: b.East}
}

// splitBounds cuts b into an even grid whose cells are at most maxDeg on each edge.
func splitBounds(b *osm.Bounds, maxDeg float64) []*osm.Bounds {
	rows := int(math.Max(1, math.Ceil((b.MaxLat-b.MinLat)/maxDeg)))
	cols := int(math.Max(1, math.Ceil((b.MaxLon-b.MinLon)/maxDeg)))
	dLat := (b.MaxLat - b.MinLat) / float64(rows)
	dLon := (b.MaxLon - b.MinLon) / float64(cols)

	tiles := make([]*osm.Bounds, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			tile := &osm.Bounds{
				MinLat: b.MinLat + float64(r)*dLat,
				MaxLat: b.MinLat + float64(r+1)*dLat,
				MinLon: b.MinLon + float64(c)*dLon,
				MaxLon: b.MinLon + float64(c+1)*dLon,
			}
			if r == rows-1 {
				tile.MaxLat = b.MaxLat
			}
			if c == cols-1 {
				tile.MaxLon = b.MaxLon
			}
			tiles = append(tiles, tile)
		}
	}
	return tiles
}

// mergeOSM concatenates elements, keeping the first copy of anything returned by
// more than one tile.
func mergeOSM(parts ...*osm.OSM) *osm.OSM {
	out := &osm.OSM{}
	nodes := map[osm.NodeID]bool{}
	ways := map[osm.WayID]bool{}
	relations := map[osm.RelationID]bool{}

	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, n := range p.Nodes {
			if !nodes[n.ID] {
				nodes[n.ID] = true
				out.Nodes = append(out.Nodes, n)
			}
		}
		for _, w := range p.Ways {
			if !ways[w.ID] {
				ways[w.ID] = true
				out.Ways = append(out.Ways, w)
			}
		}
		for _, r := range p.Relations {
			if !relations[r.ID] {
				relations[r.ID] = true
				out.Relations = append(out.Relations, r)
			}
		}
	}
	return out
}
