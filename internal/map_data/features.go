package map_data

import (
	"fmt"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmgeojson"

	"mapposter/internal/cache"
	"mapposter/internal/geo"
)

// TagFilter selects features by tag. A key with no values matches any value.
type TagFilter map[string][]string

var (
	WaterTags = TagFilter{"natural": {"water"}, "waterway": {"riverbank"}}
	ParkTags  = TagFilter{"leisure": {"park"}, "landuse": {"grass"}}
)

// Match reports whether any filter key matches tags.
func (f TagFilter) Match(tags map[string]string) bool {
	for k, values := range f {
		v, ok := tags[k]
		if !ok {
			continue
		}
		if len(values) == 0 {
			return true
		}
		for _, want := range values {
			if v == want {
				return true
			}
		}
	}
	return false
}

func (f TagFilter) Key() string {
	return cache.TagKey(f)
}

// ExtractFeatures converts o to geometries and keeps those matching filter.
func ExtractFeatures(o *osm.OSM, filter TagFilter) (*geo.FeatureCollection, error) {
	gfc, err := osmgeojson.Convert(o,
		osmgeojson.NoMeta(true),
		osmgeojson.NoRelationMembership(true))
	if err != nil {
		return nil, fmt.Errorf("failed to convert osm data: %w", err)
	}

	fc := &geo.FeatureCollection{CRS: "EPSG:4326"}
	for _, f := range gfc.Features {
		tags, ok := f.Properties["tags"].(map[string]string)
		if !ok || !filter.Match(tags) {
			continue
		}
		feature := geo.Feature{Geometry: f.Geometry, Tags: tags}
		if f.ID != nil {
			feature.ID = fmt.Sprint(f.ID)
		}
		fc.Features = append(fc.Features, feature)
	}
	return fc, nil
}
