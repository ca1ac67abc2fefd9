package geo

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Feature struct {
	ID       string
	Geometry orb.Geometry
	Tags     map[string]string
}

// IsArea reports whether the feature takes part in area fills.
func (f Feature) IsArea() bool {
	switch f.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// FeatureCollection is a set of tagged geometries in a single coordinate system.
type FeatureCollection struct {
	CRS      string
	Features []Feature
}

// Areas returns only the polygon and multipolygon members.
func (fc *FeatureCollection) Areas() []Feature {
	if fc == nil {
		return nil
	}
	var out []Feature
	for _, f := range fc.Features {
		if f.IsArea() {
			out = append(out, f)
		}
	}
	return out
}

func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// GeoJSON converts the collection, tags becoming feature properties.
func (fc *FeatureCollection) GeoJSON() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		gf := geojson.NewFeature(f.Geometry)
		if f.ID != "" {
			gf.ID = f.ID
		}
		for k, v := range f.Tags {
			gf.Properties[k] = v
		}
		out.Append(gf)
	}
	return out
}

// FromGeoJSON is the inverse of GeoJSON. Non-string properties are formatted with %v.
func FromGeoJSON(crs string, in *geojson.FeatureCollection) *FeatureCollection {
	fc := &FeatureCollection{CRS: crs}
	for _, gf := range in.Features {
		f := Feature{
			Geometry: gf.Geometry,
			Tags:     make(map[string]string, len(gf.Properties)),
		}
		if gf.ID != nil {
			f.ID = fmt.Sprint(gf.ID)
		}
		for k, v := range gf.Properties {
			if s, ok := v.(string); ok {
				f.Tags[k] = s
			} else {
				f.Tags[k] = fmt.Sprint(v)
			}
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}

type featureCollectionWire struct {
	CRS     string
	GeoJSON []byte
}

// GobEncode stores geometries as GeoJSON since orb.Geometry is an interface.
func (fc FeatureCollection) GobEncode() ([]byte, error) {
	data, err := fc.GeoJSON().MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(featureCollectionWire{CRS: fc.CRS, GeoJSON: data}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (fc *FeatureCollection) GobDecode(data []byte) error {
	var wire featureCollectionWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	gfc, err := geojson.UnmarshalFeatureCollection(wire.GeoJSON)
	if err != nil {
		return fmt.Errorf("failed to unmarshal features: %w", err)
	}
	*fc = *FromGeoJSON(wire.CRS, gfc)
	return nil
}
