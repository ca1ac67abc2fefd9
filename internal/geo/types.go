package geo

import (
	"math"
	"strings"
)

// EarthRadius is the mean earth radius in meters used for bounding box math.
const EarthRadius = 6371009.0

// Unclassified is the road classification assumed when an edge carries none.
const Unclassified = "unclassified"

type Coordinate struct {
	Lat float64
	Lon float64
}

// BBox is a geographic bounding box in degrees.
type BBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// BBoxFromPoint returns the box extending dist meters north, south, east and west of p.
func BBoxFromPoint(p Coordinate, dist float64) BBox {
	deltaLat := (dist / EarthRadius) * (180 / math.Pi)
	deltaLon := deltaLat / math.Cos(p.Lat*math.Pi/180)
	return BBox{
		North: p.Lat + deltaLat,
		South: p.Lat - deltaLat,
		East:  p.Lon + deltaLon,
		West:  p.Lon - deltaLon,
	}
}

// NormalizeClassification reduces a road classification that may be a list, or a
// semicolon separated tag value, to its first element. Empty input yields Unclassified.
func NormalizeClassification(values ...string) string {
	if len(values) == 0 {
		return Unclassified
	}
	v := values[0]
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return Unclassified
	}
	return v
}
