package projection

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"mapposter/internal/geo"
)

// ProjectNetwork reprojects a geographic network into the UTM zone at the center of its extent.
func ProjectNetwork(n *geo.StreetNetwork) (*geo.StreetNetwork, CRS, error) {
	if n.Empty() {
		return nil, CRS{}, fmt.Errorf("cannot project empty street network")
	}
	if n.CRS != Geographic && n.CRS != "" {
		return nil, CRS{}, fmt.Errorf("street network already projected to %s", n.CRS)
	}

	crs := UTMFor(n.Bound().Center())
	forward := crs.Projection()
	out := geo.NewStreetNetwork(crs.Name())
	for id, node := range n.Nodes {
		p := forward(orb.Point{node.X, node.Y})
		out.Nodes[id] = geo.Node{ID: id, X: p[0], Y: p[1]}
	}
	out.Edges = append(out.Edges, n.Edges...)
	return out, crs, nil
}

// ProjectPoint projects a geographic coordinate into crs.
func ProjectPoint(c geo.Coordinate, crs CRS) orb.Point {
	return crs.Forward(orb.Point{c.Lon, c.Lat})
}

// ProjectFeatures reprojects a geographic collection into target. Area geometries go
// through a ring walker; anything else falls back to orb/project.
func ProjectFeatures(fc *geo.FeatureCollection, target CRS) (*geo.FeatureCollection, error) {
	if fc == nil {
		return nil, nil
	}
	if fc.CRS == target.Name() {
		return fc, nil
	}
	if fc.CRS != Geographic && fc.CRS != "" {
		return nil, fmt.Errorf("cannot project features from %s", fc.CRS)
	}

	out := &geo.FeatureCollection{
		CRS:      target.Name(),
		Features: make([]geo.Feature, 0, len(fc.Features)),
	}
	for _, f := range fc.Features {
		g, ok := projectArea(f.Geometry, target)
		if !ok {
			g = project.Geometry(orb.Clone(f.Geometry), target.Projection())
		}
		out.Features = append(out.Features, geo.Feature{ID: f.ID, Geometry: g, Tags: f.Tags})
	}
	return out, nil
}

func projectArea(g orb.Geometry, crs CRS) (orb.Geometry, bool) {
	switch g := g.(type) {
	case orb.Polygon:
		return projectPolygon(g, crs), true
	case orb.MultiPolygon:
		mp := make(orb.MultiPolygon, len(g))
		for i, poly := range g {
			mp[i] = projectPolygon(poly, crs)
		}
		return mp, true
	}
	return nil, false
}

func projectPolygon(poly orb.Polygon, crs CRS) orb.Polygon {
	forward := crs.Projection()
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		r := make(orb.Ring, len(ring))
		for j, p := range ring {
			r[j] = forward(p)
		}
		out[i] = r
	}
	return out
}
