package map_data

import (
	"github.com/paulmach/osm"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"mapposter/internal/geo"
)

// Highway values that never make it into a drivable, walkable or cyclable network.
var excludedHighways = map[string]bool{
	"abandoned":    true,
	"construction": true,
	"no":           true,
	"planned":      true,
	"platform":     true,
	"proposed":     true,
	"raceway":      true,
	"razed":        true,
}

type direction int

const (
	bothWays direction = iota
	forwardOnly
	reverseOnly
)

func wayDirection(tags osm.Tags) direction {
	switch tags.Find("oneway") {
	case "yes", "true", "1":
		return forwardOnly
	case "-1", "reverse":
		return reverseOnly
	}
	if tags.Find("junction") == "roundabout" {
		return forwardOnly
	}
	return bothWays
}

// BuildNetwork turns the highway ways of o into a directed street network in
// geographic coordinates. Only the largest weakly connected component is kept.
func BuildNetwork(o *osm.OSM) *geo.StreetNetwork {
	positions := make(map[osm.NodeID]*osm.Node, len(o.Nodes))
	for _, n := range o.Nodes {
		positions[n.ID] = n
	}

	net := geo.NewStreetNetwork("EPSG:4326")
	for _, w := range o.Ways {
		highway := w.Tags.Find("highway")
		if highway == "" || w.Tags.Find("area") == "yes" {
			continue
		}
		highway = geo.NormalizeClassification(highway)
		if excludedHighways[highway] {
			continue
		}

		dir := wayDirection(w.Tags)
		name := w.Tags.Find("name")
		for i := 1; i < len(w.Nodes); i++ {
			a, okA := positions[w.Nodes[i-1].ID]
			b, okB := positions[w.Nodes[i].ID]
			if !okA || !okB {
				continue
			}
			net.AddNode(geo.Node{ID: int64(a.ID), X: a.Lon, Y: a.Lat})
			net.AddNode(geo.Node{ID: int64(b.ID), X: b.Lon, Y: b.Lat})

			forward := geo.Edge{From: int64(a.ID), To: int64(b.ID), WayID: int64(w.ID), Highway: highway, Name: name}
			backward := geo.Edge{From: int64(b.ID), To: int64(a.ID), WayID: int64(w.ID), Highway: highway, Name: name}
			switch dir {
			case forwardOnly:
				net.AddEdge(forward)
			case reverseOnly:
				net.AddEdge(backward)
			default:
				net.AddEdge(forward)
				net.AddEdge(backward)
			}
		}
	}

	return largestComponent(net)
}

// largestComponent drops every node and edge outside the biggest weakly connected
// component. Ties go to the component holding the smallest node id.
func largestComponent(net *geo.StreetNetwork) *geo.StreetNetwork {
	if len(net.Nodes) == 0 {
		return net
	}

	// weak connectivity only needs the undirected, de-duplicated view
	g := simple.NewUndirectedGraph()
	for id := range net.Nodes {
		g.AddNode(simple.Node(id))
	}
	for _, e := range net.Edges {
		if e.From == e.To {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(e.From), simple.Node(e.To)))
	}

	var best []graph.Node
	var bestMin int64
	for _, comp := range topo.ConnectedComponents(g) {
		minID := comp[0].ID()
		for _, n := range comp[1:] {
			if n.ID() < minID {
				minID = n.ID()
			}
		}
		if best == nil || len(comp) > len(best) || (len(comp) == len(best) && minID < bestMin) {
			best, bestMin = comp, minID
		}
	}

	out := geo.NewStreetNetwork(net.CRS)
	for _, n := range best {
		out.Nodes[n.ID()] = net.Nodes[n.ID()]
	}
	for _, e := range net.Edges {
		if _, ok := out.Nodes[e.From]; ok {
			out.AddEdge(e)
		}
	}
	return out
}
