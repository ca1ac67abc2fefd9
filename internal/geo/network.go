package geo

import "github.com/paulmach/orb"

// Node is a network vertex. X/Y hold lon/lat until the network is projected,
// easting/northing in meters afterwards.
type Node struct {
	ID int64
	X  float64
	Y  float64
}

// Edge is a directed road segment between two nodes. Parallel edges between the
// same pair are allowed.
type Edge struct {
	From    int64
	To      int64
	WayID   int64
	Highway string
	Name    string
}

// StreetNetwork is a directed multigraph of road segments.
type StreetNetwork struct {
	CRS   string
	Nodes map[int64]Node
	Edges []Edge
}

func NewStreetNetwork(crs string) *StreetNetwork {
	return &StreetNetwork{
		CRS:   crs,
		Nodes: make(map[int64]Node),
	}
}

func (n *StreetNetwork) AddNode(node Node) {
	n.Nodes[node.ID] = node
}

func (n *StreetNetwork) AddEdge(e Edge) {
	n.Edges = append(n.Edges, e)
}

func (n *StreetNetwork) Empty() bool {
	return n == nil || len(n.Edges) == 0
}

// Segment returns the edge endpoints. ok is false when either node is missing.
func (n *StreetNetwork) Segment(e Edge) (orb.LineString, bool) {
	from, ok := n.Nodes[e.From]
	if !ok {
		return nil, false
	}
	to, ok := n.Nodes[e.To]
	if !ok {
		return nil, false
	}
	return orb.LineString{{from.X, from.Y}, {to.X, to.Y}}, true
}

// Bound is the extent of all nodes. The projection zone is picked from its center.
func (n *StreetNetwork) Bound() orb.Bound {
	var mp orb.MultiPoint
	for _, node := range n.Nodes {
		mp = append(mp, orb.Point{node.X, node.Y})
	}
	return mp.Bound()
}
