package poster

import (
	"github.com/paulmach/orb"

	"mapposter/internal/geo"
)

func orbSquare(c geo.Coordinate, half float64) orb.Polygon {
	return orb.Polygon{{
		{c.Lon - half, c.Lat - half},
		{c.Lon + half, c.Lat - half},
		{c.Lon + half, c.Lat + half},
		{c.Lon - half, c.Lat + half},
		{c.Lon - half, c.Lat - half},
	}}
}
