package projection

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// Geographic is the name of the lon/lat coordinate system raw data arrives in.
const Geographic = "EPSG:4326"

// CRS is a UTM zone on the WGS84 ellipsoid.
type CRS struct {
	Zone  int
	South bool
}

// UTMFor returns the UTM zone containing the lon/lat point.
func UTMFor(p orb.Point) CRS {
	zone := int(math.Floor((p.Lon()+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	return CRS{Zone: zone, South: p.Lat() < 0}
}

// Code is the EPSG code, 326xx north of the equator and 327xx south of it.
func (c CRS) Code() int {
	if c.South {
		return 32700 + c.Zone
	}
	return 32600 + c.Zone
}

// Name is the EPSG name, e.g. EPSG:32631 for zone 31 north.
func (c CRS) Name() string {
	return fmt.Sprintf("EPSG:%d", c.Code())
}

// Projection returns the lon/lat to easting/northing transform for the zone.
func (c CRS) Projection() orb.Projection {
	transform := wgs84.LonLat().To(wgs84.EPSG().Code(c.Code()))
	return func(p orb.Point) orb.Point {
		x, y, _ := transform(p.Lon(), p.Lat(), 0)
		return orb.Point{x, y}
	}
}

// Forward projects a single lon/lat point. Use Projection for many points.
func (c CRS) Forward(p orb.Point) orb.Point {
	return c.Projection()(p)
}
