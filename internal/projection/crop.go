package projection

import (
	"math"

	"github.com/paulmach/orb"
)

// CropWindow is the visible region in projected meters.
type CropWindow struct {
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
}

func (w CropWindow) Width() float64  { return w.MaxX - w.MinX }
func (w CropWindow) Height() float64 { return w.MaxY - w.MinY }

func (w CropWindow) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{w.MinX, w.MinY}, Max: orb.Point{w.MaxX, w.MaxY}}
}

// ComputeCropWindow centers a window on center whose aspect matches the canvas.
// The longer canvas side spans 2*radius; the other side is tightened by the aspect ratio.
func ComputeCropWindow(center orb.Point, canvasWidth, canvasHeight, radius float64) CropWindow {
	halfX, halfY := radius, radius
	aspect := canvasWidth / canvasHeight
	if aspect > 1 {
		halfY = radius / aspect
	} else {
		halfX = radius * aspect
	}
	return CropWindow{
		MinX: center[0] - halfX,
		MaxX: center[0] + halfX,
		MinY: center[1] - halfY,
		MaxY: center[1] + halfY,
	}
}

// CompensatedRadius inflates the requested radius before fetching so data reaches
// the crop boundary on elongated canvases.
func CompensatedRadius(dist, canvasWidth, canvasHeight float64) float64 {
	ratio := math.Max(canvasHeight, canvasWidth) / math.Min(canvasHeight, canvasWidth)
	return dist * ratio / 4
}
