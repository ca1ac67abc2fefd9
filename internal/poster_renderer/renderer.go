package poster_renderer

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/tdewolff/canvas"
	"go.uber.org/zap"

	"mapposter/internal/geo"
	"mapposter/internal/projection"
	"mapposter/internal/road_style"
	"mapposter/internal/theme"
	"mapposter/internal/typography"
)

// ErrNoStreetNetwork is returned when there are no roads to draw.
var ErrNoStreetNetwork = errors.New("no street network to render")

const (
	mmPerInch = 25.4
	mmPerPt   = mmPerInch / 72

	gradientBands  = 256
	gradientExtent = 0.25

	Attribution = "© OpenStreetMap contributors"
)

// Layer names, in draw order.
const (
	LayerBackground     = "background"
	LayerWater          = "water"
	LayerParks          = "parks"
	LayerRoads          = "roads"
	LayerGradientBottom = "gradient_bottom"
	LayerGradientTop    = "gradient_top"
	LayerTitle          = "title"
	LayerCountry        = "country"
	LayerCoordinates    = "coordinates"
	LayerDivider        = "divider"
	LayerAttribution    = "attribution"
)

// Labels is the text printed on a poster.
type Labels struct {
	City    string
	Country string
	Point   geo.Coordinate
}

// Input holds everything drawn on one poster. Geometry must already be projected
// into the crop window's coordinate system. Water and Parks may be nil.
type Input struct {
	Network *geo.StreetNetwork
	Water   *geo.FeatureCollection
	Parks   *geo.FeatureCollection
	Crop    projection.CropWindow
	Labels  Labels
	// Width and Height are the poster size in inches.
	Width  float64
	Height float64
}

// Document is a rendered poster. Canvas units are millimetres with the origin
// at the bottom left.
type Document struct {
	Canvas *canvas.Canvas
	Width  float64
	Height float64
	Title  string
	Layers []string
	// RoadSegments counts the edges drawn.
	RoadSegments int
}

type Renderer struct {
	theme  theme.Theme
	fonts  *Fonts
	styles *road_style.Engine
	logger *zap.Logger
}

func New(t theme.Theme, fonts *Fonts, logger *zap.Logger) *Renderer {
	return &Renderer{
		theme:  t,
		fonts:  fonts,
		styles: road_style.New(t),
		logger: logger,
	}
}

// Render composes the poster. It fails with ErrNoStreetNetwork when the network
// is missing or has nothing drawable.
func (r *Renderer) Render(in Input) (*Document, error) {
	if in.Network.Empty() {
		return nil, ErrNoStreetNetwork
	}
	if in.Width <= 0 || in.Height <= 0 {
		return nil, fmt.Errorf("invalid poster size %gx%g", in.Width, in.Height)
	}
	if in.Crop.Width() <= 0 || in.Crop.Height() <= 0 {
		return nil, fmt.Errorf("invalid crop window %+v", in.Crop)
	}

	w, h := in.Width*mmPerInch, in.Height*mmPerInch
	doc := &Document{
		Canvas: canvas.New(w, h),
		Width:  in.Width,
		Height: in.Height,
	}
	ctx := canvas.NewContext(doc.Canvas)
	view := newViewport(in.Crop, w, h)

	r.fillBackground(ctx, doc, w, h)
	r.drawAreas(ctx, doc, LayerWater, in.Water, r.theme.Water, view)
	r.drawAreas(ctx, doc, LayerParks, in.Parks, r.theme.Parks, view)

	if err := r.drawRoads(ctx, doc, in.Network, view); err != nil {
		return nil, err
	}

	r.drawGradient(ctx, doc, LayerGradientBottom, w, h, true)
	r.drawGradient(ctx, doc, LayerGradientTop, w, h, false)
	r.drawText(ctx, doc, in.Labels, w, h)

	r.logger.Debug("Poster composed",
		zap.Strings("layers", doc.Layers),
		zap.Int("road_segments", doc.RoadSegments))
	return doc, nil
}

// viewport maps projected meters onto canvas millimetres. Geometry is clipped to
// the crop window before mapping, so nothing is drawn outside the canvas.
type viewport struct {
	crop  projection.CropWindow
	scale float64
}

func newViewport(crop projection.CropWindow, w, h float64) viewport {
	return viewport{crop: crop, scale: w / crop.Width()}
}

func (v viewport) point(p orb.Point) (float64, float64) {
	return (p[0] - v.crop.MinX) * v.scale, (p[1] - v.crop.MinY) * v.scale
}

func (v viewport) visible(b orb.Bound) bool {
	return b.Intersects(v.crop.Bound())
}

func (r *Renderer) fillBackground(ctx *canvas.Context, doc *Document, w, h float64) {
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.SetFillColor(r.theme.Background)
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	doc.Layers = append(doc.Layers, LayerBackground)
}

func (r *Renderer) drawAreas(ctx *canvas.Context, doc *Document, layer string, fc *geo.FeatureCollection, fill color.RGBA, view viewport) {
	areas := fc.Areas()
	if len(areas) == 0 {
		r.logger.Debug("Skipping empty layer", zap.String("layer", layer))
		return
	}

	path := &canvas.Path{}
	for _, f := range areas {
		if !view.visible(f.Geometry.Bound()) {
			continue
		}
		// clip works in place and the input is shared between themes
		switch g := clip.Geometry(view.crop.Bound(), orb.Clone(f.Geometry)).(type) {
		case orb.Polygon:
			addPolygon(path, g, view)
		case orb.MultiPolygon:
			for _, poly := range g {
				addPolygon(path, poly, view)
			}
		}
	}
	if path.Empty() {
		r.logger.Debug("Layer outside crop window", zap.String("layer", layer))
		return
	}

	ctx.SetStrokeColor(canvas.Transparent)
	ctx.SetFillColor(fill)
	ctx.DrawPath(0, 0, path)
	doc.Layers = append(doc.Layers, layer)
}

// addPolygon appends the rings of poly with the outer ring counter-clockwise and
// holes clockwise, so the nonzero fill rule cuts the holes out.
func addPolygon(path *canvas.Path, poly orb.Polygon, view viewport) {
	for i, ring := range poly {
		if len(ring) < 3 {
			continue
		}
		wantCCW := i == 0
		reverse := (ring.Orientation() == orb.CCW) != wantCCW

		for j := range ring {
			idx := j
			if reverse {
				idx = len(ring) - 1 - j
			}
			x, y := view.point(ring[idx])
			if j == 0 {
				path.MoveTo(x, y)
			} else {
				path.LineTo(x, y)
			}
		}
		path.Close()
	}
}

func (r *Renderer) drawRoads(ctx *canvas.Context, doc *Document, net *geo.StreetNetwork, view viewport) error {
	paths := map[road_style.Class]*canvas.Path{}
	styles := map[road_style.Class]road_style.Style{}

	for _, e := range net.Edges {
		seg, ok := net.Segment(e)
		if !ok || !view.visible(seg.Bound()) {
			continue
		}
		parts := clip.LineString(view.crop.Bound(), seg)
		if len(parts) == 0 {
			continue
		}
		class := road_style.Classify(e.Highway)
		p, ok := paths[class]
		if !ok {
			p = &canvas.Path{}
			paths[class] = p
			styles[class] = r.styles.StyleFor(e)
		}
		for _, part := range parts {
			if len(part) < 2 {
				continue
			}
			for i, pt := range part {
				x, y := view.point(pt)
				if i == 0 {
					p.MoveTo(x, y)
				} else {
					p.LineTo(x, y)
				}
			}
		}
		doc.RoadSegments++
	}
	if doc.RoadSegments == 0 {
		return fmt.Errorf("%w: no edges inside the crop window", ErrNoStreetNetwork)
	}

	ctx.SetFillColor(canvas.Transparent)
	for _, class := range road_style.DrawOrder {
		p, ok := paths[class]
		if !ok {
			continue
		}
		s := styles[class]
		ctx.SetStrokeColor(s.Color)
		ctx.SetStrokeWidth(s.Width * mmPerPt)
		ctx.DrawPath(0, 0, p)
	}
	doc.Layers = append(doc.Layers, LayerRoads)
	return nil
}

// drawGradient fades the outer quarter of the poster into the gradient color.
func (r *Renderer) drawGradient(ctx *canvas.Context, doc *Document, layer string, w, h float64, bottom bool) {
	extent := h * gradientExtent
	band := extent / gradientBands

	ctx.SetStrokeColor(canvas.Transparent)
	for i := 0; i < gradientBands; i++ {
		// alpha is 1 at the poster edge and 0 at the inner end of the fade
		alpha := 1 - float64(i)/float64(gradientBands-1)
		y := float64(i) * band
		if !bottom {
			y = h - float64(i+1)*band
		}
		ctx.SetFillColor(withAlpha(r.theme.Gradient, alpha))
		ctx.DrawPath(0, y, canvas.Rectangle(w, band))
	}
	doc.Layers = append(doc.Layers, layer)
}

func (r *Renderer) drawText(ctx *canvas.Context, doc *Document, labels Labels, w, h float64) {
	scale := typography.ScaleFactor(doc.Width, doc.Height)
	text := r.theme.Text

	doc.Title = typography.FormatDisplayName(labels.City)
	titleSize := typography.TitleFontSize(typography.MainSize, scale, typography.NameLength(labels.City))
	r.drawLine(ctx, r.fonts.Bold, titleSize, text, doc.Title, 0.5*w, 0.14*h, canvas.Center)
	doc.Layers = append(doc.Layers, LayerTitle)

	country := typography.FormatCountry(labels.Country)
	r.drawLine(ctx, r.fonts.Light, typography.SubSize*scale, text, country, 0.5*w, 0.10*h, canvas.Center)
	doc.Layers = append(doc.Layers, LayerCountry)

	coords := typography.FormatCoordinates(labels.Point.Lat, labels.Point.Lon)
	r.drawLine(ctx, r.fonts.Regular, typography.CoordsSize*scale, withAlpha(text, 0.7), coords, 0.5*w, 0.07*h, canvas.Center)
	doc.Layers = append(doc.Layers, LayerCoordinates)

	divider := &canvas.Path{}
	divider.MoveTo(0.4*w, 0.125*h)
	divider.LineTo(0.6*w, 0.125*h)
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(text)
	ctx.SetStrokeWidth(1 * scale * mmPerPt)
	ctx.DrawPath(0, 0, divider)
	doc.Layers = append(doc.Layers, LayerDivider)

	r.drawLine(ctx, r.fonts.Light, typography.AttributionSize*scale, withAlpha(text, 0.5), Attribution, 0.98*w, 0.02*h, canvas.Right)
	doc.Layers = append(doc.Layers, LayerAttribution)
}

func (r *Renderer) drawLine(ctx *canvas.Context, family *canvas.FontFamily, sizePt float64, col color.Color, s string, x, y float64, align canvas.TextAlign) {
	if s == "" {
		return
	}
	face := family.Face(sizePt, col, canvas.FontRegular, canvas.FontNormal)
	ctx.DrawText(x, y, canvas.NewTextLine(face, s, align))
}

func withAlpha(c color.RGBA, alpha float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A)*alpha + 0.5)
	return n
}
