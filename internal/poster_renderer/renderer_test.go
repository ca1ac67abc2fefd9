package poster_renderer

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"go.uber.org/zap"

	"mapposter/internal/geo"
	"mapposter/internal/projection"
	"mapposter/internal/theme"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	blue  = color.RGBA{0, 0, 255, 255}
	green = color.RGBA{0, 255, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

func testTheme() theme.Theme {
	th := theme.Default()
	th.Background = white
	th.Gradient = white
	th.Text = color.RGBA{0, 0, 0, 255}
	th.Water = blue
	th.Parks = green
	th.Roads = theme.RoadColors{Motorway: red, Primary: red, Secondary: red, Tertiary: red, Residential: red, Default: red}
	return th
}

func testFonts(t *testing.T) *Fonts {
	t.Helper()
	fonts, err := DefaultFonts()
	require.NoError(t, err)
	return fonts
}

// testNetwork is a short road in the lower left of the crop window.
func testNetwork() *geo.StreetNetwork {
	n := geo.NewStreetNetwork("EPSG:32631")
	n.AddNode(geo.Node{ID: 1, X: -700, Y: -900})
	n.AddNode(geo.Node{ID: 2, X: -600, Y: -900})
	n.AddEdge(geo.Edge{From: 1, To: 2, Highway: "primary"})
	n.AddEdge(geo.Edge{From: 2, To: 1, Highway: "primary"})
	return n
}

func square(minX, minY, maxX, maxY float64) orb.Ring {
	return orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}
}

func reversed(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i := range r {
		out[i] = r[len(r)-1-i]
	}
	return out
}

func testInput() Input {
	return Input{
		Network: testNetwork(),
		Water: &geo.FeatureCollection{Features: []geo.Feature{
			// clockwise outer ring with a counter-clockwise hole
			{Geometry: orb.Polygon{reversed(square(-200, -200, 200, 200)), square(-50, -50, 50, 50)}},
			{Geometry: orb.LineString{{0, 0}, {10, 10}}},
		}},
		Parks: &geo.FeatureCollection{Features: []geo.Feature{
			{Geometry: orb.MultiPolygon{{square(300, 300, 400, 400)}}},
		}},
		Crop:   projection.ComputeCropWindow(orb.Point{0, 0}, 12, 16, 1000),
		Labels: Labels{City: "Paris", Country: "France", Point: geo.Coordinate{Lat: 48.8566, Lon: 2.3522}},
		Width:  12,
		Height: 16,
	}
}

const dpmm = 1.0

// pixelAt samples the rasterized document at projected point p.
func pixelAt(img *image.RGBA, doc *Document, crop projection.CropWindow, p orb.Point) color.RGBA {
	w := doc.Width * mmPerInch
	h := doc.Height * mmPerInch
	x := (p[0] - crop.MinX) * w / crop.Width()
	y := (p[1] - crop.MinY) * w / crop.Width()
	return img.RGBAAt(int(x*dpmm), int((h-y)*dpmm))
}

func assertColor(t *testing.T, want, got color.RGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 8, "red channel of %v", got)
	assert.InDelta(t, want.G, got.G, 8, "green channel of %v", got)
	assert.InDelta(t, want.B, got.B, 8, "blue channel of %v", got)
}

func TestRender_Layers(t *testing.T) {
	r := New(testTheme(), testFonts(t), zap.NewNop())

	doc, err := r.Render(testInput())
	require.NoError(t, err)

	assert.Equal(t, []string{
		LayerBackground, LayerWater, LayerParks, LayerRoads,
		LayerGradientBottom, LayerGradientTop,
		LayerTitle, LayerCountry, LayerCoordinates, LayerDivider, LayerAttribution,
	}, doc.Layers)
	assert.Equal(t, "P  A  R  I  S", doc.Title)
	assert.Equal(t, 2, doc.RoadSegments)

	wMM, hMM := doc.Canvas.Size()
	assert.InDelta(t, 12*25.4, wMM, 1e-9)
	assert.InDelta(t, 16*25.4, hMM, 1e-9)
}

func TestRender_Pixels(t *testing.T) {
	in := testInput()
	doc, err := New(testTheme(), testFonts(t), zap.NewNop()).Render(in)
	require.NoError(t, err)

	img := rasterizer.Draw(doc.Canvas, canvas.DPMM(dpmm), canvas.DefaultColorSpace)

	assertColor(t, blue, pixelAt(img, doc, in.Crop, orb.Point{150, 0}))
	assertColor(t, white, pixelAt(img, doc, in.Crop, orb.Point{0, 0}))
	assertColor(t, green, pixelAt(img, doc, in.Crop, orb.Point{350, 350}))
	assertColor(t, white, pixelAt(img, doc, in.Crop, orb.Point{500, 200}))
}

func TestRender_MissingLayersAreSkipped(t *testing.T) {
	in := testInput()
	in.Water = nil
	in.Parks = &geo.FeatureCollection{Features: []geo.Feature{{Geometry: orb.Point{1, 1}}}}

	doc, err := New(testTheme(), testFonts(t), zap.NewNop()).Render(in)
	require.NoError(t, err)
	assert.NotContains(t, doc.Layers, LayerWater)
	assert.NotContains(t, doc.Layers, LayerParks)
	assert.Contains(t, doc.Layers, LayerRoads)

	img := rasterizer.Draw(doc.Canvas, canvas.DPMM(dpmm), canvas.DefaultColorSpace)
	assertColor(t, white, pixelAt(img, doc, in.Crop, orb.Point{150, 0}))

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.B > 200 && c.R < 50 && c.G < 50 {
				t.Fatalf("water colored pixel at %d,%d", x, y)
			}
		}
	}
}

func TestRender_NoStreetNetwork(t *testing.T) {
	r := New(testTheme(), testFonts(t), zap.NewNop())

	in := testInput()
	in.Network = nil
	_, err := r.Render(in)
	assert.ErrorIs(t, err, ErrNoStreetNetwork)

	in.Network = geo.NewStreetNetwork("EPSG:32631")
	_, err = r.Render(in)
	assert.ErrorIs(t, err, ErrNoStreetNetwork)

	far := geo.NewStreetNetwork("EPSG:32631")
	far.AddNode(geo.Node{ID: 1, X: 50000, Y: 50000})
	far.AddNode(geo.Node{ID: 2, X: 50100, Y: 50000})
	far.AddEdge(geo.Edge{From: 1, To: 2})
	in.Network = far
	_, err = r.Render(in)
	assert.True(t, errors.Is(err, ErrNoStreetNetwork))
}

func TestRender_InvalidSize(t *testing.T) {
	in := testInput()
	in.Width = 0
	_, err := New(testTheme(), testFonts(t), zap.NewNop()).Render(in)
	assert.Error(t, err)
}

func TestRender_NonLatinTitle(t *testing.T) {
	in := testInput()
	in.Labels.City = "東京"
	doc, err := New(testTheme(), testFonts(t), zap.NewNop()).Render(in)
	require.NoError(t, err)
	assert.Equal(t, "東京", doc.Title)
}

func TestLoadFonts(t *testing.T) {
	log := zap.NewNop()

	t.Run("missing files fall back", func(t *testing.T) {
		fonts, err := LoadFonts(FontPaths{Bold: "/nonexistent/bold.ttf"}, log)
		require.NoError(t, err)
		assert.NotNil(t, fonts.Bold)
		assert.NotNil(t, fonts.Regular)
		assert.NotNil(t, fonts.Light)
	})

	t.Run("unparseable file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.ttf")
		require.NoError(t, os.WriteFile(path, []byte("not a font"), 0644))
		_, err := LoadFonts(FontPaths{Regular: path}, log)
		assert.Error(t, err)
	})
}

func TestWithAlpha(t *testing.T) {
	c := withAlpha(color.RGBA{10, 20, 30, 255}, 0.5)
	assert.Equal(t, color.NRGBA{10, 20, 30, 128}, c)
	assert.Equal(t, uint8(0), withAlpha(red, 0).A)
	assert.Equal(t, uint8(255), withAlpha(red, 1).A)
}
