package export

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cshum/vipsgen/vips"
	"github.com/google/uuid"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"
	"go.uber.org/zap"

	"mapposter/internal/poster_renderer"
)

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
	PDF Format = "pdf"
)

const (
	// DPI is the raster resolution.
	DPI = 300.0
	// MarginInches is the background-colored border around every poster.
	MarginInches = 0.05

	mmPerInch = 25.4
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case PNG, SVG, PDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Exporter writes rendered posters to disk.
type Exporter struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export writes doc to path in format, surrounded by a margin of background.
// The file appears atomically; on failure nothing is left at path.
func (e *Exporter) Export(doc *poster_renderer.Document, background color.RGBA, format Format, path string) error {
	var data []byte
	var err error

	switch format {
	case PNG:
		data, err = e.encodePNG(doc, background)
	case SVG:
		data, err = encodeVector(doc, background, renderers.SVG())
	case PDF:
		data, err = encodeVector(doc, background, renderers.PDF())
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return &Error{Format: format, Path: path, Err: err}
	}

	if err := writeAtomic(path, data); err != nil {
		return &Error{Format: format, Path: path, Err: err}
	}

	e.logger.Info("Poster saved",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)))
	return nil
}

// frame draws the poster onto a canvas larger by the margin on every side,
// filled with background.
func frame(doc *poster_renderer.Document, background color.RGBA) *canvas.Canvas {
	margin := MarginInches * mmPerInch
	w, h := doc.Canvas.Size()

	framed := canvas.New(w+2*margin, h+2*margin)
	ctx := canvas.NewContext(framed)
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.SetFillColor(background)
	ctx.DrawPath(0, 0, canvas.Rectangle(w+2*margin, h+2*margin))
	doc.Canvas.RenderViewTo(framed, canvas.Identity.Translate(margin, margin))
	return framed
}

func encodeVector(doc *poster_renderer.Document, background color.RGBA, writer canvas.Writer) ([]byte, error) {
	var buf bytes.Buffer
	if err := writer(&buf, frame(doc, background)); err != nil {
		return nil, fmt.Errorf("failed to encode: %w", err)
	}
	return buf.Bytes(), nil
}

// encodePNG rasterizes at DPI and lets libvips add the margin.
func (e *Exporter) encodePNG(doc *poster_renderer.Document, background color.RGBA) ([]byte, error) {
	tmp, err := os.CreateTemp("", "poster-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create raster file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := renderers.PNG(canvas.DPI(DPI))(tmp, doc.Canvas); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to rasterize: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write raster file: %w", err)
	}

	image, err := vips.NewPngload(tmpPath, vips.DefaultPngloadOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open raster: %w", err)
	}
	defer image.Close()

	margin := int(math.Round(MarginInches * DPI))
	bg := []float64{float64(background.R), float64(background.G), float64(background.B)}
	if image.Bands() == 4 {
		bg = append(bg, 255)
	}

	embedOpts := vips.DefaultEmbedOptions()
	embedOpts.Extend = vips.ExtendBackground
	embedOpts.Background = bg
	if err := image.Embed(margin, margin, image.Width()+2*margin, image.Height()+2*margin, embedOpts); err != nil {
		return nil, fmt.Errorf("failed to add margin: %w", err)
	}

	data, err := image.PngsaveBuffer(vips.DefaultPngsaveBufferOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	e.logger.Debug("Raster encoded",
		zap.Int("width", image.Width()),
		zap.Int("height", image.Height()),
		zap.Int("margin", margin))
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+".tmp."+uuid.NewString())
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write output file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}
