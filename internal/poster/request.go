package poster

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"mapposter/internal/geo"
)

// MaxSize caps each poster side, in inches.
const MaxSize = 20.0

var validate = validator.New()

// Request describes one poster. Point skips geocoding when set.
type Request struct {
	City    string          `validate:"required"`
	Country string          `validate:"required"`
	Point   *geo.Coordinate
	// Radius is the map radius in meters.
	Radius float64 `validate:"gt=0"`
	// Width and Height are in inches.
	Width  float64 `validate:"gt=0,lte=20"`
	Height float64 `validate:"gt=0,lte=20"`
	Format string  `validate:"oneof=png svg pdf"`
	Theme  string

	DisplayCity    string
	DisplayCountry string
	CountryLabel   string
}

// normalize clamps oversized posters and fills defaults, then validates.
func (r *Request) normalize(log *zap.Logger) error {
	if r.Width > MaxSize {
		log.Warn("Width exceeds the maximum, clamping", zap.Float64("width", r.Width), zap.Float64("max", MaxSize))
		r.Width = MaxSize
	}
	if r.Height > MaxSize {
		log.Warn("Height exceeds the maximum, clamping", zap.Float64("height", r.Height), zap.Float64("max", MaxSize))
		r.Height = MaxSize
	}
	if r.Format == "" {
		r.Format = "png"
	}
	r.Format = strings.ToLower(r.Format)

	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// displayCity is the name printed as the title.
func (r *Request) displayCity() string {
	if r.DisplayCity != "" {
		return r.DisplayCity
	}
	return r.City
}

// displayCountry is the name printed under the title.
func (r *Request) displayCountry() string {
	switch {
	case r.DisplayCountry != "":
		return r.DisplayCountry
	case r.CountryLabel != "":
		return r.CountryLabel
	}
	return r.Country
}

// OutputFilename builds <dir>/<city>_<theme>_<timestamp>.<ext>. City and theme
// are slugged so the file always lands directly inside dir.
func OutputFilename(dir, city, themeName, format string, at time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.%s", slug(city), slug(themeName), at.Format("20060102_150405"), format)
	return filepath.Join(dir, name)
}

// slug lowercases s and replaces everything but letters, digits, '-' and '_'
// with an underscore.
func slug(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.ToLower(s))
}
