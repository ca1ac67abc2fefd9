package poster_renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/tdewolff/canvas"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
)

// FontPaths locates the three font weights a poster uses. Empty paths fall back
// to the Go monospace fonts.
type FontPaths struct {
	Bold    string
	Regular string
	Light   string
}

type Fonts struct {
	Bold    *canvas.FontFamily
	Regular *canvas.FontFamily
	Light   *canvas.FontFamily
}

func LoadFonts(paths FontPaths, logger *zap.Logger) (*Fonts, error) {
	bold, err := loadFamily("bold", paths.Bold, gomonobold.TTF, logger)
	if err != nil {
		return nil, err
	}
	regular, err := loadFamily("regular", paths.Regular, gomono.TTF, logger)
	if err != nil {
		return nil, err
	}
	light, err := loadFamily("light", paths.Light, gomono.TTF, logger)
	if err != nil {
		return nil, err
	}
	return &Fonts{Bold: bold, Regular: regular, Light: light}, nil
}

// DefaultFonts returns the monospace fallback for all three weights.
func DefaultFonts() (*Fonts, error) {
	return LoadFonts(FontPaths{}, zap.NewNop())
}

func loadFamily(role, path string, fallback []byte, logger *zap.Logger) (*canvas.FontFamily, error) {
	family := canvas.NewFontFamily("poster-" + role)

	if path != "" {
		_, err := os.Stat(path)
		if err == nil {
			if err := family.LoadFontFile(path, canvas.FontRegular); err != nil {
				return nil, fmt.Errorf("failed to load %s font %s: %w", role, path, err)
			}
			return family, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s font %s: %w", role, path, err)
		}
		logger.Warn("Font not found, using monospace fallback",
			zap.String("role", role),
			zap.String("path", path))
	}

	if err := family.LoadFont(fallback, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("failed to load fallback %s font: %w", role, err)
	}
	return family, nil
}
