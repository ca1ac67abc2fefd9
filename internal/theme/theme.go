package theme

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// DefaultName is the theme used when none is requested or the requested file is missing.
const DefaultName = "terracotta"

//go:embed terracotta.json
var defaultJSON []byte

type RoadColors struct {
	Motorway    color.RGBA
	Primary     color.RGBA
	Secondary   color.RGBA
	Tertiary    color.RGBA
	Residential color.RGBA
	Default     color.RGBA
}

// Theme is the color table a poster is drawn with.
type Theme struct {
	ID          string
	Name        string
	Description string
	Background  color.RGBA
	Text        color.RGBA
	Gradient    color.RGBA
	Water       color.RGBA
	Parks       color.RGBA
	Roads       RoadColors
}

var defaultTheme = mustParse(DefaultName, defaultJSON)

// Default returns the embedded terracotta theme.
func Default() Theme {
	return defaultTheme
}

func mustParse(id string, data []byte) Theme {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		panic(fmt.Sprintf("embedded theme: %v", err))
	}
	t, missing := fromMap(id, raw, Theme{})
	if len(missing) > 0 {
		panic(fmt.Sprintf("embedded theme missing keys: %v", missing))
	}
	return t
}

// fromMap fills a Theme from the flat JSON keys. Keys that are absent or not a
// valid color take the value from fallback and are reported in missing.
func fromMap(id string, raw map[string]any, fallback Theme) (t Theme, missing []string) {
	t = fallback
	t.ID = id
	t.Name = id
	t.Description = ""

	if s, ok := raw["name"].(string); ok {
		t.Name = s
	}
	if s, ok := raw["description"].(string); ok {
		t.Description = s
	}

	fields := []struct {
		key string
		dst *color.RGBA
	}{
		{"bg", &t.Background},
		{"text", &t.Text},
		{"gradient_color", &t.Gradient},
		{"water", &t.Water},
		{"parks", &t.Parks},
		{"road_motorway", &t.Roads.Motorway},
		{"road_primary", &t.Roads.Primary},
		{"road_secondary", &t.Roads.Secondary},
		{"road_tertiary", &t.Roads.Tertiary},
		{"road_residential", &t.Roads.Residential},
		{"road_default", &t.Roads.Default},
	}
	for _, f := range fields {
		s, ok := raw[f.key].(string)
		if !ok {
			missing = append(missing, f.key)
			continue
		}
		c, err := ParseHex(s)
		if err != nil {
			missing = append(missing, f.key)
			continue
		}
		*f.dst = c
	}
	return t, missing
}

// ParseHex parses #RGB, #RRGGBB and #RRGGBBAA colors.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}
