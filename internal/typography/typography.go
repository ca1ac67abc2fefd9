package typography

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Base sizes in points before scaling.
const (
	MainSize        = 60.0
	SubSize         = 22.0
	CoordsSize      = 14.0
	AttributionSize = 8.0
)

const (
	// ReferenceSize is the canvas side, in inches, at which the scale factor is 1.
	ReferenceSize = 12.0

	latinLimit     = 0x250
	latinThreshold = 0.8
	titleMaxChars  = 10
	titleMinSize   = 10.0
)

// IsLatinScript reports whether more than 80% of the letters in text are Latin.
// Text without letters counts as Latin.
func IsLatinScript(text string) bool {
	var letters, latin int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r < latinLimit {
			latin++
		}
	}
	if letters == 0 {
		return true
	}
	return float64(latin)/float64(letters) > latinThreshold
}

// FormatDisplayName upper-cases Latin names and separates their characters with
// two spaces. Other scripts are returned unchanged.
func FormatDisplayName(text string) string {
	if !IsLatinScript(text) {
		return text
	}
	runes := []rune(upper(text))
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, "  ")
}

// FormatCountry renders the subtitle line.
func FormatCountry(country string) string {
	return upper(country)
}

// upper applies full Unicode case mapping, so "ß" becomes "SS".
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// ScaleFactor normalizes text sizes to the canvas's shorter side.
func ScaleFactor(canvasWidth, canvasHeight float64) float64 {
	return math.Min(canvasHeight, canvasWidth) / ReferenceSize
}

// TitleFontSize shrinks the title for names longer than 10 characters, never below 10*scale.
func TitleFontSize(baseSize, scale float64, nameLength int) float64 {
	size := baseSize * scale
	if nameLength <= titleMaxChars {
		return size
	}
	return math.Max(size*titleMaxChars/float64(nameLength), titleMinSize*scale)
}

// NameLength is the length TitleFontSize expects, in characters.
func NameLength(name string) int {
	return utf8.RuneCountInString(name)
}

// FormatCoordinates renders a caption such as "48.8566° N / 2.3522° E".
func FormatCoordinates(lat, lon float64) string {
	ns := "N"
	if lat < 0 {
		ns = "S"
	}
	ew := "E"
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f° %s / %.4f° %s", math.Abs(lat), ns, math.Abs(lon), ew)
}
