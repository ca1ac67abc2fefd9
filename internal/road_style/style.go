package road_style

import (
	"image/color"

	"mapposter/internal/geo"
	"mapposter/internal/theme"
)

// Class is a road styling bucket.
type Class int

const (
	ClassDefault Class = iota
	ClassMotorway
	ClassPrimary
	ClassSecondary
	ClassTertiary
	ClassResidential
)

var classes = map[string]Class{
	"motorway":       ClassMotorway,
	"motorway_link":  ClassMotorway,
	"trunk":          ClassPrimary,
	"trunk_link":     ClassPrimary,
	"primary":        ClassPrimary,
	"primary_link":   ClassPrimary,
	"secondary":      ClassSecondary,
	"secondary_link": ClassSecondary,
	"tertiary":       ClassTertiary,
	"tertiary_link":  ClassTertiary,
	"residential":    ClassResidential,
	"living_street":  ClassResidential,
	"unclassified":   ClassResidential,
}

// Widths are line widths in points.
var widths = map[Class]float64{
	ClassMotorway:    1.2,
	ClassPrimary:     1.0,
	ClassSecondary:   0.8,
	ClassTertiary:    0.6,
	ClassResidential: 0.4,
	ClassDefault:     0.4,
}

// Classify maps a highway value to its styling bucket. An empty value counts as unclassified.
func Classify(highway string) Class {
	return classes[geo.NormalizeClassification(highway)]
}

// Style is the stroke an edge is drawn with.
type Style struct {
	Color color.RGBA
	Width float64
}

// Engine styles edges with a fixed theme.
type Engine struct {
	roads theme.RoadColors
}

func New(t theme.Theme) *Engine {
	return &Engine{roads: t.Roads}
}

func (e *Engine) ColorFor(edge geo.Edge) color.RGBA {
	switch Classify(edge.Highway) {
	case ClassMotorway:
		return e.roads.Motorway
	case ClassPrimary:
		return e.roads.Primary
	case ClassSecondary:
		return e.roads.Secondary
	case ClassTertiary:
		return e.roads.Tertiary
	case ClassResidential:
		return e.roads.Residential
	default:
		return e.roads.Default
	}
}

func (e *Engine) WidthFor(edge geo.Edge) float64 {
	return widths[Classify(edge.Highway)]
}

func (e *Engine) StyleFor(edge geo.Edge) Style {
	return Style{Color: e.ColorFor(edge), Width: e.WidthFor(edge)}
}

// DrawOrder lists classes from thinnest to widest so major roads end up on top.
var DrawOrder = []Class{ClassDefault, ClassResidential, ClassTertiary, ClassSecondary, ClassPrimary, ClassMotorway}
