package render

import (
	"github.com/lucasb-eyer/go-colorful"
)

// rdYlGn is the 9-class red-yellow-green ramp, slow to fast.
var rdYlGn = []colorful.Color{
	mustHex("#d73027"),
	mustHex("#f46d43"),
	mustHex("#fdae61"),
	mustHex("#fee08b"),
	mustHex("#ffffbf"),
	mustHex("#d9ef8b"),
	mustHex("#a6d96a"),
	mustHex("#66bd63"),
	mustHex("#1a9850"),
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ColorScale maps a speed linearly onto the ramp over [Min, Max].
type ColorScale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	// Empty is set when the scale was built from no values.
	Empty bool `json:"empty,omitempty"`
}

// NewColorScale builds a scale whose domain is the min and max of values.
func NewColorScale(values []float64) ColorScale {
	if len(values) == 0 {
		return ColorScale{Empty: true}
	}
	s := ColorScale{Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	return s
}

// Degenerate reports whether the domain is a single value.
func (s ColorScale) Degenerate() bool {
	return s.Empty || s.Max <= s.Min
}

// Color returns the hex color for v. Values outside the domain are clamped.
// A degenerate domain maps every value to the middle of the ramp.
func (s ColorScale) Color(v float64) string {
	if s.Degenerate() {
		return rdYlGn[len(rdYlGn)/2].Hex()
	}
	t := (v - s.Min) / (s.Max - s.Min)
	t = min(max(t, 0), 1)

	pos := t * float64(len(rdYlGn)-1)
	i := int(pos)
	if i >= len(rdYlGn)-1 {
		return rdYlGn[len(rdYlGn)-1].Hex()
	}
	return rdYlGn[i].BlendRgb(rdYlGn[i+1], pos-float64(i)).Hex()
}

// Stops returns the ramp colors paired with the domain value each sits at,
// which is what a legend needs.
func (s ColorScale) Stops() []ColorStop {
	stops := make([]ColorStop, len(rdYlGn))
	for i, c := range rdYlGn {
		value := s.Min
		if !s.Degenerate() {
			value = s.Min + (s.Max-s.Min)*float64(i)/float64(len(rdYlGn)-1)
		}
		stops[i] = ColorStop{Value: value, Color: c.Hex()}
	}
	return stops
}

// ColorStop is one legend entry.
type ColorStop struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}
