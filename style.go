package pptx

import (
	"fmt"
	"math"
)

// Color represents an ARGB color.
type Color struct {
	ARGB string // 8-character hex string, e.g., "FF000000" for black
}

// ColorBlack is the default shadow color.
var ColorBlack = Color{ARGB: "FF000000"}

// RGB builds an opaque Color from its components.
func RGB(r, g, b uint8) Color {
	return Color{ARGB: fmt.Sprintf("FF%02X%02X%02X", r, g, b)}
}

// Hex returns the 6-character RGB portion, as used by a:srgbClr.
func (c Color) Hex() string {
	if len(c.ARGB) >= 8 {
		return c.ARGB[2:]
	}
	if len(c.ARGB) == 6 {
		return c.ARGB
	}
	return "000000"
}

// Shadow describes an outer drop shadow on a shape.
type Shadow struct {
	Visible      bool
	Direction    int   // in degrees
	Distance     int64 // in EMU
	BlurRadius   int64 // in EMU
	Color        Color
	Transparency float64 // 0 (opaque) to 1 (invisible)
}

// NewShadow creates a visible black shadow with the given transparency.
func NewShadow() *Shadow {
	return &Shadow{
		Visible:      true,
		Color:        ColorBlack,
		Transparency: 0.5,
	}
}

// SetDirection sets shadow direction in degrees (normalized to 0–359).
func (s *Shadow) SetDirection(d int) *Shadow {
	s.Direction = ((d % 360) + 360) % 360
	return s
}

// SetDistance sets shadow distance in EMU (clamped to >= 0).
func (s *Shadow) SetDistance(d int64) *Shadow {
	if d < 0 {
		d = 0
	}
	s.Distance = d
	return s
}

// SetBlurRadius sets the blur radius in EMU (clamped to >= 0).
func (s *Shadow) SetBlurRadius(r int64) *Shadow {
	if r < 0 {
		r = 0
	}
	s.BlurRadius = r
	return s
}

// SetTransparency sets transparency, clamped to [0, 1].
func (s *Shadow) SetTransparency(t float64) *Shadow {
	s.Transparency = math.Min(1, math.Max(0, t))
	return s
}

// AngleUnits returns the direction in 60000ths of a degree.
func (s *Shadow) AngleUnits() int64 {
	return int64(s.Direction) * 60000
}

// AlphaUnits returns the opacity in thousandths of a percent (0–100000).
func (s *Shadow) AlphaUnits() int64 {
	return AlphaFromTransparency(s.Transparency)
}

// AlphaFromTransparency converts a 0..1 transparency to the DrawingML
// a:alpha value, where 100000 is fully opaque.
func AlphaFromTransparency(t float64) int64 {
	t = math.Min(1, math.Max(0, t))
	return int64(math.Round((1 - t) * 100000))
}
