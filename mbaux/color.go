package mbaux

import (
	"fmt"
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

var red = color.RGBA{R: 255, A: 255}

// ParseHexColor parses a "#rrggbb" or "#rgb" color into RGB components in [0,1].
func ParseHexColor(s string) (ms3.Vec, error) {
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return ms3.Vec{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	return ms3.Vec{X: float32(c.R), Y: float32(c.G), Z: float32(c.B)}, nil
}

// HexColor formats RGB components in [0,1] as "#rrggbb".
func HexColor(v ms3.Vec) string {
	c := colorful.Color{R: float64(v.X), G: float64(v.Y), B: float64(v.Z)}
	return c.Clamped().Hex()
}

// ColorConversionInigoQuilez creates a new color conversion using [Inigo Quilez]'s style.
// Field values are positive inside, so the inside is drawn orange. A good value for
// characteristic distance is a few ball radii. Returns red for NaN values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(float32) color.Color {
	inv := 1. / characteristicDistance
	return func(f float32) color.Color {
		if math.IsNaN(f) {
			return red
		}
		d := -f * inv
		var one = ms3.Vec{X: 1, Y: 1, Z: 1}
		var c ms3.Vec
		if d > 0 {
			c = ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
		} else {
			c = ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
		}
		c = ms3.Scale(1-math.Exp(-6*math.Abs(d)), c)
		c = ms3.Scale(0.8+0.2*math.Cos(150*d), c)
		edge := 1 - ms1.SmoothStep(0, 0.01, math.Abs(d))
		c = ms3.Add(ms3.Scale(1-edge, c), ms3.Scale(edge, one))
		return color.RGBA{
			R: uint8(ms1.Clamp(c.X, 0, 1) * 255),
			G: uint8(ms1.Clamp(c.Y, 0, 1) * 255),
			B: uint8(ms1.Clamp(c.Z, 0, 1) * 255),
			A: 255,
		}
	}
}

// ColorConversionLinearGradient creates a color conversion function that creates a gradient centered
// along f=0 that extends gradientLength. Colors are blended in HCL space.
func ColorConversionLinearGradient(gradientLength float32, c0, c1 color.Color) func(f float32) color.Color {
	if gradientLength <= 0 {
		return func(f float32) color.Color {
			if f < 0 {
				return c0
			}
			return c1
		}
	}
	cf0, _ := colorful.MakeColor(c0)
	cf1, _ := colorful.MakeColor(c1)
	return func(f float32) color.Color {
		blend := f/gradientLength + 0.5
		if blend <= 0 {
			return c0
		} else if blend >= 1 {
			return c1
		}
		r, g, b := cf0.BlendHcl(cf1, float64(blend)).Clamped().RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}
	}
}
