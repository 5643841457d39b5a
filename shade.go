package metaball

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// MaxGradient bounds the field gradient magnitude used for normals. Near the
// crease between two balls the finite difference can spike.
const MaxGradient = 4

// DefaultLight is the unit direction toward the key light.
var DefaultLight = ms3.Unit(ms3.Vec{X: -0.4, Y: 0.6, Z: 0.7})

// Shader turns a field value and its gradient into a color. Shading is a pure
// function of its inputs: the same field, gradient and point always yield the
// same color.
type Shader struct {
	// Env is sampled with the reflected view direction. Nil uses a uniform gray.
	Env        EnvMap
	Base       ms3.Vec // Surface base color.
	Background ms3.Vec // Color outside the silhouette.
	Threshold  float32 // Field value at the silhouette edge.
	// Radius is the height of the pseudo-3D dome normals are derived from,
	// usually the ball radius.
	Radius    float32
	EdgeWidth float32 // Anti-aliasing half width in field units.

	ReflectionIntensity float32
	NormalStrength      float32
	Camera              ms3.Vec
	// Light is the direction toward the light. Zero uses a fixed upper left key light.
	Light   ms3.Vec
	Ambient float32
}

// Coverage returns how much of a sample with field value f lies inside the silhouette, in [0,1].
func (s *Shader) Coverage(f float32) float32 {
	if !isFinite(f) {
		return 0
	}
	w := maxf(s.EdgeWidth, 0)
	return smoothstep(s.Threshold-w, s.Threshold+w, f)
}

// Normal returns the unit surface normal of the dome lifted over the field and
// the dome height at field value f with gradient grad. The result is always finite
// and falls back to +Z when the gradient carries no direction.
func (s *Shader) Normal(f float32, grad ms2.Vec) (n ms3.Vec, height float32) {
	R := maxf(s.Radius, epstol)
	h := f - s.Threshold
	if !isFinite(h) {
		h = 0
	}
	h = clampf(h, 0, R)
	height = math32.Sqrt(h * (2*R - h))
	if !isFinite(grad.X) || !isFinite(grad.Y) {
		grad = ms2.Vec{}
	}
	if gn := ms2.Norm(grad); gn > MaxGradient {
		grad = ms2.Scale(MaxGradient/gn, grad)
	}
	// Height grows as the field grows, so the normal tilts against the gradient.
	slope := (R - h) * s.NormalStrength
	v := ms3.Vec{X: -slope * grad.X, Y: -slope * grad.Y, Z: height}
	l := ms3.Norm(v)
	if l < epstol || !isFinite(l) {
		return ms3.Vec{Z: 1}, height
	}
	return ms3.Scale(1/l, v), height
}

// Shade returns the color at viewport point p given field value f and its
// gradient. The result components lie in [0,1].
func (s *Shader) Shade(f float32, grad, p ms2.Vec) ms3.Vec {
	cover := s.Coverage(f)
	if cover <= 0 {
		return clampColor(s.Background)
	}
	n, height := s.Normal(f, grad)
	surf := ms3.Vec{X: p.X, Y: p.Y, Z: height}
	view := ms3.Sub(surf, s.Camera)
	vl := ms3.Norm(view)
	if vl < epstol || !isFinite(vl) {
		view = ms3.Vec{Z: -1}
	} else {
		view = ms3.Scale(1/vl, view)
	}
	refl := ms3.Sub(view, ms3.Scale(2*ms3.Dot(view, n), n))
	env := s.env().Sample(refl)

	light := s.Light
	if ll := ms3.Norm(light); ll < epstol || !isFinite(ll) {
		light = DefaultLight
	} else {
		light = ms3.Scale(1/ll, light)
	}
	amb := clampf(s.Ambient, 0, 1)
	diffuse := amb + (1-amb)*maxf(ms3.Dot(n, light), 0)
	lit := ms3.Scale(diffuse, s.Base)
	col := mix3(lit, ms3.MulElem(env, s.Base), clampf(s.ReflectionIntensity, 0, 1))
	return clampColor(mix3(s.Background, col, cover))
}

func (s *Shader) env() EnvMap {
	if s.Env == nil {
		return UniformEnvMap{X: 0.8, Y: 0.8, Z: 0.8}
	}
	return s.Env
}

// clampColor bounds color components to [0,1], mapping NaN to 0.
func clampColor(c ms3.Vec) ms3.Vec {
	f := func(v float32) float32 {
		if v != v {
			return 0
		}
		return clampf(v, 0, 1)
	}
	return ms3.Vec{X: f(c.X), Y: f(c.Y), Z: f(c.Z)}
}

// RGBA8 converts a color with components in [0,1] to an opaque 8 bit color.
func RGBA8(c ms3.Vec) color.RGBA {
	c = clampColor(c)
	return color.RGBA{
		R: uint8(c.X*255 + 0.5),
		G: uint8(c.Y*255 + 0.5),
		B: uint8(c.Z*255 + 0.5),
		A: 255,
	}
}
