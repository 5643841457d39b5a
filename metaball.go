// Package metaball implements an animated metaball field: balls follow
// parametric target shapes, morph between them on a hold/transition schedule,
// merge through a smooth minimum and are shaded with estimated normals and
// an environment map reflection.
//
// The package is a pure function of (time, [Params], sample point). A [Frame]
// freezes one parameter snapshot and one set of ball positions so that every
// pixel of a frame can be evaluated in parallel with no shared mutable state.
package metaball

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const (
	pi  = math32.Pi
	tau = 2 * math32.Pi
	// epstol guards badly conditioned denominators such as
	// lengths used for normalization and distortion scale factors.
	epstol = 6e-7
	// largenum bounds coordinates that leave the representable range.
	largenum = 1e6
)

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func absf(a float32) float32 {
	return math32.Abs(a)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

func mixf(x, y, a float32) float32 {
	return x*(1-a) + y*a
}

func isFinite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

// finiteVec replaces non-finite components with zero and bounds the rest.
func finiteVec(v ms2.Vec) ms2.Vec {
	if !isFinite(v.X) {
		v.X = 0
	}
	if !isFinite(v.Y) {
		v.Y = 0
	}
	v.X = clampf(v.X, -largenum, largenum)
	v.Y = clampf(v.Y, -largenum, largenum)
	return v
}

func lerp2(a, b ms2.Vec, t float32) ms2.Vec {
	return ms2.Vec{X: mixf(a.X, b.X, t), Y: mixf(a.Y, b.Y, t)}
}

func mix3(a, b ms3.Vec, t float32) ms3.Vec {
	return ms3.Vec{X: mixf(a.X, b.X, t), Y: mixf(a.Y, b.Y, t), Z: mixf(a.Z, b.Z, t)}
}

// smoothstep is the Hermite step used for edge coverage. Unlike the GLSL
// builtin it tolerates edge0 == edge1 by degrading to a hard step.
func smoothstep(edge0, edge1, x float32) float32 {
	if edge1-edge0 < epstol {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := clampf((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// hashIndex returns a deterministic pseudo random number in [0,1) for
// ball index i and a salt so each ball gets its own fixed seed.
func hashIndex(i int, salt uint32) float32 {
	x := uint32(i)*0x9e3779b9 ^ salt*0x85ebca6b
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return float32(x>>8) / (1 << 24)
}
