package metaball

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// MaxBalls bounds the ball count so per-pixel cost stays bounded.
const MaxBalls = 500

// LemniscateParams shape the figure-eight pattern.
type LemniscateParams struct {
	Scale  float32
	ScaleX float32
	ScaleY float32
}

// StarParams shape the star polygon pattern. Points is the number of star
// tips k; the outline alternates between Outer and Inner radius over 2k angles.
type StarParams struct {
	Points   int
	Inner    float32
	Outer    float32
	Rotation float32 // radians
	Scale    float32
}

// BlobParams shape the asymmetric blob outline.
type BlobParams struct {
	Scale       float32
	TopWidth    float32
	BottomWidth float32
	Offset      float32 // vertical center offset in viewport units.
	Asymmetry   float32 // 0 is a circle, 1 applies the full width multipliers.
}

// Params is the complete parameter set for one frame. It is a plain value:
// copying it yields an independent snapshot once [Params.Sanitize] has cloned
// the Patterns slice.
type Params struct {
	BallCount  int
	Speed      float32 // ball motion speed.
	Spread     float32 // pattern extent and ball spacing.
	Size       float32 // ball radius in viewport units.
	Complexity float32 // harmonic content of cluster orbits.
	Smoothness float32 // smooth minimum blend width.
	Threshold  float32 // field value above which a point is inside.
	EdgeWidth  float32 // anti-aliasing half width in field units. Zero picks 1.5 pixels.

	MorphSpeed float32 // scales elapsed time fed to the morph schedule.
	Hold       float32 // seconds each pattern is held.
	Transition float32 // seconds spent morphing to the next pattern.
	Easing     string  // name of the transition easing curve, see [EasingNames].
	Patterns   []Pattern

	Distortion         float32
	VerticalDistortion float32

	Lemniscate LemniscateParams
	Star       StarParams
	Blob       BlobParams

	BaseColor           ms3.Vec // RGB in [0,1].
	Background          ms3.Vec // RGB in [0,1].
	ReflectionIntensity float32
	NormalStrength      float32
	Camera              ms3.Vec
}

// DefaultParams returns a parameter set that renders all four patterns in order.
func DefaultParams() Params {
	return Params{
		BallCount:  250,
		Speed:      0.8,
		Spread:     0.95,
		Size:       0.04,
		Complexity: 1.5,
		Smoothness: 0.1,
		Threshold:  0,
		MorphSpeed: 1,
		Hold:       3,
		Transition: 2,
		Easing:     "inOutCubic",
		Patterns:   []Pattern{PatternCluster, PatternLemniscate, PatternBlob, PatternStar},

		Distortion:         0,
		VerticalDistortion: 1,

		Lemniscate: LemniscateParams{Scale: 0.8, ScaleX: 1, ScaleY: 1},
		Star:       StarParams{Points: 5, Inner: 0.35, Outer: 0.8, Scale: 1},
		Blob:       BlobParams{Scale: 0.65, TopWidth: 1.2, BottomWidth: 0.8, Offset: 0.05, Asymmetry: 0.6},

		BaseColor:           ms3.Vec{X: 1, Y: 1, Z: 1},
		Background:          ms3.Vec{X: 0.02, Y: 0.02, Z: 0.03},
		ReflectionIntensity: 0.6,
		NormalStrength:      1,
		Camera:              ms3.Vec{Z: 2.5},
	}
}

// Sanitize returns a copy of p with every field clamped to its supported range
// and non-finite values replaced by defaults. The returned Params is always
// safe to render. The error, if non-nil, joins one entry per corrected field.
func (p Params) Sanitize() (Params, error) {
	def := DefaultParams()
	var errs []error
	fix := func(name string, v *float32, Min, Max, dflt float32) {
		switch {
		case !isFinite(*v):
			errs = append(errs, fmt.Errorf("%s: non-finite value %v, using %v", name, *v, dflt))
			*v = dflt
		case *v < Min || *v > Max:
			errs = append(errs, fmt.Errorf("%s: %v outside [%v,%v]", name, *v, Min, Max))
			*v = clampf(*v, Min, Max)
		}
	}
	if p.BallCount < 0 || p.BallCount > MaxBalls {
		errs = append(errs, fmt.Errorf("ball count %d outside [0,%d]", p.BallCount, MaxBalls))
		p.BallCount = min(max(p.BallCount, 0), MaxBalls)
	}
	fix("speed", &p.Speed, 0, 10, def.Speed)
	fix("spread", &p.Spread, 0.1, 1.5, def.Spread)
	fix("size", &p.Size, 0.001, 0.5, def.Size)
	fix("complexity", &p.Complexity, 0.5, 3, def.Complexity)
	fix("smoothness", &p.Smoothness, 0, 1, def.Smoothness)
	fix("threshold", &p.Threshold, -0.5, 0.5, def.Threshold)
	fix("edge width", &p.EdgeWidth, 0, 0.5, def.EdgeWidth)
	fix("morph speed", &p.MorphSpeed, 0, 10, def.MorphSpeed)
	fix("hold", &p.Hold, 0, 3600, def.Hold)
	fix("transition", &p.Transition, 0, 3600, def.Transition)
	fix("distortion", &p.Distortion, 0, 1, def.Distortion)
	fix("vertical distortion", &p.VerticalDistortion, 0, 4, def.VerticalDistortion)

	fix("lemniscate scale", &p.Lemniscate.Scale, 0.05, 2, def.Lemniscate.Scale)
	fix("lemniscate x scale", &p.Lemniscate.ScaleX, 0.1, 3, def.Lemniscate.ScaleX)
	fix("lemniscate y scale", &p.Lemniscate.ScaleY, 0.1, 3, def.Lemniscate.ScaleY)

	if p.Star.Points < 2 || p.Star.Points > 12 {
		errs = append(errs, fmt.Errorf("star points %d outside [2,12]", p.Star.Points))
		p.Star.Points = min(max(p.Star.Points, 2), 12)
	}
	fix("star inner radius", &p.Star.Inner, 0.05, 1.5, def.Star.Inner)
	fix("star outer radius", &p.Star.Outer, 0.05, 1.5, def.Star.Outer)
	fix("star rotation", &p.Star.Rotation, -largenum, largenum, def.Star.Rotation)
	p.Star.Rotation = math32.Mod(p.Star.Rotation, tau)
	fix("star scale", &p.Star.Scale, 0.05, 2, def.Star.Scale)

	fix("blob scale", &p.Blob.Scale, 0.05, 2, def.Blob.Scale)
	fix("blob top width", &p.Blob.TopWidth, 0.1, 3, def.Blob.TopWidth)
	fix("blob bottom width", &p.Blob.BottomWidth, 0.1, 3, def.Blob.BottomWidth)
	fix("blob offset", &p.Blob.Offset, -1, 1, def.Blob.Offset)
	fix("blob asymmetry", &p.Blob.Asymmetry, 0, 1, def.Blob.Asymmetry)

	fix("base color red", &p.BaseColor.X, 0, 1, def.BaseColor.X)
	fix("base color green", &p.BaseColor.Y, 0, 1, def.BaseColor.Y)
	fix("base color blue", &p.BaseColor.Z, 0, 1, def.BaseColor.Z)
	fix("background red", &p.Background.X, 0, 1, def.Background.X)
	fix("background green", &p.Background.Y, 0, 1, def.Background.Y)
	fix("background blue", &p.Background.Z, 0, 1, def.Background.Z)
	fix("reflection intensity", &p.ReflectionIntensity, 0, 1, def.ReflectionIntensity)
	fix("normal strength", &p.NormalStrength, 0, 8, def.NormalStrength)
	fix("camera x", &p.Camera.X, -100, 100, def.Camera.X)
	fix("camera y", &p.Camera.Y, -100, 100, def.Camera.Y)
	fix("camera z", &p.Camera.Z, 0.1, 100, def.Camera.Z)

	if _, ok := EasingFunc(p.Easing); !ok {
		errs = append(errs, fmt.Errorf("unknown easing %q, using %q", p.Easing, def.Easing))
		p.Easing = def.Easing
	}

	patterns := make([]Pattern, 0, len(p.Patterns))
	for _, pat := range p.Patterns {
		if !pat.IsValid() {
			errs = append(errs, fmt.Errorf("dropping invalid pattern %d", pat))
			continue
		}
		patterns = append(patterns, pat)
	}
	if len(patterns) == 0 {
		if len(p.Patterns) == 0 {
			errs = append(errs, errors.New("no patterns, using defaults"))
		}
		patterns = slices.Clone(def.Patterns)
	}
	p.Patterns = patterns
	return p, errors.Join(errs...)
}

// edgeWidth returns the anti-aliasing half width for a viewport that is
// height pixels tall.
func (p *Params) edgeWidth(height float32) float32 {
	if p.EdgeWidth > 0 {
		return p.EdgeWidth
	}
	// Viewport spans 2 units vertically.
	return 1.5 * 2 / maxf(height, 1)
}
