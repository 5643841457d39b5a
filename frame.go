package metaball

import (
	"errors"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/metaball/gleval"
)

// FrameAmbient is the ambient light share of the lit base color.
const FrameAmbient = 0.25

var errInvalidResolution = errors.New("resolution must be finite and at least one pixel in each dimension")

// Frame is the read-only snapshot of everything needed to color one frame:
// sanitized parameters, morph state, ball positions, the field and the shader.
// It is computed once per frame on a single goroutine and then shared by all
// pixel workers.
type Frame struct {
	Time       float32
	Params     Params
	Morph      MorphState
	Resolution ms2.Vec
	Warp       Warp

	field  *Field
	shader Shader
	step   float32
}

// NewFrame builds the frame at elapsed time t seconds for a viewport of res pixels.
// Parameters are sanitized silently; use [Params.Sanitize] to learn what was corrected.
// env is the reflection environment, nil uses a uniform gray.
// The only error is an invalid resolution.
func NewFrame(t float32, p Params, res ms2.Vec, env EnvMap) (*Frame, error) {
	if !isFinite(res.X) || !isFinite(res.Y) || res.X < 1 || res.Y < 1 {
		return nil, errInvalidResolution
	}
	if !isFinite(t) {
		t = 0
	}
	p, _ = p.Sanitize()
	easeFn, _ := EasingFunc(p.Easing)
	sched := Schedule{
		Hold:       p.Hold,
		Transition: p.Transition,
		Patterns:   len(p.Patterns),
		Ease:       easeFn,
	}
	st := sched.State(t * p.MorphSpeed)
	balls := AppendPositions(nil, p.Patterns[st.From], p.BallCount, t, &p)
	if st.Blend > 0 {
		to := AppendPositions(nil, p.Patterns[st.To], p.BallCount, t, &p)
		balls = Lerp(balls, balls, to, st.Blend)
	}

	edge := p.edgeWidth(res.Y)
	// Half a pixel: the viewport spans 2 units over res.Y pixels.
	step := maxf(1/res.Y, 1e-4)
	// The field must be exact wherever coverage or the gradient stencil can see it.
	// Warp may stretch the stencil up to 1/MinWidthScale times.
	reach := absf(p.Threshold) + 2*edge + 2*step/MinWidthScale + 0.01
	f := &Frame{
		Time:       t,
		Params:     p,
		Morph:      st,
		Resolution: res,
		Warp:       Warp{Strength: p.Distortion, Vertical: p.VerticalDistortion},
		field: NewField(balls, FieldConfig{
			Radius:     p.Size,
			Smoothness: p.Smoothness,
			Reach:      reach,
		}),
		shader: Shader{
			Env:                 env,
			Base:                p.BaseColor,
			Background:          p.Background,
			Threshold:           p.Threshold,
			Radius:              p.Size,
			EdgeWidth:           edge,
			ReflectionIntensity: p.ReflectionIntensity,
			NormalStrength:      p.NormalStrength,
			Camera:              p.Camera,
			Ambient:             FrameAmbient,
		},
		step: step,
	}
	return f, nil
}

// Balls returns the ball positions of the frame. The slice must not be modified.
func (f *Frame) Balls() []ms2.Vec { return f.field.Balls() }

// Field returns the unwarped field of the frame.
func (f *Frame) Field() *Field { return f.field }

// Shader returns the frame's shader.
func (f *Frame) Shader() *Shader { return &f.shader }

// GradientStep returns the central difference step used for normals, in viewport units.
func (f *Frame) GradientStep() float32 { return f.step }

// PixelToWorld maps pixel coordinates (origin top left, y down) to the
// aspect-correct viewport: y spans [-1,1] upward and x spans ±width/height.
func (f *Frame) PixelToWorld(px, py float32) ms2.Vec {
	w, h := f.Resolution.X, f.Resolution.Y
	return ms2.Vec{
		X: (2*px - w) / h,
		Y: (h - 2*py) / h,
	}
}

// Sample returns the warped field value at viewport point p.
func (f *Frame) Sample(p ms2.Vec) float32 {
	if !f.Warp.IsIdentity() {
		p = f.Warp.Apply(p)
	}
	return f.field.Sample(p)
}

// Gradient returns the central difference gradient of [Frame.Sample] at p.
func (f *Frame) Gradient(p ms2.Vec) ms2.Vec {
	h := f.step
	inv := 1 / (2 * h)
	dx := f.Sample(ms2.Add(p, ms2.Vec{X: h})) - f.Sample(ms2.Sub(p, ms2.Vec{X: h}))
	dy := f.Sample(ms2.Add(p, ms2.Vec{Y: h})) - f.Sample(ms2.Sub(p, ms2.Vec{Y: h}))
	return ms2.Vec{X: dx * inv, Y: dy * inv}
}

// Shade returns the color at viewport point p.
func (f *Frame) Shade(p ms2.Vec) ms3.Vec {
	v := f.Sample(p)
	if f.shader.Coverage(v) <= 0 {
		// Skip the gradient, it cannot affect the background.
		return clampColor(f.shader.Background)
	}
	return f.shader.Shade(v, f.Gradient(p), p)
}

// ShadeSample colors p from a precomputed field value and gradient, as done
// by batched renderers. It equals [Frame.Shade] when v and grad come from
// [Frame.Sample] and [Frame.Gradient].
func (f *Frame) ShadeSample(v float32, grad, p ms2.Vec) ms3.Vec {
	return f.shader.Shade(v, grad, p)
}

// Field2 returns the warped field in batched form for [gleval] consumers.
func (f *Frame) Field2() gleval.Field2 {
	return &warpedField{field: f.field, warp: f.Warp, viewport: f.viewport()}
}

func (f *Frame) viewport() ms2.Box {
	ar := f.Resolution.X / f.Resolution.Y
	return ms2.Box{Min: ms2.Vec{X: -ar, Y: -1}, Max: ms2.Vec{X: ar, Y: 1}}
}

// warpedField evaluates a field at warped positions.
type warpedField struct {
	field    *Field
	warp     Warp
	viewport ms2.Box
}

func (w *warpedField) Evaluate(pos []ms2.Vec, vals []float32, userData any) error {
	if w.warp.IsIdentity() {
		return w.field.Evaluate(pos, vals, userData)
	}
	vp, err := gleval.GetVecPool(userData)
	var aux []ms2.Vec
	if err == nil {
		aux = vp.V2.Acquire(len(pos))
		defer vp.V2.Release(aux)
	} else {
		aux = make([]ms2.Vec, len(pos))
	}
	for i, p := range pos {
		aux[i] = w.warp.Apply(p)
	}
	return w.field.Evaluate(aux, vals, userData)
}

// Bounds returns the field bounds, or the viewport when the warp is active
// since the warp has no inverse to map field bounds back.
func (w *warpedField) Bounds() ms2.Box {
	if w.warp.IsIdentity() {
		return w.field.Bounds()
	}
	return w.viewport
}
