package metaball

import (
	"math"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/metaball/gleval"
)

func TestNewFrameResolution(t *testing.T) {
	p := DefaultParams()
	nan := float32(math.NaN())
	for _, res := range []ms2.Vec{{}, {X: 100}, {X: 0.5, Y: 100}, {X: nan, Y: 10}, {X: 10, Y: float32(math.Inf(1))}} {
		if _, err := NewFrame(0, p, res, nil); err == nil {
			t.Errorf("resolution %v: expected error", res)
		}
	}
	if _, err := NewFrame(nan, p, ms2.Vec{X: 1, Y: 1}, nil); err != nil {
		t.Errorf("NaN time should be tolerated: %v", err)
	}
}

func TestFrameBalls(t *testing.T) {
	p := DefaultParams()
	res := ms2.Vec{X: 320, Y: 180}
	fr, err := NewFrame(1, p, res, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(fr.Balls()) != p.BallCount {
		t.Fatalf("want %d balls, got %d", p.BallCount, len(fr.Balls()))
	}
	if fr.Morph != (MorphState{}) {
		t.Errorf("expected first pattern hold at t=1, got %+v", fr.Morph)
	}
	want := AppendPositions(nil, p.Patterns[0], p.BallCount, 1, &fr.Params)
	for i, b := range fr.Balls() {
		if b != want[i] {
			t.Fatalf("ball %d: want %v, got %v", i, want[i], b)
		}
	}

	// Halfway through the first transition.
	fr, err = NewFrame(4, p, res, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fr.Morph.From != 0 || fr.Morph.To != 1 || absf(fr.Morph.Blend-0.5) > 1e-6 {
		t.Fatalf("unexpected morph state %+v", fr.Morph)
	}
	from := AppendPositions(nil, fr.Params.Patterns[0], p.BallCount, 4, &fr.Params)
	to := AppendPositions(nil, fr.Params.Patterns[1], p.BallCount, 4, &fr.Params)
	for i, b := range fr.Balls() {
		if w := lerp2(from[i], to[i], fr.Morph.Blend); b != w {
			t.Fatalf("ball %d: want %v, got %v", i, w, b)
		}
	}
}

func TestFrameSanitizesParams(t *testing.T) {
	p := DefaultParams()
	p.Size = float32(math.NaN())
	p.BallCount = 10 * MaxBalls
	p.Patterns = nil
	fr, err := NewFrame(0, p, ms2.Vec{X: 64, Y: 64}, nil)
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultParams()
	if fr.Params.Size != def.Size || fr.Params.BallCount != MaxBalls || len(fr.Params.Patterns) != len(def.Patterns) {
		t.Errorf("parameters not sanitized: %+v", fr.Params)
	}
}

func TestFramePixelToWorld(t *testing.T) {
	fr, err := NewFrame(0, DefaultParams(), ms2.Vec{X: 200, Y: 100}, nil)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		px, py float32
		want   ms2.Vec
	}{
		{px: 100, py: 50, want: ms2.Vec{}},
		{px: 0, py: 0, want: ms2.Vec{X: -2, Y: 1}},
		{px: 200, py: 100, want: ms2.Vec{X: 2, Y: -1}},
	}
	for _, test := range tests {
		if got := fr.PixelToWorld(test.px, test.py); got != test.want {
			t.Errorf("PixelToWorld(%v,%v): want %v, got %v", test.px, test.py, test.want, got)
		}
	}
}

func TestFrameWarp(t *testing.T) {
	p := DefaultParams()
	p.Distortion = 0.6
	p.VerticalDistortion = 2
	fr, err := NewFrame(2, p, ms2.Vec{X: 160, Y: 120}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fr.Warp.IsIdentity() {
		t.Fatal("expected active warp")
	}
	pts := []ms2.Vec{{}, {X: 0.3, Y: 0.4}, {X: -0.8, Y: -0.6}, {X: 1.2, Y: 0.9}}
	for _, pt := range pts {
		want := fr.Field().Sample(fr.Warp.Apply(pt))
		if got := fr.Sample(pt); got != want {
			t.Errorf("Sample(%v): want warped field value %v, got %v", pt, want, got)
		}
	}
	vp := fr.viewport()
	if bb := fr.Field2().Bounds(); bb != vp {
		t.Errorf("warped bounds: want viewport %v, got %v", vp, bb)
	}
}

func TestFrameField2(t *testing.T) {
	for _, distortion := range []float32{0, 0.4} {
		p := DefaultParams()
		p.Distortion = distortion
		fr, err := NewFrame(7.5, p, ms2.Vec{X: 64, Y: 48}, nil)
		if err != nil {
			t.Fatal(err)
		}
		var pos []ms2.Vec
		for py := 0; py < 48; py += 3 {
			for px := 0; px < 64; px += 3 {
				pos = append(pos, fr.PixelToWorld(float32(px)+0.5, float32(py)+0.5))
			}
		}
		vals := make([]float32, len(pos))
		var vp gleval.VecPool
		for _, userData := range []any{nil, &vp} {
			err = fr.Field2().Evaluate(pos, vals, userData)
			if err != nil {
				t.Fatal(err)
			}
			for i, pt := range pos {
				if want := fr.Sample(pt); vals[i] != want {
					t.Fatalf("distortion=%v at %v: Evaluate %v != Sample %v", distortion, pt, vals[i], want)
				}
			}
		}
		if err = vp.AssertAllReleased(); err != nil {
			t.Error(err)
		}
		grads := make([]ms2.Vec, len(pos))
		err = gleval.GradientsCentralDiff(fr.Field2(), pos, grads, fr.GradientStep(), &vp)
		if err != nil {
			t.Fatal(err)
		}
		for i, pt := range pos {
			if want := fr.Gradient(pt); grads[i] != want {
				t.Fatalf("distortion=%v at %v: batched gradient %v != %v", distortion, pt, grads[i], want)
			}
		}
	}
}

func TestFrameShade(t *testing.T) {
	p := DefaultParams()
	p.BallCount = 0
	fr, err := NewFrame(0, p, ms2.Vec{X: 32, Y: 32}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, pt := range []ms2.Vec{{}, {X: 0.5, Y: -0.5}} {
		if got := fr.Shade(pt); got != p.Background {
			t.Errorf("no balls: want background %v at %v, got %v", p.Background, pt, got)
		}
	}
	p = DefaultParams()
	p.BallCount = 1
	p.Size = 0.3
	p.Patterns = []Pattern{PatternStar}
	p.Speed = 0
	fr, err = NewFrame(0, p, ms2.Vec{X: 32, Y: 32}, nil)
	if err != nil {
		t.Fatal(err)
	}
	center := fr.Balls()[0]
	if got := fr.Shade(center); got == p.Background {
		t.Errorf("ball center shaded as background")
	}
	if got, want := fr.Shade(center), fr.ShadeSample(fr.Sample(center), fr.Gradient(center), center); got != want {
		t.Errorf("Shade %v != ShadeSample %v", got, want)
	}
}

func TestFrameSingleBallInsideOutside(t *testing.T) {
	p := DefaultParams()
	p.BallCount = 1
	p.Size = 0.2
	p.Patterns = []Pattern{PatternCluster}
	p.Distortion = 0
	fr, err := NewFrame(0, p, ms2.Vec{X: 64, Y: 64}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ball := fr.Balls()[0]
	in := fr.Sample(ball)
	if in <= fr.Params.Threshold {
		t.Errorf("field at ball %v should exceed threshold %v", in, fr.Params.Threshold)
	}
	if absf(in-0.2) > 1e-6 {
		t.Errorf("field at ball: want radius 0.2, got %v", in)
	}
	far := ms2.Add(ball, ms2.Vec{X: 10 * fr.Field().InfluenceRadius()})
	if out := fr.Sample(far); out >= fr.Params.Threshold {
		t.Errorf("field far away %v should be below threshold %v", out, fr.Params.Threshold)
	}
	if got := fr.Shade(far); got != clampColor(fr.Params.Background) {
		t.Errorf("far point not shaded as background: %v", got)
	}
}

func TestFrameHoldWithoutTransition(t *testing.T) {
	p := DefaultParams()
	p.Hold = 10
	p.Transition = 0
	p.MorphSpeed = 1
	p.Patterns = []Pattern{PatternCluster, PatternStar}
	fr, err := NewFrame(10.5, p, ms2.Vec{X: 64, Y: 64}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := (MorphState{From: 1, To: 1}); fr.Morph != want {
		t.Fatalf("want morph state %+v, got %+v", want, fr.Morph)
	}
	want := AppendPositions(nil, PatternStar, fr.Params.BallCount, 10.5, &fr.Params)
	for i, b := range fr.Balls() {
		if b != want[i] {
			t.Fatalf("ball %d: want star position %v, got %v", i, want[i], b)
		}
	}
}
