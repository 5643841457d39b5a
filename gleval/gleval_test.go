package gleval

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// planeField is the linear field a·p + c.
type planeField struct {
	a ms2.Vec
	c float32
}

func (pf *planeField) Evaluate(pos []ms2.Vec, vals []float32, userData any) error {
	if len(pos) != len(vals) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		vals[i] = ms2.Dot(pf.a, p) + pf.c
	}
	return nil
}

func (pf *planeField) Bounds() ms2.Box {
	return ms2.Box{Min: ms2.Vec{X: -1, Y: -1}, Max: ms2.Vec{X: 1, Y: 1}}
}

func TestGradientsCentralDiff(t *testing.T) {
	const tol = 1e-3
	f := &planeField{a: ms2.Vec{X: 2, Y: -3}, c: 0.5}
	var pos []ms2.Vec
	for y := float32(-1); y <= 1; y += 0.25 {
		for x := float32(-1); x <= 1; x += 0.25 {
			pos = append(pos, ms2.Vec{X: x, Y: y})
		}
	}
	grads := make([]ms2.Vec, len(pos))
	var vp VecPool
	err := GradientsCentralDiff(f, pos, grads, 0.01, &vp)
	if err != nil {
		t.Fatal(err)
	}
	for i, g := range grads {
		if math32.Abs(g.X-f.a.X) > tol || math32.Abs(g.Y-f.a.Y) > tol {
			t.Fatalf("gradient at %v: want %v, got %v", pos[i], f.a, g)
		}
	}
	if err = vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

func TestGradientsCentralDiffErrors(t *testing.T) {
	f := &planeField{}
	pos := make([]ms2.Vec, 4)
	var vp VecPool
	tests := []struct {
		name  string
		f     Field2
		pos   []ms2.Vec
		grads []ms2.Vec
		step  float32
		ud    any
	}{
		{name: "no VecPool", f: f, pos: pos, grads: make([]ms2.Vec, 4), step: 0.1, ud: nil},
		{name: "zero step", f: f, pos: pos, grads: make([]ms2.Vec, 4), step: 0, ud: &vp},
		{name: "length mismatch", f: f, pos: pos, grads: make([]ms2.Vec, 3), step: 0.1, ud: &vp},
		{name: "nil field", f: nil, pos: pos, grads: make([]ms2.Vec, 4), step: 0.1, ud: &vp},
		{name: "empty", f: f, pos: nil, grads: nil, step: 0.1, ud: &vp},
	}
	for _, test := range tests {
		if err := GradientsCentralDiff(test.f, test.pos, test.grads, test.step, test.ud); err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}

type poolHolder struct{ vp VecPool }

func (h *poolHolder) VecPool() *VecPool { return &h.vp }

func TestVecPool(t *testing.T) {
	var h poolHolder
	vp, err := GetVecPool(&h)
	if err != nil || vp != &h.vp {
		t.Fatalf("VecPool method not used: %v", err)
	}
	if _, err = GetVecPool(42); err == nil {
		t.Error("expected error for userData without a pool")
	}
	if _, err = GetVecPool((*VecPool)(nil)); err == nil {
		t.Error("expected error for nil pool")
	}

	a := vp.Float.Acquire(16)
	b := vp.Float.Acquire(8)
	if len(a) != 16 || len(b) != 8 {
		t.Fatalf("unexpected lengths %d %d", len(a), len(b))
	}
	if &a[0] == &b[0] {
		t.Fatal("two acquired buffers share memory")
	}
	if err = vp.AssertAllReleased(); err == nil {
		t.Error("expected unreleased buffer error")
	}
	if err = vp.Float.Release(a); err != nil {
		t.Fatal(err)
	}
	if err = vp.Float.Release(a); err == nil {
		t.Error("expected double release error")
	}
	if err = vp.Float.Release(make([]float32, 4)); err == nil {
		t.Error("expected error releasing foreign buffer")
	}
	// Released buffers are reused.
	c := vp.Float.Acquire(10)
	if &c[0] != &a[0] {
		t.Error("released buffer was not reused")
	}
	vp.Float.Release(b)
	vp.Float.Release(c)
	v := vp.V2.Acquire(3)
	vp.V2.Release(v)
	if err = vp.AssertAllReleased(); err != nil {
		t.Error(err)
	}
}

func TestFieldComputeSetField(t *testing.T) {
	var fc FieldCompute
	balls := []ms2.Vec{{X: 1}, {Y: 2}}
	u := FieldUniforms{Size: 0.1, Smoothness: 0.2, Floor: 0.5, Warp: ms2.Vec{X: 0.3, Y: 1}}
	bb := ms2.Box{Min: ms2.Vec{X: -1, Y: -1}, Max: ms2.Vec{X: 2, Y: 3}}
	fc.SetField(balls, u, bb)
	balls[0] = ms2.Vec{X: 99}
	got := fc.Balls()
	if len(got) != 2 || got[0] != (ms2.Vec{X: 1}) || got[1] != (ms2.Vec{Y: 2}) {
		t.Errorf("SetField did not copy balls: %v", got)
	}
	got[1] = ms2.Vec{}
	if fc.Balls()[1] != (ms2.Vec{Y: 2}) {
		t.Error("Balls returned internal slice")
	}
	if fc.Bounds() != bb {
		t.Errorf("want bounds %v, got %v", bb, fc.Bounds())
	}
}
