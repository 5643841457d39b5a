package metaball

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/soypat/geometry/ms3"
)

func TestEquirectRoundTrip(t *testing.T) {
	const tol = 1e-5
	u, v := equirectUV(ms3.Vec{Z: -1})
	if absf(u-0.5) > tol || absf(v-0.5) > tol {
		t.Errorf("forward should map to the center, got %v %v", u, v)
	}
	if _, v = equirectUV(ms3.Vec{Y: 1}); absf(v) > tol {
		t.Errorf("up should map to the top row, got v=%v", v)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		d := ms3.Unit(ms3.Vec{X: 2*rng.Float32() - 1, Y: 1.8*rng.Float32() - 0.9, Z: 2*rng.Float32() - 1})
		if absf(d.Y) > 0.95 {
			continue // Longitude is ill conditioned at the poles.
		}
		got := equirectDir(equirectUV(d))
		if ms3.Norm(ms3.Sub(got, d)) > 10*tol {
			t.Fatalf("round trip of %v gave %v", d, got)
		}
	}
}

func TestBakeUniform(t *testing.T) {
	c := ms3.Vec{X: 0.1, Y: 0.5, Z: 0.9}
	m, err := BakeEnvMap(UniformEnvMap(c), 16, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i, tx := range m.Texels {
		if tx != c {
			t.Fatalf("texel %d: want %v, got %v", i, c, tx)
		}
	}
	for _, d := range []ms3.Vec{{X: 1}, {Y: 1}, {Y: -1}, {X: -0.3, Y: 0.2, Z: -0.9}, {}} {
		if got := m.Sample(d); ms3.Norm(ms3.Sub(got, c)) > 1e-6 {
			t.Errorf("Sample(%v): want %v, got %v", d, c, got)
		}
	}
	img := m.Image()
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("unexpected image size %v", img.Bounds())
	}
	if got, want := img.RGBAAt(3, 5), RGBA8(c); got != want {
		t.Errorf("image pixel: want %v, got %v", want, got)
	}
	if _, err = BakeEnvMap(nil, 4, 4); err == nil {
		t.Error("expected error baking nil map")
	}
	if _, err = BakeEnvMap(UniformEnvMap(c), 0, 4); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestImageEnvMap(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 6, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 6; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 51, G: 102, B: 204, A: 255})
		}
	}
	m, err := NewImageEnvMap(src, 12, 6)
	if err != nil {
		t.Fatal(err)
	}
	if m.Width != 12 || m.Height != 6 || len(m.Texels) != 72 {
		t.Fatalf("unexpected map dimensions %dx%d (%d texels)", m.Width, m.Height, len(m.Texels))
	}
	want := ms3.Vec{X: 0.2, Y: 0.4, Z: 0.8}
	for i, tx := range m.Texels {
		if ms3.Norm(ms3.Sub(tx, want)) > 1e-2 {
			t.Fatalf("texel %d: want %v, got %v", i, want, tx)
		}
	}
	m, err = NewImageEnvMap(src, 0, 0)
	if err != nil || m.Width != 6 || m.Height != 3 {
		t.Errorf("zero size should keep image size, got %v %v", m, err)
	}
	if _, err = NewImageEnvMap(nil, 4, 4); err == nil {
		t.Error("expected error for nil image")
	}
	if _, err = NewImageEnvMap(image.NewRGBA(image.Rectangle{}), 0, 0); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestSkyEnvMap(t *testing.T) {
	sky := NewSkyEnvMap(7)
	if got := sky.Sample(ms3.Vec{Y: -1}); got != sky.Ground {
		t.Errorf("straight down: want ground %v, got %v", sky.Ground, got)
	}
	if got := sky.Sample(ms3.Vec{}); got != sky.Horizon {
		t.Errorf("zero direction: want horizon %v, got %v", sky.Horizon, got)
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		d := ms3.Vec{X: 2*rng.Float32() - 1, Y: 2*rng.Float32() - 1, Z: 2*rng.Float32() - 1}
		c := sky.Sample(d)
		for _, v := range []float32{c.X, c.Y, c.Z} {
			if !(v >= 0 && v <= 1) {
				t.Fatalf("Sample(%v) = %v out of range", d, c)
			}
		}
		if c2 := NewSkyEnvMap(7).Sample(d); c2 != c {
			t.Fatalf("same seed gave different colors: %v %v", c, c2)
		}
	}
}
