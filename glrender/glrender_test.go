package glrender

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/metaball"
)

func newTestFrame(t *testing.T, tm float32, w, h int, distortion float32) *metaball.Frame {
	t.Helper()
	p := metaball.DefaultParams()
	p.BallCount = 60
	p.Size = 0.08
	p.Distortion = distortion
	fr, err := metaball.NewFrame(tm, p, ms2.Vec{X: float32(w), Y: float32(h)}, metaball.NewSkyEnvMap(1))
	if err != nil {
		t.Fatal(err)
	}
	return fr
}

func TestImageRendererMatchesFrame(t *testing.T) {
	const w, h = 48, 32
	for _, workers := range []int{1, 3} {
		for _, tm := range []float32{0.5, 4} {
			fr := newTestFrame(t, tm, w, h, 0.3)
			ir := NewImageRenderer(workers)
			if ir.Workers() != workers {
				t.Fatalf("want %d workers, got %d", workers, ir.Workers())
			}
			img := image.NewRGBA(image.Rect(0, 0, w, h))
			err := ir.Render(context.Background(), fr, img)
			if err != nil {
				t.Fatal(err)
			}
			covered := 0
			bg := metaball.RGBA8(fr.Params.Background)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					p := fr.PixelToWorld(float32(x)+0.5, float32(y)+0.5)
					want := metaball.RGBA8(fr.Shade(p))
					got := img.RGBAAt(x, y)
					if got != want {
						t.Fatalf("workers=%d t=%v pixel (%d,%d): want %v, got %v", workers, tm, x, y, want, got)
					}
					if got != bg {
						covered++
					}
				}
			}
			if covered == 0 {
				t.Errorf("t=%v: no pixel covered by balls", tm)
			}
		}
	}
}

func TestImageRendererErrors(t *testing.T) {
	fr := newTestFrame(t, 0, 16, 16, 0)
	ir := NewImageRenderer(2)
	err := ir.Render(context.Background(), fr, image.NewRGBA(image.Rect(0, 0, 16, 8)))
	if err == nil {
		t.Error("expected size mismatch error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ir.Render(ctx, fr, image.NewRGBA(image.Rect(0, 0, 16, 16)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if err = ir.Render(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil frame")
	}
	if NewImageRenderer(0).Workers() < 1 {
		t.Error("default renderer has no workers")
	}
}

func TestFieldRenderer(t *testing.T) {
	const w, h = 40, 20
	fr := newTestFrame(t, 1, w, h, 0)
	rend, err := NewFieldRenderer(w, nil)
	if err == nil {
		t.Fatal("expected error for small evaluation buffer")
	}
	rend, err = NewFieldRenderer(4*w, nil)
	if err != nil {
		t.Fatal(err)
	}
	field := fr.Field2()
	bb := ms2.Box{Min: ms2.Vec{X: -2, Y: -1}, Max: ms2.Vec{X: 2, Y: 1}}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	err = rend.RenderBox(field, bb, img, nil)
	if err != nil {
		t.Fatal(err)
	}
	dx, dy := float32(4)/w, float32(2)/h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := ms2.Vec{X: bb.Min.X + dx/2 + float32(x)*dx, Y: bb.Max.Y - (float32(y)+0.5)*dy}
			want := color.RGBAModel.Convert(color.Black).(color.RGBA)
			if fr.Sample(p) > 0 {
				want = color.RGBAModel.Convert(color.White).(color.RGBA)
			}
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) at %v: want %v, got %v", x, y, p, want, got)
			}
		}
	}
	err = rend.RenderBox(field, ms2.Box{}, img, nil)
	if err == nil {
		t.Error("expected error for empty region")
	}
	err = rend.Render(field, image.NewRGBA(image.Rect(0, 0, 8*w, 4)), nil)
	if err == nil {
		t.Error("expected error for rows wider than the buffer")
	}
}
