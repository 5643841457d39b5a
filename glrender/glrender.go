// Package glrender rasterizes metaball frames and scalar fields into images on the CPU.
package glrender

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/metaball"
	"github.com/soypat/metaball/gleval"
	"golang.org/x/sync/errgroup"
)

// ImageRenderer renders [metaball.Frame]s with a fixed number of worker
// goroutines. Each worker owns its scratch buffers; the frame is shared read-only.
type ImageRenderer struct {
	workers []rowWorker
}

type rowWorker struct {
	vp    gleval.VecPool
	pos   []ms2.Vec
	vals  []float32
	sub   []ms2.Vec
	grads []ms2.Vec
	idx   []int
}

// NewImageRenderer returns a renderer with the given number of workers.
// A non-positive count uses GOMAXPROCS.
func NewImageRenderer(workers int) *ImageRenderer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ImageRenderer{workers: make([]rowWorker, workers)}
}

// Workers returns the number of worker goroutines used per render.
func (ir *ImageRenderer) Workers() int { return len(ir.workers) }

// Render colors every pixel of img from fr. The image size must match the
// frame resolution. Rows are interleaved across workers and the first error
// or context cancellation stops the render. Render must not be called concurrently.
func (ir *ImageRenderer) Render(ctx context.Context, fr *metaball.Frame, img *image.RGBA) error {
	if fr == nil || img == nil {
		return errors.New("nil frame or image")
	}
	bb := img.Bounds()
	if float32(bb.Dx()) != fr.Resolution.X || float32(bb.Dy()) != fr.Resolution.Y {
		return fmt.Errorf("image size %dx%d does not match frame resolution %vx%v", bb.Dx(), bb.Dy(), fr.Resolution.X, fr.Resolution.Y)
	}
	field := fr.Field2()
	g, ctx := errgroup.WithContext(ctx)
	nw := len(ir.workers)
	for w := range ir.workers {
		w := w
		worker := &ir.workers[w]
		g.Go(func() error {
			for row := w; row < bb.Dy(); row += nw {
				if err := ctx.Err(); err != nil {
					return err
				}
				err := worker.renderRow(fr, field, img, row)
				if err != nil {
					return fmt.Errorf("row %d: %w", row, err)
				}
			}
			return worker.vp.AssertAllReleased()
		})
	}
	return g.Wait()
}

func (rw *rowWorker) renderRow(fr *metaball.Frame, field gleval.Field2, img *image.RGBA, row int) error {
	bb := img.Bounds()
	width := bb.Dx()
	rw.pos = grow(rw.pos, width)
	rw.vals = grow(rw.vals, width)
	y := float32(row) + 0.5
	for i := range rw.pos {
		rw.pos[i] = fr.PixelToWorld(float32(i)+0.5, y)
	}
	err := field.Evaluate(rw.pos, rw.vals, &rw.vp)
	if err != nil {
		return err
	}
	// Gradients are only needed where the surface covers the pixel.
	shader := fr.Shader()
	rw.idx = rw.idx[:0]
	rw.sub = rw.sub[:0]
	for i, v := range rw.vals {
		if shader.Coverage(v) > 0 {
			rw.idx = append(rw.idx, i)
			rw.sub = append(rw.sub, rw.pos[i])
		}
	}
	rw.grads = grow(rw.grads, len(rw.sub))
	if len(rw.sub) > 0 {
		err = gleval.GradientsCentralDiff(field, rw.sub, rw.grads, fr.GradientStep(), &rw.vp)
		if err != nil {
			return err
		}
	}
	next := 0
	off := img.PixOffset(bb.Min.X, bb.Min.Y+row)
	for i, v := range rw.vals {
		var grad ms2.Vec
		if next < len(rw.idx) && rw.idx[next] == i {
			grad = rw.grads[next]
			next++
		}
		c := metaball.RGBA8(fr.ShadeSample(v, grad, rw.pos[i]))
		pix := img.Pix[off+4*i : off+4*i+4 : off+4*i+4]
		pix[0], pix[1], pix[2], pix[3] = c.R, c.G, c.B, c.A
	}
	return nil
}

func grow[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
