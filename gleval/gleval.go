// Package gleval evaluates 2D scalar fields in batches, on the CPU or on the
// GPU through OpenGL compute shaders, and derives gradients from them.
package gleval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms2"
)

// Field2 is a 2D scalar field evaluated in vectorized form so that the same
// interface serves CPU and GPU implementations.
type Field2 interface {
	// Evaluate evaluates the field over pos positions and stores the result in vals.
	// vals and pos must be of same length.
	//
	// userData facilitates getting data to the evaluators for use in processing, such as [VecPool].
	Evaluate(pos []ms2.Vec, vals []float32, userData any) error
	// Bounds returns the box outside of which the field is at its floor value.
	Bounds() ms2.Box
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and value buffer length mismatch")
)

// GradientsCentralDiff computes the field gradient at each position with central
// differences of half width step and stores them in grads. A VecPool
// must be passed in userData to provide scratch buffers.
func GradientsCentralDiff(f Field2, pos []ms2.Vec, grads []ms2.Vec, step float32, userData any) error {
	if step <= 0 || step != step {
		return errors.New("invalid step")
	} else if len(pos) != len(grads) {
		return errors.New("length of position must match length of gradients")
	} else if f == nil {
		return errors.New("nil Field2")
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	vp, err := GetVecPool(userData)
	if err != nil {
		return fmt.Errorf("VecPool required for gradient calculation: %w", err)
	}
	d1 := vp.Float.Acquire(len(pos))
	d2 := vp.Float.Acquire(len(pos))
	auxPos := vp.V2.Acquire(len(pos))
	defer vp.Float.Release(d1)
	defer vp.Float.Release(d2)
	defer vp.V2.Release(auxPos)
	inv := 1 / (2 * step)
	var offsets = [2]ms2.Vec{{X: step}, {Y: step}}
	for dim, h := range offsets {
		for i, p := range pos {
			auxPos[i] = ms2.Add(p, h)
		}
		err = f.Evaluate(auxPos, d1, userData)
		if err != nil {
			return err
		}
		for i, p := range pos {
			auxPos[i] = ms2.Sub(p, h)
		}
		err = f.Evaluate(auxPos, d2, userData)
		if err != nil {
			return err
		}
		if dim == 0 {
			for i, d := range d1 {
				grads[i].X = (d - d2[i]) * inv
			}
		} else {
			for i, d := range d1 {
				grads[i].Y = (d - d2[i]) * inv
			}
		}
	}
	return nil
}
