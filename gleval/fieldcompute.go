package gleval

import (
	"slices"

	"github.com/soypat/geometry/ms2"
)

// FieldUniforms are the scalar inputs of the GPU field program.
type FieldUniforms struct {
	Size       float32 // ball radius.
	Smoothness float32
	// Floor is the distance the smooth minimum fold starts from. The field
	// never evaluates below -Floor.
	Floor float32
	// Warp holds the distortion strength in X and the vertical bend factor in Y.
	Warp ms2.Vec
}

// SetField sets the balls and uniforms of the next evaluations. balls is copied.
func (fc *FieldCompute) SetField(balls []ms2.Vec, u FieldUniforms, bounds ms2.Box) {
	fc.balls = append(fc.balls[:0], balls...)
	fc.u = u
	fc.bb = bounds
}

// Balls returns a copy of the balls set with SetField.
func (fc *FieldCompute) Balls() []ms2.Vec {
	return slices.Clone(fc.balls)
}
