//go:build tinygo || !cgo

package gleval

import (
	"errors"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/metaball/glbuild"
)

var errNoCGO = errors.New("GPU evaluation requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// NewFieldCompute compiles a compute program that evaluates the metaball field on the GPU.
func NewFieldCompute(programmer *glbuild.Programmer, minWidthScale float32) (*FieldCompute, error) {
	return nil, errNoCGO
}

// FieldCompute is a [Field2] that runs on the GPU.
type FieldCompute struct {
	balls []ms2.Vec
	u     FieldUniforms
	bb    ms2.Box
}

func (fc *FieldCompute) Bounds() ms2.Box { return fc.bb }

func (fc *FieldCompute) Delete() {}

func (fc *FieldCompute) Evaluate(pos []ms2.Vec, vals []float32, userData any) error {
	return errNoCGO
}
