//go:build !tinygo && cgo

package gleval

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/metaball/glbuild"
)

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewFieldCompute compiles a compute program that evaluates the metaball field
// on the GPU. A GL context must be current on the calling goroutine.
func NewFieldCompute(programmer *glbuild.Programmer, minWidthScale float32) (*FieldCompute, error) {
	var src bytes.Buffer
	n, err := programmer.WriteComputeMetaball(&src, minWidthScale)
	if err != nil {
		return nil, err
	} else if n != src.Len() {
		return nil, errors.New("length written mismatch")
	}
	src.WriteByte(0)
	prog, err := glgl.CompileProgram(glgl.ShaderSource{Compute: src.String()})
	if err != nil {
		return nil, fmt.Errorf("%s\n%w", src.String(), err)
	}
	invocX, _, _ := programmer.ComputeInvocations()
	fc := &FieldCompute{prog: prog, invocX: invocX}
	return fc, nil
}

// FieldCompute is a [Field2] that runs on the GPU.
type FieldCompute struct {
	prog   glgl.Program
	invocX int
	balls  []ms2.Vec
	u      FieldUniforms
	bb     ms2.Box
}

// Bounds returns the bounds set with SetField.
func (fc *FieldCompute) Bounds() ms2.Box { return fc.bb }

// Delete releases the GPU program.
func (fc *FieldCompute) Delete() {
	fc.prog.Delete()
}

// Evaluate implements [Field2].
func (fc *FieldCompute) Evaluate(pos []ms2.Vec, vals []float32, userData any) error {
	if len(pos) != len(vals) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	} else if fc.prog.ID() == 0 {
		return errors.New("bad program compile or FieldCompute not initialized before first use")
	}
	prog := fc.prog
	prog.Bind()
	defer prog.Unbind()
	err := fc.setUniforms()
	if err != nil {
		return err
	}
	balls := fc.balls
	if len(balls) == 0 {
		// Loop runs zero times but the buffer must still be bound.
		balls = []ms2.Vec{{}}
	}
	var p runtime.Pinner
	ssbo := loadSSBO(balls, glbuild.BindingBalls, gl.STATIC_DRAW)
	if ssbo == 0 {
		return glErrOrMessage("loading balls SSBO got zero id")
	}
	p.Pin(&ssbo)
	defer p.Unpin()
	defer gl.DeleteBuffers(1, &ssbo)
	return computeEvaluate(pos, vals, fc.invocX)
}

func (fc *FieldCompute) setUniforms() error {
	prog := fc.prog
	var locs [5]int32
	names := [5]string{
		glbuild.UniformBallCount + "\x00",
		glbuild.UniformSize + "\x00",
		glbuild.UniformSmoothness + "\x00",
		glbuild.UniformFloor + "\x00",
		glbuild.UniformWarp + "\x00",
	}
	for i, name := range names {
		loc, err := prog.UniformLocation(name)
		if err != nil {
			return err
		}
		locs[i] = loc
	}
	u := fc.u
	gl.Uniform1i(locs[0], int32(len(fc.balls)))
	gl.Uniform1f(locs[1], u.Size)
	gl.Uniform1f(locs[2], u.Smoothness)
	gl.Uniform1f(locs[3], u.Floor)
	gl.Uniform2f(locs[4], u.Warp.X, u.Warp.Y)
	return glgl.Err()
}

func computeEvaluate(pos []ms2.Vec, vals []float32, invocX int) (err error) {
	if invocX < 1 {
		return errors.New("zero or negative invocation size")
	}
	var p runtime.Pinner
	var posSSBO, valSSBO uint32
	p.Pin(&posSSBO)
	p.Pin(&valSSBO)
	defer p.Unpin()

	posSSBO = loadSSBO(pos, glbuild.BindingPositions, gl.STATIC_DRAW)
	if posSSBO == 0 {
		return glErrOrMessage("zero SSBO id set by GL during compute loading")
	}
	defer gl.DeleteBuffers(1, &posSSBO)

	valSSBO = createSSBO(elemSize[float32]()*len(vals), glbuild.BindingValues, gl.DYNAMIC_READ)
	if valSSBO == 0 {
		return glErrOrMessage("zero id SSBO creating value buffer")
	}
	defer gl.DeleteBuffers(1, &valSSBO)
	nWorkX := (len(vals) + invocX - 1) / invocX
	gl.DispatchCompute(uint32(nWorkX), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = copySSBO(vals, valSSBO)
	if err != nil {
		return err
	}
	return glgl.Err()
}

func loadSSBO[T any](slice []T, base, usage uint32) (ssbo uint32) {
	var p runtime.Pinner
	p.Pin(&ssbo)
	gl.GenBuffers(1, &ssbo)
	p.Unpin()
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	size := len(slice) * elemSize[T]()
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, unsafe.Pointer(&slice[0]), usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func createSSBO(size int, base, usage uint32) (ssbo uint32) {
	gl.GenBuffers(1, &ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func copySSBO[T any](dst []T, ssbo uint32) error {
	singleSize := elemSize[T]()
	bufSize := singleSize * len(dst)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, bufSize, gl.MAP_READ_BIT)
	if ptr == nil {
		return glErrOrMessage("failed to map SSBO buffer during copy")
	}
	defer gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	gpuBytes := unsafe.Slice((*byte)(ptr), bufSize)
	bufBytes := unsafe.Slice((*byte)(unsafe.Pointer(&dst[0])), bufSize)
	copy(bufBytes, gpuBytes)
	return nil
}

func elemSize[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
