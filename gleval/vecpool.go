package gleval

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// VecPool provides reusable scratch buffers to evaluators. A VecPool is not
// safe for concurrent use: give each worker goroutine its own.
type VecPool struct {
	V2    bufPool[ms2.Vec]
	V3    bufPool[ms3.Vec]
	Float bufPool[float32]
}

// GetVecPool extracts a VecPool from userData. userData may be a *VecPool
// or implement a VecPool() *VecPool method.
func GetVecPool(userData any) (*VecPool, error) {
	switch v := userData.(type) {
	case *VecPool:
		if v == nil {
			return nil, errors.New("nil VecPool")
		}
		return v, nil
	case interface{ VecPool() *VecPool }:
		vp := v.VecPool()
		if vp == nil {
			return nil, errors.New("nil VecPool from userData")
		}
		return vp, nil
	}
	return nil, fmt.Errorf("want *VecPool userData, got %T", userData)
}

// AssertAllReleased returns an error if any buffer is still acquired.
func (vp *VecPool) AssertAllReleased() error {
	return errors.Join(
		vp.V2.assertAllReleased("V2"),
		vp.V3.assertAllReleased("V3"),
		vp.Float.assertAllReleased("Float"),
	)
}

type bufPool[T any] struct {
	bufs     [][]T
	acquired []bool
}

// Acquire returns a buffer of the given length. Its contents are unspecified.
func (bp *bufPool[T]) Acquire(length int) []T {
	for i, buf := range bp.bufs {
		if !bp.acquired[i] && cap(buf) >= length {
			bp.acquired[i] = true
			return buf[:length]
		}
	}
	buf := make([]T, length, max(length, 1))
	bp.bufs = append(bp.bufs, buf)
	bp.acquired = append(bp.acquired, true)
	return buf
}

// Release returns a buffer obtained from Acquire to the pool.
func (bp *bufPool[T]) Release(buf []T) error {
	ptr := unsafe.SliceData(buf)
	for i, b := range bp.bufs {
		if unsafe.SliceData(b) == ptr {
			if !bp.acquired[i] {
				return errors.New("double release of pooled buffer")
			}
			bp.acquired[i] = false
			return nil
		}
	}
	return errors.New("release of buffer not owned by pool")
}

func (bp *bufPool[T]) assertAllReleased(name string) error {
	for _, acq := range bp.acquired {
		if acq {
			return fmt.Errorf("%s pool has unreleased buffers", name)
		}
	}
	return nil
}
