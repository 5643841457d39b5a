package metaball

import "github.com/soypat/geometry/ms2"

// MinWidthScale floors the asymmetric width scale so the warp never divides by zero.
const MinWidthScale = 0.2

// Warp distorts sample coordinates before field evaluation. It biases the
// merged silhouette without moving balls: Strength scales width with height
// (wider on top for positive strength) and Vertical bends rows into a bow.
// Warp is one-directional and has no inverse.
type Warp struct {
	Strength float32
	Vertical float32
}

// IsIdentity reports whether Apply returns its argument unchanged.
func (w Warp) IsIdentity() bool { return w.Strength == 0 }

// Apply returns the warped sample point.
func (w Warp) Apply(p ms2.Vec) ms2.Vec {
	s := w.Strength
	scale := maxf(1+s*p.Y, MinWidthScale)
	return ms2.Vec{
		X: p.X / scale,
		Y: p.Y + 0.5*s*w.Vertical*p.X*p.X,
	}
}
