package metaball

import (
	"errors"
	"slices"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

var errMismatchBufferLength = errors.New("position and value buffer length mismatch")

// gridMinBalls is the ball count from which a Field culls balls with a uniform grid.
const gridMinBalls = 24

// SmoothMin is the polynomial smooth minimum of a and b. It equals min(a,b)
// when |a-b| >= k and undershoots it by at most k/4 when a == b. k <= 0 is a hard minimum.
func SmoothMin(a, b, k float32) float32 {
	if k <= 0 {
		return minf(a, b)
	}
	h := clampf(0.5+0.5*(b-a)/k, 0, 1)
	return mixf(b, a, h) - k*h*(1-h)
}

// SmoothMax is the polynomial smooth maximum of a and b, see [SmoothMin].
func SmoothMax(a, b, k float32) float32 {
	return -SmoothMin(-a, -b, k)
}

// FieldConfig configures a [Field].
type FieldConfig struct {
	// Radius is the ball radius. The field is zero on an isolated ball's surface.
	Radius float32
	// Smoothness is the width of the smooth minimum. Larger values widen the
	// region where neighboring balls fuse.
	Smoothness float32
	// Reach is the distance beyond a ball surface within which the field must be exact.
	// Farther away the field is clamped to a constant floor so distant balls can be culled.
	Reach float32
}

// Field is the scalar metaball field for one frame. Each ball contributes
// its signed distance |p-b|-Radius and contributions are merged with [SmoothMin];
// the field value is the negated result so it is largest at ball centers
// and positive inside the merged silhouette.
//
// A Field is immutable after creation and safe for concurrent use.
type Field struct {
	balls     []ms2.Vec
	radius    float32
	k         float32
	floor     float32 // distance value the fold starts from.
	influence float32
	grid      *ballGrid
}

var _ interface {
	Evaluate(pos []ms2.Vec, vals []float32, userData any) error
	Bounds() ms2.Box
} = (*Field)(nil)

// NewField creates the field of balls. The ball slice is copied and
// non-finite coordinates are replaced so no NaN can reach the fold.
func NewField(balls []ms2.Vec, cfg FieldConfig) *Field {
	sanitize := func(v float32) float32 {
		if !isFinite(v) || v < 0 {
			return 0
		}
		return minf(v, largenum)
	}
	f := &Field{
		balls:  make([]ms2.Vec, len(balls)),
		radius: sanitize(cfg.Radius),
		k:      sanitize(cfg.Smoothness),
	}
	for i, b := range balls {
		f.balls[i] = finiteVec(b)
	}
	f.floor = sanitize(cfg.Reach) + f.k
	// Past this center distance a ball's distance exceeds floor+k and the smooth
	// minimum returns the accumulator unchanged, bit for bit.
	f.influence = f.radius + f.floor + 1.01*f.k + 1e-4
	if len(f.balls) >= gridMinBalls {
		f.grid = newBallGrid(f.balls, f.influence)
	}
	return f
}

// Balls returns the field's ball positions. The slice must not be modified.
func (f *Field) Balls() []ms2.Vec { return f.balls }

// Radius returns the ball radius.
func (f *Field) Radius() float32 { return f.radius }

// Smoothness returns the smooth minimum width.
func (f *Field) Smoothness() float32 { return f.k }

// Floor returns the smallest value the field takes. Points farther than
// [Field.InfluenceRadius] from every ball evaluate to Floor.
func (f *Field) Floor() float32 { return -f.floor }

// InfluenceRadius returns the distance from a ball center beyond which the ball
// does not affect the field.
func (f *Field) InfluenceRadius() float32 { return f.influence }

// Sample returns the field value at p.
func (f *Field) Sample(p ms2.Vec) float32 {
	var buf [64]int32
	v, _ := f.sample(p, buf[:0])
	return v
}

// Evaluate stores the field value at each pos in vals. Implements [gleval.Field2].
func (f *Field) Evaluate(pos []ms2.Vec, vals []float32, userData any) error {
	if len(pos) != len(vals) {
		return errMismatchBufferLength
	}
	cand := make([]int32, 0, 64)
	for i, p := range pos {
		vals[i], cand = f.sample(p, cand[:0])
	}
	return nil
}

// Bounds returns the box outside of which the field is at its floor.
func (f *Field) Bounds() ms2.Box {
	if len(f.balls) == 0 {
		return ms2.Box{}
	}
	bb := boxOf(f.balls)
	r := f.influence
	bb.Min = ms2.Vec{X: bb.Min.X - r, Y: bb.Min.Y - r}
	bb.Max = ms2.Vec{X: bb.Max.X + r, Y: bb.Max.Y + r}
	return bb
}

func (f *Field) sample(p ms2.Vec, cand []int32) (float32, []int32) {
	if !isFinite(p.X) || !isFinite(p.Y) {
		return -f.floor, cand
	}
	r, k := f.radius, f.k
	acc := f.floor
	if f.grid == nil {
		for _, b := range f.balls {
			acc = SmoothMin(acc, ms2.Norm(ms2.Sub(p, b))-r, k)
		}
		return -acc, cand
	}
	cand = f.grid.query(p, cand)
	for _, i := range cand {
		acc = SmoothMin(acc, ms2.Norm(ms2.Sub(p, f.balls[i]))-r, k)
	}
	return -acc, cand
}

func boxOf(pts []ms2.Vec) ms2.Box {
	bb := ms2.Box{Min: pts[0], Max: pts[0]}
	for _, v := range pts[1:] {
		bb.Min = ms2.Vec{X: minf(bb.Min.X, v.X), Y: minf(bb.Min.Y, v.Y)}
		bb.Max = ms2.Vec{X: maxf(bb.Max.X, v.X), Y: maxf(bb.Max.Y, v.Y)}
	}
	return bb
}

// ballGrid buckets ball indices into square cells at least as wide as the
// influence radius, so every ball that can affect a point lies in the 3x3
// block of cells around it. Cells store indices in ascending order.
type ballGrid struct {
	origin ms2.Vec
	inv    float32
	nx, ny int
	start  []int32 // cell c holds idx[start[c]:start[c+1]].
	idx    []int32
}

func newBallGrid(balls []ms2.Vec, cell float32) *ballGrid {
	const maxCellsPerAxis = 128
	bb := boxOf(balls)
	sz := ms2.Sub(bb.Max, bb.Min)
	cell = maxf(cell, maxf(sz.X, sz.Y)/maxCellsPerAxis)
	cell = maxf(cell, epstol)
	g := &ballGrid{
		origin: bb.Min,
		inv:    1 / cell,
		nx:     int(sz.X/cell) + 1,
		ny:     int(sz.Y/cell) + 1,
	}
	g.start = make([]int32, g.nx*g.ny+1)
	cells := make([]int32, len(balls))
	for i, b := range balls {
		cx, cy := g.cellOf(b)
		cx = min(max(cx, 0), g.nx-1)
		cy = min(max(cy, 0), g.ny-1)
		c := int32(cy*g.nx + cx)
		cells[i] = c
		g.start[c+1]++
	}
	for c := 1; c < len(g.start); c++ {
		g.start[c] += g.start[c-1]
	}
	fill := slices.Clone(g.start[:len(g.start)-1])
	g.idx = make([]int32, len(balls))
	for i, c := range cells {
		g.idx[fill[c]] = int32(i)
		fill[c]++
	}
	return g
}

func (g *ballGrid) cellOf(p ms2.Vec) (int, int) {
	fx := math32.Floor((p.X - g.origin.X) * g.inv)
	fy := math32.Floor((p.Y - g.origin.Y) * g.inv)
	// Clamp far away points to a cell outside the grid to avoid int overflow.
	fx = clampf(fx, -2, float32(g.nx+1))
	fy = clampf(fy, -2, float32(g.ny+1))
	return int(fx), int(fy)
}

// query appends the indices of balls in the 3x3 cell block around p to dst in ascending order.
func (g *ballGrid) query(p ms2.Vec, dst []int32) []int32 {
	cx, cy := g.cellOf(p)
	for y := max(cy-1, 0); y <= min(cy+1, g.ny-1); y++ {
		for x := max(cx-1, 0); x <= min(cx+1, g.nx-1); x++ {
			c := y*g.nx + x
			dst = append(dst, g.idx[g.start[c]:g.start[c+1]]...)
		}
	}
	slices.Sort(dst)
	return dst
}
