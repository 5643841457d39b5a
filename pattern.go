package metaball

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// Pattern enumerates the target shapes balls morph between.
type Pattern uint8

const (
	PatternCluster Pattern = iota
	PatternLemniscate
	PatternBlob
	PatternStar
	numPatterns
)

var patternNames = [numPatterns]string{
	PatternCluster:    "cluster",
	PatternLemniscate: "lemniscate",
	PatternBlob:       "blob",
	PatternStar:       "star",
}

// IsValid reports whether pat is one of the defined patterns.
func (pat Pattern) IsValid() bool { return pat < numPatterns }

func (pat Pattern) String() string {
	if !pat.IsValid() {
		return fmt.Sprintf("Pattern(%d)", uint8(pat))
	}
	return patternNames[pat]
}

// ParsePattern parses a pattern name as returned by [Pattern.String]. Case insensitive.
func ParsePattern(s string) (Pattern, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range patternNames {
		if s == name {
			return Pattern(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

// AppendPositions appends the n target positions of pat at elapsed time t to dst.
// Ball i of the result always corresponds to ball i of any other pattern, which
// is what makes per-index morphing well defined. p should be sanitized.
func AppendPositions(dst []ms2.Vec, pat Pattern, n int, t float32, p *Params) []ms2.Vec {
	for i := 0; i < n; i++ {
		dst = append(dst, pat.Position(i, n, t, p))
	}
	return dst
}

// Position returns the target position of ball i out of n at elapsed time t.
// The result is always finite.
func (pat Pattern) Position(i, n int, t float32, p *Params) ms2.Vec {
	if n <= 0 {
		return ms2.Vec{}
	}
	if !isFinite(t) {
		t = 0
	}
	phase := t * p.Speed
	var v ms2.Vec
	switch pat {
	case PatternCluster:
		v = clusterPosition(i, phase, p)
	case PatternLemniscate:
		v = lemniscatePosition(i, n, phase, p)
	case PatternBlob:
		v = blobPosition(i, n, phase, p)
	case PatternStar:
		v = starPosition(i, n, phase, p)
	}
	return finiteVec(v)
}

// clusterPosition moves each ball on a closed orbit made of three sinusoids
// with per-ball frequencies and phases. Amplitudes sum to 0.65 so the orbit
// stays inside the unit viewport for any spread up to 1.5.
func clusterPosition(i int, phase float32, p *Params) ms2.Vec {
	const a1, a2, a3 = 0.40, 0.17, 0.08
	c := p.Complexity
	f1 := 0.3 + 0.7*hashIndex(i, 1)
	f2 := (0.5 + hashIndex(i, 2)) * c
	f3 := (0.8 + hashIndex(i, 3)) * c * 1.6
	var ph [6]float32
	for j := range ph {
		ph[j] = tau * hashIndex(i, uint32(4+j))
	}
	x := a1*math32.Sin(f1*phase+ph[0]) + a2*math32.Sin(f2*phase+ph[1]) + a3*math32.Cos(f3*phase+ph[2])
	y := a1*math32.Cos(0.9*f1*phase+ph[3]) + a2*math32.Sin(1.1*f2*phase+ph[4]) + a3*math32.Sin(f3*phase+ph[5])
	return ms2.Vec{X: x * p.Spread, Y: y * p.Spread}
}

// lemniscatePosition spreads balls along the lemniscate of Bernoulli,
// circulating slowly with phase.
func lemniscatePosition(i, n int, phase float32, p *Params) ms2.Vec {
	th := tau*(float32(i)+0.5)/float32(n) + 0.35*phase
	s, c := math32.Sincos(th)
	den := 1 + s*s
	x := c / den
	y := s * c / den
	lp := p.Lemniscate
	sc := lp.Scale * p.Spread
	x *= sc * lp.ScaleX
	y *= sc * lp.ScaleY
	// Vertical wobble grows with distortion strength.
	y += 0.25 * sc * p.Distortion * p.VerticalDistortion * math32.Sin(2*th+phase)
	return ms2.Vec{X: x, Y: y}
}

// blobPosition traces an asymmetric closed outline: the top half is widened by
// TopWidth, the bottom half by BottomWidth, and low harmonics make it non-convex.
func blobPosition(i, n int, phase float32, p *Params) ms2.Vec {
	bp := p.Blob
	th := tau*(float32(i)+0.5)/float32(n) + 0.2*phase
	s, c := math32.Sincos(th)
	top := 0.5 + 0.5*s
	width := mixf(1, mixf(bp.BottomWidth, bp.TopWidth, top), bp.Asymmetry)
	r := 1 + bp.Asymmetry*(0.16*math32.Sin(3*th+0.6)+0.07*math32.Sin(5*th-0.4*phase))
	sc := bp.Scale * p.Spread
	return ms2.Vec{
		X: sc * r * width * c,
		Y: sc*r*s + bp.Offset,
	}
}

// starPosition walks the star outline. The outline has 2k vertices alternating
// between outer and inner radius; ball i sits at fraction i/n of the perimeter
// measured in vertices, so n == 2k places one ball on each vertex.
func starPosition(i, n int, phase float32, p *Params) ms2.Vec {
	sp := p.Star
	k := max(sp.Points, 2)
	verts := 2 * k
	u := float32(i) * float32(verts) / float32(n)
	j := int(u)
	frac := u - float32(j)
	rot := sp.Rotation + 0.05*phase
	a := starVertex(j%verts, k, rot, sp)
	b := starVertex((j+1)%verts, k, rot, sp)
	v := lerp2(a, b, frac)
	sc := sp.Scale * p.Spread
	return ms2.Vec{X: v.X * sc, Y: v.Y * sc}
}

func starVertex(j, k int, rot float32, sp StarParams) ms2.Vec {
	r := sp.Outer
	if j%2 == 1 {
		r = sp.Inner
	}
	th := rot + pi/2 + float32(j)*pi/float32(k)
	s, c := math32.Sincos(th)
	return ms2.Vec{X: r * c, Y: r * s}
}
