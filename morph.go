package metaball

import (
	"math"
	"slices"

	"github.com/soypat/geometry/ms2"
	"github.com/tanema/gween/ease"
)

// MorphState is the scheduler output for one instant: balls are interpolated
// from pattern From to pattern To by Blend. During a hold From == To and Blend == 0.
type MorphState struct {
	From, To int
	Blend    float32
}

// Schedule cycles through Patterns pattern indices. Each pattern is held for
// Hold seconds and then morphs into the next one over Transition seconds.
type Schedule struct {
	Hold       float32
	Transition float32
	Patterns   int
	// Ease shapes the blend during a transition. Nil uses [ease.InOutCubic].
	Ease ease.TweenFunc
}

// Cycle returns the period of the schedule in seconds.
func (s Schedule) Cycle() float32 {
	return float32(s.Patterns) * (maxf(s.Hold, 0) + maxf(s.Transition, 0))
}

// State returns the morph state at elapsed time t. State is periodic:
// State(t) == State(t+Cycle()). A zero Transition switches patterns instantly;
// a zero Hold enters the transition as soon as a pattern is reached.
func (s Schedule) State(t float32) MorphState {
	if s.Patterns <= 0 {
		return MorphState{}
	}
	hold := float64(maxf(s.Hold, 0))
	trans := float64(maxf(s.Transition, 0))
	seg := hold + trans
	if seg <= 0 || math.IsInf(seg, 0) || math.IsNaN(seg) {
		return MorphState{}
	}
	cycle := float64(s.Patterns) * seg
	tt := float64(t)
	if math.IsNaN(tt) || math.IsInf(tt, 0) {
		tt = 0
	}
	tt = math.Mod(tt, cycle)
	if tt < 0 {
		tt += cycle
	}
	idx := int(tt / seg)
	if idx >= s.Patterns {
		idx = s.Patterns - 1
	}
	local := tt - float64(idx)*seg
	if local < hold {
		return MorphState{From: idx, To: idx}
	}
	fn := s.Ease
	if fn == nil {
		fn = ease.InOutCubic
	}
	blend := fn(float32(local-hold), 0, 1, float32(trans))
	return MorphState{
		From:  idx,
		To:    (idx + 1) % s.Patterns,
		Blend: clampf(blend, 0, 1),
	}
}

// Lerp writes the per-index interpolation of from and to into dst and returns it.
// Ball i of from always morphs toward ball i of to.
func Lerp(dst, from, to []ms2.Vec, blend float32) []ms2.Vec {
	n := min(len(from), len(to))
	dst = slices.Grow(dst[:0], n)[:n]
	for i := range dst {
		dst[i] = lerp2(from[i], to[i], blend)
	}
	return dst
}

var easings = map[string]ease.TweenFunc{
	"inOutSine":  ease.InOutSine,
	"inOutQuad":  ease.InOutQuad,
	"inOutCubic": ease.InOutCubic,
	"inOutQuart": ease.InOutQuart,
	"inOutQuint": ease.InOutQuint,
	"inOutExpo":  ease.InOutExpo,
	"inOutCirc":  ease.InOutCirc,
}

// EasingFunc returns the transition easing curve registered under name.
// All registered curves start at 0, end at 1 and never decrease in between.
// They strictly increase except within float32 resolution of either end,
// where steep-shouldered curves such as inOutQuint round to a constant.
func EasingFunc(name string) (ease.TweenFunc, bool) {
	fn, ok := easings[name]
	return fn, ok
}

// EasingNames returns the sorted names accepted by [EasingFunc].
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
