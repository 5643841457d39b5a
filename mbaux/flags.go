package mbaux

import (
	"flag"
	"strconv"
	"strings"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/metaball"
)

type float32Value float32

func (f *float32Value) Set(s string) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*f = float32Value(v)
	return nil
}

func (f *float32Value) String() string { return strconv.FormatFloat(float64(*f), 'g', -1, 32) }

type colorValue ms3.Vec

func (c *colorValue) Set(s string) error {
	v, err := ParseHexColor(s)
	if err != nil {
		return err
	}
	*c = colorValue(v)
	return nil
}

func (c *colorValue) String() string { return HexColor(ms3.Vec(*c)) }

type patternsValue []metaball.Pattern

func (pv *patternsValue) Set(s string) error {
	var pats []metaball.Pattern
	for _, name := range strings.Split(s, ",") {
		pat, err := metaball.ParsePattern(name)
		if err != nil {
			return err
		}
		pats = append(pats, pat)
	}
	*pv = pats
	return nil
}

func (pv *patternsValue) String() string {
	names := make([]string, len(*pv))
	for i, pat := range *pv {
		names[i] = pat.String()
	}
	return strings.Join(names, ",")
}

// BindFlags defines a flag for every parameter in p on fs, using the current
// values of p as defaults. Parsing fs writes into p. Colors are hex strings
// and patterns a comma separated list of names.
func BindFlags(fs *flag.FlagSet, p *metaball.Params) {
	f32 := func(v *float32, name, usage string) {
		fs.Var((*float32Value)(v), name, usage)
	}
	fs.IntVar(&p.BallCount, "balls", p.BallCount, "number of balls")
	f32(&p.Speed, "speed", "ball motion speed")
	f32(&p.Spread, "spread", "pattern extent")
	f32(&p.Size, "size", "ball radius in viewport units")
	f32(&p.Complexity, "complexity", "harmonic content of cluster orbits")
	f32(&p.Smoothness, "smooth", "smooth minimum blend width")
	f32(&p.Threshold, "threshold", "field value at the silhouette edge")
	f32(&p.EdgeWidth, "edge", "anti-aliasing half width in field units, 0 picks 1.5 pixels")
	f32(&p.MorphSpeed, "morphspeed", "morph schedule time scale")
	f32(&p.Hold, "hold", "seconds each pattern is held")
	f32(&p.Transition, "transition", "seconds spent morphing between patterns")
	fs.StringVar(&p.Easing, "easing", p.Easing, "transition easing: "+strings.Join(metaball.EasingNames(), ", "))
	fs.Var((*patternsValue)(&p.Patterns), "patterns", "comma separated pattern cycle of cluster, lemniscate, blob, star")
	f32(&p.Distortion, "distortion", "asymmetric distortion strength")
	f32(&p.VerticalDistortion, "vdistortion", "vertical bend factor of the distortion")

	f32(&p.Lemniscate.Scale, "lemniscate.scale", "lemniscate size")
	f32(&p.Lemniscate.ScaleX, "lemniscate.sx", "lemniscate horizontal stretch")
	f32(&p.Lemniscate.ScaleY, "lemniscate.sy", "lemniscate vertical stretch")
	fs.IntVar(&p.Star.Points, "star.points", p.Star.Points, "number of star tips")
	f32(&p.Star.Inner, "star.inner", "star inner radius")
	f32(&p.Star.Outer, "star.outer", "star outer radius")
	f32(&p.Star.Rotation, "star.rotation", "star rotation in radians")
	f32(&p.Star.Scale, "star.scale", "star size")
	f32(&p.Blob.Scale, "blob.scale", "blob size")
	f32(&p.Blob.TopWidth, "blob.top", "blob top half width multiplier")
	f32(&p.Blob.BottomWidth, "blob.bottom", "blob bottom half width multiplier")
	f32(&p.Blob.Offset, "blob.offset", "blob vertical offset")
	f32(&p.Blob.Asymmetry, "blob.asymmetry", "blob asymmetry in [0,1]")

	fs.Var((*colorValue)(&p.BaseColor), "color", "surface base color")
	fs.Var((*colorValue)(&p.Background), "background", "background color")
	f32(&p.ReflectionIntensity, "reflection", "environment reflection intensity")
	f32(&p.NormalStrength, "normals", "normal perturbation strength")
	f32(&p.Camera.Z, "camera", "camera distance from the viewport plane")
}
