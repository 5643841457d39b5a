package metaball

import (
	"errors"
	"image"

	"github.com/chewxy/math32"
	"github.com/ojrac/opensimplex-go"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/draw"
)

// EnvMap is an environment lookup by direction. Sample must be safe for
// concurrent use and return finite colors for any unit direction.
type EnvMap interface {
	Sample(dir ms3.Vec) ms3.Vec
}

// UniformEnvMap returns the same color in every direction.
type UniformEnvMap ms3.Vec

// Sample implements [EnvMap].
func (u UniformEnvMap) Sample(ms3.Vec) ms3.Vec { return ms3.Vec(u) }

// SkyEnvMap is a procedural sky: a zenith to horizon gradient above, a dark
// ground below, a sun spot and static opensimplex clouds.
type SkyEnvMap struct {
	Zenith  ms3.Vec
	Horizon ms3.Vec
	Ground  ms3.Vec
	Sun     ms3.Vec
	SunDir  ms3.Vec // unit direction toward the sun.
	// SunSize is the cosine falloff exponent of the sun spot. Larger is smaller.
	SunSize float32
	Clouds  float32 // cloud cover in [0,1].
	noise   opensimplex.Noise
}

// NewSkyEnvMap returns a sky whose clouds are seeded with seed.
func NewSkyEnvMap(seed int64) *SkyEnvMap {
	return &SkyEnvMap{
		Zenith:  ms3.Vec{X: 0.18, Y: 0.32, Z: 0.65},
		Horizon: ms3.Vec{X: 0.85, Y: 0.88, Z: 0.92},
		Ground:  ms3.Vec{X: 0.12, Y: 0.11, Z: 0.10},
		Sun:     ms3.Vec{X: 1, Y: 0.95, Z: 0.85},
		SunDir:  ms3.Unit(ms3.Vec{X: -0.5, Y: 0.6, Z: 0.6}),
		SunSize: 256,
		Clouds:  0.5,
		noise:   opensimplex.New(seed),
	}
}

// Sample implements [EnvMap].
func (s *SkyEnvMap) Sample(dir ms3.Vec) ms3.Vec {
	l := ms3.Norm(dir)
	if l < epstol || !isFinite(l) {
		return s.Horizon
	}
	dir = ms3.Scale(1/l, dir)
	if dir.Y < 0 {
		// Short blend so the horizon line is not a hard seam.
		return mix3(s.Horizon, s.Ground, smoothstep(0, 0.08, -dir.Y))
	}
	col := mix3(s.Horizon, s.Zenith, math32.Sqrt(dir.Y))
	if s.noise != nil && s.Clouds > 0 {
		// Project onto a flat cloud layer above the viewer.
		k := 1 / maxf(dir.Y, 0.1)
		x, z := float64(dir.X*k*1.5), float64(dir.Z*k*1.5)
		n := 0.5 + 0.5*s.noise.Eval3(x, z, 0.5) + 0.25*s.noise.Eval3(2*x, 2*z, 1.5)
		cover := smoothstep(1-clampf(s.Clouds, 0, 1), 1.2, float32(n))
		col = mix3(col, s.Horizon, cover*smoothstep(0, 0.3, dir.Y))
	}
	sun := math32.Pow(maxf(ms3.Dot(dir, s.SunDir), 0), maxf(s.SunSize, 1))
	return clampColor(ms3.Add(col, ms3.Scale(sun, s.Sun)))
}

// EquirectMap is an equirectangular environment stored as linear RGB texels,
// row major with row 0 at the zenith.
type EquirectMap struct {
	Width, Height int
	Texels        []ms3.Vec
}

// NewImageEnvMap resamples img to a width×height equirectangular map.
// Zero dimensions keep the image's own size.
func NewImageEnvMap(img image.Image, width, height int) (*EquirectMap, error) {
	if img == nil {
		return nil, errors.New("nil environment image")
	}
	bounds := img.Bounds()
	if width <= 0 || height <= 0 {
		width, height = bounds.Dx(), bounds.Dy()
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New("empty environment image")
	}
	dst := image.NewRGBA64(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	m := &EquirectMap{Width: width, Height: height, Texels: make([]ms3.Vec, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := dst.RGBA64At(x, y)
			m.Texels[y*width+x] = ms3.Vec{
				X: float32(c.R) / 0xffff,
				Y: float32(c.G) / 0xffff,
				Z: float32(c.B) / 0xffff,
			}
		}
	}
	return m, nil
}

// BakeEnvMap samples env at every texel center of a width×height
// equirectangular map. The GPU stage consumes the baked texels.
func BakeEnvMap(env EnvMap, width, height int) (*EquirectMap, error) {
	if env == nil {
		return nil, errors.New("nil environment map")
	} else if width <= 0 || height <= 0 {
		return nil, errors.New("invalid environment map dimensions")
	}
	m := &EquirectMap{Width: width, Height: height, Texels: make([]ms3.Vec, width*height)}
	for y := 0; y < height; y++ {
		v := (float32(y) + 0.5) / float32(height)
		for x := 0; x < width; x++ {
			u := (float32(x) + 0.5) / float32(width)
			m.Texels[y*width+x] = clampColor(env.Sample(equirectDir(u, v)))
		}
	}
	return m, nil
}

// Sample implements [EnvMap] with bilinear filtering. Longitude wraps around,
// latitude is clamped at the poles.
func (m *EquirectMap) Sample(dir ms3.Vec) ms3.Vec {
	if m.Width <= 0 || m.Height <= 0 || len(m.Texels) < m.Width*m.Height {
		return ms3.Vec{}
	}
	u, v := equirectUV(dir)
	fx := u*float32(m.Width) - 0.5
	fy := clampf(v*float32(m.Height)-0.5, 0, float32(m.Height-1))
	x0f := math32.Floor(fx)
	y0 := int(fy)
	tx, ty := fx-x0f, fy-float32(y0)
	x0 := wrapIndex(int(x0f), m.Width)
	x1 := wrapIndex(x0+1, m.Width)
	y1 := min(y0+1, m.Height-1)
	top := mix3(m.at(x0, y0), m.at(x1, y0), tx)
	bot := mix3(m.at(x0, y1), m.at(x1, y1), tx)
	return mix3(top, bot, ty)
}

// Image returns the map as an 8 bit image.
func (m *EquirectMap) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			img.SetRGBA(x, y, RGBA8(m.at(x, y)))
		}
	}
	return img
}

func (m *EquirectMap) at(x, y int) ms3.Vec { return m.Texels[y*m.Width+x] }

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// equirectUV maps a direction to texture coordinates in [0,1]². Forward (-Z)
// lands on the center column and +Y on the top row.
func equirectUV(dir ms3.Vec) (u, v float32) {
	l := ms3.Norm(dir)
	if l < epstol || !isFinite(l) {
		return 0.5, 0.5
	}
	dir = ms3.Scale(1/l, dir)
	u = 0.5 + math32.Atan2(dir.X, -dir.Z)/tau
	v = math32.Acos(clampf(dir.Y, -1, 1)) / pi
	return u, v
}

// equirectDir is the inverse of equirectUV.
func equirectDir(u, v float32) ms3.Vec {
	phi := (u - 0.5) * tau
	th := v * pi
	st, ct := math32.Sincos(th)
	sp, cp := math32.Sincos(phi)
	return ms3.Vec{X: st * sp, Y: ct, Z: -st * cp}
}
