// Package mbaux provides auxiliary drivers for the metaball package: PNG
// frame and sequence rendering, field visualization, captions, flag binding
// and a live GPU viewer.
package mbaux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/metaball"
	"github.com/soypat/metaball/glbuild"
	"github.com/soypat/metaball/gleval"
	"github.com/soypat/metaball/glrender"
)

// RenderConfig configures the PNG render helpers.
type RenderConfig struct {
	Width, Height int
	// Workers is the number of render goroutines. Zero uses GOMAXPROCS.
	Workers int
	// Env is the reflection environment. Nil uses a uniform gray.
	Env metaball.EnvMap
	// Caption overlays the frame time and morph state.
	Caption bool
	Silent  bool
	Context context.Context
}

func (cfg *RenderConfig) validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("render requires positive width and height")
	}
	return nil
}

func (cfg *RenderConfig) context() context.Context {
	if cfg.Context == nil {
		return context.Background()
	}
	return cfg.Context
}

// RenderImage renders the frame at time t into a new image.
func RenderImage(t float32, p metaball.Params, cfg RenderConfig) (*image.RGBA, *metaball.Frame, error) {
	err := cfg.validate()
	if err != nil {
		return nil, nil, err
	}
	fr, err := metaball.NewFrame(t, p, ms2.Vec{X: float32(cfg.Width), Y: float32(cfg.Height)}, cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	err = glrender.NewImageRenderer(cfg.Workers).Render(cfg.context(), fr, img)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Caption {
		c, err := NewCaptioner(float64(max(cfg.Height/32, 10)))
		if err != nil {
			return nil, nil, err
		}
		c.Draw(img, FrameCaption(fr))
	}
	return img, fr, nil
}

// RenderPNGFile renders the frame at time t and saves the result to a PNG file with said filename.
func RenderPNGFile(filename string, t float32, p metaball.Params, cfg RenderConfig) error {
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	watch := stopwatch()
	img, fr, err := RenderImage(t, p, cfg)
	if err != nil {
		return err
	}
	log("rendered", len(fr.Balls()), "balls at", cfg.Width, "x", cfg.Height, "in", watch())
	return writePNG(filename, img)
}

// RenderSequence renders n frames starting at time start spaced dt seconds
// apart into dir as frame_00000.png, frame_00001.png, ... It stops early if the
// config context is cancelled.
func RenderSequence(dir string, start, dt float32, n int, p metaball.Params, cfg RenderConfig) error {
	err := cfg.validate()
	if err != nil {
		return err
	} else if n < 0 {
		return errors.New("negative frame count")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	p, err = p.Sanitize()
	if err != nil {
		log("corrected parameters:", err)
	}
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}
	ctx := cfg.context()
	renderer := glrender.NewImageRenderer(cfg.Workers)
	res := ms2.Vec{X: float32(cfg.Width), Y: float32(cfg.Height)}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	var captioner *Captioner
	if cfg.Caption {
		captioner, err = NewCaptioner(float64(max(cfg.Height/32, 10)))
		if err != nil {
			return err
		}
	}
	total := stopwatch()
	for i := 0; i < n; i++ {
		t := start + float32(i)*dt
		fr, err := metaball.NewFrame(t, p, res, cfg.Env)
		if err != nil {
			return err
		}
		err = renderer.Render(ctx, fr, img)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if captioner != nil {
			captioner.Draw(img, FrameCaption(fr))
		}
		err = writePNG(filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i)), img)
		if err != nil {
			return err
		}
	}
	if n > 0 {
		log("rendered", n, "frames in", total(), "at", (total() / time.Duration(n)).Round(time.Millisecond), "per frame")
	}
	return nil
}

// RenderFieldPNGFile renders the raw field of the frame at time t over the
// viewport with [ColorConversionInigoQuilez]. With useGPU the field is evaluated by
// a compute program, which requires a GL context created with [gleval.Init1x1GLFW].
func RenderFieldPNGFile(filename string, t float32, p metaball.Params, cfg RenderConfig, useGPU bool) error {
	err := cfg.validate()
	if err != nil {
		return err
	}
	fr, err := metaball.NewFrame(t, p, ms2.Vec{X: float32(cfg.Width), Y: float32(cfg.Height)}, cfg.Env)
	if err != nil {
		return err
	}
	field := fr.Field2()
	if useGPU {
		fc, err := gleval.NewFieldCompute(glbuild.NewDefaultProgrammer(), metaball.MinWidthScale)
		if err != nil {
			return err
		}
		defer fc.Delete()
		fc.SetField(fr.Balls(), FieldUniforms(fr), field.Bounds())
		field = fc
	}
	renderer, err := glrender.NewFieldRenderer(max(4096, cfg.Width), ColorConversionInigoQuilez(4*fr.Params.Size))
	if err != nil {
		return err
	}
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	var vp gleval.VecPool
	ar := float32(cfg.Width) / float32(cfg.Height)
	viewport := ms2.Box{Min: ms2.Vec{X: -ar, Y: -1}, Max: ms2.Vec{X: ar, Y: 1}}
	err = renderer.RenderBox(field, viewport, img, &vp)
	if err != nil {
		return err
	}
	return writePNG(filename, img)
}

// FieldUniforms returns the GPU field program inputs that reproduce the frame's field.
func FieldUniforms(fr *metaball.Frame) gleval.FieldUniforms {
	f := fr.Field()
	return gleval.FieldUniforms{
		Size:       f.Radius(),
		Smoothness: f.Smoothness(),
		Floor:      -f.Floor(),
		Warp:       ms2.Vec{X: fr.Warp.Strength, Y: fr.Warp.Vertical},
	}
}

// LoadEnvMap decodes a PNG, JPEG, BMP or WebP equirectangular image and
// resamples it to width×height. Zero dimensions keep the image size.
func LoadEnvMap(filename string, width, height int) (*metaball.EquirectMap, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding environment %s: %w", filename, err)
	}
	env, err := metaball.NewImageEnvMap(img, width, height)
	if err != nil {
		return nil, fmt.Errorf("%s environment %s: %w", format, filename, err)
	}
	return env, nil
}

func writePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
