package mbaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/soypat/metaball"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Captioner draws single line text overlays on rendered frames.
type Captioner struct {
	face font.Face
	fg   image.Image
	bg   image.Image
	pad  int
}

// NewCaptioner returns a Captioner drawing Go Mono text of the given size in points at 72 DPI.
func NewCaptioner(size float64) (*Captioner, error) {
	if size <= 0 {
		return nil, errors.New("non-positive caption font size")
	}
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return &Captioner{
		face: face,
		fg:   image.NewUniform(color.RGBA{R: 240, G: 240, B: 240, A: 255}),
		bg:   image.NewUniform(color.RGBA{A: 160}),
		pad:  int(size/4) + 1,
	}, nil
}

// Draw writes text over a translucent box at the top left corner of img.
func (c *Captioner) Draw(img draw.Image, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  c.fg,
		Face: c.face,
	}
	metrics := c.face.Metrics()
	width := d.MeasureString(text).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	min := img.Bounds().Min
	box := image.Rect(min.X, min.Y, min.X+width+2*c.pad, min.Y+height+2*c.pad)
	draw.Draw(img, box, c.bg, image.Point{}, draw.Over)
	d.Dot = freetype.Pt(min.X+c.pad, min.Y+c.pad+metrics.Ascent.Ceil())
	d.DrawString(text)
}

// FrameCaption describes a frame's time and morph state, i.e:
//
//	t=6.50s lemniscate→blob 42%
func FrameCaption(fr *metaball.Frame) string {
	pats := fr.Params.Patterns
	st := fr.Morph
	if st.Blend == 0 {
		return fmt.Sprintf("t=%.2fs %s", fr.Time, pats[st.From])
	}
	return fmt.Sprintf("t=%.2fs %s→%s %d%%", fr.Time, pats[st.From], pats[st.To], int(100*st.Blend+0.5))
}
