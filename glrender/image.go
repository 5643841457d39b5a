package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/metaball/gleval"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// FieldRenderer converts scalar fields to images, one row per evaluation
// batch. It is used to inspect raw field values rather than shaded frames.
type FieldRenderer struct {
	conv func(f float32) color.Color
	pos  []ms2.Vec
	vals []float32
}

// NewFieldRenderer instances a new [FieldRenderer] to render images from 2D fields. A nil float->color conversion
// function results in a simple black-white color scheme where white is the interior of the field (positive value).
func NewFieldRenderer(evalBufferSize int, conversion func(float32) color.Color) (*FieldRenderer, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = func(f float32) color.Color {
			switch {
			case math32.IsNaN(f) || math32.IsInf(f, 0):
				return color.RGBA{R: 255, A: 255}
			case f > 0:
				return color.White
			default:
				return color.Black
			}
		}
	}
	fr := &FieldRenderer{
		conv: conversion,
		pos:  make([]ms2.Vec, evalBufferSize),
		vals: make([]float32, evalBufferSize),
	}
	return fr, nil
}

// Render maps the field's bounds to the input image and renders it. It uses userData as an argument to all [gleval.Field2.Evaluate] calls.
func (fr *FieldRenderer) Render(field gleval.Field2, img setImage, userData any) error {
	return fr.RenderBox(field, field.Bounds(), img, userData)
}

// RenderBox renders the region bb of field into img. The top image row maps to bb.Max.Y.
func (fr *FieldRenderer) RenderBox(field gleval.Field2, bb ms2.Box, img setImage, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if len(fr.vals) < dxi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(fr.vals), dxi)
	}
	sz := bb.Size()
	if sz.X <= 0 || sz.Y <= 0 {
		return errors.New("empty render region")
	}
	dx := sz.X / float32(dxi)
	dy := sz.Y / float32(dyi)
	xmin := bb.Min.X + dx/2 // Offset to center pixels.
	for j := 0; j < dyi; j++ {
		y := bb.Max.Y - (float32(j)+0.5)*dy
		err := fr.renderRow(field, j, y, xmin, dx, imgBB, img, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (fr *FieldRenderer) renderRow(field gleval.Field2, row int, y, xmin, dx float32, imgBB image.Rectangle, img setImage, userData any) error {
	dxi := imgBB.Dx()
	for i := 0; i < dxi; i++ {
		x := float32(i)*dx + xmin
		fr.pos[i] = ms2.Vec{X: x, Y: y}
	}
	err := field.Evaluate(fr.pos[:dxi], fr.vals[:dxi], userData)
	if err != nil {
		return err
	}
	conv := fr.conv
	for i := 0; i < dxi; i++ {
		img.Set(i+imgBB.Min.X, row+imgBB.Min.Y, conv(fr.vals[i]))
	}
	return nil
}
