package imagetools

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// Meme caption defaults.
const (
	DefaultMemeFontSize    = 40
	DefaultMemeStrokeWidth = 2
	MaxStrokeWidth         = 20
	memeInsetY             = 30
)

// MemeOptions styles the captions.
type MemeOptions struct {
	FontSize    float64
	Fill        color.Color
	Stroke      color.Color
	StrokeWidth int
}

// DefaultMemeOptions is white text with a thin black outline.
func DefaultMemeOptions() MemeOptions {
	return MemeOptions{
		FontSize:    DefaultMemeFontSize,
		Fill:        color.White,
		Stroke:      color.Black,
		StrokeWidth: DefaultMemeStrokeWidth,
	}
}

// Meme writes top and bottom captions centered horizontally, 30px from
// the top and bottom edges. Output is PNG.
func Meme(data []byte, top, bottom string, opts MemeOptions) (Output, error) {
	top, bottom = strings.TrimSpace(top), strings.TrimSpace(bottom)
	if top == "" && bottom == "" {
		return Output{}, ErrEmptyCaption
	}
	if opts.FontSize > MaxFontSize {
		return Output{}, fmt.Errorf("%w: font size must be at most %d", ErrInvalidOption, MaxFontSize)
	}
	if opts.StrokeWidth > MaxStrokeWidth {
		return Output{}, fmt.Errorf("%w: stroke width must be at most %d", ErrInvalidOption, MaxStrokeWidth)
	}
	def := DefaultMemeOptions()
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Fill == nil {
		opts.Fill = def.Fill
	}
	if opts.Stroke == nil {
		opts.Stroke = def.Stroke
	}
	if opts.StrokeWidth < 0 {
		opts.StrokeWidth = 0
	}

	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}
	canvas := imaging.Clone(d.Image)
	face, err := newFace(opts.FontSize)
	if err != nil {
		return Output{}, err
	}
	defer face.Close()

	st := textStyle{Size: opts.FontSize, Fill: opts.Fill, Stroke: opts.Stroke, StrokeWidth: opts.StrokeWidth}
	width := canvas.Bounds().Dx()
	height := canvas.Bounds().Dy()

	place := func(s string, y int) {
		if s == "" {
			return
		}
		w, _ := measure(face, s)
		x := max((width-w)/2, 0)
		drawText(canvas, face, s, x, y, st)
	}
	place(top, memeInsetY)
	place(bottom, height-memeInsetY-round(opts.FontSize))

	return Encode(canvas, PNG, 0, nil)
}
