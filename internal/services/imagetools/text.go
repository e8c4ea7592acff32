package imagetools

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var boldFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

// newFace returns a face of the bundled bold font at size pixels. Faces
// are not safe for concurrent use, so every call gets its own.
func newFace(size float64) (font.Face, error) {
	f, err := boldFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if size <= 0 {
		size = 12
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// textStyle describes how a line of text is painted.
type textStyle struct {
	Size        float64
	Fill        color.Color
	Stroke      color.Color
	StrokeWidth int
}

// measure returns the advance width and line height of s.
func measure(face font.Face, s string) (int, int) {
	m := face.Metrics()
	return font.MeasureString(face, s).Ceil(), (m.Ascent + m.Descent).Ceil()
}

// renderText paints s onto a transparent image just large enough to hold
// it, including the stroke.
func renderText(s string, st textStyle) (*image.NRGBA, error) {
	face, err := newFace(st.Size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	pad := st.StrokeWidth
	w, h := measure(face, s)
	if err := checkPixels(w+2*pad, h+2*pad); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, w+2*pad, h+2*pad))
	drawText(img, face, s, pad, pad, st)
	return img, nil
}

// drawText writes s with its top-left corner at (x, y). The stroke is
// approximated by painting the text at every offset within StrokeWidth
// before the fill.
func drawText(dst draw.Image, face font.Face, s string, x, y int, st textStyle) {
	baseline := y + face.Metrics().Ascent.Ceil()
	d := &font.Drawer{Dst: dst, Face: face}

	if st.Stroke != nil && st.StrokeWidth > 0 {
		d.Src = image.NewUniform(st.Stroke)
		r := st.StrokeWidth
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy > r*r {
					continue
				}
				d.Dot = fixed.P(x+dx, baseline+dy)
				d.DrawString(s)
			}
		}
	}

	fill := st.Fill
	if fill == nil {
		fill = color.Black
	}
	d.Src = image.NewUniform(fill)
	d.Dot = fixed.P(x, baseline)
	d.DrawString(s)
}

func round(v float64) int { return int(math.Round(v)) }
