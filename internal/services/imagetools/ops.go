package imagetools

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultMaxDimension caps the longest side of a compressed image.
const DefaultMaxDimension = 1920

// MaxBlur is the largest blur radius Adjust accepts.
const MaxBlur = 100

// Compress re-encodes data as JPEG, scaling it down so that neither side
// exceeds maxDim. Non-positive arguments fall back to the defaults.
func Compress(data []byte, quality, maxDim int) (Output, error) {
	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	img := d.Image
	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	return Encode(img, JPEG, quality, color.White)
}

// Resize scales data to w×h. When one side is zero the aspect ratio is
// kept; when both are zero the image is re-encoded at its original size.
// Neither side may exceed MaxSide.
func Resize(data []byte, w, h int) (Output, error) {
	if w < 0 || h < 0 || w > MaxSide || h > MaxSide {
		return Output{}, ErrInvalidSize
	}
	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}

	img := d.Image
	if w > 0 || h > 0 {
		tw, th := targetSize(img.Bounds(), w, h)
		if tw > MaxSide || th > MaxSide {
			return Output{}, ErrInvalidSize
		}
		if err := checkPixels(tw, th); err != nil {
			return Output{}, err
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	return Encode(img, d.Format, DefaultQuality, color.White)
}

// targetSize fills in the side left at zero the way imaging.Resize does.
func targetSize(b image.Rectangle, w, h int) (int, int) {
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return w, h
	}
	switch {
	case w == 0:
		w = max(1, round(float64(h)*float64(sw)/float64(sh)))
	case h == 0:
		h = max(1, round(float64(w)*float64(sh)/float64(sw)))
	}
	return w, h
}

// Crop cuts rect (in pixels of the oriented image) out of data. The
// rectangle is clamped to the image bounds first.
func Crop(data []byte, rect image.Rectangle) (Output, error) {
	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}

	area := rect.Canon().Intersect(d.Image.Bounds())
	if area.Empty() {
		return Output{}, ErrEmptyCrop
	}
	return Encode(imaging.Crop(d.Image, area), d.Format, DefaultQuality, color.White)
}

// Rotate turns data clockwise by degrees. The canvas grows to fit the
// rotated image and the uncovered corners are white. Output is JPEG.
func Rotate(data []byte, degrees float64) (Output, error) {
	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}
	b := d.Image.Bounds()
	rad := degrees * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	w := math.Ceil(float64(b.Dx())*cos + float64(b.Dy())*sin)
	h := math.Ceil(float64(b.Dx())*sin + float64(b.Dy())*cos)
	if err := checkPixels(int(w), int(h)); err != nil {
		return Output{}, err
	}

	// imaging rotates counter-clockwise.
	img := imaging.Rotate(d.Image, -degrees, color.White)
	return Encode(img, JPEG, 92, color.White)
}

// Convert re-encodes data in format f. Transparent pixels are painted
// with bg when the target has no alpha channel.
func Convert(data []byte, f Format, bg color.Color) (Output, error) {
	if _, ok := formats[f]; !ok {
		return Output{}, ErrUnsupportedFormat
	}
	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}
	return Encode(d.Image, f, 100, bg)
}

// Filters mirrors the CSS filter functions of the photo editor. The three
// percentages default to 100 (unchanged); Grayscale and Sepia are amounts
// from 0 to 100; Blur is a radius in pixels.
type Filters struct {
	Brightness float64 `json:"brightness" form:"brightness"`
	Contrast   float64 `json:"contrast" form:"contrast"`
	Saturate   float64 `json:"saturate" form:"saturate"`
	Grayscale  float64 `json:"grayscale" form:"grayscale"`
	Sepia      float64 `json:"sepia" form:"sepia"`
	Blur       float64 `json:"blur" form:"blur" binding:"min=0,max=100"`
}

// DefaultFilters leaves the image untouched.
func DefaultFilters() Filters {
	return Filters{Brightness: 100, Contrast: 100, Saturate: 100}
}

// IsIdentity reports whether f would leave every pixel unchanged.
func (f Filters) IsIdentity() bool {
	return f == DefaultFilters()
}

// Adjust applies f in CSS order (brightness, contrast, saturate,
// grayscale, sepia, blur) and returns a PNG.
func Adjust(data []byte, f Filters) (Output, error) {
	if f.Blur > MaxBlur {
		return Output{}, fmt.Errorf("%w: blur must be at most %d pixels", ErrInvalidOption, MaxBlur)
	}
	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}
	return Encode(applyFilters(d.Image, f), PNG, 0, nil)
}

func applyFilters(src image.Image, f Filters) image.Image {
	img := imaging.Clone(src)

	if f.Brightness != 100 {
		k := math.Max(f.Brightness, 0) / 100
		img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			return mapRGB(c, func(v float64) float64 { return v * k })
		})
	}
	if f.Contrast != 100 {
		k := math.Max(f.Contrast, 0) / 100
		img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			return mapRGB(c, func(v float64) float64 { return (v-0.5)*k + 0.5 })
		})
	}
	if f.Saturate != 100 {
		img = imaging.AdjustSaturation(img, math.Max(f.Saturate, 0)-100)
	}
	if g := amount(f.Grayscale); g > 0 {
		img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			return grayscale(c, g)
		})
	}
	if s := amount(f.Sepia); s > 0 {
		img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
			return sepia(c, s)
		})
	}
	if f.Blur > 0 {
		img = imaging.Blur(img, f.Blur)
	}
	return img
}

func amount(pct float64) float64 {
	return math.Min(math.Max(pct, 0), 100) / 100
}

func mapRGB(c color.NRGBA, fn func(float64) float64) color.NRGBA {
	conv := func(v uint8) uint8 {
		return toByte(fn(float64(v) / 255))
	}
	return color.NRGBA{R: conv(c.R), G: conv(c.G), B: conv(c.B), A: c.A}
}

func toByte(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

// grayscale and sepia use the matrices of the CSS Filter Effects spec.
func grayscale(c color.NRGBA, a float64) color.NRGBA {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	k := 1 - a
	return color.NRGBA{
		R: toByte((0.2126+0.7874*k)*r + (0.7152-0.7152*k)*g + (0.0722-0.0722*k)*b),
		G: toByte((0.2126-0.2126*k)*r + (0.7152+0.2848*k)*g + (0.0722-0.0722*k)*b),
		B: toByte((0.2126-0.2126*k)*r + (0.7152-0.7152*k)*g + (0.0722+0.9278*k)*b),
		A: c.A,
	}
}

func sepia(c color.NRGBA, a float64) color.NRGBA {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	k := 1 - a
	return color.NRGBA{
		R: toByte((0.393+0.607*k)*r + (0.769-0.769*k)*g + (0.189-0.189*k)*b),
		G: toByte((0.349-0.349*k)*r + (0.686+0.314*k)*g + (0.168-0.168*k)*b),
		B: toByte((0.272-0.272*k)*r + (0.534-0.534*k)*g + (0.131+0.869*k)*b),
		A: c.A,
	}
}
