// Package imagetools implements the raster image tools: compress, resize,
// crop, rotate, convert, filters, watermark, meme captions and EXIF
// metadata.
//
// Every operation takes the uploaded bytes and returns an encoded Output.
// Decoding honours the EXIF orientation tag so phone photos come out the
// right way up.
package imagetools

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrDecode            = errors.New("could not read the image; it may be corrupted or in an unsupported format")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrInvalidSize       = errors.New("width and height must be between 0 and 10000 pixels")
	ErrTooLarge          = errors.New("the image is too large to process")
	ErrEncode            = errors.New("could not write the image")
	ErrInvalidOption     = errors.New("option out of range")
	ErrEmptyCrop         = errors.New("crop area is outside the image")
	ErrEmptyWatermark    = errors.New("watermark text or image is required")
	ErrEmptyCaption      = errors.New("top or bottom text is required")
)

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 80

// Size limits. A decoded RGBA image takes four bytes per pixel, so
// MaxPixels keeps one image under 200MB.
const (
	MaxSide   = 10000
	MaxPixels = 50_000_000
)

// checkPixels rejects a w×h image that would exceed MaxPixels.
func checkPixels(w, h int) error {
	if w < 0 || h < 0 || int64(w)*int64(h) > MaxPixels {
		return fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, w, h)
	}
	return nil
}

// Format is an output encoding.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

var formats = map[Format]struct {
	ext  string
	mime string
	enc  imaging.Format
}{
	JPEG: {".jpg", "image/jpeg", imaging.JPEG},
	PNG:  {".png", "image/png", imaging.PNG},
	GIF:  {".gif", "image/gif", imaging.GIF},
	BMP:  {".bmp", "image/bmp", imaging.BMP},
	TIFF: {".tiff", "image/tiff", imaging.TIFF},
}

// ParseFormat accepts the usual spellings ("jpg", "JPEG", ".png", "tif").
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	switch s {
	case "jpg", "jpeg":
		return JPEG, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	f := Format(s)
	if _, ok := formats[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return formats[f].ext }

// MIME returns the content type.
func (f Format) MIME() string { return formats[f].mime }

// Output is an encoded image.
type Output struct {
	Data   []byte
	Format Format
	Width  int
	Height int
}

// Decoded is a decoded upload together with the format it was stored in.
type Decoded struct {
	Image  image.Image
	Format Format
}

// Decode reads data and applies the EXIF orientation. Formats that can be
// read but not written (WebP) report PNG as their format. Images above
// MaxPixels are refused before any pixel is decoded.
func Decode(data []byte) (Decoded, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height); err != nil {
		return Decoded{}, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	f, err := ParseFormat(name)
	if err != nil {
		f = PNG
	}
	return Decoded{Image: img, Format: f}, nil
}

// Encode writes img in format f. JPEG output is flattened onto bg first
// since JPEG has no alpha channel.
func Encode(img image.Image, f Format, quality int, bg color.Color) (Output, error) {
	spec, ok := formats[f]
	if !ok {
		return Output{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if f == JPEG {
		img = Flatten(img, bg)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, spec.enc, imaging.JPEGQuality(clampQuality(quality))); err != nil {
		return Output{}, fmt.Errorf("%w as %s: %w", ErrEncode, f, err)
	}

	b := img.Bounds()
	return Output{Data: buf.Bytes(), Format: f, Width: b.Dx(), Height: b.Dy()}, nil
}

// Flatten paints img over a solid background. A nil bg means white.
func Flatten(img image.Image, bg color.Color) image.Image {
	if bg == nil {
		bg = color.White
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1)
}

func clampQuality(q int) int {
	if q <= 0 {
		return DefaultQuality
	}
	if q > 100 {
		return 100
	}
	return q
}

// ParseColor reads "#rgb" or "#rrggbb". Anything else yields fallback.
func ParseColor(s string, fallback color.Color) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return fallback
		}
		r, g, b = r*17, g*17, b*17
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return fallback
		}
	default:
		return fallback
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
