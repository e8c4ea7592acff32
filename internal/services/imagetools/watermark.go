package imagetools

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/watermark"
)

// Watermark defaults for raster images.
const (
	WatermarkMargin   = 20
	DefaultTileGap    = 50
	DefaultTextSize   = 48
	DefaultOpacity    = 0.5
	DefaultRotation   = -45
	DefaultImageScale = 0.2

	MaxFontSize = 1000
	MaxScale    = 10
)

// WatermarkOptions configures Watermark. Either Text or Image must be set;
// Image wins when both are.
type WatermarkOptions struct {
	Text     string
	FontSize float64
	Color    color.Color

	Image []byte
	Scale float64 // watermark image size relative to its own pixels

	Opacity  float64
	Rotation float64 // degrees, clockwise
	Mode     watermark.Mode
	Anchor   watermark.Anchor
	Gap      *float64 // nil means DefaultTileGap; 0 packs tiles edge to edge
	Rows     int
	Cols     int
}

// validate rejects options whose rendering would need unbounded memory.
func (o WatermarkOptions) validate() error {
	switch {
	case o.Rows > watermark.MaxGrid || o.Cols > watermark.MaxGrid:
		return fmt.Errorf("%w: rows and cols must be at most %d", ErrInvalidOption, watermark.MaxGrid)
	case o.FontSize > MaxFontSize:
		return fmt.Errorf("%w: font size must be at most %d", ErrInvalidOption, MaxFontSize)
	case o.Scale > MaxScale:
		return fmt.Errorf("%w: scale must be at most %d", ErrInvalidOption, MaxScale)
	case o.Gap != nil && (*o.Gap < 0 || *o.Gap > MaxSide):
		return fmt.Errorf("%w: gap must be between 0 and %d", ErrInvalidOption, MaxSide)
	}
	return nil
}

func (o WatermarkOptions) withDefaults() WatermarkOptions {
	if o.FontSize <= 0 {
		o.FontSize = DefaultTextSize
	}
	if o.Color == nil {
		o.Color = color.Black
	}
	if o.Scale <= 0 {
		o.Scale = DefaultImageScale
	}
	if o.Opacity <= 0 || o.Opacity > 1 {
		o.Opacity = DefaultOpacity
	}
	if o.Mode == "" {
		o.Mode = watermark.ModeSingle
	}
	if o.Anchor == "" {
		o.Anchor = watermark.Center
	}
	if o.Gap == nil {
		gap := float64(DefaultTileGap)
		o.Gap = &gap
	}
	return o
}

// Watermark stamps text or an image onto data. Every item is rotated about
// its own center. The output keeps the input format.
func Watermark(data []byte, opts WatermarkOptions) (Output, error) {
	if err := opts.validate(); err != nil {
		return Output{}, err
	}
	opts = opts.withDefaults()
	if len(opts.Image) == 0 && strings.TrimSpace(opts.Text) == "" {
		return Output{}, ErrEmptyWatermark
	}

	d, err := Decode(data)
	if err != nil {
		return Output{}, err
	}

	item, err := watermarkItem(opts)
	if err != nil {
		return Output{}, err
	}

	canvas := imaging.Clone(d.Image)
	b := canvas.Bounds()
	iw, ih := float64(item.Bounds().Dx()), float64(item.Bounds().Dy())

	points := watermark.Positions(watermark.Layout{
		CanvasWidth:  float64(b.Dx()),
		CanvasHeight: float64(b.Dy()),
		ItemWidth:    iw,
		ItemHeight:   ih,
		Mode:         opts.Mode,
		Anchor:       opts.Anchor,
		Origin:       watermark.OriginTopLeft,
		Margin:       WatermarkMargin,
		Gap:          *opts.Gap,
		Rows:         opts.Rows,
		Cols:         opts.Cols,
	})

	stamp := item
	if opts.Rotation != 0 {
		stamp = imaging.Rotate(item, -opts.Rotation, color.Transparent)
	}
	sw, sh := float64(stamp.Bounds().Dx()), float64(stamp.Bounds().Dy())

	for _, p := range points {
		// Center the rotated stamp on the center of the unrotated box.
		at := image.Pt(round(p.X+iw/2-sw/2), round(p.Y+ih/2-sh/2))
		canvas = imaging.Overlay(canvas, stamp, at, opts.Opacity)
	}

	return Encode(canvas, d.Format, DefaultQuality, color.White)
}

func watermarkItem(opts WatermarkOptions) (*image.NRGBA, error) {
	if len(opts.Image) > 0 {
		wm, err := Decode(opts.Image)
		if err != nil {
			return nil, err
		}
		b := wm.Image.Bounds()
		w := max(1, round(float64(b.Dx())*opts.Scale))
		h := max(1, round(float64(b.Dy())*opts.Scale))
		if err := checkPixels(w, h); err != nil {
			return nil, err
		}
		return imaging.Resize(wm.Image, w, h, imaging.Lanczos), nil
	}
	return renderText(opts.Text, textStyle{Size: opts.FontSize, Fill: opts.Color})
}
