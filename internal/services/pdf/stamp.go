package pdf

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/watermark"
)

// Placement constants.
const (
	watermarkMargin = 20.0
	signatureWidth  = 150.0
	signatureMargin = 50.0
)

// Standard 14 fonts that need no embedding.
var coreFonts = map[string]bool{
	"Helvetica": true, "Helvetica-Bold": true, "Helvetica-Oblique": true, "Helvetica-BoldOblique": true,
	"Times-Roman": true, "Times-Bold": true, "Times-Italic": true, "Times-BoldItalic": true,
	"Courier": true, "Courier-Bold": true, "Courier-Oblique": true, "Courier-BoldOblique": true,
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TextStyle describes how stamped text looks.
type TextStyle struct {
	Font     string  `json:"font"`
	Size     int     `json:"font_size"`
	Color    string  `json:"color"` // #rrggbb
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
}

func (s TextStyle) normalized(defaults TextStyle) TextStyle {
	if !coreFonts[s.Font] {
		s.Font = defaults.Font
	}
	if s.Size <= 0 {
		s.Size = defaults.Size
	}
	if !hexColor.MatchString(s.Color) {
		s.Color = defaults.Color
	}
	if s.Opacity <= 0 || s.Opacity > 1 {
		s.Opacity = defaults.Opacity
	}
	return s
}

// width measures text in points.
func (s TextStyle) width(text string) float64 {
	return font.TextWidth(text, s.Font, s.Size)
}

// textWatermark builds a stamp whose lower-left corner sits at p.
func textWatermark(text string, s TextStyle, p watermark.Point) (*model.Watermark, error) {
	desc := fmt.Sprintf(
		"fontname:%s, points:%d, position:bl, offset:%.2f %.2f, scalefactor:1 abs, rotation:%.1f, opacity:%.2f, fillcolor:%s",
		s.Font, s.Size, p.X, p.Y, s.Rotation, s.Opacity, s.Color,
	)
	return api.TextWatermark(text, desc, true, false, types.POINTS)
}

// imageWatermark builds an image stamp scaled to width points at p.
func imageWatermark(img []byte, scale, opacity float64, p watermark.Point) (*model.Watermark, error) {
	desc := fmt.Sprintf(
		"position:bl, offset:%.2f %.2f, scalefactor:%.4f abs, rotation:0, opacity:%.2f",
		p.X, p.Y, scale, opacity,
	)
	return api.ImageWatermarkForReader(bytes.NewReader(img), desc, true, false, types.POINTS)
}

// stampPages applies per-page stamps in one pass.
func stampPages(doc []byte, stamps map[int][]*model.Watermark) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(doc), &buf, stamps, newConfig()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func imageSize(img []byte) (int, int, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if format != "png" && format != "jpeg" {
		return 0, 0, fmt.Errorf("%w: %s", ErrInvalidImage, format)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return cfg.Width, cfg.Height, nil
}

// --- Page numbers ---

// DefaultPageNumberFormat is used when no format is given.
const DefaultPageNumberFormat = "Page {n} of {total}"

// PageNumberOptions configures AddPageNumbers. Position accepts the top and
// bottom anchors only; anything else becomes bottom-center.
type PageNumberOptions struct {
	Format   string           `json:"format"`
	Position watermark.Anchor `json:"position"`
	Margin   float64          `json:"margin"`
	Style    TextStyle        `json:"style"`
}

var pageNumberDefaults = TextStyle{Font: "Helvetica", Size: 12, Color: "#000000", Opacity: 1}

// FormatPageNumber expands {n} and {total}.
func FormatPageNumber(format string, n, total int) string {
	if format == "" {
		format = DefaultPageNumberFormat
	}
	r := strings.NewReplacer("{n}", strconv.Itoa(n), "{total}", strconv.Itoa(total))
	return r.Replace(format)
}

// AddPageNumbers writes a page label on every page.
func AddPageNumbers(doc []byte, opts PageNumberOptions) ([]byte, error) {
	switch opts.Position {
	case watermark.TopLeft, watermark.TopCenter, watermark.TopRight,
		watermark.BottomLeft, watermark.BottomCenter, watermark.BottomRight:
	default:
		opts.Position = watermark.BottomCenter
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	}
	style := opts.Style.normalized(pageNumberDefaults)
	style.Rotation = 0

	sizes, err := PageSizes(doc)
	if err != nil {
		return nil, err
	}

	stamps := make(map[int][]*model.Watermark, len(sizes))
	for i, size := range sizes {
		label := FormatPageNumber(opts.Format, i+1, len(sizes))
		pos := watermark.Positions(watermark.Layout{
			CanvasWidth:  size.Width,
			CanvasHeight: size.Height,
			ItemWidth:    style.width(label),
			ItemHeight:   float64(style.Size),
			Mode:         watermark.ModeSingle,
			Anchor:       opts.Position,
			Origin:       watermark.OriginBottomLeft,
			Margin:       opts.Margin,
		})[0]

		wm, err := textWatermark(label, style, pos)
		if err != nil {
			return nil, processing("page numbers", err)
		}
		stamps[i+1] = []*model.Watermark{wm}
	}

	out, err := stampPages(doc, stamps)
	if err != nil {
		return nil, processing("page numbers", err)
	}
	return out, nil
}

// --- Watermark ---

// WatermarkOptions configures Watermark. When Image is set the image is
// stamped once per page at Anchor; otherwise Text is stamped in Mode.
type WatermarkOptions struct {
	Text   string           `json:"text"`
	Style  TextStyle        `json:"style"`
	Mode   watermark.Mode   `json:"mode"`
	Anchor watermark.Anchor `json:"position"`
	Rows   int              `json:"rows"`
	Cols   int              `json:"cols"`
	// Gap between tiles in points. Zero spreads tiles evenly over the page.
	Gap float64 `json:"gap"`

	Image        []byte  `json:"-"`
	ImageScale   float64 `json:"scale"`
	ImageOpacity float64 `json:"image_opacity"`

	// Pages limits the watermark to these pages; empty means all.
	Pages []int `json:"pages"`
}

var watermarkDefaults = TextStyle{Font: "Helvetica-Bold", Size: 30, Color: "#ff0000", Opacity: 0.5}

// Watermark stamps text or an image on the selected pages.
func Watermark(doc []byte, opts WatermarkOptions) ([]byte, error) {
	useImage := len(opts.Image) > 0
	if !useImage && strings.TrimSpace(opts.Text) == "" {
		return nil, ErrEmptyWatermark
	}

	var imgW, imgH int
	if useImage {
		var err error
		if imgW, imgH, err = imageSize(opts.Image); err != nil {
			return nil, err
		}
		if opts.ImageScale <= 0 {
			opts.ImageScale = 1
		}
		if opts.ImageOpacity <= 0 || opts.ImageOpacity > 1 {
			opts.ImageOpacity = 0.5
		}
	}
	if opts.Rows > watermark.MaxGrid || opts.Cols > watermark.MaxGrid {
		return nil, ErrTooManyTiles
	}
	if opts.Rows < 1 {
		opts.Rows = 3
	}
	if opts.Cols < 1 {
		opts.Cols = 3
	}
	style := opts.Style.normalized(watermarkDefaults)

	sizes, err := PageSizes(doc)
	if err != nil {
		return nil, err
	}
	pages := NormalizePages(opts.Pages, len(sizes))
	if len(opts.Pages) > 0 && len(pages) == 0 {
		return nil, ErrNoPagesSelected
	}
	if len(pages) == 0 {
		for i := range sizes {
			pages = append(pages, i+1)
		}
	}

	stamps := make(map[int][]*model.Watermark, len(pages))
	for _, pg := range pages {
		size := sizes[pg-1]
		layout := watermark.Layout{
			CanvasWidth:  size.Width,
			CanvasHeight: size.Height,
			Mode:         watermark.ModeSingle,
			Anchor:       opts.Anchor,
			Origin:       watermark.OriginBottomLeft,
			Margin:       watermarkMargin,
		}

		if useImage {
			layout.ItemWidth = float64(imgW) * opts.ImageScale
			layout.ItemHeight = float64(imgH) * opts.ImageScale
			p := watermark.Positions(layout)[0]
			wm, err := imageWatermark(opts.Image, opts.ImageScale, opts.ImageOpacity, p)
			if err != nil {
				return nil, processing("image watermark", err)
			}
			stamps[pg] = []*model.Watermark{wm}
			continue
		}

		layout.ItemWidth = style.width(opts.Text)
		layout.ItemHeight = float64(style.Size)
		if opts.Mode == watermark.ModeTile {
			layout.Mode = watermark.ModeTile
			layout.Rows, layout.Cols = opts.Rows, opts.Cols
			layout.Gap, layout.RowGap = opts.Gap, opts.Gap
			if opts.Gap <= 0 {
				layout.Gap = watermark.Spread(size.Width, layout.ItemWidth, opts.Cols)
				layout.RowGap = watermark.Spread(size.Height, layout.ItemHeight, opts.Rows)
			}
		}

		for _, p := range watermark.Positions(layout) {
			wm, err := textWatermark(opts.Text, style, p)
			if err != nil {
				return nil, processing("text watermark", err)
			}
			stamps[pg] = append(stamps[pg], wm)
		}
	}

	out, err := stampPages(doc, stamps)
	if err != nil {
		return nil, processing("watermark", err)
	}
	return out, nil
}

// --- Signature ---

// Sign stamps a signature image 150pt wide near one corner of page. The
// placement accepts the four corner anchors; anything else is bottom-right.
func Sign(doc, signature []byte, page int, placement watermark.Anchor) ([]byte, error) {
	w, h, err := imageSize(signature)
	if err != nil {
		return nil, err
	}

	sizes, err := PageSizes(doc)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > len(sizes) {
		return nil, fmt.Errorf("page %d of %d: %w", page, len(sizes), ErrInvalidPage)
	}

	switch placement {
	case watermark.TopLeft, watermark.TopRight, watermark.BottomLeft, watermark.BottomRight:
	default:
		placement = watermark.BottomRight
	}

	scale := signatureWidth / float64(w)
	size := sizes[page-1]
	p := watermark.Positions(watermark.Layout{
		CanvasWidth:  size.Width,
		CanvasHeight: size.Height,
		ItemWidth:    signatureWidth,
		ItemHeight:   float64(h) * scale,
		Mode:         watermark.ModeSingle,
		Anchor:       placement,
		Origin:       watermark.OriginBottomLeft,
		Margin:       signatureMargin,
	})[0]

	wm, err := imageWatermark(signature, scale, 1, p)
	if err != nil {
		return nil, processing("sign", err)
	}
	out, err := stampPages(doc, map[int][]*model.Watermark{page: {wm}})
	if err != nil {
		return nil, processing("sign", err)
	}
	return out, nil
}
