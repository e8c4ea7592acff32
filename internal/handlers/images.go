// images.go handles the image tool endpoints under /api/v1/images.
package handlers

import (
	"image"
	"image/color"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/imagetools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/watermark"
)

// imageOutput names out after the upload with the extension of its format.
func imageOutput(r *run, out imagetools.Output) output {
	return output{
		Name:        tools.DownloadName(r.tool.Slug, r.first().Name, out.Format.Ext()),
		ContentType: out.Format.MIME(),
		Data:        out.Data,
	}
}

// imageStep binds opts, runs fn on the upload and sends the result.
func (h *Handler) imageStep(c *gin.Context, slug string, opts any, fn func(data []byte) (imagetools.Output, error)) {
	r := h.begin(c, slug)
	if r == nil {
		return
	}
	if opts != nil && !h.bindOptions(c, opts) {
		return
	}
	out, err := fn(r.first().Data)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.finish(c, r, imageOutput(r, out))
}

type compressImageOptions struct {
	Quality      int `form:"quality,default=80" binding:"min=1,max=100"`
	MaxDimension int `form:"max_dimension,default=1920" binding:"min=1,max=10000"`
}

// CompressImage re-encodes the image as JPEG at the given quality.
// POST /api/v1/images/compress
func (h *Handler) CompressImage(c *gin.Context) {
	var opts compressImageOptions
	h.imageStep(c, "compress-image", &opts, func(data []byte) (imagetools.Output, error) {
		return imagetools.Compress(data, opts.Quality, opts.MaxDimension)
	})
}

type resizeOptions struct {
	Width  int `form:"width" binding:"min=0,max=10000"`
	Height int `form:"height" binding:"min=0,max=10000"`
}

// ResizeImage scales the image; a zero side keeps the aspect ratio.
// POST /api/v1/images/resize
func (h *Handler) ResizeImage(c *gin.Context) {
	var opts resizeOptions
	h.imageStep(c, "resize-image", &opts, func(data []byte) (imagetools.Output, error) {
		return imagetools.Resize(data, opts.Width, opts.Height)
	})
}

type cropOptions struct {
	X      int `form:"x"`
	Y      int `form:"y"`
	Width  int `form:"width" binding:"required"`
	Height int `form:"height" binding:"required"`
}

// CropImage cuts the rectangle at (x, y) out of the image.
// POST /api/v1/images/crop
func (h *Handler) CropImage(c *gin.Context) {
	var opts cropOptions
	h.imageStep(c, "crop-image", &opts, func(data []byte) (imagetools.Output, error) {
		return imagetools.Crop(data, image.Rect(opts.X, opts.Y, opts.X+opts.Width, opts.Y+opts.Height))
	})
}

type rotateImageOptions struct {
	Degrees float64 `form:"degrees,default=90"`
}

// RotateImage turns the image clockwise by any angle.
// POST /api/v1/images/rotate
func (h *Handler) RotateImage(c *gin.Context) {
	var opts rotateImageOptions
	h.imageStep(c, "rotate-image", &opts, func(data []byte) (imagetools.Output, error) {
		return imagetools.Rotate(data, opts.Degrees)
	})
}

type convertImageOptions struct {
	Format     string `form:"format" binding:"required"`
	Background string `form:"background,default=#ffffff"`
}

// ConvertImage re-encodes the image in another format.
// POST /api/v1/images/convert
func (h *Handler) ConvertImage(c *gin.Context) {
	var opts convertImageOptions
	h.imageStep(c, "convert-image", &opts, func(data []byte) (imagetools.Output, error) {
		f, err := imagetools.ParseFormat(opts.Format)
		if err != nil {
			return imagetools.Output{}, err
		}
		return imagetools.Convert(data, f, imagetools.ParseColor(opts.Background, color.White))
	})
}

// FilterImage applies the photo editor's filters. Fields left out keep
// their neutral value.
// POST /api/v1/images/filters
func (h *Handler) FilterImage(c *gin.Context) {
	opts := imagetools.DefaultFilters()
	h.imageStep(c, "photo-editor", &opts, func(data []byte) (imagetools.Output, error) {
		return imagetools.Adjust(data, opts)
	})
}

type imageWatermarkOptions struct {
	Text     string   `form:"text"`
	FontSize float64  `form:"font_size" binding:"min=0,max=1000"`
	Color    string   `form:"color,default=#000000"`
	Scale    float64  `form:"scale" binding:"min=0,max=10"`
	Opacity  float64  `form:"opacity"`
	Rotation float64  `form:"rotation,default=-45"`
	Mode     string   `form:"mode"`
	Position string   `form:"position"`
	Gap      *float64 `form:"gap" binding:"omitempty,min=0,max=10000"`
	Rows     int      `form:"rows,default=3" binding:"min=0,max=20"`
	Cols     int      `form:"cols,default=3" binding:"min=0,max=20"`
}

// WatermarkImage stamps text, or the image uploaded as "image".
// POST /api/v1/images/watermark
func (h *Handler) WatermarkImage(c *gin.Context) {
	var opts imageWatermarkOptions
	h.imageStep(c, "watermark-image", &opts, func(data []byte) (imagetools.Output, error) {
		mark, err := extraFile(c, "image", tools.KindImage)
		if err != nil {
			return imagetools.Output{}, err
		}
		return imagetools.Watermark(data, imagetools.WatermarkOptions{
			Text:     opts.Text,
			FontSize: opts.FontSize,
			Color:    imagetools.ParseColor(opts.Color, color.Black),
			Image:    mark,
			Scale:    opts.Scale,
			Opacity:  opts.Opacity,
			Rotation: opts.Rotation,
			Mode:     watermark.ParseMode(opts.Mode),
			Anchor:   watermark.ParseAnchor(opts.Position),
			Gap:      opts.Gap,
			Rows:     opts.Rows,
			Cols:     opts.Cols,
		})
	})
}

type memeOptions struct {
	TopText     string  `form:"top_text"`
	BottomText  string  `form:"bottom_text"`
	FontSize    float64 `form:"font_size,default=40" binding:"min=0,max=1000"`
	Fill        string  `form:"fill,default=#ffffff"`
	Stroke      string  `form:"stroke,default=#000000"`
	StrokeWidth int     `form:"stroke_width,default=2" binding:"min=0,max=20"`
}

// MemeImage writes captions at the top and bottom of the image.
// POST /api/v1/images/meme
func (h *Handler) MemeImage(c *gin.Context) {
	var opts memeOptions
	h.imageStep(c, "meme-generator", &opts, func(data []byte) (imagetools.Output, error) {
		return imagetools.Meme(data, opts.TopText, opts.BottomText, imagetools.MemeOptions{
			FontSize:    opts.FontSize,
			Fill:        imagetools.ParseColor(opts.Fill, color.White),
			Stroke:      imagetools.ParseColor(opts.Stroke, color.Black),
			StrokeWidth: opts.StrokeWidth,
		})
	})
}

// ImageMetadata lists the EXIF tags of a photo and flags the ones that
// reveal location or device. It does not count as a conversion.
// POST /api/v1/images/metadata
func (h *Handler) ImageMetadata(c *gin.Context) {
	r := h.begin(c, "image-metadata")
	if r == nil {
		return
	}
	meta, err := imagetools.ReadMetadata(r.first().Data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}
