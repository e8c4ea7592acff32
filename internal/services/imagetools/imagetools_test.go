package imagetools

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/watermark"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decoded(t *testing.T, out Output) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	return img
}

func gap(v float64) *float64 { return &v }

func nrgba(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jpg", JPEG, false},
		{"JPEG", JPEG, false},
		{".png", PNG, false},
		{"tif", TIFF, false},
		{"bmp", BMP, false},
		{"webp", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, ".jpg", JPEG.Ext())
	assert.Equal(t, "image/png", PNG.MIME())
}

func TestDecode(t *testing.T) {
	d, err := Decode(solidPNG(t, 4, 3, color.White))
	require.NoError(t, err)
	assert.Equal(t, PNG, d.Format)
	assert.Equal(t, 4, d.Image.Bounds().Dx())

	_, err = Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCompress_CapsLongestSide(t *testing.T) {
	out, err := Compress(solidPNG(t, 3000, 1000, color.NRGBA{R: 200, A: 255}), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, JPEG, out.Format)
	assert.Equal(t, 1920, out.Width)
	assert.Equal(t, 640, out.Height)

	small, err := Compress(solidPNG(t, 100, 50, color.White), 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, small.Width, "small images are not upscaled")
}

func TestResize(t *testing.T) {
	src := solidPNG(t, 200, 100, color.White)

	tests := []struct {
		name       string
		w, h       int
		wantW, wnH int
	}{
		{"width only keeps ratio", 100, 0, 100, 50},
		{"height only keeps ratio", 0, 50, 100, 50},
		{"both given", 30, 30, 30, 30},
		{"neither given", 0, 0, 200, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resize(src, tt.w, tt.h)
			require.NoError(t, err)
			assert.Equal(t, PNG, out.Format)
			assert.Equal(t, tt.wantW, out.Width)
			assert.Equal(t, tt.wnH, out.Height)
		})
	}

	_, err := Resize(src, -1, 10)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestCrop(t *testing.T) {
	src := solidPNG(t, 100, 80, color.White)

	out, err := Crop(src, image.Rect(10, 10, 60, 40))
	require.NoError(t, err)
	assert.Equal(t, 50, out.Width)
	assert.Equal(t, 30, out.Height)

	out, err = Crop(src, image.Rect(90, 70, 500, 500))
	require.NoError(t, err)
	assert.Equal(t, 10, out.Width, "clamped to the image")
	assert.Equal(t, 10, out.Height)

	_, err = Crop(src, image.Rect(200, 200, 300, 300))
	assert.ErrorIs(t, err, ErrEmptyCrop)
}

func TestRotate(t *testing.T) {
	src := solidPNG(t, 200, 100, color.NRGBA{B: 255, A: 255})

	for _, deg := range []float64{90, -90, 270} {
		out, err := Rotate(src, deg)
		require.NoError(t, err)
		assert.Equal(t, JPEG, out.Format)
		assert.Equal(t, 100, out.Width)
		assert.Equal(t, 200, out.Height)
	}

	out, err := Rotate(src, 45)
	require.NoError(t, err)
	img := decoded(t, out)
	corner := nrgba(img, 0, 0)
	assert.Greater(t, corner.R, uint8(240), "uncovered corners are white")
	assert.Greater(t, corner.G, uint8(240))
}

func TestConvert_FlattensTransparency(t *testing.T) {
	src := solidPNG(t, 10, 10, color.NRGBA{})

	out, err := Convert(src, JPEG, color.White)
	require.NoError(t, err)
	assert.Equal(t, JPEG, out.Format)
	c := nrgba(decoded(t, out), 5, 5)
	assert.Greater(t, c.R, uint8(245))

	out, err = Convert(src, JPEG, ParseColor("#000", nil))
	require.NoError(t, err)
	c = nrgba(decoded(t, out), 5, 5)
	assert.Less(t, c.R, uint8(10))

	_, err = Convert(src, Format("webp"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestAdjust(t *testing.T) {
	red := color.NRGBA{R: 200, G: 40, B: 40, A: 255}
	src := solidPNG(t, 8, 8, red)

	t.Run("identity", func(t *testing.T) {
		assert.True(t, DefaultFilters().IsIdentity())
		out, err := Adjust(src, DefaultFilters())
		require.NoError(t, err)
		assert.Equal(t, red, nrgba(decoded(t, out), 3, 3))
	})

	t.Run("full grayscale", func(t *testing.T) {
		f := DefaultFilters()
		f.Grayscale = 100
		out, err := Adjust(src, f)
		require.NoError(t, err)
		c := nrgba(decoded(t, out), 3, 3)
		assert.InDelta(t, int(c.R), int(c.G), 1)
		assert.InDelta(t, int(c.G), int(c.B), 1)
	})

	t.Run("zero brightness", func(t *testing.T) {
		f := DefaultFilters()
		f.Brightness = 0
		out, err := Adjust(src, f)
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{A: 255}, nrgba(decoded(t, out), 3, 3))
	})
}

func TestWatermark(t *testing.T) {
	src := solidPNG(t, 400, 300, color.White)

	t.Run("single text", func(t *testing.T) {
		out, err := Watermark(src, WatermarkOptions{Text: "SAMPLE", Rotation: 0, Opacity: 1})
		require.NoError(t, err)
		assert.Equal(t, 400, out.Width)

		img := decoded(t, out)
		dark := 0
		for x := 0; x < 400; x++ {
			if nrgba(img, x, 150).R < 128 {
				dark++
			}
		}
		assert.Positive(t, dark, "text crosses the middle row")
	})

	t.Run("tiled image", func(t *testing.T) {
		mark := solidPNG(t, 100, 100, color.NRGBA{R: 255, A: 255})
		out, err := Watermark(src, WatermarkOptions{
			Image: mark, Scale: 0.2, Opacity: 1,
			Mode: watermark.ModeTile, Rows: 2, Cols: 2, Gap: gap(10),
		})
		require.NoError(t, err)

		// 2x2 grid of 20px squares with a 10px gap, centered.
		img := decoded(t, out)
		assert.Equal(t, uint8(255), nrgba(img, 180, 130).R)
		assert.Equal(t, uint8(0), nrgba(img, 180, 130).G)
		assert.Equal(t, uint8(255), nrgba(img, 200, 150).G, "gap stays clear")
	})

	t.Run("zero gap packs tiles", func(t *testing.T) {
		mark := solidPNG(t, 100, 100, color.NRGBA{R: 255, A: 255})
		out, err := Watermark(src, WatermarkOptions{
			Image: mark, Scale: 0.2, Opacity: 1,
			Mode: watermark.ModeTile, Rows: 2, Cols: 2, Gap: gap(0),
		})
		require.NoError(t, err)

		// 2x2 grid of 20px squares with no gap spans x 180..220.
		img := decoded(t, out)
		assert.Equal(t, uint8(0), nrgba(img, 200, 150).G, "no gap between tiles")
		assert.Equal(t, uint8(255), nrgba(img, 225, 150).G)
	})

	t.Run("nothing to stamp", func(t *testing.T) {
		_, err := Watermark(src, WatermarkOptions{Text: "   "})
		assert.ErrorIs(t, err, ErrEmptyWatermark)
	})

	t.Run("out of range options", func(t *testing.T) {
		tests := []struct {
			name string
			opts WatermarkOptions
		}{
			{"rows", WatermarkOptions{Text: "x", Mode: watermark.ModeTile, Rows: 10000, Cols: 2}},
			{"cols", WatermarkOptions{Text: "x", Mode: watermark.ModeTile, Rows: 2, Cols: watermark.MaxGrid + 1}},
			{"font size", WatermarkOptions{Text: "x", FontSize: 60000}},
			{"scale", WatermarkOptions{Text: "x", Scale: 500}},
			{"gap", WatermarkOptions{Text: "x", Gap: gap(-1)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Watermark(src, tt.opts)
				assert.ErrorIs(t, err, ErrInvalidOption)
			})
		}
	})
}

func TestSizeLimits(t *testing.T) {
	small := solidPNG(t, 4, 4, color.White)

	t.Run("resize beyond the largest side", func(t *testing.T) {
		_, err := Resize(small, 60000, 60000)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("resize whose kept ratio overflows", func(t *testing.T) {
		tall := solidPNG(t, 1, 100, color.White)
		_, err := Resize(tall, 1000, 0)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("resize within limits", func(t *testing.T) {
		out, err := Resize(small, 40, 0)
		require.NoError(t, err)
		assert.Equal(t, 40, out.Width)
		assert.Equal(t, 40, out.Height)
	})

	t.Run("decode refuses huge headers", func(t *testing.T) {
		_, err := Decode(pngHeader(t, 60000, 60000))
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("meme options", func(t *testing.T) {
		_, err := Meme(small, "top", "", MemeOptions{FontSize: 5000})
		assert.ErrorIs(t, err, ErrInvalidOption)
		_, err = Meme(small, "top", "", MemeOptions{StrokeWidth: 500})
		assert.ErrorIs(t, err, ErrInvalidOption)
	})

	t.Run("blur", func(t *testing.T) {
		f := DefaultFilters()
		f.Blur = 5000
		_, err := Adjust(small, f)
		assert.ErrorIs(t, err, ErrInvalidOption)
	})
}

// pngHeader returns the signature and IHDR chunk of a w×h PNG. It is
// enough for image.DecodeConfig and nothing else.
func pngHeader(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	chunk := append([]byte("IHDR"), ihdr...)
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(ihdr))))
	buf.Write(chunk)
	require.NoError(t, binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk)))
	return buf.Bytes()
}

func TestMeme(t *testing.T) {
	src := solidPNG(t, 300, 200, color.NRGBA{B: 120, A: 255})

	out, err := Meme(src, "top text", "bottom text", DefaultMemeOptions())
	require.NoError(t, err)
	assert.Equal(t, PNG, out.Format)
	assert.Equal(t, 300, out.Width)

	_, err = Meme(src, "", "  ", MemeOptions{})
	assert.ErrorIs(t, err, ErrEmptyCaption)
}

func TestReadMetadata_NoEXIF(t *testing.T) {
	md, err := ReadMetadata(solidPNG(t, 12, 7, color.White))
	require.NoError(t, err)
	assert.Equal(t, "png", md.Format)
	assert.Equal(t, 12, md.Width)
	assert.Equal(t, 7, md.Height)
	assert.False(t, md.HasEXIF)
	assert.Empty(t, md.Tags)
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, ParseColor("#ff0000", nil))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, ParseColor("fff", nil))
	assert.Equal(t, color.Black, ParseColor("red", color.Black))
}
