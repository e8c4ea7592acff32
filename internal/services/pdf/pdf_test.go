package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/watermark"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 20, G: 40, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fivePages() []byte {
	return BlankDocument(A4, Letter, A4, Letter, A4)
}

func requirePages(t *testing.T, doc []byte, want int) {
	t.Helper()
	n, err := PageCount(doc)
	require.NoError(t, err)
	require.Equal(t, want, n)
}

func TestBlankDocument(t *testing.T) {
	doc := BlankDocument(A4, Letter)
	assert.True(t, ValidatePDF(doc))

	sizes, err := PageSizes(doc)
	require.NoError(t, err)
	require.Len(t, sizes, 2)
	assert.InDelta(t, A4.Width, sizes[0].Width, 0.01)
	assert.InDelta(t, Letter.Height, sizes[1].Height, 0.01)
}

func TestMerge_PreservesOrder(t *testing.T) {
	tests := []struct {
		name  string
		docs  [][]byte
		sizes []PageSize
	}{
		{"a4 then letter", [][]byte{BlankPage(A4), BlankPage(Letter)}, []PageSize{A4, Letter}},
		{"letter then a4", [][]byte{BlankPage(Letter), BlankPage(A4)}, []PageSize{Letter, A4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Merge(tt.docs)
			require.NoError(t, err)

			sizes, err := PageSizes(out)
			require.NoError(t, err)
			require.Len(t, sizes, 2)
			for i := range sizes {
				assert.InDelta(t, tt.sizes[i].Width, sizes[i].Width, 0.01, "page %d", i+1)
				assert.InDelta(t, tt.sizes[i].Height, sizes[i].Height, 0.01, "page %d", i+1)
			}
		})
	}

	t.Run("no documents", func(t *testing.T) {
		_, err := Merge(nil)
		assert.ErrorIs(t, err, ErrNoDocuments)
	})
}

func TestExtract_PageCountMatchesSelection(t *testing.T) {
	doc := fivePages()

	tests := []struct {
		name  string
		pages []int
		want  int
	}{
		{"two pages", []int{1, 3}, 2},
		{"duplicates collapse", []int{2, 2, 5}, 2},
		{"unsorted", []int{5, 1, 4}, 3},
		{"out of range dropped", []int{0, 9, 2}, 1},
		{"every page", []int{1, 2, 3, 4, 5}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Extract(doc, tt.pages)
			require.NoError(t, err)
			requirePages(t, out, tt.want)
		})
	}

	t.Run("empty selection", func(t *testing.T) {
		_, err := Extract(doc, nil)
		assert.ErrorIs(t, err, ErrNoPagesSelected)
		_, err = Extract(doc, []int{42})
		assert.ErrorIs(t, err, ErrNoPagesSelected)
	})
}

func TestRemove(t *testing.T) {
	doc := fivePages()

	out, err := Remove(doc, []int{2, 4})
	require.NoError(t, err)
	requirePages(t, out, 3)

	_, err = Remove(doc, []int{1, 2, 3, 4, 5})
	assert.ErrorIs(t, err, ErrAllPagesRemoved)

	_, err = Remove(doc, nil)
	assert.ErrorIs(t, err, ErrNoPagesSelected)
}

func TestParseRanges(t *testing.T) {
	tests := []struct {
		in   string
		want []Range
	}{
		{"1-3", []Range{{1, 3}}},
		{"1-2, 4, 5-5", []Range{{1, 2}, {4, 4}, {5, 5}}},
		{"3-", []Range{{3, 3}}},
		{"0-2, 4-9, 3-1, x", nil},
		{"2-3, 2-3", []Range{{2, 3}}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRanges(tt.in, 5))
		})
	}

	assert.Equal(t, []int{1, 2, 3, 5}, ParsePages("5, 1-3, 2", 5))
}

func TestSplit(t *testing.T) {
	doc := fivePages()

	parts, err := Split(doc, []Range{{1, 2}, {9, 12}, {3, 5}, {4, 3}})
	require.NoError(t, err)
	require.Len(t, parts, 2, "invalid ranges are skipped")

	assert.Equal(t, Range{1, 2}, parts[0].Range)
	requirePages(t, parts[0].Data, 2)
	assert.Equal(t, Range{3, 5}, parts[1].Range)
	requirePages(t, parts[1].Data, 3)

	assert.Equal(t, "report-p3-5.pdf", SplitEntryName("report", parts[1].Range))
	assert.Equal(t, "report_split.zip", SplitArchiveName("report"))

	_, err = Split(doc, []Range{{6, 7}})
	assert.ErrorIs(t, err, ErrNoValidRanges)
}

func TestRotate(t *testing.T) {
	doc := fivePages()

	out, err := Rotate(doc, 90, []int{1})
	require.NoError(t, err)
	requirePages(t, out, 5)

	out, err = Rotate(doc, -270, nil)
	require.NoError(t, err)
	requirePages(t, out, 5)

	_, err = Rotate(doc, 45, nil)
	assert.ErrorIs(t, err, ErrInvalidRotation)
}

func TestOrganize(t *testing.T) {
	first := BlankDocument(A4, A4)
	second := BlankDocument(Letter)

	out, err := Organize([][]byte{first, second}, []PageRef{
		{File: 2, Page: 1},
		{Blank: true},
		{File: 1, Page: 2, Rotation: 180},
	})
	require.NoError(t, err)

	sizes, err := PageSizes(out)
	require.NoError(t, err)
	require.Len(t, sizes, 3)
	assert.InDelta(t, Letter.Width, sizes[0].Width, 0.01)
	assert.InDelta(t, A4.Width, sizes[1].Width, 0.01)

	_, err = Organize([][]byte{first}, []PageRef{{File: 1, Page: 3}})
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = Organize([][]byte{first}, []PageRef{{File: 2, Page: 1}})
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = Organize([][]byte{first}, []PageRef{{File: 1, Page: 1, Rotation: 30}})
	assert.ErrorIs(t, err, ErrInvalidRotation)

	_, err = Organize([][]byte{first}, nil)
	assert.ErrorIs(t, err, ErrNoPagesSelected)
}

func TestCorruptInput(t *testing.T) {
	junk := []byte("%PDF-1.4 this is not really a pdf")

	_, err := PageCount(junk)
	assert.ErrorIs(t, err, ErrProcessing)

	_, err = Merge([][]byte{junk, BlankPage(A4)})
	assert.ErrorIs(t, err, ErrProcessing)

	_, err = Compress(junk)
	assert.ErrorIs(t, err, ErrProcessing)
}

func TestCompressAndRepair(t *testing.T) {
	doc := fivePages()

	res, err := Compress(doc)
	require.NoError(t, err)
	assert.Equal(t, len(doc), res.InputBytes)
	assert.LessOrEqual(t, res.OutputBytes, res.InputBytes)
	requirePages(t, res.Data, 5)

	fixed, err := Repair(doc)
	require.NoError(t, err)
	requirePages(t, fixed, 5)
}

func TestProtect(t *testing.T) {
	_, err := Protect(BlankPage(A4), "")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	out, err := Protect(BlankPage(A4), "s3cret")
	require.NoError(t, err)
	assert.True(t, ValidatePDF(out))
	assert.Contains(t, string(out), "/Encrypt")
}

func TestAddPageNumbers(t *testing.T) {
	assert.Equal(t, "Page 3 of 7", FormatPageNumber("", 3, 7))
	assert.Equal(t, "3/7", FormatPageNumber("{n}/{total}", 3, 7))

	out, err := AddPageNumbers(fivePages(), PageNumberOptions{Position: watermark.BottomRight, Margin: 5})
	require.NoError(t, err)
	requirePages(t, out, 5)
}

func TestWatermark(t *testing.T) {
	doc := BlankDocument(A4, Letter)

	t.Run("single text", func(t *testing.T) {
		out, err := Watermark(doc, WatermarkOptions{Text: "CONFIDENTIAL", Anchor: watermark.Center})
		require.NoError(t, err)
		requirePages(t, out, 2)
	})

	t.Run("tiled text", func(t *testing.T) {
		out, err := Watermark(doc, WatermarkOptions{Text: "DRAFT", Mode: watermark.ModeTile, Rows: 2, Cols: 2})
		require.NoError(t, err)
		requirePages(t, out, 2)
	})

	t.Run("image", func(t *testing.T) {
		out, err := Watermark(doc, WatermarkOptions{Image: pngImage(t, 40, 20), Anchor: watermark.TopLeft})
		require.NoError(t, err)
		requirePages(t, out, 2)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := Watermark(doc, WatermarkOptions{Text: "  "})
		assert.ErrorIs(t, err, ErrEmptyWatermark)
	})

	t.Run("grid too large", func(t *testing.T) {
		_, err := Watermark(doc, WatermarkOptions{Text: "DRAFT", Mode: watermark.ModeTile, Rows: 100000, Cols: 100000})
		assert.ErrorIs(t, err, ErrTooManyTiles)
	})
}

func TestSign(t *testing.T) {
	doc := BlankDocument(A4, A4)
	sig := pngImage(t, 300, 100)

	out, err := Sign(doc, sig, 2, watermark.BottomLeft)
	require.NoError(t, err)
	requirePages(t, out, 2)

	_, err = Sign(doc, sig, 3, watermark.BottomLeft)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = Sign(doc, []byte("not an image"), 1, watermark.BottomLeft)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestImagesToPDF(t *testing.T) {
	out, err := ImagesToPDF([][]byte{pngImage(t, 30, 40), pngImage(t, 50, 20)})
	require.NoError(t, err)
	requirePages(t, out, 2)

	_, err = ImagesToPDF(nil)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestInspect(t *testing.T) {
	ins, err := Inspect(BlankDocument(A4, Letter, A4), true)
	require.NoError(t, err)
	assert.Equal(t, 3, ins.PageCount)
	require.Len(t, ins.Pages, 3)
	assert.Equal(t, 2, ins.Pages[1].Number)
	assert.InDelta(t, Letter.Width, ins.Pages[1].Width, 0.01)
	assert.Zero(t, ins.WordCount)
}

func TestValidatePDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"pdf header", []byte("%PDF-1.7"), true},
		{"too short", []byte("%PD"), false},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePDF(tt.data))
		})
	}
}
