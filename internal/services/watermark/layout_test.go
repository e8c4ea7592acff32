package watermark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositions_Single(t *testing.T) {
	base := Layout{
		CanvasWidth:  600,
		CanvasHeight: 800,
		ItemWidth:    100,
		ItemHeight:   50,
		Mode:         ModeSingle,
		Margin:       20,
	}

	tests := []struct {
		anchor Anchor
		origin Origin
		want   Point
	}{
		{TopLeft, OriginTopLeft, Point{20, 20}},
		{TopCenter, OriginTopLeft, Point{250, 20}},
		{TopRight, OriginTopLeft, Point{480, 20}},
		{MiddleLeft, OriginTopLeft, Point{20, 375}},
		{Center, OriginTopLeft, Point{250, 375}},
		{MiddleRight, OriginTopLeft, Point{480, 375}},
		{BottomLeft, OriginTopLeft, Point{20, 730}},
		{BottomCenter, OriginTopLeft, Point{250, 730}},
		{BottomRight, OriginTopLeft, Point{480, 730}},

		// PDF space: the visual top edge is at y = height.
		{TopLeft, OriginBottomLeft, Point{20, 730}},
		{Center, OriginBottomLeft, Point{250, 375}},
		{BottomRight, OriginBottomLeft, Point{480, 20}},
	}

	for _, tt := range tests {
		name := string(tt.anchor)
		if tt.origin == OriginBottomLeft {
			name += "/pdf"
		}
		t.Run(name, func(t *testing.T) {
			l := base
			l.Anchor = tt.anchor
			l.Origin = tt.origin

			got := Positions(l)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestPositions_TileGrid(t *testing.T) {
	l := Layout{
		CanvasWidth:  1000,
		CanvasHeight: 800,
		ItemWidth:    120,
		ItemHeight:   40,
		Mode:         ModeTile,
		Gap:          50,
		Rows:         4,
		Cols:         3,
	}

	got := Positions(l)
	require.Len(t, got, l.Rows*l.Cols)

	stepX := l.ItemWidth + l.Gap
	stepY := l.ItemHeight + l.Gap

	for i := 0; i < l.Rows; i++ {
		row := got[i*l.Cols : (i+1)*l.Cols]
		for j := 1; j < len(row); j++ {
			assert.Greater(t, row[j].X, row[j-1].X, "row %d col %d", i, j)
			assert.InDelta(t, stepX, row[j].X-row[j-1].X, 1e-9)
			assert.Equal(t, row[0].Y, row[j].Y, "a row shares one y")
		}
	}

	for j := 0; j < l.Cols; j++ {
		for i := 1; i < l.Rows; i++ {
			prev, cur := got[(i-1)*l.Cols+j], got[i*l.Cols+j]
			assert.Greater(t, cur.Y, prev.Y, "col %d row %d", j, i)
			assert.InDelta(t, stepY, cur.Y-prev.Y, 1e-9)
		}
	}

	// The block is centered: equal slack on both sides.
	first, last := got[0], got[len(got)-1]
	assert.InDelta(t, first.X, l.CanvasWidth-(last.X+l.ItemWidth), 1e-9)
	assert.InDelta(t, first.Y, l.CanvasHeight-(last.Y+l.ItemHeight), 1e-9)
}

func TestPositions_TileEmptyGrid(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
	}{
		{"zero rows", 0, 3},
		{"zero cols", 3, 0},
		{"negative", -1, -1},
		{"unset", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Positions(Layout{
				CanvasWidth: 100, CanvasHeight: 100, ItemWidth: 10, ItemHeight: 10,
				Mode: ModeTile, Rows: tt.rows, Cols: tt.cols,
			})
			assert.Empty(t, got)
		})
	}

	got := Positions(Layout{CanvasWidth: 100, CanvasHeight: 100, ItemWidth: 10, ItemHeight: 10, Mode: ModeTile, Rows: 1, Cols: 1})
	require.Len(t, got, 1)
	assert.Equal(t, Point{45, 45}, got[0])
}

func TestPositions_Degenerate(t *testing.T) {
	// Items larger than the canvas yield negative origins instead of errors.
	got := Positions(Layout{CanvasWidth: 10, CanvasHeight: 10, ItemWidth: 50, ItemHeight: 50, Anchor: Center})
	require.Len(t, got, 1)
	assert.Equal(t, Point{-20, -20}, got[0])

	got = Positions(Layout{})
	require.Len(t, got, 1)
	assert.Equal(t, Point{}, got[0])
}

func TestParseAnchor(t *testing.T) {
	tests := map[string]Anchor{
		"top-left":      TopLeft,
		" Top-Right ":   TopRight,
		"center-left":   MiddleLeft,
		"center-right":  MiddleRight,
		"middle-right":  MiddleRight,
		"bottom-center": BottomCenter,
		"":              Center,
		"nowhere":       Center,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseAnchor(in), "ParseAnchor(%q)", in)
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeTile, ParseMode("tile"))
	assert.Equal(t, ModeTile, ParseMode("tiled"))
	assert.Equal(t, ModeSingle, ParseMode("single"))
	assert.Equal(t, ModeSingle, ParseMode(""))
}

func TestPositions_SpreadMatchesCellGrid(t *testing.T) {
	const w, h, itemW, itemH = 600.0, 900.0, 100.0, 30.0
	l := Layout{
		CanvasWidth: w, CanvasHeight: h, ItemWidth: itemW, ItemHeight: itemH,
		Mode: ModeTile, Rows: 3, Cols: 3,
		Gap:    Spread(w, itemW, 3),
		RowGap: Spread(h, itemH, 3),
	}

	got := Positions(l)
	require.Len(t, got, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p := got[i*3+j]
			assert.InDelta(t, float64(j)*w/3+(w/3-itemW)/2, p.X, 1e-9)
			assert.InDelta(t, float64(i)*h/3+(h/3-itemH)/2, p.Y, 1e-9)
		}
	}
}
