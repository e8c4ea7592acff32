// Package watermark computes where a watermark item is stamped on a page or
// canvas.
//
// The calculator is shared by the PDF and image watermark tools. It knows
// nothing about fonts or pixels: callers measure their text or image first
// and pass the rendered size in. Coordinates are the origin (lower-left for
// PDF, upper-left for images) of each stamped item.
package watermark

import "strings"

// Mode selects between a single stamp and a tiled grid.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeTile   Mode = "tile"
)

// Anchor is one of the nine compass positions used in single mode.
type Anchor string

const (
	TopLeft      Anchor = "top-left"
	TopCenter    Anchor = "top-center"
	TopRight     Anchor = "top-right"
	MiddleLeft   Anchor = "middle-left"
	Center       Anchor = "center"
	MiddleRight  Anchor = "middle-right"
	BottomLeft   Anchor = "bottom-left"
	BottomCenter Anchor = "bottom-center"
	BottomRight  Anchor = "bottom-right"
)

// Origin tells the calculator which way the y axis grows.
type Origin int

const (
	// OriginTopLeft is raster image space: y grows downwards.
	OriginTopLeft Origin = iota
	// OriginBottomLeft is PDF user space: y grows upwards.
	OriginBottomLeft
)

// MaxGrid is the largest number of rows or columns callers accept for
// tile mode.
const MaxGrid = 20

// Point is the origin of one stamped item.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout holds every input of the calculator.
type Layout struct {
	CanvasWidth  float64
	CanvasHeight float64
	ItemWidth    float64
	ItemHeight   float64

	Mode   Mode
	Anchor Anchor
	Origin Origin

	Margin float64 // single mode inset from the canvas edges
	Gap    float64 // tile mode spacing between items
	RowGap float64 // overrides Gap between rows when non-zero
	Rows   int
	Cols   int
}

// ParseMode maps form values to a Mode; "tiled" is an alias of "tile".
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tile", "tiled":
		return ModeTile
	default:
		return ModeSingle
	}
}

// ParseAnchor maps form values to an Anchor. Unknown values fall back to
// Center, matching the default branch of the placement switch.
func ParseAnchor(s string) Anchor {
	switch a := Anchor(strings.ToLower(strings.TrimSpace(s))); a {
	case TopLeft, TopCenter, TopRight, MiddleLeft, Center, MiddleRight,
		BottomLeft, BottomCenter, BottomRight:
		return a
	case "center-left":
		return MiddleLeft
	case "center-right":
		return MiddleRight
	default:
		return Center
	}
}

// Positions returns the list of item origins for l.
//
// Invalid or zero dimensions are not an error: they simply produce
// degenerate coordinates (overlapping, negative or off-canvas). A tile
// grid with fewer than one row or column is empty.
func Positions(l Layout) []Point {
	if l.Mode == ModeTile {
		return tile(l)
	}
	return []Point{single(l)}
}

func single(l Layout) Point {
	var p Point

	switch l.Anchor {
	case TopLeft, MiddleLeft, BottomLeft:
		p.X = l.Margin
	case TopRight, MiddleRight, BottomRight:
		p.X = l.CanvasWidth - l.ItemWidth - l.Margin
	default:
		p.X = (l.CanvasWidth - l.ItemWidth) / 2
	}

	// near is the inset from the visual top edge, far from the bottom edge.
	near := l.Margin
	far := l.CanvasHeight - l.ItemHeight - l.Margin
	if l.Origin == OriginBottomLeft {
		near, far = far, near
	}

	switch l.Anchor {
	case TopLeft, TopCenter, TopRight:
		p.Y = near
	case BottomLeft, BottomCenter, BottomRight:
		p.Y = far
	default:
		p.Y = (l.CanvasHeight - l.ItemHeight) / 2
	}

	return p
}

func tile(l Layout) []Point {
	rows, cols := l.Rows, l.Cols
	if rows < 1 || cols < 1 {
		return []Point{}
	}

	gapY := l.Gap
	if l.RowGap != 0 {
		gapY = l.RowGap
	}

	totalWidth := float64(cols)*l.ItemWidth + float64(cols-1)*l.Gap
	totalHeight := float64(rows)*l.ItemHeight + float64(rows-1)*gapY
	startX := (l.CanvasWidth - totalWidth) / 2
	startY := (l.CanvasHeight - totalHeight) / 2
	stepX := l.ItemWidth + l.Gap
	stepY := l.ItemHeight + gapY

	points := make([]Point, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			points = append(points, Point{
				X: startX + float64(j)*stepX,
				Y: startY + float64(i)*stepY,
			})
		}
	}
	return points
}

// Spread returns the gap that lays n items of the given size evenly across
// the canvas, each centered in its own cell of canvas/n.
func Spread(canvas, item float64, n int) float64 {
	if n < 1 {
		n = 1
	}
	return canvas/float64(n) - item
}
