//go:build mupdf

package render

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

const rasterizerAvailable = true

// rasterize draws the pages of data in order and passes each to page. It
// returns the page count.
func rasterize(ctx context.Context, data []byte, dpi float64, page pageFunc) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("failed reading document: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n > MaxPages {
		return 0, fmt.Errorf("%w: %d pages", ErrTooManyPages, n)
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return 0, fmt.Errorf("failed rendering page %d: %w", i+1, err)
		}
		page(i, img)
	}
	return n, nil
}
