//go:build !mupdf

package render

import "context"

const rasterizerAvailable = false

func rasterize(context.Context, []byte, float64, pageFunc) (int, error) {
	return 0, ErrRasterizerUnavailable
}
