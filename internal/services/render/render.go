// Package render turns PDF pages into JPEG images.
//
// Rasterizing needs MuPDF through cgo, so it is only compiled in with the
// "mupdf" build tag. Builds without it still link and report
// ErrRasterizerUnavailable at call time.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Shimizu-Technology/smartconverter-api/internal/fileutil"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/imagetools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/pdf"
)

// ErrRasterizerUnavailable is returned when the binary was built without
// MuPDF support.
var ErrRasterizerUnavailable = errors.New("PDF to image conversion is not available on this server")

var (
	ErrTooManyPages = errors.New("the document has too many pages to convert to images")
	ErrPageTooLarge = errors.New("a page is too large to convert at this resolution")
)

const (
	DefaultDPI     = 150
	MaxDPI         = 300
	DefaultQuality = 90

	// MaxPages caps how many pages one request may rasterize.
	MaxPages = 300
)

// Options controls rasterizing.
type Options struct {
	DPI     float64
	Quality int
}

func (o Options) normalized() Options {
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.DPI > MaxDPI {
		o.DPI = MaxDPI
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Available reports whether this build can rasterize PDFs.
func Available() bool { return rasterizerAvailable }

// EntryName is the archive name of page n.
func EntryName(n int) string { return fmt.Sprintf("page-%d.jpg", n) }

// Pages rasterizes every page of doc and encodes each one as JPEG. Pages
// are drawn one after another since a MuPDF document is not safe for
// concurrent use. Each drawn page is handed to an encoder right away and
// drawing waits while every encoder is busy, so only a few decoded pages
// are held at once.
func Pages(ctx context.Context, doc []byte, opts Options) ([]fileutil.Entry, error) {
	opts = opts.normalized()

	if err := checkLimits(doc, opts.DPI); err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		entries = make(map[int]fileutil.Entry)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	n, err := rasterize(gctx, doc, opts.DPI, func(i int, img image.Image) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := imagetools.Encode(img, imagetools.JPEG, opts.Quality, color.White)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			mu.Lock()
			entries[i] = fileutil.Entry{Name: EntryName(i + 1), Data: out.Data}
			mu.Unlock()
			return nil
		})
	})
	// An encoder failure cancels gctx, so it is the more useful error.
	if werr := g.Wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}

	ordered := make([]fileutil.Entry, n)
	for i := range ordered {
		ordered[i] = entries[i]
	}
	return ordered, nil
}

// checkLimits rejects documents with too many pages or with a page that
// would not fit the pixel budget at dpi. Sizes come from the page tree, so
// nothing is drawn.
func checkLimits(doc []byte, dpi float64) error {
	sizes, err := pdf.PageSizes(doc)
	if err != nil {
		return err
	}
	if len(sizes) > MaxPages {
		return fmt.Errorf("%w: %d pages", ErrTooManyPages, len(sizes))
	}
	scale := dpi / 72
	for i, s := range sizes {
		w := math.Ceil(s.Width * scale)
		h := math.Ceil(s.Height * scale)
		if w*h > imagetools.MaxPixels {
			return fmt.Errorf("%w: page %d is %.0fx%.0f pixels", ErrPageTooLarge, i+1, w, h)
		}
	}
	return nil
}

// Zip rasterizes doc and packs the pages into one archive.
func Zip(ctx context.Context, doc []byte, opts Options) ([]byte, int, error) {
	entries, err := Pages(ctx, doc, opts)
	if err != nil {
		return nil, 0, err
	}
	data, err := fileutil.Zip(entries)
	if err != nil {
		return nil, 0, err
	}
	return data, len(entries), nil
}

// pageFunc receives each drawn page in order, 0-based.
type pageFunc func(i int, img image.Image)
