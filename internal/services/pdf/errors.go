package pdf

import (
	"errors"
	"fmt"
)

// Errors returned by the PDF operations. Library failures are wrapped in
// ErrProcessing; the rest describe bad input.
var (
	ErrProcessing      = errors.New("could not process the PDF; it may be corrupted or protected")
	ErrNoDocuments     = errors.New("no PDF documents given")
	ErrNoPagesSelected = errors.New("no pages selected")
	ErrNoValidRanges   = errors.New("no valid page ranges")
	ErrInvalidPage     = errors.New("invalid page number")
	ErrAllPagesRemoved = errors.New("cannot remove every page")
	ErrInvalidRotation = errors.New("rotation must be a multiple of 90 degrees")
	ErrEmptyPassword   = errors.New("password is required")
	ErrInvalidImage    = errors.New("unsupported image")
	ErrEmptyWatermark  = errors.New("watermark text is empty")
	ErrNoImages        = errors.New("no images given")
	ErrTooManyTiles    = errors.New("rows and cols must be at most 20")
)

// processing tags a library failure so callers can match ErrProcessing while
// the underlying cause stays in the chain.
func processing(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrProcessing, err)
}
