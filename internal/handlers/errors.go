package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/database"
	"github.com/Shimizu-Technology/smartconverter-api/internal/fileutil"
	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/htmlpdf"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/imagetools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/limiter"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/office"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/render"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/worker"
)

const (
	msgPDFFailed   = "Could not process the PDF. It may be corrupted or protected."
	msgImageFailed = "Could not process the image. It may be corrupted or in an unsupported format."
	msgDocFailed   = "Could not convert the document. It may be corrupted or use unsupported features."
	msgInternal    = "Something went wrong. Please try again."
)

// apiError is a classified failure ready to be written as an ErrorResponse.
type apiError struct {
	status  int
	code    string
	message string
}

// badRequest lists input errors whose own text is fit to show.
var badRequest = []error{
	pdf.ErrAllPagesRemoved, pdf.ErrInvalidRotation, pdf.ErrEmptyPassword,
	pdf.ErrInvalidImage, pdf.ErrEmptyWatermark, pdf.ErrNoImages, pdf.ErrNoDocuments,
	pdf.ErrTooManyTiles,
	imagetools.ErrUnsupportedFormat, imagetools.ErrInvalidSize, imagetools.ErrEmptyCrop,
	imagetools.ErrEmptyWatermark, imagetools.ErrEmptyCaption,
	htmlpdf.ErrEmptyDocument,
}

// classify maps an error from the tool pipeline onto the error envelope.
// The order matters: the PDF input errors are checked before ErrProcessing
// because some of them travel wrapped together.
func classify(err error) apiError {
	var ve *tools.ValidationError
	var tooBig *http.MaxBytesError

	switch {
	case errors.As(err, &ve):
		code := "invalid_request"
		switch {
		case errors.Is(ve.Err, tools.ErrNoFiles):
			code = "no_files"
		case errors.Is(ve.Err, tools.ErrUnsupportedType), errors.Is(ve.Err, tools.ErrEmptyFile):
			code = "invalid_file_type"
		}
		return apiError{http.StatusBadRequest, code, ve.Message}

	case errors.As(err, &tooBig):
		return apiError{http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Sprintf("Uploads are limited to %s.", fileutil.FormatBytes(tooBig.Limit))}

	case errors.Is(err, pdf.ErrNoPagesSelected):
		return apiError{http.StatusBadRequest, "no_pages_selected", "Please select at least one page."}
	case errors.Is(err, pdf.ErrNoValidRanges):
		return apiError{http.StatusBadRequest, "no_valid_ranges", "No valid page ranges to split."}
	case errors.Is(err, pdf.ErrInvalidPage):
		return apiError{http.StatusBadRequest, "invalid_page", "The selected page does not exist in the document."}
	case errors.Is(err, office.ErrUnsupported):
		return apiError{http.StatusBadRequest, "invalid_file_type", "Please upload a .docx, .xlsx or .pptx file."}

	case errors.Is(err, pdf.ErrProcessing):
		return apiError{http.StatusUnprocessableEntity, "processing_failed", msgPDFFailed}
	case errors.Is(err, imagetools.ErrDecode), errors.Is(err, imagetools.ErrEncode):
		return apiError{http.StatusUnprocessableEntity, "processing_failed", msgImageFailed}
	case errors.Is(err, office.ErrNoOutput), errors.Is(err, office.ErrFailed),
		errors.Is(err, htmlpdf.ErrConversionFailed):
		return apiError{http.StatusUnprocessableEntity, "processing_failed", msgDocFailed}
	case errors.Is(err, imagetools.ErrTooLarge):
		return apiError{http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Sprintf("Images are limited to %d megapixels.", imagetools.MaxPixels/1_000_000)}
	case errors.Is(err, render.ErrTooManyPages):
		return apiError{http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Sprintf("Documents are limited to %d pages for image conversion.", render.MaxPages)}
	case errors.Is(err, render.ErrPageTooLarge):
		return apiError{http.StatusRequestEntityTooLarge, "file_too_large",
			"A page is too large to convert at this resolution. Try a lower dpi."}
	case errors.Is(err, imagetools.ErrInvalidOption):
		return apiError{http.StatusBadRequest, "invalid_request", sentence(err)}

	case errors.Is(err, render.ErrRasterizerUnavailable),
		errors.Is(err, htmlpdf.ErrBrowserUnavailable),
		errors.Is(err, office.ErrUnavailable):
		return apiError{http.StatusNotImplemented, "not_implemented", sentence(err)}

	case errors.Is(err, limiter.ErrLimitReached):
		return apiError{http.StatusTooManyRequests, "conversion_limit_reached", limiter.LimitMessage}
	case errors.Is(err, worker.ErrQueueFull):
		return apiError{http.StatusServiceUnavailable, "queue_full", "The conversion queue is full. Please try again later."}
	case errors.Is(err, database.ErrNotFound):
		return apiError{http.StatusNotFound, "not_found", "Not found."}
	case errors.Is(err, context.DeadlineExceeded):
		return apiError{http.StatusGatewayTimeout, "timeout", "The conversion took too long."}
	}

	for _, target := range badRequest {
		if errors.Is(err, target) {
			return apiError{http.StatusBadRequest, "invalid_request", sentence(target)}
		}
	}
	return apiError{http.StatusInternalServerError, "internal_error", msgInternal}
}

// sentence turns "cannot remove every page" into "Cannot remove every page."
func sentence(err error) string {
	s := err.Error()
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// fail writes err as an ErrorResponse. Server-side failures are logged
// with the route; client mistakes are not.
func (h *Handler) fail(c *gin.Context, err error) {
	e := classify(err)
	if e.status >= http.StatusInternalServerError || e.status == http.StatusUnprocessableEntity {
		log.Printf("❌ %s failed: %v", c.FullPath(), err)
	}
	if e.code == "conversion_limit_reached" {
		middleware.LimitReached(c)
		return
	}
	respond(c, e.status, e.code, e.message)
}

func respond(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
