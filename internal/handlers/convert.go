// convert.go handles the "to PDF" and "from PDF" endpoints under
// /api/v1/convert.
//
// JPG to PDF always runs inline. The heavy converters (HTML, Office and
// PDF to JPG) run inline too unless the caller sends async=true, in which
// case the job goes to the worker pool and the response is 202 with the
// conversion to poll.
package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/convert"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/webhook"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/worker"
)

// ImagesToPDF puts each uploaded JPG or PNG on its own page, in upload
// order.
// POST /api/v1/convert/jpg-to-pdf
func (h *Handler) ImagesToPDF(c *gin.Context) {
	r := h.begin(c, "jpg-to-pdf")
	if r == nil {
		return
	}
	out, err := pdf.ImagesToPDF(r.datas())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.finish(c, r, pdfOutput(r, out))
}

type asyncOptions struct {
	Async bool `form:"async"`
	// WebhookURL receives the conversion record once a queued job ends.
	WebhookURL string `form:"webhook_url"`
}

// Convert returns the handler for one of the heavy converters.
// POST /api/v1/convert/{html-to-pdf,word-to-pdf,excel-to-pdf,ppt-to-pdf,pdf-to-jpg}
func (h *Handler) Convert(slug string) gin.HandlerFunc {
	if !convert.Supports(slug) {
		panic("handlers: no converter for " + slug)
	}
	return func(c *gin.Context) {
		r := h.begin(c, slug)
		if r == nil {
			return
		}
		var opts asyncOptions
		if !h.bindOptions(c, &opts) {
			return
		}

		if opts.WebhookURL != "" {
			if !opts.Async {
				respond(c, http.StatusBadRequest, "invalid_request", "webhook_url needs async=true.")
				return
			}
			if err := webhook.ValidateURL(opts.WebhookURL); err != nil {
				respond(c, http.StatusBadRequest, "invalid_request", sentence(err))
				return
			}
		}

		in := convert.Input{Name: r.first().Name, Data: r.first().Data}
		if opts.Async {
			h.enqueue(c, r, in, opts.WebhookURL)
			return
		}

		res, err := h.Converter.Run(c.Request.Context(), slug, in)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.finish(c, r, output{
			Name:        res.Name,
			ContentType: res.ContentType,
			Data:        res.Data,
			Pages:       res.Pages,
		})
	}
}

// enqueue records a pending conversion and hands it to the worker pool.
// Queued jobs need an account so the caller can fetch the result later.
// The conversion is counted once the job is accepted.
func (h *Handler) enqueue(c *gin.Context, r *run, in convert.Input, webhookURL string) {
	if !middleware.Authenticated(c) {
		respond(c, http.StatusUnauthorized, "unauthorized",
			"Queued conversions need an API key or a signed-in account. Retry without async=true.")
		return
	}

	apiKeyID, userID := middleware.Owner(c)
	cv := &models.Conversion{
		Tool:         r.tool.Slug,
		OriginalName: in.Name,
		InputBytes:   r.inputBytes(),
		Status:       models.StatusPending,
		APIKeyID:     apiKeyID,
		UserID:       userID,
		ClientIP:     c.ClientIP(),
		WebhookURL:   webhookURL,
	}
	if err := h.Store.CreateConversion(c.Request.Context(), cv); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.Worker.Submit(worker.Job{ID: cv.ID, Tool: r.tool.Slug, Input: in, CreatedAt: r.start}); err != nil {
		cv.Status = models.StatusFailed
		cv.ErrorMessage = err.Error()
		if uerr := h.Store.UpdateConversion(c.Request.Context(), cv); uerr != nil {
			log.Printf("⚠️  Failed to mark %s failed: %v", cv.ID, uerr)
		}
		h.fail(c, err)
		return
	}

	if err := middleware.ConsumeConversion(c); err != nil {
		log.Printf("⚠️  Could not count queued conversion %s: %v", cv.ID, err)
	}

	c.JSON(http.StatusAccepted, models.JobResponse{
		Conversion:  *cv,
		StatusURL:   "/api/v1/conversions/" + cv.ID,
		DownloadURL: "/api/v1/conversions/" + cv.ID + "/download",
	})
}
