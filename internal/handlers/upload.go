// upload.go is the pipeline every tool endpoint shares: read the multipart
// upload, validate it against the tool's allowlist, run the tool, count the
// conversion and send the file back.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/middleware"
	"github.com/Shimizu-Technology/smartconverter-api/internal/models"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
)

// run is one tool invocation in flight.
type run struct {
	tool  tools.Tool
	files []tools.Upload
	start time.Time
}

// first returns the primary upload. begin guarantees there is one.
func (r *run) first() tools.Upload { return r.files[0] }

// datas returns the contents of every upload in order.
func (r *run) datas() [][]byte {
	out := make([][]byte, len(r.files))
	for i, f := range r.files {
		out[i] = f.Data
	}
	return out
}

func (r *run) inputBytes() int64 {
	var n int64
	for _, f := range r.files {
		n += int64(len(f.Data))
	}
	return n
}

// output is what a tool produced.
type output struct {
	Name        string
	ContentType string
	Data        []byte
	Pages       int
}

// begin reads and validates the uploads for the tool named slug. On failure
// it has already written the error response and returns nil.
func (h *Handler) begin(c *gin.Context, slug string) *run {
	t := tools.MustLookup(slug)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	files, err := readUploads(c, "files", "file")
	if err != nil {
		h.fail(c, err)
		return nil
	}
	if err := tools.Validate(t, files); err != nil {
		h.fail(c, err)
		return nil
	}
	return &run{tool: t, files: files, start: time.Now()}
}

// readUploads collects the files sent under any of the given field names,
// in the order the client sent them.
func readUploads(c *gin.Context, fields ...string) ([]tools.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, err
		}
		return nil, &tools.ValidationError{Err: tools.ErrNoFiles, Message: "Please select a file first."}
	}

	var uploads []tools.Upload
	for _, field := range fields {
		for _, fh := range form.File[field] {
			data, err := readFile(fh)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
			}
			uploads = append(uploads, tools.Upload{Name: fh.Filename, Data: data})
		}
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// extraFile reads an optional secondary file (a signature, a watermark
// image) and checks it against kind. A missing field returns nil data.
func extraFile(c *gin.Context, field string, kind tools.Kind) ([]byte, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, &tools.ValidationError{Err: tools.ErrNoFiles, Message: "Could not read the " + field + " file.", File: field}
	}
	data, err := readFile(fh)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if _, err := tools.CheckKind(kind, fh.Filename, data); err != nil {
		return nil, err
	}
	return data, nil
}

// bindOptions binds the form fields of a tool into opts.
func (h *Handler) bindOptions(c *gin.Context, opts any) bool {
	if err := c.ShouldBind(opts); err != nil {
		respond(c, http.StatusBadRequest, "invalid_request", "Invalid options: "+err.Error())
		return false
	}
	return true
}

// finish counts the conversion, records it and sends the file. The
// conversion is only counted here, once the output exists.
func (h *Handler) finish(c *gin.Context, r *run, out output) {
	if r.tool.Consumes {
		if err := middleware.ConsumeConversion(c); err != nil {
			h.fail(c, err)
			return
		}
	}

	h.record(c, r, out)
	sendFile(c, out)
}

// record stores a completed synchronous conversion. A failure to record is
// logged and does not cost the caller the download.
func (h *Handler) record(c *gin.Context, r *run, out output) {
	if h.Store == nil {
		return
	}
	apiKeyID, userID := middleware.Owner(c)
	cv := &models.Conversion{
		Tool:         r.tool.Slug,
		OriginalName: r.first().Name,
		OutputName:   out.Name,
		InputBytes:   r.inputBytes(),
		OutputBytes:  int64(len(out.Data)),
		PageCount:    out.Pages,
		Status:       models.StatusCompleted,
		APIKeyID:     apiKeyID,
		UserID:       userID,
		ClientIP:     c.ClientIP(),
		DurationMS:   time.Since(r.start).Milliseconds(),
	}
	if err := h.Store.CreateConversion(c.Request.Context(), cv); err != nil {
		log.Printf("⚠️  Failed to record %s conversion of %s: %v", r.tool.Slug, cv.OriginalName, err)
	}
}

func sendFile(c *gin.Context, out output) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Name}))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}
