// pdf.go handles the PDF tool endpoints under /api/v1/pdf.
//
// Every endpoint takes multipart uploads in "file" (or "files" for the
// multi-document tools) plus tool options as form fields, and answers with
// the processed document as an attachment.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/smartconverter-api/internal/fileutil"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/watermark"
)

const contentTypePDF = "application/pdf"

// pdfOutput names doc after the run's first upload and counts its pages.
func pdfOutput(r *run, doc []byte) output {
	pages, _ := pdf.PageCount(doc)
	return output{
		Name:        tools.DownloadName(r.tool.Slug, r.first().Name, ".pdf"),
		ContentType: contentTypePDF,
		Data:        doc,
		Pages:       pages,
	}
}

// pdfStep runs a one-document transformation and sends its result.
func (h *Handler) pdfStep(c *gin.Context, r *run, fn func(doc []byte) ([]byte, error)) {
	out, err := fn(r.first().Data)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.finish(c, r, pdfOutput(r, out))
}

// MergePDF combines the uploaded PDFs in upload order.
// POST /api/v1/pdf/merge
func (h *Handler) MergePDF(c *gin.Context) {
	r := h.begin(c, "merge-pdf")
	if r == nil {
		return
	}
	out, err := pdf.Merge(r.datas())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.finish(c, r, pdfOutput(r, out))
}

// splitOptions: ranges like "1-3, 5, 7-9".
type splitOptions struct {
	Ranges string `form:"ranges" binding:"required"`
}

// SplitPDF writes one PDF per valid range and returns them as a zip.
// POST /api/v1/pdf/split
func (h *Handler) SplitPDF(c *gin.Context) {
	r := h.begin(c, "split-pdf")
	if r == nil {
		return
	}
	var opts splitOptions
	if !h.bindOptions(c, &opts) {
		return
	}

	doc := r.first().Data
	n, err := pdf.PageCount(doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	parts, err := pdf.Split(doc, pdf.ParseRanges(opts.Ranges, n))
	if err != nil {
		h.fail(c, err)
		return
	}

	base := fileutil.SanitizeFilename(fileutil.BaseName(r.first().Name))
	entries := make([]fileutil.Entry, len(parts))
	for i, p := range parts {
		entries[i] = fileutil.Entry{Name: pdf.SplitEntryName(base, p.Range), Data: p.Data}
	}
	archive, err := fileutil.Zip(entries)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.finish(c, r, output{
		Name:        pdf.SplitArchiveName(base),
		ContentType: "application/zip",
		Data:        archive,
		Pages:       n,
	})
}

// pageOptions: a page selection like "1,3-5".
type pageOptions struct {
	Pages string `form:"pages"`
}

// selectedPages binds the "pages" field against the upload's page count.
func (h *Handler) selectedPages(c *gin.Context, doc []byte) ([]int, bool) {
	var opts pageOptions
	if !h.bindOptions(c, &opts) {
		return nil, false
	}
	n, err := pdf.PageCount(doc)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return pdf.ParsePages(opts.Pages, n), true
}

// ExtractPages builds a new PDF from the selected pages.
// POST /api/v1/pdf/extract
func (h *Handler) ExtractPages(c *gin.Context) {
	r := h.begin(c, "extract-pages")
	if r == nil {
		return
	}
	pages, ok := h.selectedPages(c, r.first().Data)
	if !ok {
		return
	}
	h.pdfStep(c, r, func(doc []byte) ([]byte, error) { return pdf.Extract(doc, pages) })
}

// RemovePages deletes the selected pages.
// POST /api/v1/pdf/remove
func (h *Handler) RemovePages(c *gin.Context) {
	r := h.begin(c, "remove-pages")
	if r == nil {
		return
	}
	pages, ok := h.selectedPages(c, r.first().Data)
	if !ok {
		return
	}
	h.pdfStep(c, r, func(doc []byte) ([]byte, error) { return pdf.Remove(doc, pages) })
}

// organizeOptions carries the page layout as a JSON array of
// {"file":1,"page":2,"rotation":90} or {"blank":true} entries.
type organizeOptions struct {
	Layout string `form:"layout" binding:"required"`
}

// OrganizePDF reorders, rotates, drops and inserts pages across one or
// more uploads.
// POST /api/v1/pdf/organize
func (h *Handler) OrganizePDF(c *gin.Context) {
	r := h.begin(c, "organize-pdf")
	if r == nil {
		return
	}
	var opts organizeOptions
	if !h.bindOptions(c, &opts) {
		return
	}
	var layout []pdf.PageRef
	if err := json.Unmarshal([]byte(opts.Layout), &layout); err != nil {
		respond(c, http.StatusBadRequest, "invalid_request", "layout must be a JSON array of page entries")
		return
	}

	out, err := pdf.Organize(r.datas(), layout)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.finish(c, r, pdfOutput(r, out))
}

type rotateOptions struct {
	Degrees int    `form:"degrees,default=90"`
	Pages   string `form:"pages"`
}

// RotatePDF rotates the selected pages (all when none are given) clockwise.
// POST /api/v1/pdf/rotate
func (h *Handler) RotatePDF(c *gin.Context) {
	r := h.begin(c, "rotate-pdf")
	if r == nil {
		return
	}
	var opts rotateOptions
	if !h.bindOptions(c, &opts) {
		return
	}

	doc := r.first().Data
	var pages []int
	if opts.Pages != "" {
		n, err := pdf.PageCount(doc)
		if err != nil {
			h.fail(c, err)
			return
		}
		if pages = pdf.ParsePages(opts.Pages, n); len(pages) == 0 {
			h.fail(c, pdf.ErrNoPagesSelected)
			return
		}
	}
	h.pdfStep(c, r, func(doc []byte) ([]byte, error) { return pdf.Rotate(doc, opts.Degrees, pages) })
}

// CompressPDF optimizes the document. The size before and after is sent
// in X-Input-Bytes and X-Output-Bytes.
// POST /api/v1/pdf/compress
func (h *Handler) CompressPDF(c *gin.Context) {
	r := h.begin(c, "compress-pdf")
	if r == nil {
		return
	}
	res, err := pdf.Compress(r.first().Data)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("X-Input-Bytes", strconv.Itoa(res.InputBytes))
	c.Header("X-Output-Bytes", strconv.Itoa(res.OutputBytes))
	h.finish(c, r, pdfOutput(r, res.Data))
}

// RepairPDF rewrites a damaged document.
// POST /api/v1/pdf/repair
func (h *Handler) RepairPDF(c *gin.Context) {
	r := h.begin(c, "repair-pdf")
	if r == nil {
		return
	}
	h.pdfStep(c, r, pdf.Repair)
}

type protectOptions struct {
	Password string `form:"password"`
}

// ProtectPDF encrypts the document with a password.
// POST /api/v1/pdf/protect
func (h *Handler) ProtectPDF(c *gin.Context) {
	r := h.begin(c, "protect-pdf")
	if r == nil {
		return
	}
	var opts protectOptions
	if !h.bindOptions(c, &opts) {
		return
	}
	h.pdfStep(c, r, func(doc []byte) ([]byte, error) { return pdf.Protect(doc, opts.Password) })
}

// textOptions are the shared text styling fields.
type textOptions struct {
	Font     string  `form:"font"`
	FontSize int     `form:"font_size" binding:"min=0,max=1000"`
	Color    string  `form:"color"`
	Opacity  float64 `form:"opacity"`
	Rotation float64 `form:"rotation"`
}

func (o textOptions) style() pdf.TextStyle {
	return pdf.TextStyle{Font: o.Font, Size: o.FontSize, Color: o.Color, Opacity: o.Opacity, Rotation: o.Rotation}
}

type pageNumberOptions struct {
	textOptions
	Format   string  `form:"format"`
	Position string  `form:"position,default=bottom-center"`
	Margin   float64 `form:"margin,default=20"`
}

// AddPageNumbers labels every page, "Page {n} of {total}" by default.
// POST /api/v1/pdf/page-numbers
func (h *Handler) AddPageNumbers(c *gin.Context) {
	r := h.begin(c, "add-page-numbers")
	if r == nil {
		return
	}
	var opts pageNumberOptions
	if !h.bindOptions(c, &opts) {
		return
	}
	h.pdfStep(c, r, func(doc []byte) ([]byte, error) {
		return pdf.AddPageNumbers(doc, pdf.PageNumberOptions{
			Format:   opts.Format,
			Position: watermark.ParseAnchor(opts.Position),
			Margin:   opts.Margin,
			Style:    opts.style(),
		})
	})
}

type pdfWatermarkOptions struct {
	textOptions
	Text         string  `form:"text"`
	Mode         string  `form:"mode"`
	Position     string  `form:"position"`
	Rows         int     `form:"rows,default=3" binding:"min=0,max=20"`
	Cols         int     `form:"cols,default=3" binding:"min=0,max=20"`
	Gap          float64 `form:"gap" binding:"min=0,max=10000"`
	Scale        float64 `form:"scale,default=1" binding:"min=0,max=10"`
	ImageOpacity float64 `form:"image_opacity,default=0.5"`
	Pages        string  `form:"pages"`
}

// WatermarkPDF stamps text, or the image uploaded as "image", on the
// selected pages.
// POST /api/v1/pdf/watermark
func (h *Handler) WatermarkPDF(c *gin.Context) {
	r := h.begin(c, "add-watermark")
	if r == nil {
		return
	}
	var opts pdfWatermarkOptions
	if !h.bindOptions(c, &opts) {
		return
	}
	img, err := extraFile(c, "image", tools.KindPhoto)
	if err != nil {
		h.fail(c, err)
		return
	}

	doc := r.first().Data
	var pages []int
	if opts.Pages != "" {
		n, err := pdf.PageCount(doc)
		if err != nil {
			h.fail(c, err)
			return
		}
		if pages = pdf.ParsePages(opts.Pages, n); len(pages) == 0 {
			h.fail(c, pdf.ErrNoPagesSelected)
			return
		}
	}

	h.pdfStep(c, r, func(doc []byte) ([]byte, error) {
		return pdf.Watermark(doc, pdf.WatermarkOptions{
			Text:         opts.Text,
			Style:        opts.style(),
			Mode:         watermark.ParseMode(opts.Mode),
			Anchor:       watermark.ParseAnchor(opts.Position),
			Rows:         opts.Rows,
			Cols:         opts.Cols,
			Gap:          opts.Gap,
			Image:        img,
			ImageScale:   opts.Scale,
			ImageOpacity: opts.ImageOpacity,
			Pages:        pages,
		})
	})
}

type signOptions struct {
	Page     int    `form:"page,default=1"`
	Position string `form:"position,default=bottom-right"`
}

// SignPDF stamps the image uploaded as "signature" on one page.
// POST /api/v1/pdf/sign
func (h *Handler) SignPDF(c *gin.Context) {
	r := h.begin(c, "sign-pdf")
	if r == nil {
		return
	}
	var opts signOptions
	if !h.bindOptions(c, &opts) {
		return
	}
	sig, err := extraFile(c, "signature", tools.KindPhoto)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sig == nil {
		h.fail(c, &tools.ValidationError{Err: tools.ErrNoFiles, Message: "Please upload a signature image."})
		return
	}

	h.pdfStep(c, r, func(doc []byte) ([]byte, error) {
		return pdf.Sign(doc, sig, opts.Page, watermark.ParseAnchor(opts.Position))
	})
}

type inspectOptions struct {
	Text bool `form:"text"`
}

// InspectPDF reports the page count, page sizes and optionally the text of
// every page. It does not count as a conversion.
// POST /api/v1/pdf/inspect
func (h *Handler) InspectPDF(c *gin.Context) {
	r := h.begin(c, "inspect-pdf")
	if r == nil {
		return
	}
	var opts inspectOptions
	if !h.bindOptions(c, &opts) {
		return
	}
	info, err := pdf.Inspect(r.first().Data, opts.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
