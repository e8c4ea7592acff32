// Package convert runs the heavy "to PDF" and "from PDF" conversions that
// may be queued instead of served inline: HTML, Word, Excel and PowerPoint
// to PDF, and PDF to JPG.
package convert

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/render"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
)

// ErrUnknownTool is returned for slugs this package does not run.
var ErrUnknownTool = errors.New("tool cannot be run as a conversion job")

// HTMLConverter prints HTML to PDF.
type HTMLConverter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// OfficeConverter turns an office document into PDF.
type OfficeConverter interface {
	Convert(ctx context.Context, name string, data []byte) ([]byte, error)
}

// Input is the single uploaded file of a conversion.
type Input struct {
	Name string
	Data []byte
}

// Result is the produced download.
type Result struct {
	Data        []byte
	Name        string
	ContentType string
	Pages       int
}

// Service dispatches a tool slug to its converter.
type Service struct {
	HTML   HTMLConverter
	Office OfficeConverter
	Render render.Options
}

// Supports reports whether slug is handled by Run.
func Supports(slug string) bool {
	switch slug {
	case "html-to-pdf", "word-to-pdf", "excel-to-pdf", "ppt-to-pdf", "pdf-to-jpg":
		return true
	}
	return false
}

// Run converts in with the tool named slug.
func (s *Service) Run(ctx context.Context, slug string, in Input) (Result, error) {
	switch slug {
	case "html-to-pdf":
		if s.HTML == nil {
			return Result{}, fmt.Errorf("%s: no HTML converter configured", slug)
		}
		out, err := s.HTML.Convert(ctx, in.Data)
		if err != nil {
			return Result{}, err
		}
		return pdfResult(slug, in.Name, out), nil

	case "word-to-pdf", "excel-to-pdf", "ppt-to-pdf":
		if s.Office == nil {
			return Result{}, fmt.Errorf("%s: no office converter configured", slug)
		}
		out, err := s.Office.Convert(ctx, in.Name, in.Data)
		if err != nil {
			return Result{}, err
		}
		return pdfResult(slug, in.Name, out), nil

	case "pdf-to-jpg":
		data, pages, err := render.Zip(ctx, in.Data, s.Render)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Data:        data,
			Name:        tools.DownloadName(slug, in.Name, ".zip"),
			ContentType: "application/zip",
			Pages:       pages,
		}, nil
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, slug)
}

func pdfResult(slug, name string, data []byte) Result {
	return Result{
		Data:        data,
		Name:        tools.DownloadName(slug, name, ".pdf"),
		ContentType: "application/pdf",
	}
}
