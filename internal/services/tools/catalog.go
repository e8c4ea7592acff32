// Package tools describes every conversion tool the service offers: what it
// accepts, how many files it takes and how its download is named.
package tools

import (
	"sort"
	"strings"
)

// Category groups tools the way the catalog presents them.
type Category string

const (
	CategoryOrganize    Category = "Organize PDF"
	CategoryOptimize    Category = "Optimize PDF"
	CategoryConvertTo   Category = "Convert to PDF"
	CategoryConvertFrom Category = "Convert from PDF"
	CategoryEdit        Category = "Edit PDF"
	CategorySecurity    Category = "PDF security"
	CategoryImage       Category = "Image tools"
)

// categoryOrder is the display order of categories.
var categoryOrder = []Category{
	CategoryOrganize, CategoryOptimize, CategoryConvertTo, CategoryConvertFrom,
	CategoryEdit, CategorySecurity, CategoryImage,
}

// Kind is a family of accepted input files.
type Kind string

const (
	KindPDF        Kind = "pdf"
	KindJPEG       Kind = "jpeg"
	KindPhoto      Kind = "photo" // JPEG or PNG
	KindImage      Kind = "image" // any decodable raster image
	KindHTML       Kind = "html"
	KindWord       Kind = "word"
	KindExcel      Kind = "excel"
	KindPowerPoint Kind = "powerpoint"
)

// Tool is one entry of the catalog.
type Tool struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Accepts     Kind     `json:"accepts"`
	Extensions  []string `json:"extensions"`
	MinFiles    int      `json:"min_files"`
	MaxFiles    int      `json:"max_files"`
	// Consumes reports whether a run counts against the daily limit.
	Consumes bool `json:"consumes_conversion"`
	// Async reports whether the tool may be queued with async=true.
	Async bool `json:"async"`
}

func pdfTool(slug, path, title, desc string, cat Category, minFiles, maxFiles int) Tool {
	return Tool{
		Slug: slug, Title: title, Description: desc, Category: cat,
		Method: "POST", Path: "/api/v1/pdf/" + path,
		Accepts: KindPDF, MinFiles: minFiles, MaxFiles: maxFiles, Consumes: true,
	}
}

func imageTool(slug, path, title, desc string) Tool {
	return Tool{
		Slug: slug, Title: title, Description: desc, Category: CategoryImage,
		Method: "POST", Path: "/api/v1/images/" + path,
		Accepts: KindImage, MinFiles: 1, MaxFiles: 1, Consumes: true,
	}
}

func convertTool(slug, title, desc string, cat Category, kind Kind, maxFiles int, async bool) Tool {
	return Tool{
		Slug: slug, Title: title, Description: desc, Category: cat,
		Method: "POST", Path: "/api/v1/convert/" + slug,
		Accepts: kind, MinFiles: 1, MaxFiles: maxFiles, Consumes: true, Async: async,
	}
}

// catalog is built once; Lookup and All hand out copies.
var catalog = func() map[string]Tool {
	list := []Tool{
		pdfTool("merge-pdf", "merge", "Merge PDF", "Combine multiple PDFs into one.", CategoryOrganize, 2, 20),
		pdfTool("split-pdf", "split", "Split PDF", "Split a PDF into page ranges.", CategoryOrganize, 1, 1),
		pdfTool("remove-pages", "remove", "Remove pages", "Delete specific pages from a PDF.", CategoryOrganize, 1, 1),
		pdfTool("extract-pages", "extract", "Extract pages", "Select and create a new PDF from pages.", CategoryOrganize, 1, 1),
		pdfTool("organize-pdf", "organize", "Organize PDF", "Sort, add, rotate or delete PDF pages.", CategoryOrganize, 1, 10),
		pdfTool("rotate-pdf", "rotate", "Rotate PDF", "Rotate the pages of a PDF.", CategoryOrganize, 1, 1),
		pdfTool("compress-pdf", "compress", "Compress PDF", "Reduce the file size of your PDF.", CategoryOptimize, 1, 1),
		pdfTool("repair-pdf", "repair", "Repair PDF", "Fix corrupted or damaged PDFs.", CategoryOptimize, 1, 1),
		pdfTool("add-page-numbers", "page-numbers", "Add page numbers", "Insert page numbers into your PDF.", CategoryEdit, 1, 1),
		pdfTool("add-watermark", "watermark", "Add watermark", "Add a text or image watermark to your PDF.", CategoryEdit, 1, 1),
		pdfTool("protect-pdf", "protect", "Protect PDF", "Add a password to your PDF.", CategorySecurity, 1, 1),
		pdfTool("sign-pdf", "sign", "Sign PDF", "Add your signature image to a PDF.", CategorySecurity, 1, 1),
		pdfTool("inspect-pdf", "inspect", "Inspect PDF", "Count pages and read the text of a PDF.", CategoryOrganize, 1, 1),

		convertTool("jpg-to-pdf", "JPG to PDF", "Convert JPG and PNG images to PDF.", CategoryConvertTo, KindPhoto, 50, false),
		convertTool("word-to-pdf", "WORD to PDF", "Convert Word documents to PDF.", CategoryConvertTo, KindWord, 1, true),
		convertTool("excel-to-pdf", "EXCEL to PDF", "Convert Excel spreadsheets to PDF.", CategoryConvertTo, KindExcel, 1, true),
		convertTool("ppt-to-pdf", "POWERPOINT to PDF", "Convert PowerPoint presentations to PDF.", CategoryConvertTo, KindPowerPoint, 1, true),
		convertTool("html-to-pdf", "HTML to PDF", "Convert HTML pages to PDF.", CategoryConvertTo, KindHTML, 1, true),
		convertTool("pdf-to-jpg", "PDF to JPG", "Convert PDF pages to JPG images.", CategoryConvertFrom, KindPDF, 1, true),

		imageTool("compress-image", "compress", "Compress IMAGE", "Reduce the file size of your images."),
		imageTool("resize-image", "resize", "Resize IMAGE", "Change the dimensions of your images."),
		imageTool("crop-image", "crop", "Crop IMAGE", "Trim your images to the perfect size."),
		imageTool("rotate-image", "rotate", "Rotate IMAGE", "Rotate your images."),
		imageTool("convert-image", "convert", "Convert IMAGE", "Convert images between JPG, PNG, GIF, BMP and TIFF."),
		imageTool("photo-editor", "filters", "Photo editor", "Adjust brightness, contrast, saturation and more."),
		imageTool("watermark-image", "watermark", "Watermark IMAGE", "Add a text or image watermark to your images."),
		imageTool("meme-generator", "meme", "Meme generator", "Create your own memes."),
		imageTool("image-metadata", "metadata", "Image metadata", "List the EXIF metadata of a photo."),
	}

	m := make(map[string]Tool, len(list))
	for _, t := range list {
		t.Extensions = extensionsFor(t.Accepts)
		m[t.Slug] = t
	}

	// Read-only tools never count against the limit.
	for _, slug := range []string{"inspect-pdf", "image-metadata"} {
		t := m[slug]
		t.Consumes = false
		m[slug] = t
	}
	return m
}()

// Lookup returns the tool with the given slug.
func Lookup(slug string) (Tool, bool) {
	t, ok := catalog[slug]
	return t, ok
}

// MustLookup is Lookup for slugs known at compile time.
func MustLookup(slug string) Tool {
	t, ok := catalog[slug]
	if !ok {
		panic("tools: unknown tool " + slug)
	}
	return t
}

// All returns every tool ordered by category, then title.
func All() []Tool {
	rank := make(map[Category]int, len(categoryOrder))
	for i, c := range categoryOrder {
		rank[c] = i
	}

	out := make([]Tool, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if rank[out[i].Category] != rank[out[j].Category] {
			return rank[out[i].Category] < rank[out[j].Category]
		}
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// Categories returns the categories in display order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}
