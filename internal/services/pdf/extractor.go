// Package pdf implements the PDF tools: page operations, optimization,
// encryption and stamping on top of pdfcpu, plus text inspection with
// ledongthuc/pdf.
//
// Every operation takes whole documents as byte slices and returns new byte
// slices. Uploads are capped in size, and pdfcpu needs random access anyway.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	pdftext "github.com/ledongthuc/pdf"
)

// Inspection describes a document before the user picks pages.
type Inspection struct {
	PageCount int        `json:"page_count"`
	Pages     []PageInfo `json:"pages"`
	WordCount int        `json:"word_count"`
	Encrypted bool       `json:"encrypted"`
}

// PageInfo is the per-page part of an Inspection.
type PageInfo struct {
	Number    int     `json:"number"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Text      string  `json:"text,omitempty"`
	WordCount int     `json:"word_count"`
}

// Inspect reports page count, page sizes and the text of every page.
// Pages whose text cannot be read (scans, images) get an empty Text.
func Inspect(doc []byte, withText bool) (*Inspection, error) {
	sizes, err := PageSizes(doc)
	if err != nil {
		return nil, err
	}

	ins := &Inspection{PageCount: len(sizes), Pages: make([]PageInfo, len(sizes))}
	for i, s := range sizes {
		ins.Pages[i] = PageInfo{Number: i + 1, Width: s.Width, Height: s.Height}
	}

	texts, err := pageTexts(doc)
	if err != nil {
		// pdfcpu opened the file but the text reader did not: most often
		// an encrypted document.
		ins.Encrypted = strings.Contains(strings.ToLower(err.Error()), "encrypt")
		return ins, nil
	}
	for i := range ins.Pages {
		if i >= len(texts) {
			break
		}
		ins.Pages[i].WordCount = countWords(texts[i])
		ins.WordCount += ins.Pages[i].WordCount
		if withText {
			ins.Pages[i].Text = texts[i]
		}
	}
	return ins, nil
}

// pageTexts returns the plain text of each page, in order.
func pageTexts(data []byte) ([]string, error) {
	reader, err := pdftext.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	n := reader.NumPage()
	texts := make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only pages have no text layer.
			continue
		}
		texts[i-1] = strings.TrimSpace(text)
	}
	return texts, nil
}

// countWords counts the number of words in a text string.
func countWords(text string) int {
	return len(strings.Fields(text))
}

// ValidatePDF checks if the data looks like a PDF by checking the magic bytes.
func ValidatePDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
