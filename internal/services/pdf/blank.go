package pdf

import (
	"bytes"
	"fmt"
)

// PageSize is a page size in PDF points (1/72 inch).
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Common page sizes.
var (
	A4     = PageSize{Width: 595.28, Height: 841.89}
	Letter = PageSize{Width: 612, Height: 792}
)

// BlankPage returns a one-page PDF with an empty page of the given size.
func BlankPage(size PageSize) []byte {
	return BlankDocument(size)
}

// BlankDocument writes a minimal PDF with one empty page per size, in order.
//
// The file is assembled by hand: a catalog, a page tree, the pages and a
// cross-reference table whose byte offsets are recorded while writing.
func BlankDocument(sizes ...PageSize) []byte {
	if len(sizes) == 0 {
		sizes = []PageSize{A4}
	}

	var buf bytes.Buffer
	// Object numbers: 1 catalog, 2 page tree, 3.. pages.
	offsets := make([]int, 0, 2+len(sizes))

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets = append(offsets, buf.Len())
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]byte, 0, len(sizes)*8)
	for i := range sizes {
		kids = fmt.Appendf(kids, "%d 0 R ", i+3)
	}
	offsets = append(offsets, buf.Len())
	fmt.Fprintf(&buf, "2 0 obj\n<< /Type /Pages /Kids [ %s] /Count %d >>\nendobj\n", kids, len(sizes))

	for i, s := range sizes {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf,
			"%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Resources << >> >>\nendobj\n",
			i+3, s.Width, s.Height)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}
