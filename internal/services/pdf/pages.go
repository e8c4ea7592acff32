package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// newConfig returns the pdfcpu configuration used by every operation.
// Relaxed validation accepts the slightly broken files real users upload.
func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages of doc.
func PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), newConfig())
	if err != nil {
		return 0, processing("page count", err)
	}
	return n, nil
}

// PageSizes returns the size of every page in points.
func PageSizes(doc []byte) ([]PageSize, error) {
	dims, err := api.PageDims(bytes.NewReader(doc), newConfig())
	if err != nil {
		return nil, processing("page sizes", err)
	}
	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// Range is an inclusive, 1-based page range.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (r Range) String() string {
	if r.From == r.To {
		return strconv.Itoa(r.From)
	}
	return fmt.Sprintf("%d-%d", r.From, r.To)
}

// ParseRanges reads "1-3, 5, 7-9". A missing end means a single page. Ranges
// that fall outside 1..pageCount, run backwards or repeat an earlier range
// are dropped.
func ParseRanges(s string, pageCount int) []Range {
	var out []Range
	seen := map[Range]bool{}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fromStr, toStr, hasTo := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(fromStr))
		if err != nil {
			continue
		}
		to := from
		if hasTo && strings.TrimSpace(toStr) != "" {
			if to, err = strconv.Atoi(strings.TrimSpace(toStr)); err != nil {
				continue
			}
		}

		r := Range{From: from, To: to}
		if !r.valid(pageCount) || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func (r Range) valid(pageCount int) bool {
	return r.From >= 1 && r.To <= pageCount && r.From <= r.To
}

// ParsePages expands a selection like "1,3-5" into sorted, unique page
// numbers within 1..pageCount.
func ParsePages(s string, pageCount int) []int {
	set := map[int]bool{}
	for _, r := range ParseRanges(s, pageCount) {
		for p := r.From; p <= r.To; p++ {
			set[p] = true
		}
	}
	return sortedPages(set)
}

// NormalizePages sorts and deduplicates pages, dropping any outside
// 1..pageCount.
func NormalizePages(pages []int, pageCount int) []int {
	set := map[int]bool{}
	for _, p := range pages {
		if p >= 1 && p <= pageCount {
			set[p] = true
		}
	}
	return sortedPages(set)
}

func sortedPages(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func selection(pages []int) []string {
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	return sel
}

// trim keeps the selected pages in document order.
func trim(doc []byte, sel []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(doc), &buf, sel, newConfig()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extract returns a new document made of the selected pages. The output
// page count equals the number of distinct valid pages selected.
func Extract(doc []byte, pages []int) ([]byte, error) {
	n, err := PageCount(doc)
	if err != nil {
		return nil, err
	}
	pages = NormalizePages(pages, n)
	if len(pages) == 0 {
		return nil, ErrNoPagesSelected
	}

	out, err := trim(doc, selection(pages))
	if err != nil {
		return nil, processing("extract pages", err)
	}
	return out, nil
}

// Remove deletes the selected pages. Removing every page is refused.
func Remove(doc []byte, pages []int) ([]byte, error) {
	n, err := PageCount(doc)
	if err != nil {
		return nil, err
	}
	pages = NormalizePages(pages, n)
	if len(pages) == 0 {
		return nil, ErrNoPagesSelected
	}
	if len(pages) == n {
		return nil, ErrAllPagesRemoved
	}

	var buf bytes.Buffer
	if err := api.RemovePages(bytes.NewReader(doc), &buf, selection(pages), newConfig()); err != nil {
		return nil, processing("remove pages", err)
	}
	return buf.Bytes(), nil
}

// Part is one output of Split.
type Part struct {
	Range Range
	Data  []byte
}

// Split produces one document per valid range, in the order given.
func Split(doc []byte, ranges []Range) ([]Part, error) {
	n, err := PageCount(doc)
	if err != nil {
		return nil, err
	}

	var parts []Part
	seen := map[Range]bool{}
	for _, r := range ranges {
		if !r.valid(n) || seen[r] {
			continue
		}
		seen[r] = true

		data, err := trim(doc, []string{r.String()})
		if err != nil {
			return nil, processing("split "+r.String(), err)
		}
		parts = append(parts, Part{Range: r, Data: data})
	}

	if len(parts) == 0 {
		return nil, ErrNoValidRanges
	}
	return parts, nil
}

// SplitEntryName names a split part inside the archive.
func SplitEntryName(base string, r Range) string {
	return fmt.Sprintf("%s-p%d-%d.pdf", base, r.From, r.To)
}

// SplitArchiveName names the archive holding the split parts.
func SplitArchiveName(base string) string {
	return base + "_split.zip"
}

// normalizeRotation maps any multiple of 90 into 0, 90, 180 or 270.
func normalizeRotation(deg int) (int, error) {
	if deg%90 != 0 {
		return 0, ErrInvalidRotation
	}
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}

// Rotate turns the selected pages (all pages when none are given) clockwise
// by degrees.
func Rotate(doc []byte, degrees int, pages []int) ([]byte, error) {
	deg, err := normalizeRotation(degrees)
	if err != nil {
		return nil, err
	}

	n, err := PageCount(doc)
	if err != nil {
		return nil, err
	}
	var sel []string
	if len(pages) > 0 {
		pages = NormalizePages(pages, n)
		if len(pages) == 0 {
			return nil, ErrNoPagesSelected
		}
		sel = selection(pages)
	}
	if deg == 0 {
		return doc, nil
	}

	var buf bytes.Buffer
	if err := api.Rotate(bytes.NewReader(doc), &buf, deg, sel, newConfig()); err != nil {
		return nil, processing("rotate", err)
	}
	return buf.Bytes(), nil
}

// PageRef places one page in an organized document: either page Page of
// input File (both 1-based), or a blank A4 page.
type PageRef struct {
	File     int  `json:"file"`
	Page     int  `json:"page"`
	Rotation int  `json:"rotation"`
	Blank    bool `json:"blank"`
}

// Organize builds a new document from an ordered list of page references
// across one or more inputs.
func Organize(docs [][]byte, layout []PageRef) ([]byte, error) {
	if len(layout) == 0 {
		return nil, ErrNoPagesSelected
	}

	counts := make([]int, len(docs))
	for i, d := range docs {
		n, err := PageCount(d)
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", i+1, err)
		}
		counts[i] = n
	}

	pages := make([][]byte, 0, len(layout))
	for i, ref := range layout {
		rot, err := normalizeRotation(ref.Rotation)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}

		var page []byte
		if ref.Blank {
			page = BlankPage(A4)
		} else {
			if ref.File < 1 || ref.File > len(docs) || ref.Page < 1 || ref.Page > counts[ref.File-1] {
				return nil, fmt.Errorf("entry %d (file %d page %d): %w", i+1, ref.File, ref.Page, ErrInvalidPage)
			}
			if page, err = trim(docs[ref.File-1], []string{strconv.Itoa(ref.Page)}); err != nil {
				return nil, processing("organize", err)
			}
		}

		if rot != 0 {
			var buf bytes.Buffer
			if err := api.Rotate(bytes.NewReader(page), &buf, rot, nil, newConfig()); err != nil {
				return nil, processing("organize rotate", err)
			}
			page = buf.Bytes()
		}
		pages = append(pages, page)
	}

	return Merge(pages)
}

// Merge concatenates documents in the given order.
func Merge(docs [][]byte) ([]byte, error) {
	switch len(docs) {
	case 0:
		return nil, ErrNoDocuments
	case 1:
		if _, err := PageCount(docs[0]); err != nil {
			return nil, err
		}
		return docs[0], nil
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, newConfig()); err != nil {
		return nil, processing("merge", err)
	}
	return buf.Bytes(), nil
}
