package tools

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
)

// WriteMarkdown renders the catalog as a Markdown document, one table per
// category.
func WriteMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)
	md.H1("SmartConverter tools")
	md.PlainText("")

	byCategory := make(map[Category][]Tool)
	for _, t := range All() {
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}

	for _, c := range Categories() {
		list := byCategory[c]
		if len(list) == 0 {
			continue
		}

		md.H2(string(c))
		md.PlainText("")

		rows := make([][]string, 0, len(list))
		for _, t := range list {
			rows = append(rows, []string{
				"`" + t.Slug + "`",
				t.Title,
				t.Description,
				fmt.Sprintf("`%s %s`", t.Method, t.Path),
				strings.Join(t.Extensions, " "),
				fileRange(t),
				strconv.FormatBool(t.Consumes),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Slug", "Tool", "Description", "Endpoint", "Accepts", "Files", "Counts"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return md.Build()
}

func fileRange(t Tool) string {
	if t.MinFiles == t.MaxFiles {
		return strconv.Itoa(t.MinFiles)
	}
	return fmt.Sprintf("%d-%d", t.MinFiles, t.MaxFiles)
}
