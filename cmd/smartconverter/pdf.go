package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/smartconverter-api/internal/fileutil"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/pdf"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/watermark"
)

func (a *app) pdfCommands() []*cobra.Command {
	return []*cobra.Command{
		a.newMergeCmd(),
		a.newSplitCmd(),
		a.newPagesCmd("extract", "extract-pages", "Create a new PDF from the selected pages", pdf.Extract),
		a.newPagesCmd("remove", "remove-pages", "Delete the selected pages", pdf.Remove),
		a.newCompressCmd(),
		a.newWatermarkCmd(),
		a.newPageNumbersCmd(),
		a.newProtectCmd(),
		a.newImagesToPDFCmd(),
	}
}

func pdfResult(slug string, files []tools.Upload, doc []byte) result {
	return result{name: tools.DownloadName(slug, files[0].Name, ".pdf"), data: doc}
}

// step adapts a one-document transformation to run.
func step(slug string, fn func(doc []byte) ([]byte, error)) func([]tools.Upload) (result, error) {
	return func(files []tools.Upload) (result, error) {
		out, err := fn(files[0].Data)
		if err != nil {
			return result{}, err
		}
		return pdfResult(slug, files, out), nil
	}
}

func (a *app) newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <file.pdf>...",
		Short: "Combine PDFs in the order given",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "merge-pdf", args, func(files []tools.Upload) (result, error) {
				out, err := pdf.Merge(datas(files))
				if err != nil {
					return result{}, err
				}
				return pdfResult("merge-pdf", files, out), nil
			})
		},
	}
}

func (a *app) newSplitCmd() *cobra.Command {
	var ranges string
	cmd := &cobra.Command{
		Use:     "split <file.pdf>",
		Short:   "Split a PDF into page ranges, written as a zip",
		Example: `  smartconverter split report.pdf --ranges "1-3, 5, 7-9"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "split-pdf", args, func(files []tools.Upload) (result, error) {
				doc := files[0].Data
				n, err := pdf.PageCount(doc)
				if err != nil {
					return result{}, err
				}
				parts, err := pdf.Split(doc, pdf.ParseRanges(ranges, n))
				if err != nil {
					return result{}, err
				}

				base := fileutil.SanitizeFilename(fileutil.BaseName(files[0].Name))
				entries := make([]fileutil.Entry, len(parts))
				for i, p := range parts {
					entries[i] = fileutil.Entry{Name: pdf.SplitEntryName(base, p.Range), Data: p.Data}
				}
				archive, err := fileutil.Zip(entries)
				if err != nil {
					return result{}, err
				}
				return result{
					name: pdf.SplitArchiveName(base),
					data: archive,
					note: fmt.Sprintf("📄 %d parts", len(parts)),
				}, nil
			})
		},
	}
	cmd.Flags().StringVar(&ranges, "ranges", "", `page ranges, for example "1-3, 5"`)
	_ = cmd.MarkFlagRequired("ranges")
	return cmd
}

// newPagesCmd builds the commands that take a page selection.
func (a *app) newPagesCmd(use, slug, short string, fn func(doc []byte, pages []int) ([]byte, error)) *cobra.Command {
	var pages string
	cmd := &cobra.Command{
		Use:   use + " <file.pdf>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, slug, args, step(slug, func(doc []byte) ([]byte, error) {
				n, err := pdf.PageCount(doc)
				if err != nil {
					return nil, err
				}
				return fn(doc, pdf.ParsePages(pages, n))
			}))
		},
	}
	cmd.Flags().StringVar(&pages, "pages", "", `pages, for example "1,3-5"`)
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

func (a *app) newCompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compress <file.pdf>",
		Short: "Reduce the file size of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "compress-pdf", args, func(files []tools.Upload) (result, error) {
				res, err := pdf.Compress(files[0].Data)
				if err != nil {
					return result{}, err
				}
				r := pdfResult("compress-pdf", files, res.Data)
				r.note = fmt.Sprintf("📉 %s → %s (%.0f%% smaller)",
					humanize.Bytes(uint64(res.InputBytes)), humanize.Bytes(uint64(res.OutputBytes)), res.Saved()*100)
				return r, nil
			})
		},
	}
}

func (a *app) newWatermarkCmd() *cobra.Command {
	var (
		opts      pdf.WatermarkOptions
		mode      string
		position  string
		imagePath string
		pages     string
	)
	cmd := &cobra.Command{
		Use:   "watermark <file.pdf>",
		Short: "Stamp text or an image on the pages of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readExtra(imagePath, tools.KindPhoto)
			if err != nil {
				return err
			}
			opts.Image = img
			opts.Mode = watermark.Mode(mode)
			opts.Anchor = watermark.Anchor(position)

			return a.run(cmd, "add-watermark", args, step("add-watermark", func(doc []byte) ([]byte, error) {
				if pages != "" {
					n, err := pdf.PageCount(doc)
					if err != nil {
						return nil, err
					}
					if opts.Pages = pdf.ParsePages(pages, n); len(opts.Pages) == 0 {
						return nil, pdf.ErrNoPagesSelected
					}
				}
				return pdf.Watermark(doc, opts)
			}))
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Text, "text", "", "watermark text")
	f.StringVar(&imagePath, "image", "", "PNG or JPEG to stamp instead of text")
	f.StringVar(&mode, "mode", string(watermark.ModeSingle), "single or tile")
	f.StringVar(&position, "position", string(watermark.Center), "anchor in single mode, for example top-right")
	f.IntVar(&opts.Rows, "rows", 3, "tile rows")
	f.IntVar(&opts.Cols, "cols", 3, "tile columns")
	f.StringVar(&opts.Style.Font, "font", "Helvetica-Bold", "standard PDF font")
	f.IntVar(&opts.Style.Size, "font-size", 30, "font size in points")
	f.StringVar(&opts.Style.Color, "color", "#ff0000", "text color as #rrggbb")
	f.Float64Var(&opts.Style.Opacity, "opacity", 0.5, "text opacity between 0 and 1")
	f.Float64Var(&opts.Style.Rotation, "rotation", 0, "text rotation in degrees")
	f.Float64Var(&opts.ImageScale, "scale", 1, "image scale")
	f.Float64Var(&opts.ImageOpacity, "image-opacity", 0.5, "image opacity between 0 and 1")
	f.StringVar(&pages, "pages", "", "limit to these pages (default: all)")
	return cmd
}

func (a *app) newPageNumbersCmd() *cobra.Command {
	var (
		opts     pdf.PageNumberOptions
		position string
	)
	cmd := &cobra.Command{
		Use:   "page-numbers <file.pdf>",
		Short: "Write a page number on every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Position = watermark.Anchor(position)
			return a.run(cmd, "add-page-numbers", args, step("add-page-numbers", func(doc []byte) ([]byte, error) {
				return pdf.AddPageNumbers(doc, opts)
			}))
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Format, "format", pdf.DefaultPageNumberFormat, "label; {n} is the page and {total} the page count")
	f.StringVar(&position, "position", string(watermark.BottomCenter), "top-left, top-center, top-right, bottom-left, bottom-center or bottom-right")
	f.Float64Var(&opts.Margin, "margin", 20, "distance from the page edge in points")
	f.IntVar(&opts.Style.Size, "font-size", 12, "font size in points")
	f.StringVar(&opts.Style.Color, "color", "#000000", "text color as #rrggbb")
	return cmd
}

func (a *app) newProtectCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "protect <file.pdf>",
		Short: "Encrypt a PDF with a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "protect-pdf", args, step("protect-pdf", func(doc []byte) ([]byte, error) {
				return pdf.Protect(doc, password)
			}))
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password needed to open the PDF")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) newImagesToPDFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images-to-pdf <image>...",
		Short: "Put each JPG or PNG on its own PDF page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "jpg-to-pdf", args, func(files []tools.Upload) (result, error) {
				out, err := pdf.ImagesToPDF(datas(files))
				if err != nil {
					return result{}, err
				}
				return pdfResult("jpg-to-pdf", files, out), nil
			})
		},
	}
}
