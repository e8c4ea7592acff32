package main

import (
	"fmt"
	"image/color"

	"github.com/spf13/cobra"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/imagetools"
	"github.com/Shimizu-Technology/smartconverter-api/internal/services/tools"
)

func (a *app) newImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Resize, compress and convert images",
	}
	cmd.AddCommand(a.newResizeCmd(), a.newImageCompressCmd(), a.newImageConvertCmd())
	return cmd
}

func imageResult(slug string, files []tools.Upload, out imagetools.Output) result {
	return result{
		name: tools.DownloadName(slug, files[0].Name, out.Format.Ext()),
		data: out.Data,
		note: fmt.Sprintf("🖼️  %d×%d %s", out.Width, out.Height, out.Format),
	}
}

// imageStep adapts a one-image transformation to run.
func imageStep(slug string, fn func(data []byte) (imagetools.Output, error)) func([]tools.Upload) (result, error) {
	return func(files []tools.Upload) (result, error) {
		out, err := fn(files[0].Data)
		if err != nil {
			return result{}, err
		}
		return imageResult(slug, files, out), nil
	}
}

func (a *app) newResizeCmd() *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "resize <image>",
		Short: "Resize an image; a zero side keeps the aspect ratio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "resize-image", args, imageStep("resize-image", func(data []byte) (imagetools.Output, error) {
				return imagetools.Resize(data, width, height)
			}))
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "target width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "target height in pixels")
	return cmd
}

func (a *app) newImageCompressCmd() *cobra.Command {
	var quality, maxDim int
	cmd := &cobra.Command{
		Use:   "compress <image>",
		Short: "Re-encode an image as JPEG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "compress-image", args, imageStep("compress-image", func(data []byte) (imagetools.Output, error) {
				return imagetools.Compress(data, quality, maxDim)
			}))
		},
	}
	cmd.Flags().IntVar(&quality, "quality", 80, "JPEG quality between 1 and 100")
	cmd.Flags().IntVar(&maxDim, "max-dimension", 1920, "cap on the longest side in pixels")
	return cmd
}

func (a *app) newImageConvertCmd() *cobra.Command {
	var format, background string
	cmd := &cobra.Command{
		Use:   "convert <image>",
		Short: "Convert an image to JPG, PNG, GIF, BMP or TIFF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := imagetools.ParseFormat(format)
			if err != nil {
				return err
			}
			bg := imagetools.ParseColor(background, color.White)
			return a.run(cmd, "convert-image", args, imageStep("convert-image", func(data []byte) (imagetools.Output, error) {
				return imagetools.Convert(data, f, bg)
			}))
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "target format: jpg, png, gif, bmp or tiff")
	cmd.Flags().StringVar(&background, "background", "#ffffff", "fill for transparent areas when the target has no alpha")
	_ = cmd.MarkFlagRequired("format")
	return cmd
}
