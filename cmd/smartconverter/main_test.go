package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/smartconverter-api/internal/services/pdf"
)

// execute runs the CLI with a private usage database and output directory.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{
		"--usage-db", filepath.Join(dir, "usage.db"),
		"--output-dir", filepath.Join(dir, "out"),
		"--timezone", "UTC",
	}
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "smartconverter", cmd.Use)
	assert.NotEmpty(t, cmd.Long)

	want := []string{"merge", "split", "extract", "remove", "compress", "watermark",
		"page-numbers", "protect", "images-to-pdf", "image", "tools", "usage", "version"}
	var got []string
	for _, sub := range cmd.Commands() {
		got = append(got, sub.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}

	for _, flag := range []string{"config", "output", "output-dir", "unlimited", "usage-db", "limit", "timezone"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestMergeAndDailyLimit(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.pdf", pdf.BlankDocument(pdf.A4))
	b := writeFile(t, dir, "b.pdf", pdf.BlankDocument(pdf.A4, pdf.Letter))

	out, err := execute(t, dir, "merge", a, b)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 of 2 conversions left today")

	merged, err := os.ReadFile(filepath.Join(dir, "out", "merge-pdf-smartconverter-a.pdf"))
	require.NoError(t, err)
	n, err := pdf.PageCount(merged)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = execute(t, dir, "merge", a, b)
	require.NoError(t, err)

	_, err = execute(t, dir, "merge", a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily conversion limit")

	out, err = execute(t, dir, "merge", a, b, "--unlimited")
	require.NoError(t, err)
	assert.NotContains(t, out, "conversions left")

	out, err = execute(t, dir, "usage")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 conversions used, 0 left")
}

func TestFailedRunIsNotCounted(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.pdf", pdf.BlankDocument())

	_, err := execute(t, dir, "remove", doc, "--pages", "1")
	require.Error(t, err)

	out, err := execute(t, dir, "usage")
	require.NoError(t, err)
	assert.Contains(t, out, "0 of 2 conversions used")
}

func TestWrongFileType(t *testing.T) {
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.pdf", []byte("plain text"))

	_, err := execute(t, dir, "compress", notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please upload a valid PDF file.")
}

func TestOutputFlag(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "doc.pdf", pdf.BlankDocument(pdf.A4, pdf.A4))
	target := filepath.Join(dir, "custom", "first.pdf")

	_, err := execute(t, dir, "extract", doc, "--pages", "1", "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	n, err := pdf.PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImageConvert(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	src := writeFile(t, dir, "dot.png", buf.Bytes())

	out, err := execute(t, dir, "image", "convert", src, "--format", "jpg")
	require.NoError(t, err, out)
	assert.Contains(t, out, "8×4")
	assert.FileExists(t, filepath.Join(dir, "out", "convert-image-smartconverter-dot.jpg"))
}

func TestToolsAndVersion(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "Merge PDF")

	out, err = execute(t, dir, "version")
	require.NoError(t, err)
	assert.Equal(t, "smartconverter dev\n", out)
}
