package pdf

import (
	"bytes"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// CompressResult reports the effect of Compress.
type CompressResult struct {
	Data        []byte
	InputBytes  int
	OutputBytes int
}

// Saved returns the fraction of bytes saved, between 0 and 1.
func (r CompressResult) Saved() float64 {
	if r.InputBytes == 0 || r.OutputBytes >= r.InputBytes {
		return 0
	}
	return 1 - float64(r.OutputBytes)/float64(r.InputBytes)
}

// Compress removes redundant objects and compresses streams. If the
// optimized file is not smaller, the original is returned unchanged.
func Compress(doc []byte) (*CompressResult, error) {
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(doc), &buf, newConfig()); err != nil {
		return nil, processing("compress", err)
	}

	out := buf.Bytes()
	if len(out) >= len(doc) {
		out = doc
	}
	return &CompressResult{Data: out, InputBytes: len(doc), OutputBytes: len(out)}, nil
}

// Repair reads doc leniently and writes it back out, rebuilding the
// cross-reference table and dropping what could not be parsed.
func Repair(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(doc), &buf, newConfig()); err != nil {
		return nil, processing("repair", err)
	}
	return buf.Bytes(), nil
}

// Protect encrypts doc with AES-256. The password opens the document and is
// also the owner password; printing, copying and editing stay allowed.
func Protect(doc []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	conf := newConfig()
	conf.UserPW = password
	conf.OwnerPW = password
	conf.EncryptUsingAES = true
	conf.EncryptKeyLength = 256
	conf.Permissions = model.PermissionsAll

	var buf bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(doc), &buf, conf); err != nil {
		return nil, processing("protect", err)
	}
	return buf.Bytes(), nil
}

// ImagesToPDF creates a document with one page per image, in order. Pages
// take the size of their image.
func ImagesToPDF(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	readers := make([]io.Reader, len(images))
	for i, img := range images {
		readers[i] = bytes.NewReader(img)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, pdfcpu.DefaultImportConfig(), newConfig()); err != nil {
		return nil, processing("images to pdf", err)
	}
	return buf.Bytes(), nil
}
