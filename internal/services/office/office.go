// Package office converts Word, Excel and PowerPoint files to PDF by
// running LibreOffice headless.
package office

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnavailable = errors.New("office document conversion is not available on this server")
	ErrUnsupported = errors.New("unsupported office document")
	ErrNoOutput    = errors.New("LibreOffice produced no PDF")
	ErrFailed      = errors.New("LibreOffice could not convert the document")
)

const DefaultTimeout = 2 * time.Minute

// Extensions LibreOffice is asked to convert.
var supported = map[string]bool{".docx": true, ".xlsx": true, ".pptx": true}

// Converter runs soffice. The zero value looks the binary up on PATH.
type Converter struct {
	Binary  string
	Timeout time.Duration
}

// NewConverter returns a Converter using binary, or "soffice" when empty.
func NewConverter(binary string, timeout time.Duration) *Converter {
	return &Converter{Binary: binary, Timeout: timeout}
}

func (c *Converter) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "soffice"
}

// Available reports whether the soffice binary can be found.
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.binary())
	return err == nil
}

// Convert turns data (named name, which decides the import filter) into a
// PDF. Each run uses its own user profile so concurrent conversions do not
// fight over LibreOffice's profile lock. Cancelling ctx kills the process.
func (c *Converter) Convert(ctx context.Context, name string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !supported[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	bin, err := exec.LookPath(c.binary())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	work, err := os.MkdirTemp("", "smartconverter-office-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	input := filepath.Join(work, "input"+ext)
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write input: %w", err)
	}
	outDir := filepath.Join(work, "out")

	cmd := exec.CommandContext(ctx, bin, Args(work, input, outDir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("office conversion timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w: %s", ErrFailed, err, strings.TrimSpace(stderr.String()))
	}

	pdf, err := os.ReadFile(filepath.Join(outDir, "input.pdf"))
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(pdf) == 0) {
		return nil, ErrNoOutput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	return pdf, nil
}

// Args builds the soffice command line for one conversion.
func Args(profileDir, input, outDir string) []string {
	return []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(profileDir, "profile")),
		"--headless",
		"--norestore",
		"--nolockcheck",
		"--convert-to", "pdf",
		"--outdir", outDir,
		input,
	}
}
