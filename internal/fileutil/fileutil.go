// Package fileutil holds small helpers shared by the tools: byte formatting,
// filename cleanup and zip packaging.
package fileutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/unicode/norm"
)

// DefaultTruncateLength is how many characters TruncateFilename keeps.
const DefaultTruncateLength = 30

// FormatBytes renders a size with binary (1024-based) units, e.g. "1.5 KiB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// TruncateFilename shortens name to at most max characters, ending in "..."
// when it had to cut. A max below 4 falls back to the default.
func TruncateFilename(name string, max int) string {
	if max < 4 {
		max = DefaultTruncateLength
	}
	name = norm.NFC.String(name)
	if utf8.RuneCountInString(name) <= max {
		return name
	}
	runes := []rune(name)
	return string(runes[:max-3]) + "..."
}

// SanitizeFilename removes characters that aren't safe for filenames or a
// Content-Disposition header.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "", "\t", " ",
		"..", "",
	)
	name = replacer.Replace(name)

	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, ".")

	// Limit length without splitting a multi-byte character.
	if utf8.RuneCountInString(name) > 100 {
		name = string([]rune(name)[:100])
	}

	return name
}

// BaseName returns the file name without directory or extension.
func BaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReplaceExt swaps the extension of name. ext includes the dot.
func ReplaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

// Entry is one file inside a zip archive.
type Entry struct {
	Name string
	Data []byte
}

// Zip packs entries in order. Duplicate names are rejected.
func Zip(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate zip entry %q", e.Name)
		}
		seen[e.Name] = true

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}
