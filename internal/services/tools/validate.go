package tools

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Shimizu-Technology/smartconverter-api/internal/fileutil"
)

// Validation errors. Handlers map them to error codes with errors.Is.
var (
	ErrNoFiles         = errors.New("no files uploaded")
	ErrTooManyFiles    = errors.New("too many files")
	ErrTooFewFiles     = errors.New("not enough files")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("empty file")
)

// ValidationError carries the message shown to the user next to the
// sentinel error it wraps.
type ValidationError struct {
	Err     error
	Message string
	File    string
}

func (e *ValidationError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Upload is one file received for a tool.
type Upload struct {
	Name string
	Data []byte
	// MIME is filled in by Validate with the sniffed content type.
	MIME string
}

type kindSpec struct {
	mimes      []string
	extensions []string
	message    string
}

var kinds = map[Kind]kindSpec{
	KindPDF: {
		mimes:      []string{"application/pdf"},
		extensions: []string{".pdf"},
		message:    "Please upload a valid PDF file.",
	},
	KindJPEG: {
		mimes:      []string{"image/jpeg"},
		extensions: []string{".jpg", ".jpeg"},
		message:    "Invalid file type. Please upload a JPG or JPEG file.",
	},
	KindPhoto: {
		mimes:      []string{"image/jpeg", "image/png"},
		extensions: []string{".jpg", ".jpeg", ".png"},
		message:    "Invalid file type. Please upload JPG or PNG images.",
	},
	KindImage: {
		mimes:      []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff", "image/webp"},
		extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"},
		message:    "Please upload a valid image file.",
	},
	KindHTML: {
		mimes:      []string{"text/html"},
		extensions: []string{".html", ".htm"},
		message:    "Invalid file type. Please upload a .html file.",
	},
	KindWord: {
		mimes:      []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		extensions: []string{".docx"},
		message:    "Invalid file type. Please upload a .docx file.",
	},
	KindExcel: {
		mimes:      []string{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		extensions: []string{".xlsx"},
		message:    "Invalid file type. Please upload a .xlsx file.",
	},
	KindPowerPoint: {
		mimes:      []string{"application/vnd.openxmlformats-officedocument.presentationml.presentation"},
		extensions: []string{".pptx"},
		message:    "Invalid file type. Please upload a .pptx file.",
	},
}

func extensionsFor(k Kind) []string {
	return append([]string(nil), kinds[k].extensions...)
}

// InvalidTypeMessage is the user-facing message for a wrong file type.
func InvalidTypeMessage(k Kind) string {
	return kinds[k].message
}

// Validate checks the file count and sniffs every file's content against the
// tool's allowlist. The client-supplied content type is never trusted. On
// success each Upload's MIME field holds the detected type.
func Validate(t Tool, files []Upload) error {
	if len(files) == 0 {
		return &ValidationError{Err: ErrNoFiles, Message: "Please select a file first."}
	}
	if t.MaxFiles > 0 && len(files) > t.MaxFiles {
		msg := fmt.Sprintf("Please upload at most %d files.", t.MaxFiles)
		if t.MaxFiles == 1 {
			msg = "Please upload only one file at a time."
		}
		return &ValidationError{Err: ErrTooManyFiles, Message: msg}
	}
	if len(files) < t.MinFiles {
		return &ValidationError{
			Err:     ErrTooFewFiles,
			Message: fmt.Sprintf("Please select at least %d files.", t.MinFiles),
		}
	}

	for i := range files {
		mt, err := CheckKind(t.Accepts, files[i].Name, files[i].Data)
		if err != nil {
			return err
		}
		files[i].MIME = mt
	}
	return nil
}

// CheckKind validates a single file against a kind and returns the sniffed
// MIME type. Tools with secondary inputs (a signature image, an image
// watermark) use it directly.
func CheckKind(k Kind, name string, data []byte) (string, error) {
	spec, ok := kinds[k]
	if !ok {
		return "", fmt.Errorf("unknown file kind %q", k)
	}
	if len(data) == 0 {
		return "", &ValidationError{Err: ErrEmptyFile, Message: "The uploaded file is empty.", File: name}
	}

	detected := mimetype.Detect(data)
	for _, m := range spec.mimes {
		if detected.Is(m) {
			return m, nil
		}
	}

	// HTML fragments without <html> or <body> sniff as plain text.
	if k == KindHTML && detected.Is("text/plain") && hasExtension(name, spec.extensions) {
		return "text/html", nil
	}

	return "", &ValidationError{Err: ErrUnsupportedType, Message: spec.message, File: name}
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// DownloadName builds "<slug>-smartconverter-<base><ext>". An empty ext keeps
// the original extension.
func DownloadName(slug, original, ext string) string {
	base := fileutil.SanitizeFilename(fileutil.BaseName(original))
	if base == "" {
		base = "file"
	}
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(original))
	}
	return slug + "-smartconverter-" + base + ext
}
