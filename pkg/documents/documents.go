// Package documents turns uploaded files into cleaned, overlapping text
// chunks ready for embedding.
package documents

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxFileSize is the largest accepted upload, 10 MiB.
const MaxFileSize = 10 * 1024 * 1024

// TimeLayout formats created_at as an ISO 8601 UTC timestamp with
// millisecond precision, e.g. "2024-01-02T15:04:05.000Z".
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Sources recorded in chunk metadata.
const (
	SourceUpload = "upload"
	SourceWatch  = "watch"
	SourceCLI    = "cli"
)

// SupportedTypes lists the accepted file extensions.
var SupportedTypes = []string{".pdf", ".docx", ".txt", ".xlsx", ".csv"}

var (
	// ErrUnsupportedType is returned for files whose extension is not in
	// SupportedTypes.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNoText is returned when a document yields no usable chunks.
	ErrNoText = errors.New("document contains no extractable text")
)

// Ext returns the lowercased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsSupported reports whether name has a supported extension.
func IsSupported(name string) bool {
	return slices.Contains(SupportedTypes, Ext(name))
}

func unsupported(ext string) error {
	return fmt.Errorf("%w: %s. Supported types: %s", ErrUnsupportedType, ext, strings.Join(SupportedTypes, ", "))
}

// Truncate returns the first n characters of s followed by "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s + "..."
	}
	return string([]rune(s)[:n]) + "..."
}
