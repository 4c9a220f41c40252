// Package archive keeps the original bytes of ingested documents so they
// can be re-processed or downloaded after their temporary upload file is
// removed.
package archive

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"time"
)

// Archiver stores uploaded originals.
type Archiver interface {
	// Put stores size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Close releases any resources held by the archiver.
	Close() error
}

// Key builds the object key for an upload: "<yyyy>/<mm>/<dd>/<id>/<base name>".
// Grouping by day keeps bucket listings browsable.
func Key(id, filename string, at time.Time) string {
	return path.Join(at.UTC().Format("2006/01/02"), id, filepath.Base(filename))
}

// ContentType returns the MIME type for a supported document extension.
func ContentType(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
