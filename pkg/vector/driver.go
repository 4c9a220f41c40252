// Package vector provides interfaces and implementations for vector storage.
package vector

import "context"

// Metadata keys stored alongside every document chunk.
const (
	MetaFilename   = "filename"
	MetaType       = "type"
	MetaCreatedAt  = "created_at"
	MetaChunkIndex = "chunk_index"
	MetaSource     = "source"
)

// Document represents a stored chunk with its embedding and metadata.
type Document struct {
	// ID is a unique identifier for the chunk.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata holds scalar attributes such as filename and chunk index.
	Metadata map[string]any

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// QueryResult represents a search result with its distance and similarity.
type QueryResult struct {
	Document

	// Distance is the cosine distance reported by the store (lower = closer).
	Distance float32

	// Similarity is 1 - Distance.
	Similarity float32
}

// NewQueryResult builds a QueryResult from a store-reported distance.
func NewQueryResult(doc Document, distance float32) QueryResult {
	return QueryResult{
		Document:   doc,
		Distance:   distance,
		Similarity: 1 - distance,
	}
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding,
	// closest first.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// List returns every stored document without embeddings.
	List(ctx context.Context) ([]Document, error)

	// Delete removes documents by their IDs. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Reset removes every document.
	Reset(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}

// StringMeta returns a string metadata value, or "" when absent.
func StringMeta(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// IntMeta returns an integer metadata value. Numbers decoded from JSON
// arrive as float64 and are truncated.
func IntMeta(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	}
	return 0
}
