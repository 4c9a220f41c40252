// Package embeddings defines the text embedding client interface and the
// batching shared by its providers.
package embeddings

import (
	"context"
	"time"
)

const (
	// DefaultBatchSize is the number of texts sent per provider request.
	DefaultBatchSize = 5

	// DefaultBatchDelay is the pause between batch requests, keeping bulk
	// ingestion under provider rate limits.
	DefaultBatchDelay = 500 * time.Millisecond
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts many texts, returning embeddings in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// BatchFunc embeds one batch of texts.
type BatchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Batch splits texts into groups of size, calls fn on each and concatenates
// the results. It waits delay between consecutive calls and stops early
// when ctx is done.
func Batch(ctx context.Context, texts []string, size int, delay time.Duration, fn BatchFunc) ([][]float32, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if start > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		end := min(start+size, len(texts))
		embs, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, embs...)
	}
	return out, nil
}
