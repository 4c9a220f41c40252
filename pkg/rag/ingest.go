package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/kbase/pkg/archive"
	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/eventstream"
	"github.com/papercomputeco/kbase/pkg/vector"
	"github.com/papercomputeco/kbase/pkg/worker"
)

// IngestResult describes a stored document.
type IngestResult struct {
	Filename   string
	Chunks     []documents.Chunk
	ArchiveKey string
	Duration   time.Duration
}

// Ingest processes an uploaded temp file at path, stores its chunks and
// removes the file.
func (s *Service) Ingest(ctx context.Context, path, name string) (*IngestResult, error) {
	return s.IngestInput(ctx, documents.Input{Path: path, Name: name})
}

// IngestInput archives the original, chunks and embeds it, and stores the
// chunks in the vector store.
func (s *Service) IngestInput(ctx context.Context, in documents.Input) (*IngestResult, error) {
	start := time.Now()
	if in.Name == "" {
		in.Name = filepath.Base(in.Path)
	}
	if in.Source == "" {
		in.Source = documents.SourceUpload
	}

	// Archive before processing: uploads are removed once chunked.
	var archiveKey string
	if s.archiver != nil && documents.IsSupported(in.Name) {
		archiveKey = s.archiveOriginal(ctx, in)
	}

	chunks, err := s.processor.ProcessInput(in)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	characters := 0
	for i, chunk := range chunks {
		texts[i] = chunk.Content
		characters += len(chunk.Content)
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", in.Name, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", vector.ErrEmbedding, len(embeddings), len(chunks))
	}

	docs := make([]vector.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vector.Document{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Metadata:  chunk.Metadata(),
			Embedding: embeddings[i],
		}
		ids[i] = chunk.ID
	}

	if err := s.driver.Add(ctx, docs); err != nil {
		return nil, fmt.Errorf("storing %s: %w", in.Name, err)
	}

	took := time.Since(start)
	s.logger.Info("document ingested",
		"filename", in.Name,
		"source", in.Source,
		"chunks", len(chunks),
		"took", took,
	)

	s.publish(ctx, eventstream.EventTypeDocumentIngested, in.Source, eventstream.DocumentMeta{
		Filename:   in.Name,
		Type:       chunks[0].Type,
		ChunkIDs:   ids,
		Chunks:     len(chunks),
		ArchiveKey: archiveKey,
		DurationMs: took.Milliseconds(),
		Characters: characters,
	})

	return &IngestResult{
		Filename:   in.Name,
		Chunks:     chunks,
		ArchiveKey: archiveKey,
		Duration:   took,
	}, nil
}

// HandleJob ingests a worker pool job.
func (s *Service) HandleJob(ctx context.Context, job worker.Job) error {
	_, err := s.IngestInput(ctx, job.Input)
	return err
}

// archiveOriginal stores the original file and returns its key, or "" when
// archiving failed. A failed archive does not block ingestion.
func (s *Service) archiveOriginal(ctx context.Context, in documents.Input) string {
	f, err := os.Open(in.Path)
	if err != nil {
		s.logger.Warn("opening document for archive", "path", in.Path, "error", err)
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.logger.Warn("stat document for archive", "path", in.Path, "error", err)
		return ""
	}

	key := archive.Key(uuid.NewString(), in.Name, s.now())
	if err := s.archiver.Put(ctx, key, f, info.Size(), archive.ContentType(documents.Ext(in.Name))); err != nil {
		s.logger.Warn("archiving document", "filename", in.Name, "error", err)
		return ""
	}
	return key
}
