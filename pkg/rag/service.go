// Package rag implements the knowledge base's retrieval-augmented
// generation workflow: documents are chunked, embedded and stored in a
// vector store; questions are answered by a chat model grounded on the
// closest chunks.
package rag

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/papercomputeco/kbase/pkg/archive"
	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/embeddings"
	"github.com/papercomputeco/kbase/pkg/eventstream"
	"github.com/papercomputeco/kbase/pkg/eventstream/nop"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/logger"
	"github.com/papercomputeco/kbase/pkg/vector"
)

// ServiceName identifies kbase as the source of published events.
const ServiceName = "kbase"

// Config wires a Service to its backends.
type Config struct {
	// Embedder and Driver are required.
	Embedder embeddings.Embedder
	Driver   vector.Driver

	// Chat answers questions. Chat requests fail with ErrChatDisabled
	// when nil.
	Chat        llm.Client
	ChatOptions llm.Options

	// Processor defaults to documents.NewProcessor().
	Processor *documents.Processor

	// Publisher defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// Archiver keeps uploaded originals. Nil disables archiving.
	Archiver archive.Archiver

	// Collection is recorded in published events.
	Collection string

	Logger *slog.Logger
}

// Service is the RAG backend shared by the HTTP API, the CLI and the
// inbox watcher.
type Service struct {
	embedder   embeddings.Embedder
	driver     vector.Driver
	chat       llm.Client
	chatOpts   llm.Options
	processor  *documents.Processor
	publisher  eventstream.Publisher
	archiver   archive.Archiver
	collection string
	logger     *slog.Logger

	started time.Time
	now     func() time.Time
}

// New returns a Service for c.
func New(c Config) (*Service, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Driver == nil {
		return nil, errors.New("vector driver is required")
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.Processor == nil {
		c.Processor = documents.NewProcessor(documents.WithLogger(c.Logger))
	}
	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	return &Service{
		embedder:   c.Embedder,
		driver:     c.Driver,
		chat:       c.Chat,
		chatOpts:   c.ChatOptions,
		processor:  c.Processor,
		publisher:  c.Publisher,
		archiver:   c.Archiver,
		collection: c.Collection,
		logger:     c.Logger,
		started:    time.Now(),
		now:        time.Now,
	}, nil
}

// Uptime returns how long the service has been running.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.started)
}

// Count returns the number of stored chunks.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.driver.Count(ctx)
}

// publish emits an event. Event delivery is best effort and never fails the
// operation that produced it.
func (s *Service) publish(ctx context.Context, eventType, origin string, doc eventstream.DocumentMeta) {
	event := eventstream.NewDocumentEvent(eventType, eventstream.EventSource{
		Service:    ServiceName,
		Collection: s.collection,
		Origin:     origin,
	}, doc)

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publishing event",
			"event_type", eventType,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
