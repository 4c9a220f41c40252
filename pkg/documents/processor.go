package documents

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/kbase/pkg/logger"
	"github.com/papercomputeco/kbase/pkg/vector"
)

// Chunk is one embeddable piece of a processed document.
type Chunk struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Filename   string `json:"filename"`
	Type       string `json:"type"`
	CreatedAt  string `json:"created_at"`
	ChunkIndex int    `json:"chunk_index"`
	Source     string `json:"source"`
}

// Metadata returns the attributes stored with the chunk's vector.
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		vector.MetaFilename:   c.Filename,
		vector.MetaType:       c.Type,
		vector.MetaCreatedAt:  c.CreatedAt,
		vector.MetaChunkIndex: c.ChunkIndex,
		vector.MetaSource:     c.Source,
	}
}

// Input describes a file to process.
type Input struct {
	// Path is where the file's bytes are on disk.
	Path string

	// Name is the original filename; it selects the extractor and is
	// recorded in metadata. Defaults to the base of Path.
	Name string

	// Source is recorded in metadata. Defaults to SourceUpload.
	Source string

	// Keep leaves the file in place. Uploads are temp files and are removed.
	Keep bool
}

// Processor extracts, cleans and chunks documents.
type Processor struct {
	chunkSize int
	overlap   int
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithChunking sets the chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Processor) {
		p.chunkSize = size
		p.overlap = overlap
	}
}

// WithLogger sets the processor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithClock sets the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor returns a Processor with default chunking.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process chunks an uploaded temp file and removes it afterwards, whether
// or not processing succeeded.
func (p *Processor) Process(path, originalName string) ([]Chunk, error) {
	return p.ProcessInput(Input{Path: path, Name: originalName})
}

// ProcessInput extracts in's text, cleans and chunks it, and returns the
// chunks with fresh "<uuid>-chunk-<i>" IDs.
func (p *Processor) ProcessInput(in Input) ([]Chunk, error) {
	name := in.Name
	if name == "" {
		name = filepath.Base(in.Path)
	}
	source := in.Source
	if source == "" {
		source = SourceUpload
	}

	if !in.Keep {
		defer func() {
			if err := os.Remove(in.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				p.logger.Warn("removing processed file", "path", in.Path, "error", err)
			}
		}()
	}

	ext := Ext(name)
	if !IsSupported(name) {
		return nil, unsupported(ext)
	}

	text, err := Extract(in.Path, name)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", name, err)
	}

	pieces := ChunkText(CleanText(text), p.chunkSize, p.overlap)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("processing %s: %w", name, ErrNoText)
	}

	createdAt := p.now().UTC().Format(TimeLayout)
	chunks := make([]Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = Chunk{
			ID:         uuid.NewString() + "-chunk-" + strconv.Itoa(i),
			Content:    content,
			Filename:   name,
			Type:       ext[1:],
			CreatedAt:  createdAt,
			ChunkIndex: i,
			Source:     source,
		}
	}

	p.logger.Debug("processed document",
		"filename", name,
		"chunks", len(chunks),
		"characters", len(text),
	)

	return chunks, nil
}
