package rag

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/papercomputeco/kbase/pkg/eventstream"
	"github.com/papercomputeco/kbase/pkg/vector"
)

const (
	// DefaultSearchLimit is the number of results returned by Search when
	// no limit is given.
	DefaultSearchLimit = 5

	// RecentUploadsLimit caps Stats.RecentUploads.
	RecentUploadsLimit = 10
)

// Search embeds query and returns the n closest chunks.
func (s *Service) Search(ctx context.Context, query string, n int) ([]vector.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if n <= 0 {
		n = DefaultSearchLimit
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.driver.Query(ctx, embedding, n)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}
	return results, nil
}

// ChunkSummary is one stored chunk of a document.
type ChunkSummary struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
}

// DocumentGroup collects the chunks that share a filename.
type DocumentGroup struct {
	Filename  string         `json:"filename"`
	Type      string         `json:"type"`
	CreatedAt string         `json:"created_at"`
	Chunks    []ChunkSummary `json:"chunks"`
}

// ListGrouped returns every stored chunk grouped by filename. Groups are in
// order of first appearance; chunks within a group are ordered by index.
func (s *Service) ListGrouped(ctx context.Context) ([]DocumentGroup, error) {
	docs, err := s.driver.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	groups := []DocumentGroup{}
	index := map[string]int{}
	for _, doc := range docs {
		filename := vector.StringMeta(doc.Metadata, vector.MetaFilename)
		i, ok := index[filename]
		if !ok {
			i = len(groups)
			index[filename] = i
			groups = append(groups, DocumentGroup{
				Filename:  filename,
				Type:      vector.StringMeta(doc.Metadata, vector.MetaType),
				CreatedAt: vector.StringMeta(doc.Metadata, vector.MetaCreatedAt),
			})
		}
		groups[i].Chunks = append(groups[i].Chunks, ChunkSummary{
			ID:         doc.ID,
			Content:    doc.Content,
			ChunkIndex: vector.IntMeta(doc.Metadata, vector.MetaChunkIndex),
		})
	}

	for i := range groups {
		slices.SortStableFunc(groups[i].Chunks, func(a, b ChunkSummary) int {
			return cmp.Compare(a.ChunkIndex, b.ChunkIndex)
		})
	}
	return groups, nil
}

// Delete removes a single chunk by ID. Unknown IDs are not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.driver.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}

	s.publish(ctx, eventstream.EventTypeDocumentDeleted, "", eventstream.DocumentMeta{
		ChunkIDs: []string{id},
		Chunks:   1,
	})
	return nil
}

// Reset removes every stored chunk.
func (s *Service) Reset(ctx context.Context) error {
	count, err := s.driver.Count(ctx)
	if err != nil {
		count = 0
	}

	if err := s.driver.Reset(ctx); err != nil {
		return fmt.Errorf("resetting vector store: %w", err)
	}
	s.logger.Info("knowledge base reset", "removed", count)

	s.publish(ctx, eventstream.EventTypeCollectionReset, "", eventstream.DocumentMeta{Chunks: count})
	return nil
}

// Upload is a chunk's provenance as listed in Stats.
type Upload struct {
	Filename  string `json:"filename"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// Stats summarizes the knowledge base. Counts are per chunk.
type Stats struct {
	TotalDocuments int            `json:"totalDocuments"`
	FileTypes      map[string]int `json:"fileTypes"`
	UploadsByDate  map[string]int `json:"uploadsByDate"`
	RecentUploads  []Upload       `json:"recentUploads"`
}

// Stats returns chunk totals by type and upload date, and the most
// recently created chunks.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.driver.Count(ctx)
	if err != nil {
		s.logger.Warn("counting documents", "error", err)
		total = 0
	}

	docs, err := s.driver.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	stats := &Stats{
		TotalDocuments: total,
		FileTypes:      map[string]int{},
		UploadsByDate:  map[string]int{},
		RecentUploads:  make([]Upload, 0, min(len(docs), RecentUploadsLimit)),
	}

	uploads := make([]Upload, len(docs))
	for i, doc := range docs {
		u := Upload{
			Filename:  vector.StringMeta(doc.Metadata, vector.MetaFilename),
			Type:      vector.StringMeta(doc.Metadata, vector.MetaType),
			CreatedAt: vector.StringMeta(doc.Metadata, vector.MetaCreatedAt),
		}
		uploads[i] = u

		stats.FileTypes[u.Type]++
		date, _, _ := strings.Cut(u.CreatedAt, "T")
		stats.UploadsByDate[date]++
	}

	slices.SortStableFunc(uploads, func(a, b Upload) int {
		return parseCreatedAt(b.CreatedAt).Compare(parseCreatedAt(a.CreatedAt))
	})
	stats.RecentUploads = append(stats.RecentUploads, uploads[:min(len(uploads), RecentUploadsLimit)]...)

	return stats, nil
}

// parseCreatedAt parses a created_at value; unparseable values sort last.
func parseCreatedAt(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
