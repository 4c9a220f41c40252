package api

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/rag"
	"github.com/papercomputeco/kbase/pkg/vector"
)

const (
	uploadField   = "document"
	previewLength = 200
)

// UploadResponse describes a processed upload.
type UploadResponse struct {
	Message   string         `json:"message"`
	Filename  string         `json:"filename"`
	Chunks    int            `json:"chunks"`
	Archive   string         `json:"archive,omitempty"`
	Documents []ChunkPreview `json:"documents"`
}

// ChunkPreview is the beginning of a stored chunk.
type ChunkPreview struct {
	ID         string `json:"id"`
	Preview    string `json:"preview"`
	ChunkIndex int    `json:"chunk_index"`
}

// SearchResponse lists search hits.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// SearchHit is a chunk matching a query.
type SearchHit struct {
	Content    string  `json:"content"`
	Filename   string  `json:"filename"`
	Type       string  `json:"type,omitempty"`
	Similarity float32 `json:"similarity"`
	ChunkIndex int     `json:"chunk_index"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// handleUpload stores the multipart "document" file in the upload
// directory and ingests it. The processor removes the file afterwards.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return badRequest(c, "No file uploaded")
	}
	if fh.Size > int64(s.config.MaxFileSize) {
		return errFileTooLarge
	}

	ext := documents.Ext(fh.Filename)
	if !documents.IsSupported(fh.Filename) {
		return fmt.Errorf("%w: %s", documents.ErrUnsupportedType, ext)
	}

	path := filepath.Join(s.config.UploadDir, uploadName(ext))
	if err := c.SaveFile(fh, path); err != nil {
		return fmt.Errorf("saving upload: %w", err)
	}

	s.logger.Info("processing document", "filename", fh.Filename, "size", fh.Size)

	res, err := s.rag.Ingest(c.UserContext(), path, fh.Filename)
	if err != nil {
		return err
	}

	previews := make([]ChunkPreview, len(res.Chunks))
	for i, chunk := range res.Chunks {
		previews[i] = ChunkPreview{
			ID:         chunk.ID,
			Preview:    documents.Truncate(chunk.Content, previewLength),
			ChunkIndex: chunk.ChunkIndex,
		}
	}

	return c.JSON(UploadResponse{
		Message:   "Document uploaded and processed successfully",
		Filename:  fh.Filename,
		Chunks:    len(res.Chunks),
		Archive:   res.ArchiveKey,
		Documents: previews,
	})
}

// uploadName returns a collision-free temp name keeping the extension.
func uploadName(ext string) string {
	return fmt.Sprintf("%s-%d-%s%s", uploadField, time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}

// handleListDocuments returns stored chunks grouped by file.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	groups, err := s.rag.ListGrouped(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(groups)
}

// handleDeleteDocument deletes one chunk.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	if err := s.rag.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Message: "Document deleted successfully"})
}

// handleSearch handles GET /api/documents/search.
// Query parameters:
//   - query (required): the search query text
//   - limit (optional, default 5): number of results to return
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return badRequest(c, "Search query is required")
	}

	limit := rag.DefaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = parsed
	}

	results, err := s.rag.Search(c.UserContext(), query, limit)
	if errors.Is(err, rag.ErrEmptyQuery) {
		return badRequest(c, "Search query is required")
	}
	if err != nil {
		return err
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit(r)
		hits[i].Type = vector.StringMeta(r.Metadata, vector.MetaType)
	}

	return c.JSON(SearchResponse{Query: query, Results: hits})
}

func searchHit(r vector.QueryResult) SearchHit {
	return SearchHit{
		Content:    r.Content,
		Filename:   vector.StringMeta(r.Metadata, vector.MetaFilename),
		Similarity: r.Similarity,
		ChunkIndex: vector.IntMeta(r.Metadata, vector.MetaChunkIndex),
	}
}
