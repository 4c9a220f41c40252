package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/rag"
)

const (
	testQueryLimit   = 5
	testQueryPreview = 300
)

// TestQueryRequest is the body of POST /api/admin/test-query.
type TestQueryRequest struct {
	Query string `json:"query"`
}

// handleStats returns knowledge base statistics.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.rag.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// handleTestQuery runs a search with truncated content so admins can check
// retrieval quality.
func (s *Server) handleTestQuery(c *fiber.Ctx) error {
	var req TestQueryRequest
	if err := c.BodyParser(&req); err != nil || req.Query == "" {
		return badRequest(c, "Query is required")
	}

	results, err := s.rag.Search(c.UserContext(), req.Query, testQueryLimit)
	if errors.Is(err, rag.ErrEmptyQuery) {
		return badRequest(c, "Query is required")
	}
	if err != nil {
		return err
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit(r)
		hits[i].Content = documents.Truncate(r.Content, testQueryPreview)
	}

	return c.JSON(SearchResponse{Query: req.Query, Results: hits})
}
