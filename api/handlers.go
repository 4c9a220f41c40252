package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
	"github.com/papercomputeco/kbase/pkg/utils"
)

// IndexResponse describes the API's entry points.
type IndexResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse reports liveness and the size of the knowledge base.
type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Documents int     `json:"documents"`
	Error     string  `json:"error,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []llm.Message `json:"messages"`
}

// handleIndex lists the API's endpoints.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	endpoints := map[string]string{
		"health":    "/api/health",
		"chat":      "/api/chat",
		"documents": "/api/documents",
		"admin":     "/api/admin",
	}
	if s.config.EnableMCP {
		endpoints["mcp"] = "/mcp"
	}

	return c.JSON(IndexResponse{
		Message:   "Modern RAG System API",
		Version:   utils.Version,
		Endpoints: endpoints,
	})
}

// handleHealth reports whether the vector store is reachable.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: timestamp(),
		Uptime:    s.rag.Uptime().Seconds(),
	}

	count, err := s.rag.Count(c.UserContext())
	if err != nil {
		s.logger.Warn("health check failed", "error", err)
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	resp.Documents = count

	return c.JSON(resp)
}

// handleChat answers the conversation's last user message.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil || len(req.Messages) == 0 {
		return badRequest(c, "Messages array is required")
	}

	res, err := s.rag.Chat(c.UserContext(), req.Messages)
	switch {
	case errors.Is(err, rag.ErrLastMessageNotUser):
		return badRequest(c, "Latest message must be from user")
	case err != nil:
		return err
	}

	return c.JSON(res)
}
