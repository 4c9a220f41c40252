package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
)

// errFileTooLarge is returned by the upload handler for files over the limit.
var errFileTooLarge = errors.New("file size exceeds the maximum limit")

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func timestamp() string {
	return time.Now().UTC().Format(documents.TimeLayout)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}

// handleError maps handler errors to JSON replies.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	isFiber := errors.As(err, &fe)

	switch {
	case errors.Is(err, errFileTooLarge), isFiber && fe.Code == fiber.StatusRequestEntityTooLarge:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "File too large",
			Message: "File size exceeds the maximum limit",
		})
	case errors.Is(err, documents.ErrUnsupportedType):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "Unsupported file type",
			Message: err.Error(),
		})
	case errors.Is(err, documents.ErrNoText):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "No extractable text",
			Message: err.Error(),
		})
	case errors.Is(err, rag.ErrChatDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:     err.Error(),
			Timestamp: timestamp(),
		})
	case errors.Is(err, llm.ErrEmptyResponse):
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "Invalid response from AI service",
		})
	case isFiber:
		return c.Status(fe.Code).JSON(ErrorResponse{
			Error:     fe.Message,
			Timestamp: timestamp(),
		})
	}

	s.logger.Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:     err.Error(),
		Timestamp: timestamp(),
	})
}
