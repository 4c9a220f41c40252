// Package llm defines the chat completion client used to answer questions
// over retrieved document context, and the provider-agnostic message types
// it exchanges.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrCompletion wraps every provider failure: transport errors,
	// non-200 statuses and undecodable responses.
	ErrCompletion = errors.New("chat completion failed")

	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("invalid response from AI service")
)

// Client sends a conversation to a chat model and returns its reply.
type Client interface {
	// Name returns the canonical provider name (e.g., "openrouter", "openai", "ollama").
	Name() string

	// Complete generates the next assistant message for messages.
	Complete(ctx context.Context, messages []Message, opts Options) (*ChatResponse, error)
}
