// Package openrouter configures the OpenAI-compatible chat client for
// OpenRouter.
package openrouter

import (
	"github.com/papercomputeco/kbase/pkg/llm/provider/openai"
)

const (
	// DefaultModel is a free instruct model on OpenRouter.
	DefaultModel = "meta-llama/llama-3.2-3b-instruct:free"

	// DefaultBaseURL is the OpenRouter API prefix; requests go to
	// DefaultBaseURL + /v1/chat/completions.
	DefaultBaseURL = "https://openrouter.ai/api"

	// DefaultReferer identifies the calling site, which OpenRouter requires
	// for attribution.
	DefaultReferer = "http://localhost"
)

// Config holds configuration for the OpenRouter client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// Referer is sent as the HTTP-Referer header.
	Referer string
}

// New creates a chat client for OpenRouter.
func New(cfg Config) *openai.Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	return openai.New(openai.Config{
		Name:    "openrouter",
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Headers: map[string]string{"HTTP-Referer": cfg.Referer},
	})
}
