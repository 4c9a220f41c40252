// Package jina configures the OpenAI-compatible embedder for Jina AI.
package jina

import (
	"github.com/papercomputeco/kbase/pkg/embeddings/openai"
)

const (
	// DefaultEmbeddingModel is Jina's English base model, producing 768
	// dimensional vectors.
	DefaultEmbeddingModel = "jina-embeddings-v2-base-en"

	// DefaultBaseURL is the Jina AI API URL.
	DefaultBaseURL = "https://api.jina.ai"

	// DefaultDimensions is the output size of DefaultEmbeddingModel.
	DefaultDimensions = 768
)

// EmbedderConfig holds configuration for the Jina embedder.
type EmbedderConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the Jina API key (JINA_API_KEY).
	APIKey string

	// Model defaults to DefaultEmbeddingModel.
	Model string
}

// NewEmbedder creates an embedder for Jina's /v1/embeddings endpoint.
func NewEmbedder(cfg EmbedderConfig) (*openai.Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return openai.NewEmbedder(openai.EmbedderConfig{
		Name:    "jina",
		BaseURL: baseURL,
		APIKey:  cfg.APIKey,
		Model:   model,
	})
}
