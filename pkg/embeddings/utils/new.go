// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"os"

	"github.com/papercomputeco/kbase/pkg/embeddings"
	"github.com/papercomputeco/kbase/pkg/embeddings/jina"
	"github.com/papercomputeco/kbase/pkg/embeddings/ollama"
	"github.com/papercomputeco/kbase/pkg/embeddings/openai"
)

const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey falls back to the provider's environment variable
	// (JINA_API_KEY, OPENAI_API_KEY) when empty.
	APIKey string
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderJina, "":
		return jina.NewEmbedder(jina.EmbedderConfig{
			BaseURL: o.TargetURL,
			APIKey:  apiKey(o.APIKey, "JINA_API_KEY"),
			Model:   o.Model,
		})
	case ProviderOpenAI:
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: o.TargetURL,
			APIKey:  apiKey(o.APIKey, "OPENAI_API_KEY"),
			Model:   o.Model,
		})
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

func apiKey(explicit, env string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(env)
}
