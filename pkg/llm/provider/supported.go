package provider

import (
	"fmt"

	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/llm/provider/ollama"
	"github.com/papercomputeco/kbase/pkg/llm/provider/openai"
	"github.com/papercomputeco/kbase/pkg/llm/provider/openrouter"
)

// Supported provider type constants
const (
	OpenRouter = "openrouter"
	OpenAI     = "openai"
	Ollama     = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{OpenRouter, OpenAI, Ollama}
}

// New creates a chat client for o.ProviderType, defaulting to OpenRouter.
// Returns an error if the provider type is not recognized.
func New(o Options) (llm.Client, error) {
	switch o.ProviderType {
	case OpenRouter, "":
		return openrouter.New(openrouter.Config{
			BaseURL: o.BaseURL,
			APIKey:  o.apiKey("OPENROUTER_API_KEY"),
			Model:   o.Model,
		}), nil
	case OpenAI:
		return openai.New(openai.Config{
			BaseURL: o.BaseURL,
			APIKey:  o.apiKey("OPENAI_API_KEY"),
			Model:   o.Model,
		}), nil
	case Ollama:
		return ollama.New(ollama.Config{
			BaseURL: o.BaseURL,
			Model:   o.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", o.ProviderType, SupportedProviders())
	}
}
