// Package provider builds llm.Client implementations by provider name.
package provider

import (
	"os"
)

// Options selects and configures a chat provider.
type Options struct {
	ProviderType string
	BaseURL      string
	Model        string

	// APIKey falls back to OPENROUTER_API_KEY or OPENAI_API_KEY when empty.
	APIKey string
}

func (o Options) apiKey(env string) string {
	if o.APIKey != "" {
		return o.APIKey
	}
	return os.Getenv(env)
}
