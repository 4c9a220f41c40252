// Package openai implements llm.Client for OpenAI-compatible chat completion
// APIs (POST /v1/chat/completions).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/kbase/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o-mini"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"

	completionsPath = "/v1/chat/completions"
)

// Config holds configuration for the client.
type Config struct {
	// Name labels the provider in errors and Client.Name. Defaults to "openai".
	Name string

	// BaseURL is the API URL without the /v1/chat/completions path.
	BaseURL string

	// APIKey is sent as a bearer token.
	APIKey string

	// Model is the default model for completions.
	Model string

	// Headers are added to every request.
	Headers map[string]string
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	headers    map[string]string
	httpClient *http.Client
}

// New creates a new client.
func New(cfg Config) *Client {
	c := &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		headers: cfg.Headers,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	if c.name == "" {
		c.name = "openai"
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	return c
}

func (c *Client) Name() string {
	return c.name
}

// Complete sends messages to /v1/chat/completions and returns the first choice.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (*llm.ChatResponse, error) {
	opts = opts.WithDefaults(c.model)

	reqBody := openaiRequest{
		Model:       opts.Model,
		Messages:    make([]openaiMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openaiMessage(m))
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request to %s: %v", llm.ErrCompletion, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s returned status %d: %s", llm.ErrCompletion, c.name, resp.StatusCode, string(body))
	}

	var out openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", llm.ErrCompletion, err)
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, llm.ErrEmptyResponse
	}

	choice := out.Choices[0]
	result := &llm.ChatResponse{
		Model:      out.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, choice.Message.Content),
		StopReason: choice.FinishReason,
	}
	if out.Created > 0 {
		result.CreatedAt = time.Unix(out.Created, 0).UTC()
	}
	if out.Usage != nil {
		result.Usage = &llm.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		}
	}
	return result, nil
}

var _ llm.Client = (*Client)(nil)
