package ollama

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
	// DefaultModel is the default local chat model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Config holds configuration for the Ollama chat client.
type Config struct {
	BaseURL string
	Model   string
}

// Client implements llm.Client over Ollama's /api/chat.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

func (c *Client) Name() string {
	return "ollama"
}

func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (*llm.ChatResponse, error) {
	opts = opts.WithDefaults(c.model)

	reqBody := ollamaRequest{
		Model:    opts.Model,
		Messages: make([]ollamaMessage, 0, len(messages)),
		Options: &ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, ollamaMessage(m))
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrCompletion, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request to ollama: %v", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrCompletion, resp.StatusCode, string(body))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", llm.ErrCompletion, err)
	}
	if out.Message.Content == "" {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.ChatResponse{
		Model:      out.Model,
		CreatedAt:  out.CreatedAt,
		Message:    llm.NewTextMessage(llm.RoleAssistant, out.Message.Content),
		StopReason: out.DoneReason,
		Usage: &llm.Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}, nil
}

var _ llm.Client = (*Client)(nil)
