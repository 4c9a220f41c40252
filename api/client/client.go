// Package client is the HTTP client CLI commands use to talk to a running
// kbase API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/papercomputeco/kbase/api"
	"github.com/papercomputeco/kbase/pkg/llm"
	"github.com/papercomputeco/kbase/pkg/rag"
)

// DefaultTimeout bounds a single request. Chat completions dominate it.
const DefaultTimeout = 2 * time.Minute

// Client calls the kbase API at a base URL.
type Client struct {
	target string
	http   *http.Client
}

// New returns a client for the API server at target (e.g. http://localhost:3000).
func New(target string) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", target)
	}
	return &Client{
		target: target,
		http:   &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// Search runs a semantic search over stored documents.
func (c *Client) Search(ctx context.Context, query string, limit int) (*api.SearchResponse, error) {
	q := url.Values{}
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out api.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/documents/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends a conversation and returns the grounded answer.
func (c *Client) Chat(ctx context.Context, messages []llm.Message) (*rag.ChatResult, error) {
	var out rag.ChatResult
	if err := c.do(ctx, http.MethodPost, "/api/chat", api.ChatRequest{Messages: messages}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports the server's health.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.target+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to kbase API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return responseError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func responseError(status int, data []byte) error {
	var e api.ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil || e.Error == "" {
		return fmt.Errorf("request failed (HTTP %d): %s", status, string(data))
	}
	if e.Message != "" {
		return fmt.Errorf("request failed (HTTP %d): %s: %s", status, e.Error, e.Message)
	}
	return fmt.Errorf("request failed (HTTP %d): %s", status, e.Error)
}
