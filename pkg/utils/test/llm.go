package testutils

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/kbase/pkg/llm"
)

// MockLLMClient is a chat client that answers with Reply and records the
// conversations it was sent.
type MockLLMClient struct {
	Reply string

	// Err is returned from Complete when set.
	Err error

	mu       sync.Mutex
	requests [][]llm.Message
	options  []llm.Options
}

func NewMockLLMClient(reply string) *MockLLMClient {
	return &MockLLMClient{Reply: reply}
}

func (m *MockLLMClient) Name() string {
	return "mock"
}

func (m *MockLLMClient) Complete(_ context.Context, messages []llm.Message, opts llm.Options) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, slices.Clone(messages))
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Reply == "" {
		return nil, errors.Join(llm.ErrCompletion, llm.ErrEmptyResponse)
	}

	return &llm.ChatResponse{
		Model:     "mock-model",
		CreatedAt: time.Now(),
		Message:   llm.NewTextMessage(llm.RoleAssistant, m.Reply),
	}, nil
}

// LastRequest returns the most recent conversation sent to Complete.
func (m *MockLLMClient) LastRequest() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Calls returns the number of Complete calls.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
