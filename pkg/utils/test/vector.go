package testutils

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/papercomputeco/kbase/pkg/vector"
)

// MockVectorDriver is a test vector driver. Query returns Results when set,
// otherwise the stored documents in insertion order with distance 0.
type MockVectorDriver struct {
	Results []vector.QueryResult

	// FailAdd causes Add to return an error.
	FailAdd bool

	mu        sync.Mutex
	documents []vector.Document
	queries   int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		documents: make([]vector.Document, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.FailAdd {
		return errors.New("mock add failure")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		m.documents = slices.DeleteFunc(m.documents, func(d vector.Document) bool { return d.ID == doc.ID })
		m.documents = append(m.documents, doc)
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	results := m.Results
	if results == nil {
		for _, doc := range m.documents {
			results = append(results, vector.NewQueryResult(doc, 0))
		}
	}
	if len(results) < topK {
		return results, nil
	}
	return results[:topK], nil
}

func (m *MockVectorDriver) List(_ context.Context) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.documents), nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = slices.DeleteFunc(m.documents, func(d vector.Document) bool {
		return slices.Contains(ids, d.ID)
	})
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.documents), nil
}

func (m *MockVectorDriver) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = m.documents[:0]
	return nil
}

// Queries returns how many times Query was called.
func (m *MockVectorDriver) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

func (m *MockVectorDriver) Close() error {
	return nil
}
