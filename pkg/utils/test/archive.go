package testutils

import (
	"context"
	"errors"
	"io"
	"sync"
)

// MemoryArchiver records archived objects in memory.
type MemoryArchiver struct {
	// Fail causes Put to return an error.
	Fail bool

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryArchiver() *MemoryArchiver {
	return &MemoryArchiver{
		objects: map[string][]byte{},
		types:   map[string]string{},
	}
}

func (a *MemoryArchiver) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if a.Fail {
		return errors.New("mock archive failure")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = data
	a.types[key] = contentType
	return nil
}

// Object returns the bytes and content type stored under key.
func (a *MemoryArchiver) Object(key string) ([]byte, string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[key]
	return data, a.types[key], ok
}

// Keys returns every stored key.
func (a *MemoryArchiver) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	keys := make([]string, 0, len(a.objects))
	for k := range a.objects {
		keys = append(keys, k)
	}
	return keys
}

func (a *MemoryArchiver) Close() error {
	return nil
}
