package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/kbase/pkg/eventstream"
)

// RecordingPublisher is an eventstream publisher that keeps every event.
type RecordingPublisher struct {
	// Fail causes Publish to return an error.
	Fail bool

	mu     sync.Mutex
	events []*eventstream.DocumentEvent
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(_ context.Context, event *eventstream.DocumentEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if p.Fail {
		return errors.New("mock publish failure")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the published events in order.
func (p *RecordingPublisher) Events() []*eventstream.DocumentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.DocumentEvent(nil), p.events...)
}

func (p *RecordingPublisher) Close() error {
	return nil
}
