package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/retina/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []*eventstream.DocumentIndexedEvent

	// Fail causes PublishIndexed to return an error.
	Fail bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishIndexed(_ context.Context, event *eventstream.DocumentIndexedEvent) error {
	if m.Fail {
		return context.DeadlineExceeded
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of the published events.
func (m *MockPublisher) Events() []*eventstream.DocumentIndexedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*eventstream.DocumentIndexedEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockPublisher) Close() error {
	return nil
}
