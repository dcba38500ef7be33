package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu           sync.RWMutex
	published    []*ReportEvent
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishReport records the event and returns any configured error.
func (m *MockPublisher) PublishReport(ctx context.Context, event *ReportEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.published = append(m.published, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Published returns a copy of all published events.
func (m *MockPublisher) Published() []*ReportEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ReportEvent, len(m.published))
	copy(events, m.published)
	return events
}

// SetPublishError configures the mock to fail PublishReport.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// MockSubscriber is a mock implementation of Subscriber for testing.
// Emit delivers to every subscription whose target matches.
type MockSubscriber struct {
	mu     sync.Mutex
	subs   []mockSubscription
	closed bool
}

type mockSubscription struct {
	ctx    context.Context
	target string
	ch     chan *ReportEvent
}

// NewMockSubscriber creates a new mock subscriber for testing.
func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{}
}

// Subscribe registers a subscription.
func (m *MockSubscriber) Subscribe(ctx context.Context, target string) (<-chan *ReportEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan *ReportEvent, 10)
	m.subs = append(m.subs, mockSubscription{ctx: ctx, target: target, ch: ch})
	return ch, nil
}

// Emit delivers event to matching live subscriptions.
func (m *MockSubscriber) Emit(event *ReportEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs {
		if sub.ctx.Err() != nil {
			continue
		}
		if sub.target == "" || sub.target == event.Target {
			sub.ch <- event
		}
	}
}

// Subscriptions returns the number of subscriptions made so far.
func (m *MockSubscriber) Subscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close marks the subscriber as closed.
func (m *MockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
