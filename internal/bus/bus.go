// Package bus fans out change events to connected live clients. Two
// backends exist: an in-process hub for a single node and a Redis
// pub/sub bridge when several instances share the dashboard traffic.
package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event names emitted by the domain services.
const (
	EventStudentAdded      = "student_added"
	EventStudentDeleted    = "student_deleted"
	EventAttendanceUpdated = "attendance_updated"
	EventRefresh           = "refresh"
)

var publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classtrack_events_published_total",
	Help: "Change events published on the bus, by event name.",
}, []string{"event"})

// Event is a named change notification with an optional payload.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data,omitempty"`
	// Origin identifies the connection a relayed client message came
	// from, so it is not echoed back. Empty for server-side events.
	Origin string `json:"-"`
}

// Subscription is one receiver's registration, scoped to its connection
// lifetime. Close it when the connection goes away.
type Subscription struct {
	ID     string
	C      <-chan Event
	cancel func()
}

// Close deregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Bus is the abstraction over broadcast backends.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe() *Subscription
}

// Memory is a channel-backed hub for a single process.
type Memory struct {
	mu     sync.Mutex
	subs   map[string]chan Event
	buffer int
}

// NewMemory creates a hub whose subscribers each get a buffered channel.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 16
	}
	return &Memory{subs: make(map[string]chan Event), buffer: buffer}
}

// Publish delivers evt to every subscriber except the event's origin.
// A subscriber whose buffer is full misses the event rather than
// blocking the publisher.
func (m *Memory) Publish(_ context.Context, evt Event) error {
	publishedTotal.WithLabelValues(evt.Name).Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.subs {
		if evt.Origin != "" && id == evt.Origin {
			continue
		}
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe registers a new receiver.
func (m *Memory) Subscribe() *Subscription {
	id := uuid.NewString()
	ch := make(chan Event, m.buffer)
	m.mu.Lock()
	m.subs[id] = ch
	m.mu.Unlock()
	return &Subscription{
		ID: id,
		C:  ch,
		cancel: func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		},
	}
}
