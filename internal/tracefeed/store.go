package tracefeed

import (
	"context"
	"sync"

	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/tobert/opsview/internal/viz"
)

// DefaultCapacity is the number of events kept by a Store.
const DefaultCapacity = 5000

// Store is a fixed-size ring of events. When full, adding overwrites the
// oldest event. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	events []viz.TraceEvent
	head   int // next write position
	size   int
	total  uint64
}

// NewStore creates a store holding up to capacity events.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{events: make([]viz.TraceEvent, capacity)}
}

// Add appends events in order.
func (s *Store) Add(events ...viz.TraceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range events {
		s.events[s.head] = ev
		s.head = (s.head + 1) % len(s.events)
		if s.size < len(s.events) {
			s.size++
		}
		s.total++
	}
}

// Events returns all stored events, oldest first. The slice is a copy.
func (s *Store) Events() []viz.TraceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.size == 0 {
		return nil
	}

	out := make([]viz.TraceEvent, s.size)
	if s.size < len(s.events) {
		copy(out, s.events[:s.size])
	} else {
		n := copy(out, s.events[s.head:])
		copy(out[n:], s.events[:s.head])
	}
	return out
}

// Recent returns the n most recent events, oldest first.
func (s *Store) Recent(n int) []viz.TraceEvent {
	all := s.Events()
	if n <= 0 || len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Total returns the number of events ever added, including overwritten ones.
func (s *Store) Total() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Capacity returns the maximum number of stored events.
func (s *Store) Capacity() int {
	return len(s.events)
}

// ReceiveLogs converts OTLP log records to events and stores them.
func (s *Store) ReceiveLogs(ctx context.Context, logs []*logspb.ResourceLogs) error {
	s.Add(FromResourceLogs(logs)...)
	return nil
}
