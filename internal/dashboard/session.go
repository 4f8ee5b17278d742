package dashboard

import (
	"sync"

	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/metrics"
)

// Session holds the in-memory timeline for the current run. Events are
// append-only and discarded at process end.
type Session struct {
	mu      sync.RWMutex
	events  []core.Event
	metrics *metrics.Metrics
}

// NewSession creates a new empty session
func NewSession(m *metrics.Metrics) *Session {
	return &Session{metrics: m}
}

// Append adds classified events to the session
func (s *Session) Append(events ...core.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	s.metrics.SetTimelineEvents(len(s.events))
}

// Events returns a copy of the session events
func (s *Session) Events() []core.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]core.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

// Len returns the number of events in the session
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
