package sinks

import (
	"context"
	"sync"

	"sulphate/logging"
)

// MemorySink keeps the most recent events in process. Once full it
// overwrites the oldest.
type MemorySink struct {
	mu      sync.RWMutex
	events  []logging.Event
	start   int
	evicted uint64
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = logging.DefaultMemoryCapacity
	}
	return &MemorySink{events: make([]logging.Event, 0, capacity)}
}

func (s *MemorySink) Write(event logging.Event) error {
	copied := cloneForMemory(event)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) < cap(s.events) {
		s.events = append(s.events, copied)
		return nil
	}
	s.events[s.start] = copied
	s.start = (s.start + 1) % len(s.events)
	s.evicted++
	return nil
}

// Events returns the retained events, oldest first.
func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, 0, len(s.events))
	copied = append(copied, s.events[s.start:]...)
	return append(copied, s.events[:s.start]...)
}

// Evicted counts events overwritten since the last Reset.
func (s *MemorySink) Evicted() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
	s.start = 0
	s.evicted = 0
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}

func cloneForMemory(event logging.Event) logging.Event {
	cloned := event
	cloned.Targets = append([]logging.EntityRef(nil), event.Targets...)
	if event.Extra != nil {
		cloned.Extra = make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			cloned.Extra[k] = v
		}
	}
	return cloned
}
