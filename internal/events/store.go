// Package events owns the event snapshot the layout engine reads from and
// keeps it fresh from the configured ICS sources.
package events

import (
	"sync"
	"time"

	"calview/internal/model"
)

// Store holds the current immutable event snapshot. Readers always get a
// private copy, so a grid build never observes a concurrent refresh.
type Store struct {
	mu        sync.RWMutex
	events    []model.CalendarEvent
	updatedAt time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{events: []model.CalendarEvent{}}
}

// Snapshot returns a copy of the current events.
func (s *Store) Snapshot() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Replace swaps in a new snapshot.
func (s *Store) Replace(events []model.CalendarEvent) {
	next := make([]model.CalendarEvent, len(events))
	copy(next, events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = next
	s.updatedAt = time.Now()
}

// UpdatedAt returns when the snapshot was last replaced (zero if never).
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Len returns the number of events in the snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
