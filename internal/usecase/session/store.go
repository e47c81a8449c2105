// Package session provides the expiring key-value store behind every interactive
// command flow. Each command keeps its own Store; a key is usually a user id or a
// chat:message composite.
package session

import (
	"sync"
	"time"
)

// Store holds at most one live session per key. Opening a session for a key that
// already has one silently discards the old session and stops its expiry timer, so
// a stale flow can never fire a timeout after the user has started over.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	ttl     time.Duration
	onEvict func(key string, value T)
}

type entry[T any] struct {
	value T
	timer *time.Timer
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
// onEvict runs once per expired session (not on Delete or overwrite) and is the
// place to send the "timed out, start again" message.
func NewStore[T any](ttl time.Duration, onEvict func(key string, value T)) *Store[T] {
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		onEvict: onEvict,
	}
}

// Put opens or replaces the session for the key and arms its expiry timer.
func (s *Store[T]) Put(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		old.timer.Stop()
	}
	e := &entry[T]{value: value}
	e.timer = time.AfterFunc(s.ttl, func() { s.expire(key, e) })
	s.entries[key] = e
}

// Get returns the live session for the key.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Update mutates the session in place and re-arms its timer, counting as activity.
func (s *Store[T]) Update(key string, fn func(value T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entries[key]
	if !ok {
		return false
	}
	// Install a fresh entry rather than re-arming in place: a timer that has
	// already fired and is waiting on the lock still holds the old pointer,
	// so its expire call becomes a no-op instead of evicting the refresh.
	old.timer.Stop()
	e := &entry[T]{value: fn(old.value)}
	e.timer = time.AfterFunc(s.ttl, func() { s.expire(key, e) })
	s.entries[key] = e
	return true
}

// Touch re-arms the timer without changing the value.
func (s *Store[T]) Touch(key string) bool {
	return s.Update(key, func(v T) T { return v })
}

// Delete closes the session without running the eviction callback. Used for the
// done/cancel terminal transitions.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.timer.Stop()
		delete(s.entries, key)
	}
}

// Len reports the number of live sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store[T]) expire(key string, e *entry[T]) {
	s.mu.Lock()
	current, ok := s.entries[key]
	if !ok || current != e {
		// The session was replaced or closed between the timer firing and now.
		s.mu.Unlock()
		return
	}
	delete(s.entries, key)
	value := e.value
	s.mu.Unlock()

	if s.onEvict != nil {
		s.onEvict(key, value)
	}
}
