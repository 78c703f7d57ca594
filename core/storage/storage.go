// Package storage holds the minimal concrete storage collaborators the
// engine's transaction manager can drive: a fixed-size primary table
// (Array) and a secondary Index. Neither is a reimplementation of a real
// record-layout engine (array/masstree storages and their on-disk formats
// stay out of scope, per spec) — each is just enough bookkeeping to let
// core/xct validate reads and apply writes atomically across both.
package storage

import "sync"

// slot is one versioned record. A version bump on ApplyWrite is what lets
// core/xct's optimistic validation detect that a reader's view went stale.
type slot struct {
	mu      sync.RWMutex
	exists  bool
	value   []byte
	version uint64
}

func (s *slot) read() (value []byte, exists bool, version uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.value...), s.exists, s.version
}

func (s *slot) validate(version uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version == version
}

func (s *slot) apply(value []byte) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.exists = true
	s.version++
	return s.version
}
