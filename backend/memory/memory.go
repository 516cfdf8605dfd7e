// Package memory provides a backend.Store that keeps the snapshot in process memory.
package memory

import (
	"context"
	"sync"

	"tasktree/backend"
)

// Store holds a snapshot in memory. Load and Save copy, so callers never share
// state with the store.
type Store struct {
	mu    sync.Mutex
	snap  *backend.Snapshot
	saves int
}

var _ backend.Store = (*Store)(nil)

// New returns a store seeded with a copy of snap (nil for empty).
func New(snap *backend.Snapshot) *Store {
	s := &Store{snap: &backend.Snapshot{}}
	if snap != nil {
		s.snap = snap.Clone()
	}
	return s
}

// Load returns a copy of the stored snapshot.
func (s *Store) Load(ctx context.Context) (*backend.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), nil
}

// Save replaces the stored snapshot with a copy of snap.
func (s *Store) Save(ctx context.Context, snap *backend.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
