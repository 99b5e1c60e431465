package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrPersist wraps backend write failures from RecordAll. It is not fatal:
// the ids are already in the in-memory set when it is returned.
var ErrPersist = errors.New("persist posted deals")

// Backend is the durable half of the dedup store. Load returns every id ever
// appended; Append must tolerate ids it has already seen.
type Backend interface {
	Load(ctx context.Context) ([]string, error)
	Append(ctx context.Context, ids []string) error
	Close() error
}

// Store is the set of deal ids that have already been announced. It is loaded
// once from its Backend and only ever grows.
type Store struct {
	backend Backend

	mu   sync.RWMutex
	seen map[string]struct{}
}

// Open loads every previously recorded id from b. An empty backend yields an
// empty store.
func Open(ctx context.Context, b Backend) (*Store, error) {
	ids, err := b.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load posted deals: %w", err)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	slog.Info("Loaded posted deals", "count", len(seen))
	return &Store{backend: b, seen: seen}, nil
}

// Contains reports whether id has already been announced.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of recorded ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// RecordAll adds ids to the store. Ids that are already present are skipped,
// so calling it twice with the same ids is a no-op. New ids enter the
// in-memory set before the backend write; a failed write is reported as an
// error wrapping ErrPersist but the ids stay recorded for this process.
func (s *Store) RecordAll(ctx context.Context, ids []string) error {
	s.mu.Lock()
	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		fresh = append(fresh, id)
	}
	s.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	if err := s.backend.Append(ctx, fresh); err != nil {
		return fmt.Errorf("%w: %d ids: %w", ErrPersist, len(fresh), err)
	}
	return nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
