package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]map[string]any
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]any),
	}
}

// Get returns a copy of the stored document so callers can't mutate the store by pointer.
func (s *Store) Get(ctx context.Context, sessionID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return domain.NewDocument(rec), nil
}

// Put writes the listed keys of doc.
func (s *Store) Put(ctx context.Context, sessionID string, doc *domain.Document, keys []string) error {
	snap := doc.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[sessionID]
	if !ok {
		rec = make(map[string]any, len(keys))
		s.data[sessionID] = rec
	}
	for _, k := range keys {
		if v, present := snap[k]; present {
			rec[k] = v
		} else {
			delete(rec, k)
		}
	}
	return nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored sessions in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
