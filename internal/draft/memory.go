package draft

import (
	"context"
	"sync"
)

// MemoryStore keeps drafts in process memory. Drafts are lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string]Draft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (s *MemoryStore) Get(_ context.Context, owner string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.drafts[owner]), nil
}

func (s *MemoryStore) Put(_ context.Context, owner string, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[owner] = clone(d)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, owner)
	return nil
}
