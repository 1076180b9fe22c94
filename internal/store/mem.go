package store

import "sync"

// MemStore is an in-memory Store used by tests and short-lived tooling.
type MemStore struct {
	mu  sync.Mutex
	rec Record
}

func NewMemStore() *MemStore {
	return &MemStore{rec: Record{PairState: PairStateNone}}
}

func (s *MemStore) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, nil
}

func (s *MemStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	return nil
}
