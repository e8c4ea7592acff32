package limiter

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a map. It is safe for concurrent use but
// forgets everything on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get returns the stored record for clientID.
func (s *MemoryStore) Get(_ context.Context, clientID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[clientID], nil
}

// IncrementIfBelow resets a stale record and increments it under the lock.
func (s *MemoryStore) IncrementIfBelow(_ context.Context, clientID, day string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[clientID]
	if rec.LastConversionDate != day {
		rec = Record{LastConversionDate: day}
	}
	if rec.ConversionCount >= limit {
		s.records[clientID] = rec
		return rec.ConversionCount, false, nil
	}
	rec.ConversionCount++
	s.records[clientID] = rec
	return rec.ConversionCount, true, nil
}
