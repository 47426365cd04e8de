package mastery

import (
	"context"
	"sort"
	"sync"
)

// Store persists mastery records. Save is an upsert keyed by
// (student, topic).
type Store interface {
	List(ctx context.Context, studentID string) ([]Record, error)
	Save(ctx context.Context, rec Record) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]map[string]Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory mastery store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]Record),
	}
}

// List returns the student's records sorted by topic.
func (s *MemoryStore) List(_ context.Context, studentID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records[studentID]))
	for _, r := range s.records[studentID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTopic, ok := s.records[rec.StudentID]
	if !ok {
		byTopic = make(map[string]Record)
		s.records[rec.StudentID] = byTopic
	}
	byTopic[rec.Topic] = rec
	return nil
}
