package attempt

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists attempts.
type Store interface {
	Create(ctx context.Context, a Attempt) (Attempt, error)
	Get(ctx context.Context, id string) (Attempt, error)
	// Start records the first time the student opened the attempt. Later
	// calls leave the start time unchanged.
	Start(ctx context.Context, id string, now time.Time) (Attempt, error)
	// Complete moves an uncompleted attempt to completed. It fails with
	// ErrAlreadyCompleted when another submission got there first.
	Complete(ctx context.Context, id string, answers []Answer, score float64, end time.Time) (Attempt, error)
	// ListCompleted returns completed attempts with answers, newest end time first.
	ListCompleted(ctx context.Context, studentID string) ([]Attempt, error)
	ListByStudent(ctx context.Context, studentID string) ([]Attempt, error)
}

// SortNewestFirst orders attempts by descending end time. Attempts without
// an end time go last.
func SortNewestFirst(as []Attempt) {
	sort.SliceStable(as, func(i, j int) bool {
		ei, ej := as[i].EndTime, as[j].EndTime
		switch {
		case ei == nil:
			return false
		case ej == nil:
			return true
		default:
			return ei.After(*ej)
		}
	})
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	attempts map[string]*Attempt
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory attempt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attempts: make(map[string]*Attempt),
	}
}

func (s *MemoryStore) Create(_ context.Context, a Attempt) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusUncompleted
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	for _, other := range s.attempts {
		if other.StudentID == a.StudentID && other.QuizID == a.QuizID {
			return Attempt{}, fmt.Errorf("attempt already exists for student %s quiz %s", a.StudentID, a.QuizID)
		}
	}

	stored := clone(a)
	s.attempts[a.ID] = &stored
	return clone(stored), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(*a), nil
}

func (s *MemoryStore) Start(_ context.Context, id string, now time.Time) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if a.Completed() {
		return Attempt{}, ErrAlreadyCompleted
	}
	if a.StartTime == nil {
		a.StartTime = &now
	}
	return clone(*a), nil
}

func (s *MemoryStore) Complete(_ context.Context, id string, answers []Answer, score float64, end time.Time) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if a.Completed() {
		return Attempt{}, ErrAlreadyCompleted
	}

	a.Status = StatusCompleted
	a.EndTime = &end
	a.Score = &score
	a.Answers = slices.Clone(answers)
	if a.StartTime == nil {
		a.StartTime = &end
	}
	return clone(*a), nil
}

func (s *MemoryStore) ListCompleted(ctx context.Context, studentID string) ([]Attempt, error) {
	all, _ := s.ListByStudent(ctx, studentID)
	out := all[:0]
	for _, a := range all {
		if a.Completed() {
			out = append(out, a)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

// ListByStudent returns all of the student's attempts, oldest first.
func (s *MemoryStore) ListByStudent(_ context.Context, studentID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Attempt
	for _, a := range s.attempts {
		if a.StudentID == studentID {
			out = append(out, clone(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func clone(a Attempt) Attempt {
	a.Answers = slices.Clone(a.Answers)
	return a
}
