package quiz

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists issued quizzes and resolves their questions.
type Store interface {
	// Create assigns IDs to the quiz and its questions when empty and
	// stores it.
	Create(ctx context.Context, q Quiz) (Quiz, error)
	Get(ctx context.Context, id string) (Quiz, error)
	// Questions resolves many snapshots at once. Unknown IDs are left out.
	Questions(ctx context.Context, ids []string) (map[string]Question, error)
	ListByStudent(ctx context.Context, studentID string) ([]Quiz, error)
	// Delete removes a quiz with its questions and attempts.
	Delete(ctx context.Context, id string) error
}

// prepare fills in IDs, positions and the creation time.
func prepare(q Quiz) Quiz {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	qs := make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		if qq.ID == "" {
			qq.ID = uuid.NewString()
		}
		qq.QuizID = q.ID
		qq.Position = i
		qs[i] = qq
	}
	q.Questions = qs
	return q
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	quizzes   map[string]Quiz
	questions map[string]Question
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory quiz store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quizzes:   make(map[string]Quiz),
		questions: make(map[string]Question),
	}
}

func (s *MemoryStore) Create(_ context.Context, q Quiz) (Quiz, error) {
	q = prepare(q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[q.ID]; ok {
		return Quiz{}, fmt.Errorf("quiz already exists: %s", q.ID)
	}
	s.quizzes[q.ID] = q
	for _, qq := range q.Questions {
		s.questions[qq.ID] = qq
	}
	return cloneQuiz(q), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneQuiz(q), nil
}

func (s *MemoryStore) Questions(_ context.Context, ids []string) (map[string]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Question, len(ids))
	for _, id := range ids {
		if qq, ok := s.questions[id]; ok {
			out[id] = qq
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, qq := range q.Questions {
		delete(s.questions, qq.ID)
	}
	delete(s.quizzes, id)
	return nil
}

// ListByStudent returns the student's quizzes, newest first.
func (s *MemoryStore) ListByStudent(_ context.Context, studentID string) ([]Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Quiz
	for _, q := range s.quizzes {
		if q.StudentID == studentID {
			out = append(out, cloneQuiz(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func cloneQuiz(q Quiz) Quiz {
	q.Questions = slices.Clone(q.Questions)
	return q
}
