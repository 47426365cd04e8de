// Package quiz generates personalised quizzes and stores the issued ones.
package quiz

import (
	"errors"
	"fmt"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/pool"
)

var (
	// ErrNotFound is returned when a quiz or question does not exist.
	ErrNotFound = errors.New("quiz not found")

	// ErrNotAvailable is returned outside the quiz availability window.
	ErrNotAvailable = errors.New("quiz not available")
)

// Question is a snapshot of a pool question taken when the quiz was issued.
// Later pool edits never change it.
type Question struct {
	ID       string `json:"id"`
	QuizID   string `json:"quiz_id"`
	Position int    `json:"position"`
	pool.QuestionRecord
}

// Quiz is a generated quiz with its availability window.
type Quiz struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Available reports whether the quiz can be taken at now.
func (q Quiz) Available(now time.Time) error {
	if q.StartTime != nil && now.Before(*q.StartTime) {
		return fmt.Errorf("%w: quiz not available yet", ErrNotAvailable)
	}
	if q.EndTime != nil && now.After(*q.EndTime) {
		return fmt.Errorf("%w: quiz has ended", ErrNotAvailable)
	}
	return nil
}

// QuestionsByID indexes the quiz questions by ID.
func (q Quiz) QuestionsByID() map[string]Question {
	m := make(map[string]Question, len(q.Questions))
	for _, qq := range q.Questions {
		m[qq.ID] = qq
	}
	return m
}

// Topics returns the distinct topics covered by the quiz, in question order.
func (q Quiz) Topics() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, qq := range q.Questions {
		if _, ok := seen[qq.Topic]; ok {
			continue
		}
		seen[qq.Topic] = struct{}{}
		out = append(out, qq.Topic)
	}
	return out
}
