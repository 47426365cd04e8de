// Package attempt records students' quiz attempts and grades submissions.
package attempt

import (
	"errors"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/pool"
	"github.com/p-n-ai/pai-adaptive/internal/quiz"
)

var (
	// ErrNotFound is returned when an attempt does not exist.
	ErrNotFound = errors.New("attempt not found")

	// ErrAlreadyCompleted is returned when a submission arrives for an
	// attempt that is already completed. Attempts are terminal once
	// completed.
	ErrAlreadyCompleted = errors.New("quiz already submitted")
)

// Status is the lifecycle state of an attempt.
type Status string

const (
	StatusUncompleted Status = "uncompleted"
	StatusCompleted   Status = "completed"
)

// Answer is one graded answer. SelectedOption is 0-based.
type Answer struct {
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
}

// Attempt is one student's attempt at one quiz.
type Attempt struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	QuizID    string     `json:"quiz_id"`
	Status    Status     `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Score     *float64   `json:"score,omitempty"`
	Answers   []Answer   `json:"answers,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Completed reports whether the attempt reached its terminal state.
func (a Attempt) Completed() bool {
	return a.Status == StatusCompleted
}

// Grade marks the selections against the quiz questions. Only answered
// questions count: the score is the weight of correct answers over the
// weight of answered ones, as a percentage, and 0 when nothing was answered.
// Selections for unknown questions or out-of-range options are skipped.
func Grade(questions []quiz.Question, selections map[string]int) ([]Answer, float64) {
	byID := make(map[string]quiz.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	for id := range selections {
		if _, ok := byID[id]; !ok {
			slog.Warn("ignoring answer for unknown question", "question_id", id)
		}
	}

	var answers []Answer
	var earned, possible float64
	for _, q := range questions {
		sel, ok := selections[q.ID]
		if !ok {
			continue
		}
		if sel < 0 || sel >= pool.OptionCount {
			slog.Warn("ignoring out of range answer", "question_id", q.ID, "option", sel)
			continue
		}

		correct := q.IsCorrect(sel)
		answers = append(answers, Answer{QuestionID: q.ID, SelectedOption: sel, IsCorrect: correct})
		possible += q.Weight
		if correct {
			earned += q.Weight
		}
	}

	if possible == 0 {
		return answers, 0
	}
	return answers, earned / possible * 100
}
