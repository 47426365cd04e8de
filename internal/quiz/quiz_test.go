package quiz_test

import (
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/pool"
	"github.com/p-n-ai/pai-adaptive/internal/quiz"
)

func TestQuiz_Available(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		start   *time.Time
		end     *time.Time
		wantErr bool
	}{
		{"no window", nil, nil, false},
		{"inside window", &past, &future, false},
		{"not started", &future, nil, true},
		{"ended", nil, &past, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := quiz.Quiz{StartTime: tt.start, EndTime: tt.end}
			err := q.Available(now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Available() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, quiz.ErrNotAvailable) {
				t.Errorf("Available() error = %v, want ErrNotAvailable", err)
			}
		})
	}
}

func TestQuiz_TopicsAndIndex(t *testing.T) {
	q := quiz.Quiz{Questions: []quiz.Question{
		{ID: "q1", QuestionRecord: pool.QuestionRecord{Topic: "SDLC"}},
		{ID: "q2", QuestionRecord: pool.QuestionRecord{Topic: "Agile"}},
		{ID: "q3", QuestionRecord: pool.QuestionRecord{Topic: "SDLC"}},
	}}

	topics := q.Topics()
	if len(topics) != 2 || topics[0] != "SDLC" || topics[1] != "Agile" {
		t.Errorf("Topics() = %v, want [SDLC Agile]", topics)
	}
	if by := q.QuestionsByID(); by["q2"].Topic != "Agile" {
		t.Errorf("QuestionsByID()[q2].Topic = %q, want Agile", by["q2"].Topic)
	}
}
