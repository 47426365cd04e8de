package pool_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-adaptive/internal/ai"
	"github.com/p-n-ai/pai-adaptive/internal/pool"
)

const authoredJSON = `{"questions":[
 {"question":"What does a scrum master do?","options":["Facilitates","Codes","Tests","Sells"],"correctAnswer":0,"explanation":"They facilitate."},
 {"question":"What is a user story?","options":["A bug","A requirement","A test","A server"],"correctAnswer":1}
]}`

func TestAuthor_Questions(t *testing.T) {
	mock := ai.NewMockProvider(authoredJSON)
	author := pool.NewAuthor(mock)

	recs, err := author.Questions(context.Background(), " Agile ", 2, pool.DifficultyHard)
	if err != nil {
		t.Fatalf("Questions() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Questions() = %d records, want 2", len(recs))
	}
	for _, r := range recs {
		if r.Topic != "Agile" {
			t.Errorf("Topic = %q, want Agile", r.Topic)
		}
		if r.Weight != 3 {
			t.Errorf("Weight = %v, want 3 for hard", r.Weight)
		}
		if !strings.HasPrefix(r.SourceID, "ai-") {
			t.Errorf("SourceID = %q, want ai- prefix", r.SourceID)
		}
	}
	if recs[1].CorrectIndex != 1 {
		t.Errorf("CorrectIndex = %d, want 1", recs[1].CorrectIndex)
	}

	req := mock.LastRequest
	if req == nil || !req.JSONMode || req.Task != ai.TaskQuestionAuthoring {
		t.Fatalf("LastRequest = %+v, want JSON mode authoring task", req)
	}
	if !strings.Contains(req.Messages[1].Content, "exactly 2 questions") {
		t.Errorf("prompt does not ask for the question count: %q", req.Messages[1].Content)
	}
}

func TestAuthor_FencedReply(t *testing.T) {
	mock := ai.NewMockProvider("```json\n" + authoredJSON + "\n```")

	recs, err := pool.NewAuthor(mock).Questions(context.Background(), "Agile", 1, pool.DifficultyEasy)
	if err != nil {
		t.Fatalf("Questions() error = %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Questions() = %d records, want 1 (truncated to n)", len(recs))
	}
}

func TestAuthor_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		topic string
		n     int
	}{
		{"provider failure", "", errors.New("down"), "Agile", 2},
		{"schema violation", `{"questions":[{"question":"q","options":["a","b"],"correctAnswer":0}]}`, nil, "Agile", 2},
		{"index out of range", `{"questions":[{"question":"q","options":["a","b","c","d"],"correctAnswer":4}]}`, nil, "Agile", 2},
		{"not json", "Sure! Here are some questions", nil, "Agile", 2},
		{"empty topic", authoredJSON, nil, "  ", 2},
		{"zero count", authoredJSON, nil, "Agile", 0},
		{"too many", authoredJSON, nil, "Agile", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &ai.MockProvider{Response: tt.reply, Err: tt.err}
			if _, err := pool.NewAuthor(mock).Questions(context.Background(), tt.topic, tt.n, pool.DifficultyMedium); err == nil {
				t.Error("Questions() should return an error")
			}
		})
	}
}

func TestAuthor_SkipsBadQuestions(t *testing.T) {
	reply := `{"questions":[
		{"question":"Two options","options":["a","b"],"correctAnswer":0},
		{"question":"What is a sprint?","options":["A timebox","A bug","A release","A role"],"correctAnswer":0},
		{"question":"Out of range","options":["a","b","c","d"],"correctAnswer":4},
		{"question":"What is a backlog?","options":["A list","A meeting","A tool","A role"],"correctAnswer":0}
	]}`
	mock := &ai.MockProvider{Response: reply}

	recs, err := pool.NewAuthor(mock).Questions(context.Background(), "Agile", 5, pool.DifficultyEasy)
	if err != nil {
		t.Fatalf("Questions() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Questions() = %d records, want 2", len(recs))
	}
	if recs[0].Text != "What is a sprint?" || recs[1].Text != "What is a backlog?" {
		t.Errorf("Questions() kept %q and %q", recs[0].Text, recs[1].Text)
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in     string
		want   pool.Difficulty
		weight float64
	}{
		{"easy", pool.DifficultyEasy, 1},
		{"HARD", pool.DifficultyHard, 3},
		{"medium", pool.DifficultyMedium, 2},
		{"", pool.DifficultyMedium, 2},
		{"brutal", pool.DifficultyMedium, 2},
	}
	for _, tt := range tests {
		d := pool.ParseDifficulty(tt.in)
		if d != tt.want || d.Weight() != tt.weight {
			t.Errorf("ParseDifficulty(%q) = %q (weight %v), want %q (weight %v)", tt.in, d, d.Weight(), tt.want, tt.weight)
		}
	}
}
