package guidance_test

import (
	"testing"

	"github.com/p-n-ai/pai-adaptive/internal/guidance"
)

func TestNextSteps(t *testing.T) {
	recs := records(map[string]float64{"SDLC": 0.8, "Agile": 0.2})

	tests := []struct {
		name      string
		quizzes   int
		missed    []string
		wantTypes []string
	}{
		{"no quizzes", 0, nil, []string{"quiz"}},
		{"few quizzes", 2, nil, []string{"quiz", "focus"}},
		{"many quizzes", 5, nil, []string{"focus"}},
		{"recent mistakes", 5, []string{"Agile", "SDLC", "OSI Model", "Extra"}, []string{"focus", "review"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := guidance.NextSteps(recs, tt.quizzes, tt.missed)
			if len(steps) != len(tt.wantTypes) {
				t.Fatalf("steps = %+v, want types %v", steps, tt.wantTypes)
			}
			for i, typ := range tt.wantTypes {
				if steps[i].Type != typ {
					t.Errorf("steps[%d].Type = %q, want %q", i, steps[i].Type, typ)
				}
			}
		})
	}

	steps := guidance.NextSteps(recs, 5, nil)
	if steps[0].Title != "Focus on Agile" || steps[0].Link != "/resources/agile" {
		t.Errorf("focus step = %+v, want weakest topic Agile", steps[0])
	}
}

func TestRecommendQuizzes(t *testing.T) {
	t.Run("new student", func(t *testing.T) {
		got := guidance.RecommendQuizzes(nil, []string{"SDLC"}, 3)
		if len(got) != 1 || got[0].Title != "Initial Assessment Quiz" {
			t.Errorf("RecommendQuizzes() = %+v, want initial assessment", got)
		}
	})

	recs := records(map[string]float64{"SDLC": 0.3, "Agile": 0.6, "OSI Model": 0.9})
	pool := []string{"SDLC", "Agile", "OSI Model", "Network Engineering"}

	t.Run("all kinds", func(t *testing.T) {
		got := guidance.RecommendQuizzes(recs, pool, 3)
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		if got[0].Topics[0] != "SDLC" || got[1].Topics[0] != "Agile" || got[2].Topics[0] != "Network Engineering" {
			t.Errorf("RecommendQuizzes() = %+v, want weak, reinforce, explore", got)
		}
	})

	t.Run("mixed padding", func(t *testing.T) {
		got := guidance.RecommendQuizzes(recs, pool, 5)
		if len(got) != 4 || got[3].Title != "Mixed Topics Quiz" {
			t.Fatalf("RecommendQuizzes() = %+v, want mixed quiz last", got)
		}
		if got[3].Topics[0] != "SDLC" {
			t.Errorf("mixed topics = %v, want weakest first", got[3].Topics)
		}
	})

	t.Run("limit", func(t *testing.T) {
		if got := guidance.RecommendQuizzes(recs, pool, 1); len(got) != 1 {
			t.Errorf("len = %d, want 1", len(got))
		}
	})
}
