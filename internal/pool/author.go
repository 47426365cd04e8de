package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-adaptive/internal/ai"
)

// Difficulty of AI-authored questions. It maps onto question weight.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Weight returns the pool weight used for questions of this difficulty.
func (d Difficulty) Weight() float64 {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyHard:
		return 3
	default:
		return 2
	}
}

// ParseDifficulty accepts easy, medium or hard in any case. Anything else
// is medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// MaxAuthoredQuestions caps one authoring request.
const MaxAuthoredQuestions = 20

const authorSystemPrompt = "You are an expert educational content creator. " +
	"Write multiple choice questions that test understanding, not just memorization. " +
	"Always respond with valid JSON only."

// Completer is the part of the AI gateway the author needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Author writes new pool questions with an AI provider.
type Author struct {
	ai Completer
}

// NewAuthor creates a question author.
func NewAuthor(c Completer) *Author {
	return &Author{ai: c}
}

type authoredReply struct {
	Questions []json.RawMessage `json:"questions"`
}

type authoredQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Questions asks the provider for n questions about topic. The reply must
// match AuthoredSchema. Questions that break AuthoredQuestionSchema or a
// record invariant are dropped; a reply with none left is an error.
func (a *Author) Questions(ctx context.Context, topic string, n int, d Difficulty) ([]QuestionRecord, error) {
	topic = NormalizeTopic(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if n <= 0 || n > MaxAuthoredQuestions {
		return nil, fmt.Errorf("question count must be between 1 and %d, got %d", MaxAuthoredQuestions, n)
	}

	resp, err := a.ai.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: authorSystemPrompt},
			{Role: "user", Content: authorPrompt(topic, n, d)},
		},
		Task:        ai.TaskQuestionAuthoring,
		Temperature: 0.7,
		MaxTokens:   2000,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("author questions: %w", err)
	}

	body := []byte(stripFence(resp.Content))
	if err := validate(AuthoredSchema, body); err != nil {
		return nil, fmt.Errorf("author questions: %w", err)
	}

	var reply authoredReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode authored questions: %w", err)
	}

	recs := make([]QuestionRecord, 0, len(reply.Questions))
	for i, raw := range reply.Questions {
		if len(recs) == n {
			break
		}
		if err := validate(AuthoredQuestionSchema, raw); err != nil {
			slog.Warn("skipping authored question", "topic", topic, "index", i, "error", err)
			continue
		}
		var q authoredQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			slog.Warn("skipping authored question", "topic", topic, "index", i, "error", err)
			continue
		}

		rec := QuestionRecord{
			SourceID:     "ai-" + uuid.NewString(),
			Topic:        topic,
			Text:         strings.TrimSpace(q.Question),
			CorrectIndex: q.CorrectAnswer,
			Weight:       d.Weight(),
		}
		copy(rec.Options[:], q.Options)
		if err := rec.Validate(); err != nil {
			slog.Warn("skipping authored question", "topic", topic, "index", i, "error", err)
			continue
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("author questions: %w: no usable question in reply", ErrSchema)
	}
	return recs, nil
}

func authorPrompt(topic string, n int, d Difficulty) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s level quiz about %q.\n\n", d, topic)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Generate exactly %d questions\n", n)
	fmt.Fprintf(&b, "- Each question has exactly %d multiple choice options\n", OptionCount)
	b.WriteString("- Only one option is correct\n")
	b.WriteString("- Vary question types (conceptual, practical, analytical)\n\n")
	b.WriteString("Respond with a JSON object in this exact format:\n")
	b.WriteString(`{"questions":[{"question":"...","options":["A","B","C","D"],"correctAnswer":0,"explanation":"..."}]}`)
	b.WriteString("\n\ncorrectAnswer is the 0-based index of the correct option.")
	return b.String()
}

// stripFence removes a surrounding ```json fence some models add even in
// JSON mode.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
