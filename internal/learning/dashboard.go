package learning

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/pai-adaptive/internal/guidance"
	"github.com/p-n-ai/pai-adaptive/internal/knowledge"
	"github.com/p-n-ai/pai-adaptive/internal/pool"
)

// recentMistakes is how many of the latest wrong answers feed next steps.
const recentMistakes = 5

// Dashboard is everything a student dashboard shows at once.
type Dashboard struct {
	Summary         knowledge.Summary             `json:"summary"`
	Guidance        guidance.Payload              `json:"guidance"`
	Performance     knowledge.Performance         `json:"performance"`
	NextSteps       []guidance.Recommendation     `json:"next_steps"`
	Recommendations []guidance.QuizRecommendation `json:"recommended_quizzes"`
}

// Dashboard loads the student's summary, guidance, performance and
// suggestions concurrently.
func (e *Engine) Dashboard(ctx context.Context, studentID string) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := e.estimator.Summary(ctx, studentID)
		if err != nil {
			return err
		}
		d.Summary = s
		return nil
	})
	g.Go(func() error {
		p, err := e.GetGuidance(ctx, studentID)
		if err != nil {
			return err
		}
		d.Guidance = p
		return nil
	})
	g.Go(func() error {
		p, err := e.estimator.Performance(ctx, studentID)
		if err != nil {
			return err
		}
		d.Performance = p
		return nil
	})
	g.Go(func() error {
		steps, recs, err := e.suggestions(ctx, studentID)
		if err != nil {
			return err
		}
		d.NextSteps, d.Recommendations = steps, recs
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}
	return d, nil
}

func (e *Engine) suggestions(ctx context.Context, studentID string) ([]guidance.Recommendation, []guidance.QuizRecommendation, error) {
	records, err := e.mastery.List(ctx, studentID)
	if err != nil {
		return nil, nil, fmt.Errorf("load mastery: %w", err)
	}
	issued, err := e.quizzes.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list quizzes: %w", err)
	}
	missed, err := e.missedTopics(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := e.pool.LoadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load question pool: %w", err)
	}

	steps := guidance.NextSteps(records, len(issued), missed)
	recs := guidance.RecommendQuizzes(records, pool.Topics(questions), 3)
	return steps, recs, nil
}

// missedTopics returns the distinct topics of the student's latest wrong
// answers, most recent first.
func (e *Engine) missedTopics(ctx context.Context, studentID string) ([]string, error) {
	attempts, err := e.attempts.ListCompleted(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load completed attempts: %w", err)
	}

	var ids []string
	for _, a := range attempts {
		for _, ans := range a.Answers {
			if len(ids) == recentMistakes {
				break
			}
			if !ans.IsCorrect {
				ids = append(ids, ans.QuestionID)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	questions, err := e.quizzes.Questions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve missed questions: %w", err)
	}

	var topics []string
	seen := make(map[string]struct{})
	for _, id := range ids {
		q, ok := questions[id]
		if !ok || q.Topic == "" || q.Topic == pool.UnknownTopic {
			continue
		}
		if _, dup := seen[q.Topic]; !dup {
			seen[q.Topic] = struct{}{}
			topics = append(topics, q.Topic)
		}
	}
	return topics, nil
}
