package knowledge

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/attempt"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
)

// DefaultWeakThreshold is the score below which a topic counts as weak.
const DefaultWeakThreshold = 0.5

// Overall is a student's overall level and score.
type Overall struct {
	Level mastery.Level `json:"level"`
	Score float64       `json:"score"`
}

// Summary is the student's overall mastery plus the per-topic records.
type Summary struct {
	StudentID string           `json:"student_id"`
	Overall   Overall          `json:"overall"`
	Topics    []mastery.Record `json:"topics"`
}

// Summary reports the student's knowledge. Students without records get a
// Normal level at 0.5. Without an OVERALL record the overall score is the
// mean of the topic scores.
func (e *Estimator) Summary(ctx context.Context, studentID string) (Summary, error) {
	recs, err := e.store.List(ctx, studentID)
	if err != nil {
		return Summary{}, fmt.Errorf("load mastery: %w", err)
	}

	s := Summary{
		StudentID: studentID,
		Overall:   Overall{Level: mastery.Normal, Score: 0.5},
		Topics:    mastery.Topics(recs),
	}

	if overall, ok := mastery.ByTopic(recs)[mastery.OverallTopic]; ok {
		s.Overall = Overall{Level: overall.Level, Score: overall.Score}
	} else if len(s.Topics) > 0 {
		var sum float64
		for _, r := range s.Topics {
			sum += r.Score
		}
		mean := sum / float64(len(s.Topics))
		s.Overall = Overall{Level: e.overall.Classify(mean), Score: mean}
	}
	return s, nil
}

// WeakTopics returns the topics scored below threshold, weakest first.
// A non-positive threshold selects DefaultWeakThreshold.
func (e *Estimator) WeakTopics(ctx context.Context, studentID string, threshold float64) ([]mastery.Record, error) {
	if threshold <= 0 {
		threshold = DefaultWeakThreshold
	}

	recs, err := e.store.List(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load mastery: %w", err)
	}

	var weak []mastery.Record
	for _, r := range mastery.Topics(recs) {
		if r.Score < threshold {
			weak = append(weak, r)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Score < weak[j].Score })
	return weak, nil
}

// TopicScore is a score with its level.
type TopicScore struct {
	Score float64       `json:"score"`
	Level mastery.Level `json:"level"`
}

// ProgressPoint is the student's cumulative knowledge right after one attempt.
type ProgressPoint struct {
	Date         time.Time             `json:"date"`
	AttemptID    string                `json:"attempt_id"`
	QuizID       string                `json:"quiz_id"`
	OverallScore float64               `json:"overall_score"`
	OverallLevel mastery.Level         `json:"overall_level"`
	Topics       map[string]TopicScore `json:"topics"`
}

// Progress replays completed attempts oldest first and reports the raw
// cumulative per-topic scores after each one. The overall score weights each
// topic by the weight of its most recently seen question.
func (e *Estimator) Progress(ctx context.Context, studentID string) ([]ProgressPoint, error) {
	attempts, err := e.chronological(ctx, studentID)
	if err != nil {
		return nil, err
	}

	questions, err := resolveQuestions(ctx, e.questions, attempts)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]*topicTally)
	weights := make(map[string]float64)

	var out []ProgressPoint
	for _, a := range attempts {
		for _, ans := range a.Answers {
			q, ok := questions[ans.QuestionID]
			if !ok || !tagged(q.Topic) {
				continue
			}
			t := counts[q.Topic]
			if t == nil {
				t = &topicTally{}
				counts[q.Topic] = t
			}
			weights[q.Topic] = q.Weight
			t.total++
			if ans.IsCorrect {
				t.correct++
			}
		}

		p := ProgressPoint{
			Date:      *a.EndTime,
			AttemptID: a.ID,
			QuizID:    a.QuizID,
			Topics:    make(map[string]TopicScore, len(counts)),
		}
		var weighted, weightSum float64
		for topic, t := range counts {
			if t.total == 0 {
				continue
			}
			score := float64(t.correct) / float64(t.total)
			p.Topics[topic] = TopicScore{Score: score, Level: e.topic.Classify(score)}
			weighted += score * weights[topic]
			weightSum += weights[topic]
		}
		if weightSum > 0 {
			p.OverallScore = weighted / weightSum
		}
		p.OverallLevel = e.overall.Classify(p.OverallScore)
		out = append(out, p)
	}
	return out, nil
}

// TopicPerformance counts answers in one topic.
type TopicPerformance struct {
	Total   int     `json:"total_questions"`
	Correct int     `json:"correct_answers"`
	Score   float64 `json:"score"`
}

// ScorePoint is one attempt score on a timeline.
type ScorePoint struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
}

// Performance summarises a student's completed quizzes.
type Performance struct {
	TotalQuizzes int                         `json:"total_quizzes"`
	AverageScore float64                     `json:"average_score"`
	Topics       map[string]TopicPerformance `json:"topic_performance"`
	OverTime     []ScorePoint                `json:"progress_over_time"`
}

// Performance reports quiz counts, the average percentage score, raw
// per-topic accuracy and the score timeline.
func (e *Estimator) Performance(ctx context.Context, studentID string) (Performance, error) {
	attempts, err := e.chronological(ctx, studentID)
	if err != nil {
		return Performance{}, err
	}

	perf := Performance{
		TotalQuizzes: len(attempts),
		Topics:       make(map[string]TopicPerformance),
	}
	if len(attempts) == 0 {
		return perf, nil
	}

	questions, err := resolveQuestions(ctx, e.questions, attempts)
	if err != nil {
		return Performance{}, err
	}
	var sum float64
	for _, a := range attempts {
		if a.Score != nil {
			sum += *a.Score
			perf.OverTime = append(perf.OverTime, ScorePoint{Date: *a.EndTime, Score: *a.Score})
		}
		for _, ans := range a.Answers {
			q, ok := questions[ans.QuestionID]
			if !ok || !tagged(q.Topic) {
				continue
			}
			tp := perf.Topics[q.Topic]
			tp.Total++
			if ans.IsCorrect {
				tp.Correct++
			}
			perf.Topics[q.Topic] = tp
		}
	}
	perf.AverageScore = sum / float64(len(attempts))

	for topic, tp := range perf.Topics {
		if tp.Total > 0 {
			tp.Score = float64(tp.Correct) / float64(tp.Total)
			perf.Topics[topic] = tp
		}
	}
	return perf, nil
}

// chronological returns completed attempts with an end time, oldest first.
func (e *Estimator) chronological(ctx context.Context, studentID string) ([]attempt.Attempt, error) {
	all, err := e.attempts.ListCompleted(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load completed attempts: %w", err)
	}

	out := make([]attempt.Attempt, 0, len(all))
	for _, a := range all {
		if a.EndTime != nil {
			out = append(out, a)
		}
	}
	slices.Reverse(out)
	return out, nil
}
