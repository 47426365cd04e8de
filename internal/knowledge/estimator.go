// Package knowledge estimates per-topic mastery from a student's completed
// quiz history.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/attempt"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
	"github.com/p-n-ai/pai-adaptive/internal/pool"
	"github.com/p-n-ai/pai-adaptive/internal/quiz"
)

// DecayRate gives older attempts a half-life of roughly 30 days.
const DecayRate = 0.023

// AttemptSource loads a student's completed attempts, newest end time first.
type AttemptSource interface {
	ListCompleted(ctx context.Context, studentID string) ([]attempt.Attempt, error)
}

// QuestionResolver looks up the questions answers refer to. IDs that do not
// exist are left out of the result.
type QuestionResolver interface {
	Questions(ctx context.Context, ids []string) (map[string]quiz.Question, error)
}

// Locker serializes work across processes. cache.Locker implements it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Estimator recomputes mastery records. Recomputations for the same student
// never interleave.
type Estimator struct {
	attempts  AttemptSource
	questions QuestionResolver
	store     mastery.Store

	topic   mastery.Classifier
	overall mastery.Classifier
	locker  Locker
	locks   *keyedMutex
	now     func() time.Time
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithOverallClassifier sets the classifier used for the OVERALL record.
func WithOverallClassifier(c mastery.Classifier) Option {
	return func(e *Estimator) {
		if c != nil {
			e.overall = c
		}
	}
}

// WithTopicClassifier replaces the per-topic threshold function.
func WithTopicClassifier(c mastery.Classifier) Option {
	return func(e *Estimator) {
		if c != nil {
			e.topic = c
		}
	}
}

// WithLocker adds a distributed lock taken around every recomputation.
func WithLocker(l Locker) Option {
	return func(e *Estimator) { e.locker = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEstimator creates an Estimator.
func NewEstimator(attempts AttemptSource, questions QuestionResolver, store mastery.Store, opts ...Option) *Estimator {
	e := &Estimator{
		attempts:  attempts,
		questions: questions,
		store:     store,
		topic:     mastery.DefaultThresholds,
		overall:   mastery.OverallThresholds,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decay returns the weight of an attempt that ended age before the newest one.
// Only whole days count.
func Decay(age time.Duration) float64 {
	days := math.Floor(age.Hours() / 24)
	return math.Exp(-DecayRate * days)
}

// Update recomputes and persists every mastery record of the student.
func (e *Estimator) Update(ctx context.Context, studentID string) error {
	_, err := e.Recompute(ctx, studentID)
	return err
}

// topicTally accumulates answers for one topic.
type topicTally struct {
	correct, total                 int
	weightedCorrect, weightedTotal float64
}

// Recompute is Update returning the records it wrote.
func (e *Estimator) Recompute(ctx context.Context, studentID string) ([]mastery.Record, error) {
	unlock, err := e.lock(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	attempts, err := e.attempts.ListCompleted(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load completed attempts: %w", err)
	}
	if len(attempts) == 0 {
		slog.Debug("no completed attempts", "student_id", studentID)
		return nil, nil
	}

	now := e.now()
	latest := now
	if attempts[0].EndTime != nil {
		latest = *attempts[0].EndTime
	}

	questions, err := resolveQuestions(ctx, e.questions, attempts)
	if err != nil {
		return nil, err
	}
	tallies := make(map[string]*topicTally)
	var scoreSum float64
	var scored int

	for _, a := range attempts {
		if a.EndTime == nil {
			continue
		}
		if a.Score != nil {
			scoreSum += *a.Score
			scored++
		}

		decay := Decay(latest.Sub(*a.EndTime))
		for _, ans := range a.Answers {
			q, ok := questions[ans.QuestionID]
			if !ok {
				continue
			}
			if !tagged(q.Topic) {
				slog.Debug("skipping untagged answer", "student_id", studentID, "question_id", ans.QuestionID)
				continue
			}

			t := tallies[q.Topic]
			if t == nil {
				t = &topicTally{}
				tallies[q.Topic] = t
			}
			t.total++
			t.weightedTotal += q.Weight * decay
			if ans.IsCorrect {
				t.correct++
				t.weightedCorrect += q.Weight * decay
			}
		}
	}

	existing, err := e.store.List(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load mastery: %w", err)
	}
	prior := mastery.ByTopic(existing)

	topics := make([]string, 0, len(tallies))
	for topic := range tallies {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	var written []mastery.Record
	for _, topic := range topics {
		t := tallies[topic]
		slog.Debug("topic tally",
			"student_id", studentID,
			"topic", topic,
			"correct", t.correct,
			"total", t.total,
			"weighted_correct", t.weightedCorrect,
			"weighted_total", t.weightedTotal,
		)
		if t.weightedTotal <= 0 {
			continue
		}

		score := t.weightedCorrect / t.weightedTotal
		if old, ok := prior[topic]; ok {
			score = mastery.Blend(old.Score, score)
		}

		rec := mastery.NewRecord(studentID, topic, score, e.topic, now)
		if err := e.store.Save(ctx, rec); err != nil {
			return written, fmt.Errorf("save mastery %s: %w", topic, err)
		}
		written = append(written, rec)
	}

	if scored > 0 {
		avg := scoreSum / float64(scored) / 100
		if old, ok := prior[mastery.OverallTopic]; ok {
			avg = mastery.Blend(old.Score, avg)
		}

		rec := mastery.NewRecord(studentID, mastery.OverallTopic, avg, e.overall, now)
		if err := e.store.Save(ctx, rec); err != nil {
			return written, fmt.Errorf("save overall mastery: %w", err)
		}
		written = append(written, rec)
	}

	slog.Info("mastery updated",
		"student_id", studentID,
		"attempts", len(attempts),
		"records", len(written),
	)
	return written, nil
}

func (e *Estimator) lock(ctx context.Context, studentID string) (func(), error) {
	release := e.locks.lock(studentID)
	if e.locker == nil {
		return release, nil
	}

	unlock, err := e.locker.Lock(ctx, "mastery:"+studentID)
	if err != nil {
		release()
		return nil, fmt.Errorf("lock student %s: %w", studentID, err)
	}
	return func() {
		unlock()
		release()
	}, nil
}

// tagged reports whether a question topic takes part in topic scoring.
func tagged(topic string) bool {
	return topic != "" && topic != pool.UnknownTopic
}

// resolveQuestions loads every question answered in attempts with a single
// lookup.
func resolveQuestions(ctx context.Context, r QuestionResolver, attempts []attempt.Attempt) (map[string]quiz.Question, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, a := range attempts {
		for _, ans := range a.Answers {
			if _, ok := seen[ans.QuestionID]; ok {
				continue
			}
			seen[ans.QuestionID] = struct{}{}
			ids = append(ids, ans.QuestionID)
		}
	}
	if len(ids) == 0 {
		return map[string]quiz.Question{}, nil
	}

	questions, err := r.Questions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve questions: %w", err)
	}
	if missing := len(ids) - len(questions); missing > 0 {
		slog.Warn("skipping answers with unresolvable questions", "missing", missing, "requested", len(ids))
	}
	return questions, nil
}
