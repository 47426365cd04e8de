// Package learning exposes the adaptive learning operations: quiz
// generation, submission, knowledge recomputation and guidance.
package learning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/attempt"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/events"
	"github.com/p-n-ai/pai-adaptive/internal/guidance"
	"github.com/p-n-ai/pai-adaptive/internal/knowledge"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
	"github.com/p-n-ai/pai-adaptive/internal/notify"
	"github.com/p-n-ai/pai-adaptive/internal/pool"
	"github.com/p-n-ai/pai-adaptive/internal/quiz"
	"github.com/p-n-ai/pai-adaptive/internal/report"
)

const (
	defaultQuestions        = 15
	defaultDurationMinutes  = 20
	defaultAvailabilityDays = 7
	defaultTitle            = "Personalized Quiz"
)

var (
	// ErrInvalidArgument marks requests with missing or out-of-range input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoAuthor is returned when question authoring has no AI provider.
	ErrNoAuthor = errors.New("question authoring is not configured")
)

// EngineConfig holds dependencies for the learning engine. Nil stores fall
// back to in-memory implementations.
type EngineConfig struct {
	Pool     pool.Source
	Quizzes  quiz.Store
	Attempts attempt.Store
	Mastery  mastery.Store

	Generator *quiz.Generator
	Graph     *curriculum.Graph
	Author    *pool.Author
	Events    events.EventLogger
	Hub       *notify.Hub

	// OverallClassifier levels the OVERALL record (default mastery.OverallThresholds).
	OverallClassifier mastery.Classifier
	// Locker serializes recomputations across processes when set.
	Locker knowledge.Locker

	DefaultQuestions int // questions per quiz (default 15)
	DurationMinutes  int // time limit per quiz (default 20)
	AvailabilityDays int // availability window from generation (default 7)

	Now func() time.Time
}

// Engine runs the learning operations over its stores.
type Engine struct {
	pool     pool.Source
	authored *pool.MemorySource
	quizzes  quiz.Store
	attempts attempt.Store
	mastery  mastery.Store

	generator *quiz.Generator
	estimator *knowledge.Estimator
	guidance  *guidance.Engine
	graph     *curriculum.Graph
	author    *pool.Author
	events    events.EventLogger
	hub       *notify.Hub

	defaultQuestions int
	duration         int
	availability     time.Duration
	now              func() time.Time
}

// NewEngine creates a new learning engine.
func NewEngine(cfg EngineConfig) *Engine {
	quizzes := cfg.Quizzes
	if quizzes == nil {
		quizzes = quiz.NewMemoryStore()
	}
	attempts := cfg.Attempts
	if attempts == nil {
		attempts = attempt.NewMemoryStore()
	}
	store := cfg.Mastery
	if store == nil {
		store = mastery.NewMemoryStore()
	}
	generator := cfg.Generator
	if generator == nil {
		generator = quiz.NewGenerator(nil)
	}
	graph := cfg.Graph
	if graph == nil {
		graph = curriculum.DefaultGraph()
	}
	logger := cfg.Events
	if logger == nil {
		logger = events.NopEventLogger{}
	}
	hub := cfg.Hub
	if hub == nil {
		hub = notify.NewHub()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	questions := cfg.DefaultQuestions
	if questions <= 0 {
		questions = defaultQuestions
	}
	duration := cfg.DurationMinutes
	if duration <= 0 {
		duration = defaultDurationMinutes
	}
	days := cfg.AvailabilityDays
	if days <= 0 {
		days = defaultAvailabilityDays
	}

	authored := pool.NewMemorySource()
	source := pool.Source(authored)
	if cfg.Pool != nil {
		source = pool.MultiSource{cfg.Pool, authored}
	}

	opts := []knowledge.Option{
		knowledge.WithOverallClassifier(cfg.OverallClassifier),
		knowledge.WithClock(now),
	}
	if cfg.Locker != nil {
		opts = append(opts, knowledge.WithLocker(cfg.Locker))
	}

	return &Engine{
		pool:             source,
		authored:         authored,
		quizzes:          quizzes,
		attempts:         attempts,
		mastery:          store,
		generator:        generator,
		estimator:        knowledge.NewEstimator(attempts, quizzes, store, opts...),
		guidance:         guidance.NewEngine(nil),
		graph:            graph,
		author:           cfg.Author,
		events:           logger,
		hub:              hub,
		defaultQuestions: questions,
		duration:         duration,
		availability:     time.Duration(days) * 24 * time.Hour,
		now:              now,
	}
}

// Hub returns the notification hub dashboards subscribe to.
func (e *Engine) Hub() *notify.Hub {
	return e.hub
}

// GenerateQuiz builds a personalised quiz from a fresh read of the pool and
// issues it with an uncompleted attempt that has not been started. A
// non-positive count uses the configured default. An empty pool yields an
// empty quiz.
func (e *Engine) GenerateQuiz(ctx context.Context, studentID, title string, count int) (quiz.Quiz, attempt.Attempt, error) {
	if studentID == "" {
		return quiz.Quiz{}, attempt.Attempt{}, fmt.Errorf("%w: student id is required", ErrInvalidArgument)
	}
	if count <= 0 {
		count = e.defaultQuestions
	}
	if strings.TrimSpace(title) == "" {
		title = defaultTitle
	}

	questions, err := e.pool.LoadAll(ctx)
	if err != nil {
		return quiz.Quiz{}, attempt.Attempt{}, fmt.Errorf("load question pool: %w", err)
	}
	records, err := e.mastery.List(ctx, studentID)
	if err != nil {
		return quiz.Quiz{}, attempt.Attempt{}, fmt.Errorf("load mastery: %w", err)
	}

	selected := e.generator.Generate(records, questions, count)
	snapshot := make([]quiz.Question, len(selected))
	for i, rec := range selected {
		snapshot[i] = quiz.Question{QuestionRecord: rec}
	}

	now := e.now()
	end := now.Add(e.availability)
	q := quiz.Quiz{
		StudentID:       studentID,
		Title:           title,
		DurationMinutes: e.duration,
		StartTime:       &now,
		EndTime:         &end,
		Questions:       snapshot,
		CreatedAt:       now,
	}
	if topics := q.Topics(); len(topics) > 0 {
		q.Description = "Personalized quiz covering: " + strings.Join(topics, ", ")
	}

	created, err := e.quizzes.Create(ctx, q)
	if err != nil {
		return quiz.Quiz{}, attempt.Attempt{}, fmt.Errorf("create quiz: %w", err)
	}
	a, err := e.attempts.Create(ctx, attempt.Attempt{StudentID: studentID, QuizID: created.ID, CreatedAt: now})
	if err != nil {
		// No attempt means nobody can take the quiz.
		if derr := e.quizzes.Delete(context.WithoutCancel(ctx), created.ID); derr != nil {
			slog.Error("failed to remove quiz without attempt", "quiz_id", created.ID, "error", derr)
		}
		return quiz.Quiz{}, attempt.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}

	slog.Info("quiz generated",
		"student_id", studentID,
		"quiz_id", created.ID,
		"questions", len(created.Questions),
		"pool_size", len(questions),
	)
	e.logEvent(studentID, events.QuizGenerated, map[string]any{
		"quiz_id":   created.ID,
		"questions": len(created.Questions),
		"mastered":  len(mastery.Topics(records)),
	})
	e.publish(ctx, notify.QuizReady, studentID, map[string]any{
		"quiz_id":    created.ID,
		"attempt_id": a.ID,
		"title":      created.Title,
	})
	return created, a, nil
}

// StartAttempt opens an attempt inside its quiz availability window. The
// start time is recorded on the first call only.
func (e *Engine) StartAttempt(ctx context.Context, attemptID string) (attempt.Attempt, quiz.Quiz, error) {
	a, err := e.attempts.Get(ctx, attemptID)
	if err != nil {
		return attempt.Attempt{}, quiz.Quiz{}, err
	}
	if a.Completed() {
		return attempt.Attempt{}, quiz.Quiz{}, attempt.ErrAlreadyCompleted
	}

	q, err := e.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return attempt.Attempt{}, quiz.Quiz{}, err
	}
	now := e.now()
	if err := q.Available(now); err != nil {
		return attempt.Attempt{}, quiz.Quiz{}, err
	}

	started, err := e.attempts.Start(ctx, attemptID, now)
	if err != nil {
		return attempt.Attempt{}, quiz.Quiz{}, err
	}
	e.logEvent(a.StudentID, events.QuizStarted, map[string]any{"quiz_id": q.ID, "attempt_id": a.ID})
	return started, q, nil
}

// Submission is the outcome of submitting an attempt.
type Submission struct {
	Attempt  attempt.Attempt  `json:"attempt"`
	Score    float64          `json:"score"`
	Correct  int              `json:"correct"`
	Answered int              `json:"answered"`
	Mastery  []mastery.Record `json:"mastery,omitempty"`
	// KnowledgeErr reports a failed recomputation. The submission itself
	// is already committed when it is set.
	KnowledgeErr error `json:"-"`
}

// SubmitAttempt grades the selections (question ID to 0-based option),
// commits the attempt as completed and then recomputes the student's
// knowledge. A second submission fails with attempt.ErrAlreadyCompleted.
func (e *Engine) SubmitAttempt(ctx context.Context, attemptID string, selections map[string]int) (Submission, error) {
	a, err := e.attempts.Get(ctx, attemptID)
	if err != nil {
		return Submission{}, err
	}
	if a.Completed() {
		return Submission{}, attempt.ErrAlreadyCompleted
	}

	q, err := e.quizzes.Get(ctx, a.QuizID)
	if err != nil {
		return Submission{}, err
	}

	answers, score := attempt.Grade(q.Questions, selections)
	done, err := e.attempts.Complete(ctx, attemptID, answers, score, e.now())
	if err != nil {
		return Submission{}, err
	}

	sub := Submission{Attempt: done, Score: score, Answered: len(answers)}
	for _, ans := range answers {
		if ans.IsCorrect {
			sub.Correct++
		}
	}

	slog.Info("quiz submitted",
		"student_id", a.StudentID,
		"attempt_id", attemptID,
		"score", score,
		"answered", sub.Answered,
	)
	e.logEvent(a.StudentID, events.QuizSubmitted, map[string]any{
		"quiz_id":    q.ID,
		"attempt_id": attemptID,
		"score":      score,
		"answered":   sub.Answered,
		"correct":    sub.Correct,
	})
	e.publish(ctx, notify.QuizGraded, a.StudentID, map[string]any{"attempt_id": attemptID, "score": score})

	sub.Mastery, sub.KnowledgeErr = e.recompute(ctx, a.StudentID)
	if sub.KnowledgeErr != nil {
		slog.Error("knowledge recomputation failed after submission",
			"student_id", a.StudentID,
			"attempt_id", attemptID,
			"error", sub.KnowledgeErr,
		)
	}
	return sub, nil
}

// RecomputeKnowledge recomputes and persists the student's mastery records.
func (e *Engine) RecomputeKnowledge(ctx context.Context, studentID string) error {
	if studentID == "" {
		return fmt.Errorf("%w: student id is required", ErrInvalidArgument)
	}
	_, err := e.recompute(ctx, studentID)
	return err
}

func (e *Engine) recompute(ctx context.Context, studentID string) ([]mastery.Record, error) {
	records, err := e.estimator.Recompute(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("recompute knowledge: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	e.logEvent(studentID, events.MasteryUpdated, map[string]any{"records": len(records)})
	e.publish(ctx, notify.MasteryChanged, studentID, records)
	return records, nil
}

// GetGuidance returns topic guidance and a learning path for the student.
func (e *Engine) GetGuidance(ctx context.Context, studentID string) (guidance.Payload, error) {
	records, err := e.mastery.List(ctx, studentID)
	if err != nil {
		return guidance.Payload{}, fmt.Errorf("load mastery: %w", err)
	}
	return e.guidance.Guidance(records, e.graph), nil
}

// Summary returns the student's overall and per-topic mastery.
func (e *Engine) Summary(ctx context.Context, studentID string) (knowledge.Summary, error) {
	return e.estimator.Summary(ctx, studentID)
}

// WeakTopics returns topics scored below threshold, weakest first.
func (e *Engine) WeakTopics(ctx context.Context, studentID string, threshold float64) ([]mastery.Record, error) {
	return e.estimator.WeakTopics(ctx, studentID, threshold)
}

// Progress returns the student's knowledge history, oldest attempt first.
func (e *Engine) Progress(ctx context.Context, studentID string) ([]knowledge.ProgressPoint, error) {
	return e.estimator.Progress(ctx, studentID)
}

// WriteReport writes the student's mastery workbook to w.
func (e *Engine) WriteReport(ctx context.Context, studentID string, w io.Writer) error {
	summary, err := e.estimator.Summary(ctx, studentID)
	if err != nil {
		return err
	}
	progress, err := e.estimator.Progress(ctx, studentID)
	if err != nil {
		return err
	}
	return report.WriteWorkbook(w, summary, progress)
}

// PoolStats summarises the current question pool per topic.
func (e *Engine) PoolStats(ctx context.Context) ([]pool.TopicStat, error) {
	questions, err := e.pool.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load question pool: %w", err)
	}
	return pool.Stats(questions), nil
}

// AuthorQuestions asks the AI provider for new questions and adds them to the
// pool used by later quizzes.
func (e *Engine) AuthorQuestions(ctx context.Context, topic string, count int, difficulty string) ([]pool.QuestionRecord, error) {
	if e.author == nil {
		return nil, ErrNoAuthor
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidArgument)
	}
	if count <= 0 || count > pool.MaxAuthoredQuestions {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidArgument, pool.MaxAuthoredQuestions)
	}

	recs, err := e.author.Questions(ctx, topic, count, pool.ParseDifficulty(difficulty))
	if err != nil {
		return nil, err
	}
	e.authored.Add(recs...)

	slog.Info("questions authored", "topic", topic, "requested", count, "added", len(recs))
	e.logEvent("", events.QuestionsAuthored, map[string]any{
		"topic":      topic,
		"count":      len(recs),
		"difficulty": string(pool.ParseDifficulty(difficulty)),
	})
	return recs, nil
}

func (e *Engine) logEvent(studentID, eventType string, data map[string]any) {
	if err := e.events.LogEvent(events.Event{
		StudentID: studentID,
		Type:      eventType,
		Data:      data,
	}); err != nil {
		slog.Warn("failed to log event", "type", eventType, "student_id", studentID, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, kind, studentID string, payload any) {
	e.hub.Publish(ctx, notify.Notification{Type: kind, StudentID: studentID, Payload: payload})
}
