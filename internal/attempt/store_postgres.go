package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed attempt store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

const attemptColumns = `id, student_id, quiz_id, status, start_time, end_time, score, created_at`

func (s *PostgresStore) Create(ctx context.Context, a Attempt) (Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusUncompleted
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO attempts (`+attemptColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID,
		a.StudentID,
		a.QuizID,
		string(a.Status),
		a.StartTime,
		a.EndTime,
		a.Score,
		a.CreatedAt,
	)
	if err != nil {
		return Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	a, err := scanAttempt(s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("get attempt: %w", err)
	}

	answers, err := s.answers(ctx, []string{id})
	if err != nil {
		return Attempt{}, err
	}
	a.Answers = answers[id]
	return a, nil
}

func (s *PostgresStore) Start(ctx context.Context, id string, now time.Time) (Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	a, err := scanAttempt(s.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET start_time = COALESCE(start_time, $2)
		 WHERE id = $1 AND status = 'uncompleted'
		 RETURNING `+attemptColumns,
		id,
		now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, s.missOrCompleted(ctx, id)
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("start attempt: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id string, answers []Answer, score float64, end time.Time) (Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a Attempt
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		a, err = scanAttempt(tx.QueryRow(ctx,
			`UPDATE attempts
			 SET status = 'completed',
			     end_time = $2,
			     score = $3,
			     start_time = COALESCE(start_time, $2)
			 WHERE id = $1 AND status = 'uncompleted'
			 RETURNING `+attemptColumns,
			id,
			end,
			score,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missOrCompleted(ctx, id)
		}
		if err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}

		batch := &pgx.Batch{}
		for i, ans := range answers {
			batch.Queue(
				`INSERT INTO attempt_answers (attempt_id, position, question_id, selected_option, is_correct)
				 VALUES ($1, $2, $3, $4, $5)`,
				id, i, ans.QuestionID, ans.SelectedOption, ans.IsCorrect,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return Attempt{}, err
	}

	a.Answers = append([]Answer(nil), answers...)
	return a, nil
}

func (s *PostgresStore) ListCompleted(ctx context.Context, studentID string) ([]Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	out, err := s.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE student_id = $1 AND status = 'completed'
		 ORDER BY end_time DESC NULLS LAST`,
		studentID,
	)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(out))
	for i, a := range out {
		ids[i] = a.ID
	}
	answers, err := s.answers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Answers = answers[out[i].ID]
	}
	return out, nil
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentID string) ([]Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE student_id = $1
		 ORDER BY created_at ASC`,
		studentID,
	)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) answers(ctx context.Context, ids []string) (map[string][]Answer, error) {
	out := make(map[string][]Answer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT attempt_id, question_id, selected_option, is_correct
		 FROM attempt_answers
		 WHERE attempt_id = ANY($1)
		 ORDER BY attempt_id, position`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var ans Answer
		if err := rows.Scan(&id, &ans.QuestionID, &ans.SelectedOption, &ans.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out[id] = append(out[id], ans)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

// missOrCompleted explains why a conditional update touched no row.
func (s *PostgresStore) missOrCompleted(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attempts WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ErrAlreadyCompleted
}

func scanAttempt(row pgx.Row) (Attempt, error) {
	var a Attempt
	var status string
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.QuizID,
		&status,
		&a.StartTime,
		&a.EndTime,
		&a.Score,
		&a.CreatedAt,
	)
	a.Status = Status(status)
	return a, err
}
