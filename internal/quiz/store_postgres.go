package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-adaptive/internal/pool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed quiz store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, q Quiz) (Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	q = prepare(q)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO quizzes (id, student_id, title, description, duration_minutes, start_time, end_time, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ID,
			q.StudentID,
			q.Title,
			q.Description,
			q.DurationMinutes,
			q.StartTime,
			q.EndTime,
			q.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}

		batch := &pgx.Batch{}
		for _, qq := range q.Questions {
			batch.Queue(
				`INSERT INTO quiz_questions (id, quiz_id, position, source_id, topic, text, options, correct_index, weight)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				qq.ID,
				q.ID,
				qq.Position,
				qq.SourceID,
				qq.Topic,
				qq.Text,
				qq.Options[:],
				qq.CorrectIndex,
				qq.Weight,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	q, err := scanQuiz(s.pool.QueryRow(ctx,
		`SELECT id, student_id, title, description, duration_minutes, start_time, end_time, created_at
		 FROM quizzes
		 WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quiz{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Quiz{}, fmt.Errorf("get quiz: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, position, source_id, topic, text, options, correct_index, weight
		 FROM quiz_questions
		 WHERE quiz_id = $1
		 ORDER BY position ASC`,
		id,
	)
	if err != nil {
		return Quiz{}, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return Quiz{}, err
		}
		q.Questions = append(q.Questions, qq)
	}
	if err := rows.Err(); err != nil {
		return Quiz{}, fmt.Errorf("iterate questions: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) Questions(ctx context.Context, ids []string) (map[string]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, position, source_id, topic, text, options, correct_index, weight
		 FROM quiz_questions
		 WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Question, len(ids))
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out[qq.ID] = qq
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// Delete removes the quiz. Questions and attempts go with it by cascade.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListByStudent returns the student's quizzes without questions, newest first.
func (s *PostgresStore) ListByStudent(ctx context.Context, studentID string) ([]Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, student_id, title, description, duration_minutes, start_time, end_time, created_at
		 FROM quizzes
		 WHERE student_id = $1
		 ORDER BY created_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	var out []Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quizzes: %w", err)
	}
	return out, nil
}

func scanQuiz(row pgx.Row) (Quiz, error) {
	var q Quiz
	err := row.Scan(
		&q.ID,
		&q.StudentID,
		&q.Title,
		&q.Description,
		&q.DurationMinutes,
		&q.StartTime,
		&q.EndTime,
		&q.CreatedAt,
	)
	return q, err
}

func scanQuestion(row pgx.Row) (Question, error) {
	var qq Question
	var options []string
	if err := row.Scan(
		&qq.ID,
		&qq.QuizID,
		&qq.Position,
		&qq.SourceID,
		&qq.Topic,
		&qq.Text,
		&options,
		&qq.CorrectIndex,
		&qq.Weight,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, err
		}
		return Question{}, fmt.Errorf("scan question: %w", err)
	}
	if len(options) != pool.OptionCount {
		return Question{}, fmt.Errorf("question %s has %d options", qq.ID, len(options))
	}
	copy(qq.Options[:], options)
	return qq, nil
}
