package mastery

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed mastery store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) List(ctx context.Context, studentID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT student_id, topic, score, level, updated_at
		 FROM mastery
		 WHERE student_id = $1
		 ORDER BY topic ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var level string
		if err := rows.Scan(&r.StudentID, &r.Topic, &r.Score, &level, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		if r.Level, err = ParseLevel(level); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO mastery (student_id, topic, score, level, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (student_id, topic) DO UPDATE
		 SET score = EXCLUDED.score,
		     level = EXCLUDED.level,
		     updated_at = EXCLUDED.updated_at`,
		rec.StudentID,
		rec.Topic,
		rec.Score,
		string(rec.Level),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("save mastery: %w", err)
	}
	return nil
}
