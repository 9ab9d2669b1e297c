// Package runlog persists one record per successful summarization.
package runlog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
)

const schema = `
	CREATE TABLE IF NOT EXISTS summary_runs (
		id           UUID PRIMARY KEY,
		model_id     TEXT        NOT NULL,
		input_words  INTEGER     NOT NULL,
		output_words INTEGER     NOT NULL,
		duration_ms  BIGINT      NOT NULL,
		cached       BOOLEAN     NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL
	)
`

// PostgresRepository implements inference.RunRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the runs table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Append inserts a run record.
func (r *PostgresRepository) Append(ctx context.Context, rec inference.RunRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO summary_runs (id, model_id, input_words, output_words, duration_ms, cached, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.ModelID, rec.InputWords, rec.OutputWords, rec.DurationMs, rec.Cached, rec.CreatedAt)
	return err
}

// Recent returns the newest records first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]inference.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, model_id, input_words, output_words, duration_ms, cached, created_at
		FROM summary_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inference.RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(row rowScanner) (inference.RunRecord, error) {
	var rec inference.RunRecord
	if err := row.Scan(&rec.ID, &rec.ModelID, &rec.InputWords, &rec.OutputWords, &rec.DurationMs, &rec.Cached, &rec.CreatedAt); err != nil {
		return inference.RunRecord{}, err
	}
	return rec, nil
}

var _ inference.RunRepository = (*PostgresRepository)(nil)
