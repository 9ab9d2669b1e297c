package runlog

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *int64:
			*p = r.values[i].(int64)
		case *bool:
			*p = r.values[i].(bool)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unexpected destination type")
		}
	}
	return nil
}

func TestScanRunRecord(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	rec, err := scanRunRecord(fakeRow{values: []any{"run-1", "ngram-base", 120, 18, int64(340), true, created}})
	require.NoError(t, err)
	require.Equal(t, inference.RunRecord{
		ID:          "run-1",
		ModelID:     "ngram-base",
		InputWords:  120,
		OutputWords: 18,
		DurationMs:  340,
		Cached:      true,
		CreatedAt:   created,
	}, rec)

	_, err = scanRunRecord(fakeRow{err: errors.New("conn reset")})
	require.EqualError(t, err, "conn reset")
}

// TestPostgresRepositoryRoundTrip needs a database; set RUNLOG_TEST_DSN to run it.
func TestPostgresRepositoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("RUNLOG_TEST_DSN")
	if dsn == "" {
		t.Skip("RUNLOG_TEST_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	model := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM summary_runs WHERE model_id = $1`, model)
	})

	base := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, inference.RunRecord{
			ID:          uuid.NewString(),
			ModelID:     model,
			InputWords:  i + 1,
			OutputWords: 1,
			DurationMs:  int64(i),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, model, got[0].ModelID)
	require.Equal(t, 3, got[0].InputWords)
	require.Equal(t, 2, got[1].InputWords)
	require.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
}
