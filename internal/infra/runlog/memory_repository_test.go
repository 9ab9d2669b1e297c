package runlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/transcript2minutes/internal/domain/inference"
)

func TestMemoryRepositoryRecentNewestFirst(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository(2)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Append(ctx, inference.RunRecord{ID: id}))
	}

	recent, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, ids(recent))

	recent, err = repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, ids(recent))
}

func ids(recs []inference.RunRecord) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.ID)
	}
	return out
}
