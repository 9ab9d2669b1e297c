package modelstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/transcript2minutes/internal/domain/generation"
	"github.com/yanqian/transcript2minutes/internal/domain/model"
	"github.com/yanqian/transcript2minutes/internal/infra/runtime/ngram"
	"github.com/yanqian/transcript2minutes/internal/infra/tokenizer"
)

func TestFSStoreListAndFetch(t *testing.T) {
	t.Parallel()

	store := NewFSStore(fstest.MapFS{
		"m/manifest.yaml":     {Data: []byte("runtime: ngram\n")},
		"m/weights/base.json": {Data: []byte("{}")},
		"loose.txt":           {Data: []byte("x")},
	})

	names, err := store.List(context.Background(), "m")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"manifest.yaml", "weights/base.json"}, names)

	for _, ref := range []string{"missing", "loose.txt", "../m"} {
		names, err := store.List(context.Background(), ref)
		require.NoError(t, err, ref)
		require.Empty(t, names, ref)
	}

	dest := filepath.Join(t.TempDir(), "base.json")
	require.NoError(t, store.Fetch(context.Background(), "m", "weights/base.json", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))
}

func TestMultiStoreFallsThroughFailingStore(t *testing.T) {
	t.Parallel()

	remote := &fakeStore{listErr: errors.New("bucket unreachable")}
	store := NewMultiStore(remote, nil, Builtin())

	r := NewResolver("", t.TempDir(), store, newTestLogger())
	dir, err := r.Resolve(context.Background(), model.DefaultBaseModel)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, ngram.ManifestFile))
	require.FileExists(t, filepath.Join(dir, "weights.json"))

	_, err = NewMultiStore(remote).List(context.Background(), "x")
	require.ErrorContains(t, err, "bucket unreachable")
}

func TestBuiltinBaseModelServesLoaderFallback(t *testing.T) {
	t.Parallel()

	logger := newTestLogger()
	resolver := NewResolver(t.TempDir(), t.TempDir(), Builtin(), logger)
	opener := ngram.NewOpener(resolver, tokenizer.Factory, logger)
	loader := model.NewLoader(model.LoaderConfig{Device: "cpu"}, opener, logger)

	handle, err := loader.Load(context.Background(), "models/not-trained-yet")
	require.NoError(t, err)
	require.True(t, handle.Fallback)
	require.Equal(t, model.DefaultBaseModel, handle.ID)

	ids := handle.Tokenizer.Encode("Budget approved for the launch.")
	require.NotEmpty(t, ids)
	require.Equal(t, "Budget approved for the launch.", handle.Tokenizer.Decode(ids))

	engine, err := generation.NewEngine(handle, generation.Config{
		Params: generation.Params{
			MaxLength:         12,
			MinLength:         3,
			BeamCount:         2,
			LengthPenalty:     1.0,
			NoRepeatNgramSize: 3,
		},
	}, logger)
	require.NoError(t, err)

	first, err := engine.Summarize(context.Background(), "Alice: the budget is approved. Bob: launch next week.", engine.Defaults())
	require.NoError(t, err)
	require.NotEmpty(t, first)
	second, err := engine.Summarize(context.Background(), "Alice: the budget is approved. Bob: launch next week.", engine.Defaults())
	require.NoError(t, err)
	require.Equal(t, first, second)
}
