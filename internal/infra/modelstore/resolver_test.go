package modelstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLocalDirectories(t *testing.T) {
	t.Parallel()

	models := t.TempDir()
	explicit := writeManifest(t, t.TempDir())
	named := writeManifest(t, filepath.Join(models, "team", "minutes-v2"))

	r := NewResolver(models, t.TempDir(), nil, newTestLogger())

	dir, err := r.Resolve(context.Background(), explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, dir)

	dir, err = r.Resolve(context.Background(), "team/minutes-v2")
	require.NoError(t, err)
	require.Equal(t, named, dir)
}

func TestResolveWithoutStoreIsNotFound(t *testing.T) {
	t.Parallel()

	r := NewResolver(t.TempDir(), t.TempDir(), nil, newTestLogger())
	for _, ref := range []string{"", "missing", "../escape"} {
		_, err := r.Resolve(context.Background(), ref)
		require.ErrorIs(t, err, ErrNotFound, ref)
	}
}

func TestResolveDownloadsAndCaches(t *testing.T) {
	t.Parallel()

	store := &fakeStore{files: map[string]map[string]string{
		"ngram-base": {
			"manifest.yaml":     "runtime: ngram\n",
			"weights/base.json": "{}",
		},
	}}
	cache := t.TempDir()
	r := NewResolver("", cache, store, newTestLogger())

	dir, err := r.Resolve(context.Background(), "ngram-base")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cache, "ngram-base"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "weights", "base.json"))
	require.NoError(t, err)
	require.Equal(t, "{}", string(data))

	_, err = r.Resolve(context.Background(), "ngram-base")
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls())
}

func TestResolveRemoteFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		store   *fakeStore
		wantErr error
		wantMsg string
	}{
		{name: "absent", store: &fakeStore{}, wantErr: ErrNotFound},
		{name: "no manifest", store: &fakeStore{files: map[string]map[string]string{"m": {"weights.json": "{}"}}}, wantErr: ErrNotFound},
		{name: "unsafe entry", store: &fakeStore{files: map[string]map[string]string{"m": {"../x": ""}}}, wantMsg: "unsafe entry"},
		{name: "list error", store: &fakeStore{listErr: errors.New("denied")}, wantMsg: "denied"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewResolver("", t.TempDir(), tt.store, newTestLogger())
			_, err := r.Resolve(context.Background(), "m")
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				require.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	t.Parallel()

	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint(" https://acct.r2.cloudflarestorage.com/bucket "))
	require.Equal(t, "localhost:9000", sanitizeEndpoint("http://localhost:9000"))
	require.Equal(t, "", sanitizeEndpoint(""))
}

func writeManifest(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte("runtime: ngram\n"), 0o644))
	return dir
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu      sync.Mutex
	files   map[string]map[string]string
	listErr error
	lists   int
}

func (f *fakeStore) List(_ context.Context, ref string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var names []string
	for name := range f.files[ref] {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeStore) Fetch(_ context.Context, ref, name, dest string) error {
	f.mu.Lock()
	body, ok := f.files[ref][name]
	f.mu.Unlock()
	if !ok {
		return errors.New("no such object")
	}
	return os.WriteFile(dest, []byte(body), 0o644)
}

func (f *fakeStore) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}
