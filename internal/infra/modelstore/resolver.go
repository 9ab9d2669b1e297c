// Package modelstore turns model references into local artifact directories,
// downloading from an S3-compatible bucket when the artifact is not on disk.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanqian/transcript2minutes/internal/infra/runtime/ngram"
)

// ErrNotFound is returned when no local or remote artifact matches a reference.
var ErrNotFound = errors.New("model artifact not found")

// ObjectStore lists and downloads the files of a remote artifact.
type ObjectStore interface {
	// List returns file names relative to the artifact root.
	List(ctx context.Context, ref string) ([]string, error)
	Fetch(ctx context.Context, ref, name, dest string) error
}

// Resolver implements ngram.Resolver.
type Resolver struct {
	modelsDir string
	cacheDir  string
	store     ObjectStore
	logger    *slog.Logger
}

// NewResolver constructs a Resolver. store may be nil, in which case only
// local artifacts resolve.
func NewResolver(modelsDir, cacheDir string, store ObjectStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		modelsDir: modelsDir,
		cacheDir:  cacheDir,
		store:     store,
		logger:    logger.With("component", "modelstore.resolver"),
	}
}

// Resolve returns a directory that contains the artifact manifest.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if isArtifact(ref) {
		return ref, nil
	}
	if filepath.IsAbs(ref) || strings.Contains(ref, "..") {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	for _, root := range []string{r.modelsDir, r.cacheDir} {
		if root == "" {
			continue
		}
		if dir := filepath.Join(root, ref); isArtifact(dir) {
			return dir, nil
		}
	}
	if r.store == nil || r.cacheDir == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return r.download(ctx, ref)
}

func (r *Resolver) download(ctx context.Context, ref string) (string, error) {
	names, err := r.store.List(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("list remote artifact %s: %w", ref, err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.MkdirTemp(r.cacheDir, ".download-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	for _, name := range names {
		clean := filepath.Clean(filepath.FromSlash(name))
		if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
			return "", fmt.Errorf("remote artifact %s has unsafe entry %q", ref, name)
		}
		dest := filepath.Join(tmp, clean)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", fmt.Errorf("create staging dir: %w", err)
		}
		if err := r.store.Fetch(ctx, ref, name, dest); err != nil {
			return "", fmt.Errorf("fetch %s/%s: %w", ref, name, err)
		}
	}
	if !isArtifact(tmp) {
		return "", fmt.Errorf("%w: %s has no %s", ErrNotFound, ref, ngram.ManifestFile)
	}

	target := filepath.Join(r.cacheDir, ref)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		// Another process may have populated the cache first.
		if isArtifact(target) {
			return target, nil
		}
		return "", fmt.Errorf("install artifact %s: %w", ref, err)
	}
	r.logger.Info("downloaded model artifact", "ref", ref, "files", len(names), "dir", target)
	return target, nil
}

func isArtifact(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ngram.ManifestFile))
	return err == nil && !info.IsDir()
}

var _ ngram.Resolver = (*Resolver)(nil)
