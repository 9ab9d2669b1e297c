package modelstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// builtinFS ships the base model so the loader fallback works on a fresh or
// offline host.
//
//go:embed builtin
var builtinFS embed.FS

// FSStore serves artifacts from a filesystem laid out as <ref>/<files>.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore constructs an FSStore over fsys.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// Builtin returns the store holding the artifacts compiled into the binary.
func Builtin() *FSStore {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("modelstore: builtin artifacts: %v", err))
	}
	return NewFSStore(sub)
}

// List implements ObjectStore. An unknown ref yields no entries.
func (s *FSStore) List(_ context.Context, ref string) ([]string, error) {
	if !fs.ValidPath(ref) {
		return nil, nil
	}
	if info, err := fs.Stat(s.fsys, ref); err != nil || !info.IsDir() {
		return nil, nil
	}
	var names []string
	err := fs.WalkDir(s.fsys, ref, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, strings.TrimPrefix(p, ref+"/"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Fetch implements ObjectStore.
func (s *FSStore) Fetch(_ context.Context, ref, name, dest string) error {
	data, err := fs.ReadFile(s.fsys, path.Join(ref, name))
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// MultiStore consults stores in order. The first store that lists a ref
// serves it.
type MultiStore struct {
	stores []ObjectStore
}

// NewMultiStore constructs a MultiStore, skipping nil stores.
func NewMultiStore(stores ...ObjectStore) *MultiStore {
	m := &MultiStore{}
	for _, s := range stores {
		if s != nil {
			m.stores = append(m.stores, s)
		}
	}
	return m
}

// List implements ObjectStore. A failing store is skipped when a later one
// has the artifact.
func (m *MultiStore) List(ctx context.Context, ref string) ([]string, error) {
	var errs []error
	for _, s := range m.stores {
		names, err := s.List(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(names) > 0 {
			return names, nil
		}
	}
	return nil, errors.Join(errs...)
}

// Fetch implements ObjectStore.
func (m *MultiStore) Fetch(ctx context.Context, ref, name, dest string) error {
	var errs []error
	for _, s := range m.stores {
		err := s.Fetch(ctx, ref, name, dest)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, ref, name)
	}
	return errors.Join(errs...)
}

var (
	_ ObjectStore = (*FSStore)(nil)
	_ ObjectStore = (*MultiStore)(nil)
)
