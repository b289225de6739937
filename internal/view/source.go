package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/whisperbox/webapp/internal/storage"
)

// ErrTemplateNotFound is returned when a named template does not exist in
// the configured source.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateSource opens raw template files by name.
type TemplateSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FSSource reads templates from a file system: the embedded defaults or a
// directory on disk.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource constructs a source over fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Open opens the named template.
func (s *FSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("open template %s: %w", name, err)
	}
	return f, nil
}

// BucketSource reads templates from object storage under a key prefix.
type BucketSource struct {
	store  *storage.Storage
	prefix string
}

// NewBucketSource constructs a source reading prefix+name from store.
func NewBucketSource(store *storage.Storage, prefix string) *BucketSource {
	return &BucketSource{store: store, prefix: prefix}
}

// Open fetches the named template object.
func (s *BucketSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(s.prefix, name)
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("fetch template %s: %w", key, err)
	}
	return rc, nil
}

// Publish uploads every .html file in fsys to store under prefix and
// returns the number of objects written.
func Publish(ctx context.Context, store *storage.Storage, fsys fs.FS, prefix string) (int, error) {
	if err := store.EnsureBucket(ctx); err != nil {
		return 0, fmt.Errorf("ensure bucket %s: %w", store.Bucket(), err)
	}

	count := 0
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(name) != ".html" {
			return nil
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		key := path.Join(prefix, name)
		if err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "text/html; charset=utf-8"); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}
