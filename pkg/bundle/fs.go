package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FSSource reads bundles from a filesystem.
type FSSource struct {
	fsys fs.FS
}

// NewFS creates a source over fsys, typically an embed.FS sub-tree.
func NewFS(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDir creates a source reading bundles from dir on disk.
func NewDir(dir string) (*FSSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("bundle dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle dir %q is not a directory", dir)
	}
	return NewFS(os.DirFS(dir)), nil
}

// Open implements Source.
func (s *FSSource) Open(ctx context.Context, object string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.fsys.Open(object)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, object)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
