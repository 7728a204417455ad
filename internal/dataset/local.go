package dataset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSource reads a dataset from a local directory.
type DirSource struct {
	dir string
}

// NewDirSource opens a local dataset directory.
func NewDirSource(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: dir, Err: fs.ErrInvalid}
	}
	return &DirSource{dir: dir}, nil
}

// List returns every file under the directory, relative and slash-separated.
func (s *DirSource) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *DirSource) Read(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(name)))
}

// DirSink writes dataset files into a local directory, creating it as
// needed.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

func (s *DirSink) Write(_ context.Context, name string, data []byte) error {
	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
