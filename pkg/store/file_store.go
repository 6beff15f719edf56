package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore maps document keys onto files. Relative keys are resolved
// against Dir.
type FileStore struct {
	Dir  string
	Perm fs.FileMode
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir, Perm: 0o644}
}

func (s *FileStore) resolve(path string) string {
	if filepath.IsAbs(path) || s.Dir == "" {
		return Key(path)
	}
	return filepath.Join(s.Dir, path)
}

func (s *FileStore) Load(ctx context.Context, path string) ([]byte, Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, Meta{}, false, err
	}
	full := s.resolve(path)
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, err
	}
	meta := Meta{ETag: ETag(data)}
	if info, err := os.Stat(full); err == nil {
		meta.UpdatedAt = info.ModTime().UTC()
	}
	return data, meta, true, nil
}

// Save writes data to path, creating parent directories. A non-empty
// meta.ETag must match the file's current content.
func (s *FileStore) Save(ctx context.Context, path string, data []byte, meta Meta) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	full := s.resolve(path)
	if meta.ETag != "" {
		current, err := os.ReadFile(full)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Meta{}, err
		}
		if err == nil {
			if err := checkETag(meta.ETag, ETag(current)); err != nil {
				return Meta{ETag: ETag(current)}, err
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Meta{}, err
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(full, data, perm); err != nil {
		return Meta{}, err
	}
	saved := cloneMeta(meta)
	saved.ETag = ETag(data)
	if info, err := os.Stat(full); err == nil {
		saved.UpdatedAt = info.ModTime().UTC()
	}
	return saved, nil
}
