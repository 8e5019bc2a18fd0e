package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps images as <dir>/<image_id>.jpg, one directory per kind.
type DiskStore struct {
	dirs map[Kind]string
}

func NewDiskStore(inputDir, outputDir string) (*DiskStore, error) {
	s := &DiskStore{dirs: map[Kind]string{KindInput: inputDir, KindOutput: outputDir}}
	for _, dir := range s.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create image dir %s: %w", dir, err)
		}
	}
	return s, nil
}

// Path returns the file an image is stored in.
func (s *DiskStore) Path(kind Kind, imageID string) (string, error) {
	dir, ok := s.dirs[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if err := validID(imageID); err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName(imageID)), nil
}

func (s *DiskStore) Save(ctx context.Context, kind Kind, imageID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(kind, imageID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

func (s *DiskStore) Open(ctx context.Context, kind Kind, imageID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(kind, imageID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, kind Kind, imageID string) error {
	path, err := s.Path(kind, imageID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
