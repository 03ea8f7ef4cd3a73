package lyrics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const fileExt = ".txt"

// FileStore keeps one UTF-8 text file per song in a flat directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("lyrics directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lyrics directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Put replaces the lyrics stored for songName.
func (s *FileStore) Put(ctx context.Context, songName, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := Key(songName)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.path(key), []byte(text)); err != nil {
		return fmt.Errorf("write lyrics %q: %w", key, err)
	}
	return nil
}

// Get returns the lyrics stored for songName or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, songName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key, err := Key(songName)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read lyrics %q: %w", key, err)
	}
	return string(data), nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// writeFileAtomic writes into a temp file in the target directory and renames
// it over the target, so readers never observe a partial write.
func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
