package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileBackend stores one JSON file per key under a directory, bounded by a
// total byte quota. Writes go to a temp file first and are renamed into
// place, so a failed write never leaves a partially written key behind.
type FileBackend struct {
	dir   string
	quota int64
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string, quotaBytes int64) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "store: create directory")
	}
	return &FileBackend{dir: dir, quota: quotaBytes}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Put writes data under key, enforcing the quota over the whole directory.
func (f *FileBackend) Put(key string, data []byte) error {
	if f.quota > 0 {
		used, err := f.usedExcept(key)
		if err != nil {
			return errors.Wrap(err, "store: measure usage")
		}
		if used+int64(len(data)) > f.quota {
			return ErrQuotaExceeded
		}
	}

	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		if isNoSpace(err) {
			return ErrQuotaExceeded
		}
		return err
	}
	return os.Rename(tmp, f.path(key))
}

// Get returns the stored bytes, or nil when the key is absent.
func (f *FileBackend) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// Delete removes the key. Missing keys are not an error.
func (f *FileBackend) Delete(key string) error {
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// usedExcept sums the size of every stored key other than the one about to
// be rewritten.
func (f *FileBackend) usedExcept(key string) (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, err
	}
	var used int64
	skip := key + ".json"
	for _, e := range entries {
		if e.IsDir() || e.Name() == skip || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		used += info.Size()
	}
	return used, nil
}

func isNoSpace(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no space left")
}
