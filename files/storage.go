package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoredFile describes an upload written to the flat upload directory.
type StoredFile struct {
	Name string // on-disk name
	Path string // full path on disk
	URL  string // public address under /uploads
}

// LocalStorage writes uploads into one flat directory served at /uploads.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Save copies r to a new file named "<unix-ms>-<short-id>-<original name>".
func (s *LocalStorage) Save(r io.Reader, originalName string) (StoredFile, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create upload dir: %w", err)
	}
	base := unsafeName.ReplaceAllString(filepath.Base(originalName), "_")
	if base == "" || base == "." {
		base = "upload"
	}
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], base)
	dst := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return StoredFile{}, fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return StoredFile{}, err
	}
	return StoredFile{Name: name, Path: dst, URL: s.BaseURL + "/uploads/" + name}, nil
}

// Path returns the on-disk location for a stored name.
func (s *LocalStorage) Path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name))
}

// Remove deletes a stored file; a missing file is not an error.
func (s *LocalStorage) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
