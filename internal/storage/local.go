package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"docvault/internal/config"
	"docvault/internal/model"
)

const (
	uploadsDir = "uploads"
	stagingDir = "_temp"
)

var (
	unsafeChars    = regexp.MustCompile(`[^a-z0-9.]`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// localStore implements FileStore on the local filesystem.
// Individual calls are safe for concurrent use; sequences of calls on the same
// file are not coordinated.
type localStore struct {
	root string
	now  func() time.Time
}

// Option customises a local store.
type Option func(*localStore)

// WithClock overrides the time source used for generated filenames.
func WithClock(now func() time.Time) Option {
	return func(s *localStore) { s.now = now }
}

// NewLocal creates a category file store rooted at cfg.Root.
// It creates the uploads and staging directories if they do not exist.
func NewLocal(cfg config.StorageConfig, opts ...Option) (FileStore, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	s := &localStore{root: root, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(s.stagingPath(), 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return s, nil
}

func (s *localStore) stagingPath() string {
	return filepath.Join(s.root, uploadsDir, stagingDir)
}

func (s *localStore) categoryPath(category model.Category) string {
	return filepath.Join(s.root, uploadsDir, string(category))
}

// resolve maps a stored relative path to an absolute one under the root.
func (s *localStore) resolve(relativePath string) (string, error) {
	p := filepath.FromSlash(relativePath)
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, relativePath)
	}
	return filepath.Join(s.root, p), nil
}

func (s *localStore) EnsureCategoryDir(category model.Category) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("invalid category %q", category)
	}
	dir := s.categoryPath(category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create category directory: %w", err)
	}
	return dir, nil
}

func (s *localStore) GenerateFilename(originalName string) string {
	sanitized := unsafeChars.ReplaceAllString(strings.ToLower(originalName), "_")
	sanitized = underscoreRuns.ReplaceAllString(sanitized, "_")
	return strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + sanitized
}

func (s *localStore) RelativePath(category model.Category, filename string) string {
	return path.Join(uploadsDir, string(category), filename)
}

func (s *localStore) Stage(r io.Reader, filename string, limit int64) (string, int64, error) {
	if r == nil {
		return "", 0, fmt.Errorf("stage %s: reader is nil", filename)
	}
	if filename == "" || filepath.Base(filename) != filename {
		return "", 0, fmt.Errorf("stage: invalid filename %q", filename)
	}

	dst := filepath.Join(s.stagingPath(), filename)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create staged file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", 0, fmt.Errorf("write staged file: %w", err)
	}
	if n > limit {
		_ = os.Remove(dst)
		return "", 0, ErrTooLarge
	}
	return dst, n, nil
}

func (s *localStore) DetectContentType(stagedPath string) (string, error) {
	m, err := mimetype.DetectFile(stagedPath)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	ct, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(ct), nil
}

func (s *localStore) Discard(stagedPath string) error {
	if err := os.Remove(stagedPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard staged file: %w", err)
	}
	return nil
}

func (s *localStore) Place(stagedPath string, category model.Category, filename string) (string, error) {
	dir, err := s.EnsureCategoryDir(category)
	if err != nil {
		return "", &MoveError{From: stagedPath, To: s.categoryPath(category), Err: err}
	}
	dst := filepath.Join(dir, filename)
	if err := renameNoReplace(stagedPath, dst); err != nil {
		return "", &MoveError{From: stagedPath, To: dst, Err: err}
	}
	return s.RelativePath(category, filename), nil
}

func (s *localStore) Move(oldCategory, newCategory model.Category, filename string) (bool, error) {
	src, err := s.resolve(s.RelativePath(oldCategory, filename))
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat source: %w", err)
	}

	dir, err := s.EnsureCategoryDir(newCategory)
	if err != nil {
		return false, &MoveError{From: src, To: s.categoryPath(newCategory), Err: err}
	}
	dst := filepath.Join(dir, filename)
	if err := renameNoReplace(src, dst); err != nil {
		return false, &MoveError{From: src, To: dst, Err: err}
	}
	return true, nil
}

// renameNoReplace moves src to dst and fails with fs.ErrExist instead of
// overwriting, so one stored file never ends up behind two records.
// A hard link claims dst atomically; filesystems without links fall back
// to a stat check before the rename.
func renameNoReplace(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
		if rmErr := os.Remove(src); rmErr != nil {
			_ = os.Remove(dst)
			return rmErr
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%s: %w", dst, fs.ErrExist)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

func (s *localStore) Delete(relativePath string) (bool, error) {
	p, err := s.resolve(relativePath)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete file: %w", err)
	}
	return true, nil
}

func (s *localStore) Exists(relativePath string) bool {
	p, err := s.resolve(relativePath)
	if err != nil {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

func (s *localStore) Size(relativePath string) int64 {
	p, err := s.resolve(relativePath)
	if err != nil {
		return 0
	}
	st, err := os.Stat(p)
	if err != nil {
		return 0
	}
	return st.Size()
}

func (s *localStore) Open(relativePath string) (io.ReadCloser, int64, error) {
	p, err := s.resolve(relativePath)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (s *localStore) List() (map[model.Category][]string, error) {
	out := make(map[model.Category][]string)
	for _, c := range model.Categories() {
		entries, err := os.ReadDir(s.categoryPath(c))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", c, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				out[c] = append(out[c], e.Name())
			}
		}
	}
	return out, nil
}
