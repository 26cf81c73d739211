// Package storage contains the local category file store.
// Files live under <root>/uploads/<category>/<filename>; incoming uploads are
// first streamed into <root>/uploads/_temp because the category is only known
// once the whole form has been parsed.
package storage

import (
	"errors"
	"fmt"
	"io"

	"docvault/internal/model"
)

// ErrTooLarge is returned by Stage when the body exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ErrOutsideRoot is returned when a relative path resolves outside the store root.
var ErrOutsideRoot = errors.New("path escapes storage root")

// MoveError reports a failed rename between two locations.
type MoveError struct {
	From string
	To   string
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// FileStore manages physical placement of documents by category.
type FileStore interface {
	// EnsureCategoryDir creates the directory for a category if needed and returns it.
	EnsureCategoryDir(category model.Category) (string, error)
	// GenerateFilename derives a timestamped, sanitised on-disk name from the user's filename.
	GenerateFilename(originalName string) string
	// RelativePath is the path stored on the record for (category, filename).
	RelativePath(category model.Category, filename string) string

	// Stage streams r into the staging area under filename, reading at most limit bytes.
	Stage(r io.Reader, filename string, limit int64) (stagedPath string, n int64, err error)
	// DetectContentType sniffs the MIME type of a staged file.
	DetectContentType(stagedPath string) (string, error)
	// Discard removes a staged file; a missing file is not an error.
	Discard(stagedPath string) error
	// Place renames a staged file into its category directory and returns the relative path.
	// On failure the staged file is left where it was.
	Place(stagedPath string, category model.Category, filename string) (string, error)

	// Move relocates a file between category directories.
	// It returns false with a nil error when the source file does not exist.
	Move(oldCategory, newCategory model.Category, filename string) (bool, error)
	// Delete removes a file. It returns false with a nil error when the file is already absent.
	Delete(relativePath string) (bool, error)
	// Exists reports whether a regular file exists at relativePath.
	Exists(relativePath string) bool
	// Size returns the file size in bytes, or 0 on any failure.
	Size(relativePath string) int64
	// Open returns the file content and its size.
	Open(relativePath string) (io.ReadCloser, int64, error)
	// List returns the filenames present in each category directory.
	List() (map[model.Category][]string, error)
}
