package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document id does not exist, or when its file
// is missing on disk at download time.
var ErrNotFound = errors.New("document not found")

// FileOperationError is a filesystem failure during an orchestrated operation.
type FileOperationError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileOperationError) Error() string {
	return fmt.Sprintf("file %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileOperationError) Unwrap() error { return e.Err }

// PersistenceError is a database failure during an orchestrated operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
