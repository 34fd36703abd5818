package store

import (
	"context"
	"errors"
)

// Extension is the only spreadsheet format the store accepts.
const Extension = ".xlsx"

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
)

// Store is a key-value file store keyed by file name. Uploaded workbooks
// live here and are re-read on every aggregation run.
type Store interface {
	// List returns the names of stored .xlsx files, sorted ascending.
	List(ctx context.Context) ([]string, error)

	// Read returns the bytes of a stored file.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write stores a file, overwriting any existing file with that name.
	Write(ctx context.Context, name string, data []byte) error

	// Delete removes a stored file.
	Delete(ctx context.Context, name string) error
}
