package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrStatusConflict means the row changed status between read and write. The caller
	// re-reads and re-validates.
	ErrStatusConflict = errors.New("status changed concurrently")
)
