package repository

import "fmt"

// Operation names carried by StorageError.
const (
	OpInsert        = "insert"
	OpCountDistinct = "count_distinct_visitors"
)

// StorageError reports any failure writing or querying the visitor table.
// Callers must not assume a partial write happened.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err for op. A nil err stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
