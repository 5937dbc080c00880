package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNotFound is returned when an index file does not exist.
	ErrNotFound = errors.New("index file not found")
	// ErrCorruptIndex is returned when an index file fails format or dimension validation.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrInvalidPosition is returned for a position outside 0..Size()-1.
	ErrInvalidPosition = errors.New("invalid position")
)

// DimensionMismatchError carries the expected and actual lengths of a rejected vector.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	// Index is the offending vector's offset within the batch, or -1 for a query.
	Index int
}

func (e *DimensionMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("query dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("vector %d dimension mismatch: expected %d, got %d", e.Index, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// CorruptIndexError describes why an index file was rejected.
type CorruptIndexError struct {
	Path   string
	Reason string
	cause  error
}

func (e *CorruptIndexError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("corrupt index %s: %s: %v", e.Path, e.Reason, e.cause)
	}
	return fmt.Sprintf("corrupt index %s: %s", e.Path, e.Reason)
}

// Is makes errors.Is(err, ErrCorruptIndex) match.
func (e *CorruptIndexError) Is(target error) bool { return target == ErrCorruptIndex }

func (e *CorruptIndexError) Unwrap() error { return e.cause }

func corrupt(path, reason string, cause error) error {
	return &CorruptIndexError{Path: path, Reason: reason, cause: cause}
}
