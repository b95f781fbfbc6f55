package types

import (
	"errors"
	"fmt"
)

// Argument validation errors.
var (
	ErrNoFiles           = errors.New("no files to search")
	ErrNoPatterns        = errors.New("no valid patterns to search for")
	ErrCountOnlyConflict = errors.New("-c cannot be used together with -n, -l, -sf or -sp")
)

// ArgumentError is returned when a request cannot be built from its inputs.
// It aborts the invocation before any search runs.
type ArgumentError struct {
	Err error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments: %v", e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// PatternError is returned when a single pattern fails to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// IOError is returned when a file or one of its chunks cannot be read.
// Chunk is -1 when the failure is not tied to a chunk.
type IOError struct {
	Path  string
	Chunk int
	Err   error
}

func (e *IOError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("read %s (chunk %d): %v", e.Path, e.Chunk, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CachePersistenceError is returned when the cache snapshot cannot be loaded or saved.
type CachePersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *CachePersistenceError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CachePersistenceError) Unwrap() error {
	return e.Err
}
