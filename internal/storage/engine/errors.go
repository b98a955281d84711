package engine

import "errors"

var (
	// ErrEmptyKey is returned when a caller passes an empty or
	// whitespace-only key.
	ErrEmptyKey = errors.New("key must not be empty or whitespace-only")

	// ErrClosed is returned by any operation after Close.
	ErrClosed = errors.New("engine is closed")
)
