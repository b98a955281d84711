package segment

import "errors"

var (
	// ErrUnsortedEntries is returned when an append would break the
	// ascending key order of a segment file.
	ErrUnsortedEntries = errors.New("unsorted entries")

	// ErrCorruptSegment is returned when a segment line does not parse
	// as a single-entry dictionary.
	ErrCorruptSegment = errors.New("corrupt segment line")
)
