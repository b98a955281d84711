package segment

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Entry is one key-value record of a segment file.
type Entry struct {
	Key   string
	Value string
}

// Tombstone is the process-wide sentinel value meaning "deleted".
// It is a v5 UUID derived from a fixed namespace and label, so every
// engine that opens the same data directory computes the same value.
var Tombstone = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("tombstone.lsmkv")).String()

// IsTombstone reports whether v is the deletion sentinel.
func IsTombstone(v string) bool {
	return v == Tombstone
}

// marshalEntry encodes an entry as a single-line JSON dictionary with
// exactly one key, terminated by a newline. JSON escaping keeps
// embedded quotes, non-ASCII and control characters on one line.
func marshalEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{e.Key: e.Value}); err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	return buf.Bytes(), nil
}

// parseEntry decodes one line back into an entry. A line that is not
// a one-key JSON dictionary reports ErrCorruptSegment.
func parseEntry(line []byte) (Entry, error) {
	var record map[string]string
	if err := json.Unmarshal(line, &record); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorruptSegment, err)
	}
	if len(record) != 1 {
		return Entry{}, fmt.Errorf("%w: line holds %d keys, want 1", ErrCorruptSegment, len(record))
	}
	for k, v := range record {
		return Entry{Key: k, Value: v}, nil
	}
	return Entry{}, ErrCorruptSegment
}
