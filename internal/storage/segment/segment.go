package segment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Segment is one key-sorted on-disk file. Appends are buffered and go
// to the end of the file; reads run a private cursor that can be
// repositioned with Seek. A Segment is not safe for concurrent use:
// callers that share one file between goroutines open one handle per
// operation.
type Segment struct {
	path string
	ts   Timestamp
	file *os.File
	w    *bufio.Writer

	size    int64 // append offset, equals file length once flushed
	readPos int64
	r       *bufio.Reader // lazily built over [readPos, size)

	lastKey string
	hasLast bool
}

// Open opens (or creates) a segment file for append and read. The
// creation timestamp is taken from the file name; a name without the
// numeric suffix yields timestamp 0.
func Open(path string) (*Segment, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open segment: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat segment: %w", err)
	}
	return &Segment{
		path: path,
		ts:   ParseTimestamp(filepath.Base(path)),
		file: file,
		w:    bufio.NewWriter(&appendWriter{file: file, off: info.Size()}),
		size: info.Size(),
	}, nil
}

// appendWriter writes at an explicit offset so that reads through
// SectionReader never race the file's own seek position.
type appendWriter struct {
	file *os.File
	off  int64
}

func (a *appendWriter) Write(p []byte) (int, error) {
	n, err := a.file.WriteAt(p, a.off)
	a.off += int64(n)
	return n, err
}

func (s *Segment) Path() string         { return s.path }
func (s *Segment) Timestamp() Timestamp { return s.ts }

// Size returns the append offset: the byte length of the segment once
// buffered writes are flushed.
func (s *Segment) Size() int64 { return s.size }

// AddEntry appends one entry. Keys must arrive in non-decreasing
// ordinal order; a violation reports ErrUnsortedEntries and the
// segment must not be written further.
func (s *Segment) AddEntry(e Entry) error {
	if s.hasLast && e.Key < s.lastKey {
		return fmt.Errorf("%w: key %q after %q", ErrUnsortedEntries, e.Key, s.lastKey)
	}
	line, err := marshalEntry(e)
	if err != nil {
		return err
	}
	n, err := s.w.Write(line)
	s.size += int64(n)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	s.lastKey = e.Key
	s.hasLast = true
	s.r = nil // cursor snapshot is stale once new bytes exist
	return nil
}

// ReadEntry reads the next entry at the cursor. It returns (nil, nil)
// at end of file. On a line that fails to parse, the cursor still
// advances past the bad line and the error wraps ErrCorruptSegment,
// so callers may skip and continue.
func (s *Segment) ReadEntry() (*Entry, error) {
	if err := s.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush before read: %w", err)
	}
	if s.readPos >= s.size {
		return nil, nil
	}
	if s.r == nil {
		s.r = bufio.NewReader(io.NewSectionReader(s.file, s.readPos, s.size-s.readPos))
	}
	line, err := s.r.ReadBytes('\n')
	if len(line) == 0 {
		if err == io.EOF || err == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("read entry: %w", err)
	}
	s.readPos += int64(len(line))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	e, err := parseEntry(line)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Seek repositions the read cursor to a byte offset.
func (s *Segment) Seek(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("seek segment: negative offset %d", offset)
	}
	s.readPos = offset
	s.r = nil
	return nil
}

// Position returns the read cursor's byte offset.
func (s *Segment) Position() int64 { return s.readPos }

// EOF reports whether the read cursor has consumed every byte.
func (s *Segment) EOF() bool {
	return s.readPos >= s.size
}

// Sync flushes buffered appends and forces them to stable storage.
func (s *Segment) Sync() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush segment: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync segment: %w", err)
	}
	return nil
}

// Close flushes buffered appends and releases the file handle.
func (s *Segment) Close() error {
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush segment: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close segment: %w", closeErr)
	}
	return nil
}

// Remove closes the segment and deletes its file.
func (s *Segment) Remove() error {
	_ = s.Close()
	if err := os.Remove(s.path); err != nil {
		return fmt.Errorf("remove segment: %w", err)
	}
	return nil
}
