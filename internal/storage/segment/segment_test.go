package segment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		want Timestamp
	}{
		{"1700000000.000000042.txt", Timestamp{Sec: 1700000000, Frac: 42}},
		{"12.34.txt", Timestamp{Sec: 12, Frac: 34}},
		{"0.0.txt", Timestamp{}},
		{"notasegment.txt", Timestamp{}},
		{"bloom.filter", Timestamp{}},
		{"12.34.txt.bak", Timestamp{}},
	}
	for _, tt := range tests {
		if got := ParseTimestamp(tt.name); got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTimestampOrdering(t *testing.T) {
	a := Timestamp{Sec: 100, Frac: 5}
	b := Timestamp{Sec: 100, Frac: 6}
	c := Timestamp{Sec: 101, Frac: 0}

	if !a.Less(b) || !b.Less(c) || !a.Less(c) {
		t.Error("timestamp ordering broken")
	}
	if a.Less(a) {
		t.Error("timestamp should not be less than itself")
	}
	if a.Compare(a) != 0 {
		t.Error("Compare of equal timestamps should be 0")
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	ts := Timestamp{Sec: 1700000000, Frac: 123}
	name := FileName(ts)
	if !IsSegmentFileName(name) {
		t.Fatalf("FileName output %q does not match the segment pattern", name)
	}
	if got := ParseTimestamp(name); got != ts {
		t.Errorf("round trip: got %v, want %v", got, ts)
	}
}

func TestSegmentAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "100.000000001.txt")
	seg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	if seg.Timestamp() != (Timestamp{Sec: 100, Frac: 1}) {
		t.Errorf("unexpected timestamp %v", seg.Timestamp())
	}

	entries := []Entry{
		{Key: "apple", Value: "1"},
		{Key: "banana", Value: "2"},
		{Key: "cherry", Value: "3"},
	}
	for _, e := range entries {
		if err := seg.AddEntry(e); err != nil {
			t.Fatalf("AddEntry(%v): %v", e, err)
		}
	}

	if err := seg.Seek(0); err != nil {
		t.Fatal(err)
	}
	for i, want := range entries {
		got, err := seg.ReadEntry()
		if err != nil {
			t.Fatalf("ReadEntry %d: %v", i, err)
		}
		if got == nil {
			t.Fatalf("ReadEntry %d: unexpected EOF", i)
		}
		if *got != want {
			t.Errorf("entry %d: got %v, want %v", i, *got, want)
		}
	}

	if !seg.EOF() {
		t.Error("expected EOF after reading every entry")
	}
	if e, err := seg.ReadEntry(); err != nil || e != nil {
		t.Errorf("ReadEntry at EOF: got (%v, %v), want (nil, nil)", e, err)
	}
}

func TestSegmentUnsortedAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "100.000000001.txt")
	seg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	if err := seg.AddEntry(Entry{Key: "banana", Value: "1"}); err != nil {
		t.Fatal(err)
	}
	err = seg.AddEntry(Entry{Key: "apple", Value: "2"})
	if !errors.Is(err, ErrUnsortedEntries) {
		t.Errorf("expected ErrUnsortedEntries, got %v", err)
	}

	// equal keys are allowed by the append precondition
	if err := seg.AddEntry(Entry{Key: "banana", Value: "3"}); err != nil {
		t.Errorf("append of equal key: %v", err)
	}
}

func TestSegmentSeekAndPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "100.000000001.txt")
	seg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	var offsets []int64
	for _, e := range []Entry{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		offsets = append(offsets, seg.Size())
		if err := seg.AddEntry(e); err != nil {
			t.Fatal(err)
		}
	}

	if err := seg.Seek(offsets[1]); err != nil {
		t.Fatal(err)
	}
	if seg.Position() != offsets[1] {
		t.Errorf("Position() = %d, want %d", seg.Position(), offsets[1])
	}
	got, err := seg.ReadEntry()
	if err != nil || got == nil {
		t.Fatalf("ReadEntry after seek: (%v, %v)", got, err)
	}
	if got.Key != "b" {
		t.Errorf("expected key b at offset %d, got %s", offsets[1], got.Key)
	}

	// rewinding works too
	if err := seg.Seek(0); err != nil {
		t.Fatal(err)
	}
	got, err = seg.ReadEntry()
	if err != nil || got == nil || got.Key != "a" {
		t.Errorf("ReadEntry after rewind: (%v, %v)", got, err)
	}
}

func TestSegmentEncodingRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "100.000000001.txt")
	seg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	entries := []Entry{
		{Key: "a key with \"quotes\"", Value: "he said \"hi\""},
		{Key: "héllo/世界", Value: "värde→ок"},
		{Key: "newline", Value: "line1\nline2\ttabbed"},
	}
	for _, e := range entries {
		if err := seg.AddEntry(e); err != nil {
			t.Fatalf("AddEntry(%v): %v", e, err)
		}
	}

	if err := seg.Seek(0); err != nil {
		t.Fatal(err)
	}
	for i, want := range entries {
		got, err := seg.ReadEntry()
		if err != nil || got == nil {
			t.Fatalf("ReadEntry %d: (%v, %v)", i, got, err)
		}
		if *got != want {
			t.Errorf("entry %d: got %+v, want %+v", i, *got, want)
		}
	}
}

func TestSegmentReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "100.000000001.txt")
	seg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := seg.AddEntry(Entry{Key: "k", Value: "v"}); err != nil {
		t.Fatal(err)
	}
	if err := seg.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.ReadEntry()
	if err != nil || got == nil {
		t.Fatalf("ReadEntry after reopen: (%v, %v)", got, err)
	}
	if got.Key != "k" || got.Value != "v" {
		t.Errorf("unexpected entry %+v", *got)
	}
	if !reopened.EOF() {
		t.Error("expected EOF after single entry")
	}
}

func TestSegmentEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "100.000000001.txt")
	seg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	if !seg.EOF() {
		t.Error("empty segment should be at EOF")
	}
	if e, err := seg.ReadEntry(); err != nil || e != nil {
		t.Errorf("ReadEntry on empty segment: (%v, %v)", e, err)
	}
}

func TestSegmentCorruptLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "100.000000001.txt")
	content := "{\"good\":\"1\"}\nnot json at all\n{\"zed\":\"2\"}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	seg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer seg.Close()

	got, err := seg.ReadEntry()
	if err != nil || got == nil || got.Key != "good" {
		t.Fatalf("first line: (%v, %v)", got, err)
	}

	// the bad line reports ErrCorruptSegment but the cursor advances
	_, err = seg.ReadEntry()
	if !errors.Is(err, ErrCorruptSegment) {
		t.Fatalf("expected ErrCorruptSegment, got %v", err)
	}

	got, err = seg.ReadEntry()
	if err != nil || got == nil || got.Key != "zed" {
		t.Fatalf("line after corrupt one: (%v, %v)", got, err)
	}
}

func TestTombstoneIsStable(t *testing.T) {
	// the sentinel is derived, not random: two processes must agree
	want := uuid.NewSHA1(uuid.NameSpaceDNS, []byte("tombstone.lsmkv")).String()
	if Tombstone != want {
		t.Errorf("tombstone = %q, want derived %q", Tombstone, want)
	}
	if len(Tombstone) != 36 {
		t.Errorf("tombstone is not a uuid: %q", Tombstone)
	}
	if !IsTombstone(Tombstone) {
		t.Error("IsTombstone(Tombstone) = false")
	}
	if IsTombstone("ordinary value") {
		t.Error("ordinary value misread as tombstone")
	}
}
