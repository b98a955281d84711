package sparseindex

import (
	"fmt"
	"testing"
)

func TestObserveSamplesEveryNth(t *testing.T) {
	ix := New(3)

	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	var sampled []string
	for i, k := range keys {
		if ix.Observe(k, 0, int64(i*10)) {
			sampled = append(sampled, k)
		}
	}

	// counter starts at the first entry: a, d, g
	want := []string{"a", "d", "g"}
	if len(sampled) != len(want) {
		t.Fatalf("sampled %v, want %v", sampled, want)
	}
	for i := range want {
		if sampled[i] != want[i] {
			t.Errorf("sampled %v, want %v", sampled, want)
			break
		}
	}
	if ix.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ix.Len())
	}
	if ix.Entries() != 7 {
		t.Errorf("Entries() = %d, want 7", ix.Entries())
	}
}

func TestCounterIsGlobalAcrossSegments(t *testing.T) {
	ix := New(4)

	// 3 entries in segment 0, 3 in segment 1: the fifth entry overall
	// is the second sample even though it is early in segment 1
	for i := 0; i < 3; i++ {
		ix.Observe(fmt.Sprintf("k%d", i), 0, int64(i*10))
	}
	var second []string
	for i := 3; i < 6; i++ {
		if ix.Observe(fmt.Sprintf("k%d", i), 1, int64((i-3)*10)) {
			second = append(second, fmt.Sprintf("k%d", i))
		}
	}

	if len(second) != 1 || second[0] != "k4" {
		t.Errorf("sampled %v in second segment, want [k4]", second)
	}
}

func TestFloor(t *testing.T) {
	ix := New(1)
	ix.Observe("banana", 0, 0)
	ix.Observe("grape", 0, 20)
	ix.Observe("peach", 0, 40)

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"banana", "banana", true},
		{"cherry", "banana", true},
		{"grape", "grape", true},
		{"mango", "grape", true},
		{"zebra", "peach", true},
		{"apple", "", false},
	}
	for _, tt := range tests {
		got, ok := ix.Floor(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Floor(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestLocatorsNewestFirst(t *testing.T) {
	ix := New(1)
	ix.Observe("k", 0, 100)
	ix.Observe("k", 1, 300)
	ix.Observe("k", 2, 200)

	locs := ix.Locators("k")
	if len(locs) != 3 {
		t.Fatalf("expected 3 locators, got %d", len(locs))
	}
	wantOffsets := []int64{300, 200, 100}
	for i, loc := range locs {
		if loc.Offset != wantOffsets[i] {
			t.Errorf("locator %d offset = %d, want %d", i, loc.Offset, wantOffsets[i])
		}
	}

	// equal offsets fall back to the newer segment position
	ix2 := New(1)
	ix2.Observe("k", 0, 50)
	ix2.Observe("k", 3, 50)
	locs = ix2.Locators("k")
	if locs[0].SegmentID != 3 {
		t.Errorf("equal offsets: first locator segment = %d, want 3", locs[0].SegmentID)
	}

	if got := ix.Locators("missing"); len(got) != 0 {
		t.Errorf("Locators(missing) = %v, want empty", got)
	}
}

func TestFloorOnEmptyIndex(t *testing.T) {
	ix := New(300)
	if _, ok := ix.Floor("anything"); ok {
		t.Error("empty index should have no floor")
	}
}
