package sparseindex

import "sort"

// Locator points at one sampled entry: the live-set position of its
// segment plus the byte offset of the entry inside that segment.
type Locator struct {
	SegmentID int
	Offset    int64
}

// Index maps sampled keys to locators. It is built by walking the
// segment set in filename order with one global entry counter; every
// stride-th entry is recorded. The index is rebuilt from scratch after
// a merge or a restore; a flush extends it with the new segment's
// samples, continuing the same counter.
type Index struct {
	stride   int
	count    int
	keys     []string
	locators map[string][]Locator
	sorted   bool
}

func New(stride int) *Index {
	if stride <= 0 {
		stride = 1
	}
	return &Index{
		stride:   stride,
		locators: make(map[string][]Locator),
		sorted:   true,
	}
}

// Observe advances the global entry counter and records a locator for
// every stride-th entry. It reports whether the entry was sampled.
func (ix *Index) Observe(key string, segmentID int, offset int64) bool {
	sampled := ix.count%ix.stride == 0
	ix.count++
	if !sampled {
		return false
	}
	if _, ok := ix.locators[key]; !ok {
		// insert in sorted position so that Floor, called by concurrent
		// readers, never has to sort
		i := sort.SearchStrings(ix.keys, key)
		ix.keys = append(ix.keys, "")
		copy(ix.keys[i+1:], ix.keys[i:])
		ix.keys[i] = key
	}
	ix.locators[key] = append(ix.locators[key], Locator{SegmentID: segmentID, Offset: offset})
	return true
}

// Floor returns the greatest sampled key <= key.
func (ix *Index) Floor(key string) (string, bool) {
	ix.ensureSorted()
	// first sampled key > key; the one before it is the floor
	i := sort.Search(len(ix.keys), func(i int) bool { return ix.keys[i] > key })
	if i == 0 {
		return "", false
	}
	return ix.keys[i-1], true
}

// Locators returns the locators recorded for a sampled key, newest
// physical write first (descending byte offset, then descending
// segment position for equal offsets).
func (ix *Index) Locators(key string) []Locator {
	locs := ix.locators[key]
	out := make([]Locator, len(locs))
	copy(out, locs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset > out[j].Offset
		}
		return out[i].SegmentID > out[j].SegmentID
	})
	return out
}

// Len returns the number of distinct sampled keys.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// Entries returns the global count of entries observed.
func (ix *Index) Entries() int {
	return ix.count
}

func (ix *Index) ensureSorted() {
	if !ix.sorted {
		sort.Strings(ix.keys)
		ix.sorted = true
	}
}
