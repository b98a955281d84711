package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lsmkv/internal/storage/filter"
	"lsmkv/internal/storage/segment"
	"lsmkv/pkg/logger"
)

// restore loads the persisted state of the data directory: every file
// matching the segment name pattern becomes a live segment, the
// sparse index is rebuilt over the set, and the bloom filter is
// repopulated with every key found on disk.
func (e *Engine) restore() error {
	entries, err := os.ReadDir(e.conf.BasePath)
	if err != nil {
		return fmt.Errorf("read data directory: %w", err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() || !segment.IsSegmentFileName(ent.Name()) {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		return segment.ParseTimestamp(names[i]).Less(segment.ParseTimestamp(names[j]))
	})

	for _, name := range names {
		seg, err := segment.Open(filepath.Join(e.conf.BasePath, name))
		if err != nil {
			return err
		}
		e.segments = append(e.segments, seg)
		if e.lastTS.Less(seg.Timestamp()) {
			e.lastTS = seg.Timestamp()
		}
	}

	e.bloom = e.loadBloomFilter()

	// one walk rebuilds the sparse index and replays every key into
	// the bloom filter
	return e.rebuildIndexLocked()
}

// loadBloomFilter restores the persisted filter when one is present
// and well-formed. Failures are never fatal: the rebuild walk
// repopulates a fresh filter from the segments.
func (e *Engine) loadBloomFilter() *filter.BloomFilter {
	path := filepath.Join(e.conf.BasePath, bloomFileName)
	if _, err := os.Stat(path); err != nil {
		return filter.New(e.conf.BloomExpectedItems, e.conf.BloomFalsePositiveRate)
	}
	bf, err := filter.Load(path)
	if err != nil {
		logger.Warn("rebuild bloom filter", "path", path, "error", err)
		return filter.New(e.conf.BloomExpectedItems, e.conf.BloomFalsePositiveRate)
	}
	return bf
}
