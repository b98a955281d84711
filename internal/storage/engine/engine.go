package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lsmkv/internal/cache"
	"lsmkv/internal/config"
	"lsmkv/internal/storage/filter"
	"lsmkv/internal/storage/memtable"
	"lsmkv/internal/storage/segment"
	"lsmkv/internal/storage/sparseindex"
	"lsmkv/pkg/logger"
)

// bloomFileName is where the filter is persisted inside the data
// directory. The name deliberately does not match the segment pattern.
const bloomFileName = "bloom.filter"

// Engine is the LSM storage engine: an in-memory memtable in front of
// a set of immutable sorted segments, with a sparse index and a bloom
// filter over the whole key population.
//
// Mutating operations serialize on the write lock. Readers share the
// read lock and open their own scoped segment handles, so any number
// of lookups may run concurrently against a consistent snapshot of
// {memtable, segment set, sparse index, bloom filter}.
type Engine struct {
	conf *config.Config

	mu       sync.RWMutex
	mem      memtable.MemTable
	segments []*segment.Segment // ascending timestamp order
	index    *sparseindex.Index
	bloom    *filter.BloomFilter
	cache    *cache.LRUCache // nil when disabled
	lastTS   segment.Timestamp
	closed   bool

	segmentReads atomic.Int64
}

// Stats is a point-in-time snapshot for operational visibility.
type Stats struct {
	MemTableEntries int   `json:"memtable_entries"`
	SegmentCount    int   `json:"segment_count"`
	SampledKeys     int   `json:"sampled_keys"`
	SegmentReads    int64 `json:"segment_reads"`
}

// Open creates the data directory if needed, loads every segment file
// found there, rebuilds the sparse index and repopulates the bloom
// filter, then returns a ready engine.
func Open(conf *config.Config) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(conf.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	e := &Engine{
		conf:  conf,
		mem:   memtable.NewSkipList(conf.MaxInMemorySize),
		index: sparseindex.New(conf.SparseOffset),
	}
	if conf.CacheSize > 0 {
		e.cache = cache.NewLRUCache(conf.CacheSize)
	}
	if err := e.restore(); err != nil {
		for _, seg := range e.segments {
			_ = seg.Close()
		}
		return nil, err
	}
	logger.Info("engine opened",
		"dir", conf.BasePath,
		"segments", len(e.segments),
		"sampled_keys", e.index.Len(),
	)
	return e, nil
}

// Insert records key -> value. When the memtable is full it is first
// flushed to a new segment, and when the segment count reaches the
// merge threshold the whole set is compacted before the write lands.
func (e *Engine) Insert(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if e.mem.CapacityReached() {
		if err := e.flushLocked(ctx); err != nil {
			return err
		}
		if len(e.segments) >= e.conf.MergeThreshold {
			if err := e.mergeLocked(ctx); err != nil {
				return err
			}
		}
	}

	e.mem.Insert(key, value)
	e.bloom.Add(key)
	if e.cache != nil {
		e.cache.Remove(key)
	}
	return nil
}

// Delete records a tombstone for key; the key reads as absent from
// then on.
func (e *Engine) Delete(ctx context.Context, key string) error {
	return e.Insert(ctx, key, segment.Tombstone)
}

// Get returns the current value for key. The lookup short-circuits on
// a negative bloom answer, then consults the memtable, then the
// sparse index's candidate segments, and finally scans, most recent
// first, every segment newer than the one the index hit came from
// (every segment when the index finds nothing).
func (e *Engine) Get(ctx context.Context, key string) (string, bool, error) {
	if strings.TrimSpace(key) == "" {
		return "", false, ErrEmptyKey
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return "", false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	if !e.bloom.MightContain(key) {
		return "", false, nil
	}

	if v, ok := e.mem.Get(key); ok {
		if segment.IsTombstone(v) {
			return "", false, nil
		}
		return v, true, nil
	}

	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return v, true, nil
		}
	}

	// sparse index: nearest sampled key at or below the target, then
	// each of its locators; the hit from the newest segment is kept
	hitSeg, hitValue := -1, ""
	if floor, ok := e.index.Floor(key); ok {
		for _, loc := range e.index.Locators(floor) {
			if loc.SegmentID <= hitSeg {
				continue
			}
			v, found, err := e.scanForKey(ctx, e.segments[loc.SegmentID].Path(), loc.Offset, key)
			if err != nil {
				return "", false, err
			}
			if found {
				hitSeg, hitValue = loc.SegmentID, v
			}
		}
	}

	// full scan of the segments newer than the index hit, most recent
	// segment first
	for i := len(e.segments) - 1; i > hitSeg; i-- {
		v, found, err := e.scanForKey(ctx, e.segments[i].Path(), 0, key)
		if err != nil {
			return "", false, err
		}
		if found {
			return e.finishLookup(key, v)
		}
	}
	if hitSeg >= 0 {
		return e.finishLookup(key, hitValue)
	}
	return "", false, nil
}

// finishLookup applies tombstone semantics to a segment hit and
// populates the read cache for live values.
func (e *Engine) finishLookup(key, value string) (string, bool, error) {
	if segment.IsTombstone(value) {
		return "", false, nil
	}
	if e.cache != nil {
		e.cache.Set(key, value)
	}
	return value, true, nil
}

// scanForKey opens a scoped handle on one segment file and scans
// forward from offset. Entries are sorted, so the scan stops at the
// first key greater than the target.
func (e *Engine) scanForKey(ctx context.Context, path string, offset int64, key string) (string, bool, error) {
	seg, err := segment.Open(path)
	if err != nil {
		return "", false, err
	}
	defer seg.Close()

	if err := seg.Seek(offset); err != nil {
		return "", false, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		e.segmentReads.Add(1)
		ent, err := seg.ReadEntry()
		if err != nil {
			return "", false, err
		}
		if ent == nil {
			return "", false, nil
		}
		if ent.Key == key {
			return ent.Value, true, nil
		}
		if ent.Key > key {
			return "", false, nil
		}
	}
}

// Compact flushes the memtable and merges the whole segment set down
// to at most ceil(n/segment_size) segments. Observable state is
// unchanged.
func (e *Engine) Compact(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if err := e.flushLocked(ctx); err != nil {
		return err
	}
	if len(e.segments) < 2 {
		return nil
	}
	return e.mergeLocked(ctx)
}

// Close flushes the memtable so acknowledged writes survive restart,
// persists the bloom filter, and releases every segment handle. When
// the engine was configured not to persist segments, the data
// directory's segment files are removed instead.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	if err := e.flushLocked(context.Background()); err != nil {
		firstErr = err
	}

	if e.conf.PersistSegments {
		if err := e.bloom.Save(filepath.Join(e.conf.BasePath, bloomFileName)); err != nil {
			// advisory state: a rebuild on the next open recovers it
			logger.Warn("persist bloom filter", "error", err)
		}
	}

	for _, seg := range e.segments {
		var err error
		if e.conf.PersistSegments {
			err = seg.Close()
		} else {
			err = seg.Remove()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.segments = nil
	logger.Info("engine closed", "dir", e.conf.BasePath)
	return firstErr
}

// SegmentReads returns the number of segment entry reads served by
// the lookup path. Tests use it to show the bloom filter
// short-circuits absent keys without touching disk.
func (e *Engine) SegmentReads() int64 {
	return e.segmentReads.Load()
}

// Stats returns a consistent snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		MemTableEntries: e.mem.Len(),
		SegmentCount:    len(e.segments),
		SampledKeys:     e.index.Len(),
		SegmentReads:    e.segmentReads.Load(),
	}
}

// flushLocked writes the memtable to a fresh segment, samples it into
// the sparse index with the global cadence, and clears the memtable.
// On any failure the partial file is removed and the memtable keeps
// its entries, so the flush may simply be retried.
func (e *Engine) flushLocked(ctx context.Context) error {
	if e.mem.Len() == 0 {
		return nil
	}

	ts := e.nextTimestamp()
	path := filepath.Join(e.conf.BasePath, segment.FileName(ts))
	seg, err := segment.Open(path)
	if err != nil {
		return err
	}
	discard := func() {
		if err := seg.Remove(); err != nil {
			logger.Warn("drop partial flush output", "path", path, "error", err)
		}
	}

	segmentID := len(e.segments)
	type sample struct {
		key    string
		offset int64
	}
	var samples []sample

	for _, kv := range e.mem.All() {
		if err := ctx.Err(); err != nil {
			discard()
			return err
		}
		offset := seg.Size()
		if err := seg.AddEntry(segment.Entry{Key: kv.Key, Value: kv.Value}); err != nil {
			discard()
			return err
		}
		samples = append(samples, sample{key: kv.Key, offset: offset})
	}
	if err := seg.Sync(); err != nil {
		discard()
		return err
	}

	// durable: now install and index with the same global cadence the
	// rebuild walk uses
	e.segments = append(e.segments, seg)
	for _, s := range samples {
		e.index.Observe(s.key, segmentID, s.offset)
	}
	e.mem.Clear()
	logger.Debug("memtable flushed", "segment", path, "entries", len(samples))
	return nil
}

// mergeLocked replaces the whole live segment set with its k-way
// merge and rebuilds the sparse index. On failure the inputs stay
// live and untouched.
func (e *Engine) mergeLocked(ctx context.Context) error {
	inputs := e.segments
	outputs, err := mergeSegments(ctx, e.conf.BasePath, inputs, e.conf.SegmentSize, e.nextTimestamp)
	if err != nil {
		return err
	}

	for _, in := range inputs {
		if err := in.Remove(); err != nil {
			logger.Warn("remove merged segment", "path", in.Path(), "error", err)
		}
	}
	e.segments = outputs
	if err := e.rebuildIndexLocked(); err != nil {
		return err
	}
	logger.Info("segments merged", "inputs", len(inputs), "outputs", len(outputs))
	return nil
}

// rebuildIndexLocked rebuilds the sparse index from scratch by
// walking the segment set in filename order, and re-adds every key to
// the bloom filter. Corrupt lines are skipped here: the index only
// needs the entries it can still reach.
func (e *Engine) rebuildIndexLocked() error {
	ix := sparseindex.New(e.conf.SparseOffset)
	for id, seg := range e.segments {
		if err := seg.Seek(0); err != nil {
			return err
		}
		for {
			offset := seg.Position()
			ent, err := seg.ReadEntry()
			if err != nil {
				if errors.Is(err, segment.ErrCorruptSegment) {
					logger.Warn("skip corrupt segment line", "segment", seg.Path(), "offset", offset)
					continue
				}
				return err
			}
			if ent == nil {
				break
			}
			ix.Observe(ent.Key, id, offset)
			e.bloom.Add(ent.Key)
		}
	}
	e.index = ix
	return nil
}

// nextTimestamp returns a strictly increasing segment timestamp, even
// when the wall clock does not move between flushes.
func (e *Engine) nextTimestamp() segment.Timestamp {
	now := time.Now()
	ts := segment.Timestamp{Sec: now.Unix(), Frac: int64(now.Nanosecond())}
	if !e.lastTS.Less(ts) {
		ts = segment.Timestamp{Sec: e.lastTS.Sec, Frac: e.lastTS.Frac + 1}
	}
	e.lastTS = ts
	return ts
}
