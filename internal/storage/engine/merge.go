package engine

import (
	"container/heap"
	"context"
	"fmt"
	"path/filepath"

	"lsmkv/internal/storage/segment"
	"lsmkv/pkg/logger"
)

// mergeItem is one tuple in the merge priority queue: the head entry
// of a source segment together with that segment's timestamp.
type mergeItem struct {
	entry segment.Entry
	ts    segment.Timestamp
	src   *segment.Segment
}

// mergeHeap orders items by (key ascending, timestamp descending), so
// for a duplicated key the most recent value is popped first and the
// older ones are discarded.
type mergeHeap []*mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if h[i].entry.Key != h[j].entry.Key {
		return h[i].entry.Key < h[j].entry.Key
	}
	return h[j].ts.Less(h[i].ts)
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// mergeSegments runs a k-way merge over inputs and writes the
// surviving entries into fresh output segments of at most segmentSize
// entries each. For every key the value from the largest-timestamp
// input wins; tombstones propagate like any other value. Inputs are
// read but never modified or deleted here.
//
// On error or cancellation every partially written output is closed
// and removed, so the caller's live set stays exactly as it was.
func mergeSegments(ctx context.Context, dir string, inputs []*segment.Segment, segmentSize int, nextTS func() segment.Timestamp) (outputs []*segment.Segment, err error) {
	defer func() {
		if err == nil {
			return
		}
		for _, out := range outputs {
			if rmErr := out.Remove(); rmErr != nil {
				logger.Warn("drop partial merge output", "path", out.Path(), "error", rmErr)
			}
		}
		outputs = nil
	}()

	h := make(mergeHeap, 0, len(inputs))
	for _, src := range inputs {
		if err = src.Seek(0); err != nil {
			return outputs, err
		}
		var e *segment.Entry
		// a merge needs every entry, so a corrupt line aborts it
		if e, err = src.ReadEntry(); err != nil {
			return outputs, fmt.Errorf("merge read %s: %w", src.Path(), err)
		}
		if e == nil {
			continue // empty segment
		}
		h = append(h, &mergeItem{entry: *e, ts: src.Timestamp(), src: src})
	}
	heap.Init(&h)

	var (
		out      *segment.Segment
		outCount int
		lastKey  string
		emitted  bool
	)
	for h.Len() > 0 {
		if err = ctx.Err(); err != nil {
			return outputs, err
		}
		item := heap.Pop(&h).(*mergeItem)

		// first occurrence of a key is the most recent one; later
		// occurrences are stale duplicates
		if !emitted || item.entry.Key != lastKey {
			if out == nil || outCount >= segmentSize {
				if out != nil {
					if err = out.Sync(); err != nil {
						return outputs, err
					}
				}
				name := segment.FileName(nextTS())
				if out, err = segment.Open(filepath.Join(dir, name)); err != nil {
					return outputs, err
				}
				outputs = append(outputs, out)
				outCount = 0
			}
			if err = out.AddEntry(item.entry); err != nil {
				return outputs, err
			}
			outCount++
			lastKey = item.entry.Key
			emitted = true
		}

		var next *segment.Entry
		if next, err = item.src.ReadEntry(); err != nil {
			return outputs, fmt.Errorf("merge read %s: %w", item.src.Path(), err)
		}
		if next != nil {
			heap.Push(&h, &mergeItem{entry: *next, ts: item.src.Timestamp(), src: item.src})
		}
	}

	if out != nil {
		if err = out.Sync(); err != nil {
			return outputs, err
		}
	}
	return outputs, nil
}
