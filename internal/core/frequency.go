package core

import (
	"cmp"
	"container/heap"
	"slices"
)

// freqEntry is the usage record of one resident key.
type freqEntry struct {
	key   string
	freq  uint64 // number of uses, 1 on insertion
	seq   uint64 // insertion order; re-insertion takes a new value
	index int    // position in the heap
}

// freqHeap orders entries by frequency, then by insertion order.
type freqHeap []*freqEntry

func (h freqHeap) Len() int { return len(h) }

func (h freqHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].seq < h[j].seq
}

func (h freqHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *freqHeap) Push(x any) {
	e := x.(*freqEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *freqHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// FrequencyTracker counts uses per resident key and names the eviction victim.
//
// The victim is the key with the lowest count; among equal counts, the key that
// was inserted earliest wins. It is not safe for concurrent use; Storage guards it.
type FrequencyTracker struct {
	entries map[string]*freqEntry
	heap    freqHeap
	nextSeq uint64
}

// NewFrequencyTracker returns an empty tracker.
func NewFrequencyTracker() *FrequencyTracker {
	return &FrequencyTracker{
		entries: make(map[string]*freqEntry),
	}
}

// Increment adds one use to key. Returns false if key is not tracked.
func (t *FrequencyTracker) Increment(key string) bool {
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.freq++
	heap.Fix(&t.heap, e.index)
	return true
}

// Reset sets the frequency of key to 1 and marks it as the most recent insertion.
// Untracked keys start being tracked.
func (t *FrequencyTracker) Reset(key string) {
	t.nextSeq++
	if e, ok := t.entries[key]; ok {
		e.freq = 1
		e.seq = t.nextSeq
		heap.Fix(&t.heap, e.index)
		return
	}
	e := &freqEntry{key: key, freq: 1, seq: t.nextSeq}
	t.entries[key] = e
	heap.Push(&t.heap, e)
}

// Remove stops tracking key. Returns false if key was not tracked.
func (t *FrequencyTracker) Remove(key string) bool {
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	heap.Remove(&t.heap, e.index)
	delete(t.entries, key)
	return true
}

// LeastFrequent returns the key to evict next.
//
// It panics if no key is tracked: callers only ask for a victim when the
// cache is at capacity.
func (t *FrequencyTracker) LeastFrequent() string {
	if len(t.heap) == 0 {
		panic("lfucache: LeastFrequent called on an empty frequency tracker")
	}
	return t.heap[0].key
}

// Frequency returns the use count of key.
func (t *FrequencyTracker) Frequency(key string) (uint64, bool) {
	e, ok := t.entries[key]
	if !ok {
		return 0, false
	}
	return e.freq, true
}

// Len returns the number of tracked keys.
func (t *FrequencyTracker) Len() int {
	return len(t.entries)
}

// ordered returns a copy of the tracked entries in eviction order.
func (t *FrequencyTracker) ordered() []freqEntry {
	out := make([]freqEntry, 0, len(t.heap))
	for _, e := range t.heap {
		out = append(out, *e)
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []freqEntry) {
	slices.SortFunc(entries, func(a, b freqEntry) int {
		if c := cmp.Compare(a.freq, b.freq); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
}
