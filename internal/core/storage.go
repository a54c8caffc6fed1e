package core

import (
	"sync"
)

// Storage is a generic, thread-safe LFU cache for values of type V.
//
// Each entry carries a use count. When the storage is full, the entry with the
// lowest count is evicted; ties go to the entry inserted earliest. The data map
// and the frequency tracker always hold the same set of keys.
type Storage[V any] struct {
	mu       sync.Mutex
	data     map[string]V      // map key to cached value
	freq     *FrequencyTracker // use counts of the keys in data
	capacity int
}

// StorageItem represents a single cache entry with its use count.
type StorageItem[V any] struct {
	Key       string // composed cache key
	Value     V      // cached value
	Frequency uint64 // number of uses, 1 on insertion
}

// StorageStat holds statistics and a snapshot of cache items.
// Items are listed in eviction order: the next victim comes first.
type StorageStat[V any] struct {
	Entries  int              // number of entries in cache
	Capacity int              // maximum number of entries
	Items    []StorageItem[V] // items in eviction order
}

// NewStorage initializes a new Storage with the specified capacity.
//
//   - capacity: Maximum number of cache entries (default: 64 if <= 0).
//
// Returns a pointer to the initialized Storage.
func NewStorage[V any](capacity int) *Storage[V] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Storage[V]{
		data:     make(map[string]V, capacity),
		freq:     NewFrequencyTracker(),
		capacity: capacity,
	}
}

// Get retrieves the cached value for the given key.
//
// On a hit the use count of the key is incremented.
// Returns (value, true) if found; otherwise returns (zero, false).
func (s *Storage[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.data[key]
	if ok {
		s.freq.Increment(key)
	}
	return val, ok
}

// Peek retrieves the cached value for the given key without counting a use.
func (s *Storage[V]) Peek(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.data[key]
	return val, ok
}

// Set stores value under key.
//
// A new key evicts the least frequently used entry first if the storage is
// full, and then starts with a use count of 1. The evicted key, if any, is
// returned. Setting a resident key replaces its value and keeps its count.
func (s *Storage[V]) Set(key string, value V) (evicted string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		s.data[key] = value
		return "", false
	}

	evicted, ok = maybeEvict(s.data, s.freq, s.capacity)
	s.data[key] = value
	s.freq.Reset(key)
	return evicted, ok
}

// Len returns the number of resident entries.
func (s *Storage[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Capacity returns the maximum number of entries.
func (s *Storage[V]) Capacity() int {
	return s.capacity
}

// Frequency returns the use count of key.
func (s *Storage[V]) Frequency(key string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freq.Frequency(key)
}

// Stat returns a consistent snapshot of the storage.
func (s *Storage[V]) Stat() StorageStat[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.freq.ordered()
	items := make([]StorageItem[V], 0, len(entries))
	for _, e := range entries {
		items = append(items, StorageItem[V]{
			Key:       e.key,
			Value:     s.data[e.key],
			Frequency: e.freq,
		})
	}
	return StorageStat[V]{
		Entries:  len(s.data),
		Capacity: s.capacity,
		Items:    items,
	}
}
