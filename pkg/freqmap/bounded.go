/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bounded.go
Description: Bounded frequency map for the Akaylee Profiler. Counts occurrences of distinct
values up to a fixed capacity. Once full, existing keys keep counting but new keys are
refused so the caller can route them to the approximate distribution instead.
*/

package freqmap

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is a single value and its count
type Entry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Bounded is a value to count map that never grows beyond its capacity
// Not safe for concurrent use; each analysis owns its maps exclusively
type Bounded struct {
	counts   map[string]int64
	capacity int
	total    int64
}

// New creates a bounded map with the given capacity
func New(capacity int) *Bounded {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded{
		counts:   make(map[string]int64),
		capacity: capacity,
	}
}

// MergeIfSpace adds n occurrences of key
// Existing keys are always updated; a new key is only added when there is room
func (b *Bounded) MergeIfSpace(key string, n int64) bool {
	if _, exists := b.counts[key]; exists {
		b.counts[key] += n
		b.total += n
		return true
	}
	if len(b.counts) >= b.capacity {
		return false
	}
	b.counts[key] = n
	b.total += n
	return true
}

// Merge adds n occurrences of an existing key and reports whether it was present
func (b *Bounded) Merge(key string, n int64) bool {
	if _, exists := b.counts[key]; !exists {
		return false
	}
	b.counts[key] += n
	b.total += n
	return true
}

// Get returns the count for key
func (b *Bounded) Get(key string) int64 {
	return b.counts[key]
}

// Has reports whether key is present
func (b *Bounded) Has(key string) bool {
	_, exists := b.counts[key]
	return exists
}

// Remove deletes key and returns its count
func (b *Bounded) Remove(key string) int64 {
	n, exists := b.counts[key]
	if !exists {
		return 0
	}
	delete(b.counts, key)
	b.total -= n
	return n
}

// Len returns the number of distinct keys
func (b *Bounded) Len() int {
	return len(b.counts)
}

// Cap returns the capacity
func (b *Bounded) Cap() int {
	return b.capacity
}

// Full reports whether no new keys can be added
func (b *Bounded) Full() bool {
	return len(b.counts) >= b.capacity
}

// Total returns the sum of all counts
func (b *Bounded) Total() int64 {
	return b.total
}

// Clear removes every key, keeping the capacity
func (b *Bounded) Clear() {
	b.counts = make(map[string]int64)
	b.total = 0
}

// Keys returns the keys in lexical order
func (b *Bounded) Keys() []string {
	keys := make([]string, 0, len(b.counts))
	for k := range b.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns the entries in lexical key order
func (b *Bounded) Entries() []Entry {
	entries := make([]Entry, 0, len(b.counts))
	for _, k := range b.Keys() {
		entries = append(entries, Entry{Key: k, Count: b.counts[k]})
	}
	return entries
}

// ByCount returns the entries by descending count, ties broken by key
func (b *Bounded) ByCount() []Entry {
	entries := b.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}

// Map returns a copy of the underlying counts
func (b *Bounded) Map() map[string]int64 {
	out := make(map[string]int64, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy
func (b *Bounded) Clone() *Bounded {
	return &Bounded{
		counts:   b.Map(),
		capacity: b.capacity,
		total:    b.total,
	}
}

// MergeAll folds other into b and returns the entries that did not fit
func (b *Bounded) MergeAll(other *Bounded) []Entry {
	var overflow []Entry
	for _, e := range other.Entries() {
		if !b.MergeIfSpace(e.Key, e.Count) {
			overflow = append(overflow, e)
		}
	}
	return overflow
}

// CountWhere returns how many keys satisfy pred, and the sum of their counts
func (b *Bounded) CountWhere(pred func(key string, count int64) bool) (keys int, occurrences int64) {
	for k, v := range b.counts {
		if pred(k, v) {
			keys++
			occurrences += v
		}
	}
	return keys, occurrences
}

type boundedJSON struct {
	Capacity int     `json:"capacity"`
	Entries  []Entry `json:"entries"`
}

// MarshalJSON encodes the map with its capacity and sorted entries
func (b *Bounded) MarshalJSON() ([]byte, error) {
	return json.Marshal(boundedJSON{Capacity: b.capacity, Entries: b.Entries()})
}

// UnmarshalJSON decodes a map produced by MarshalJSON
func (b *Bounded) UnmarshalJSON(data []byte) error {
	var raw boundedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode bounded map: %w", err)
	}
	if raw.Capacity < 1 {
		return fmt.Errorf("failed to decode bounded map: capacity %d", raw.Capacity)
	}
	if len(raw.Entries) > raw.Capacity {
		return fmt.Errorf("failed to decode bounded map: %d entries exceed capacity %d", len(raw.Entries), raw.Capacity)
	}
	b.capacity = raw.Capacity
	b.Clear()
	for _, e := range raw.Entries {
		b.counts[e.Key] += e.Count
		b.total += e.Count
	}
	return nil
}
