/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: histogram.go
Description: Streaming histogram for the Akaylee Profiler. Maintains a bounded, sorted list
of (value, count) bins; when the list grows past its limit the two closest bins are merged
into their weighted centroid (the streaming parallel decision tree algorithm of Ben-Haim and
Tom-Tov). Ties between equally close pairs are broken with a seeded generator so that the
same input always yields the same bins. Also renders equal-width buckets and tags density
clusters over them.
*/

package sketch

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultSeed seeds the tie-breaking generator
const DefaultSeed int64 = 0x5eed

// Bin is a centroid and the number of values it represents
type Bin struct {
	Value float64 `json:"value" msgpack:"v"`
	Count int64   `json:"count" msgpack:"c"`
}

// Histogram is a bounded streaming histogram
type Histogram struct {
	maxBins int
	seed    int64
	bins    []Bin
	total   int64
	rng     *rand.Rand
}

// NewHistogram creates a histogram with at most maxBins bins
func NewHistogram(maxBins int, seed int64) *Histogram {
	if maxBins < 2 {
		maxBins = 2
	}
	return &Histogram{
		maxBins: maxBins,
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// FromExact builds a histogram holding one exact bin per distinct value
func FromExact(counts map[float64]int64) *Histogram {
	h := NewHistogram(len(counts)+1, DefaultSeed)
	for v, n := range counts {
		h.Add(v, n)
	}
	return h
}

// Add records n occurrences of v
func (h *Histogram) Add(v float64, n int64) {
	if n <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	h.total += n
	i := sort.Search(len(h.bins), func(i int) bool { return h.bins[i].Value >= v })
	if i < len(h.bins) && h.bins[i].Value == v {
		h.bins[i].Count += n
		return
	}
	h.bins = append(h.bins, Bin{})
	copy(h.bins[i+1:], h.bins[i:])
	h.bins[i] = Bin{Value: v, Count: n}
	for len(h.bins) > h.maxBins {
		h.mergeClosest()
	}
}

// mergeClosest merges the pair of adjacent bins with the smallest gap
func (h *Histogram) mergeClosest() {
	best := math.Inf(1)
	var candidates []int
	for i := 0; i+1 < len(h.bins); i++ {
		gap := h.bins[i+1].Value - h.bins[i].Value
		switch {
		case gap < best:
			best = gap
			candidates = append(candidates[:0], i)
		case gap == best:
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return
	}
	i := candidates[0]
	if len(candidates) > 1 {
		i = candidates[h.rng.Intn(len(candidates))]
	}
	a, b := h.bins[i], h.bins[i+1]
	count := a.Count + b.Count
	h.bins[i] = Bin{
		Value: (a.Value*float64(a.Count) + b.Value*float64(b.Count)) / float64(count),
		Count: count,
	}
	h.bins = append(h.bins[:i+1], h.bins[i+2:]...)
}

// Merge folds the bins of other into h
func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for _, b := range other.bins {
		h.Add(b.Value, b.Count)
	}
}

// Bins returns a copy of the sorted bins
func (h *Histogram) Bins() []Bin {
	return append([]Bin(nil), h.bins...)
}

// Total returns the number of values recorded
func (h *Histogram) Total() int64 {
	return h.total
}

// MaxBins returns the bin limit
func (h *Histogram) MaxBins() int {
	return h.maxBins
}

// Clone returns a deep copy; the clone's generator restarts from the seed
func (h *Histogram) Clone() *Histogram {
	c := NewHistogram(h.maxBins, h.seed)
	c.bins = h.Bins()
	c.total = h.total
	return c
}

// Bucket is a [Low, High) range of the histogram; the last bucket is closed
type Bucket struct {
	Low          float64 `json:"low"`
	High         float64 `json:"high"`
	Count        int64   `json:"count"`
	ClusterShare float64 `json:"clusterShare"` // Share of all values held by this bucket's cluster
}

// Buckets renders the bins into n equal-width buckets
func (h *Histogram) Buckets(n int) []Bucket {
	if n < 1 || len(h.bins) == 0 {
		return nil
	}
	low, high := h.bins[0].Value, h.bins[len(h.bins)-1].Value
	if low == high {
		return []Bucket{{Low: low, High: high, Count: h.total}}
	}
	width := (high - low) / float64(n)
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Low = low + float64(i)*width
		buckets[i].High = low + float64(i+1)*width
	}
	buckets[n-1].High = high
	for _, b := range h.bins {
		i := int((b.Value - low) / width)
		if i >= n {
			i = n - 1
		}
		buckets[i].Count += b.Count
	}
	return buckets
}

// Cluster is a contiguous run of non-empty buckets
type Cluster struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int64   `json:"count"`
	Share float64 `json:"share"`
}

// TagClusters groups contiguous non-empty buckets and stamps each bucket with its cluster's share
func TagClusters(buckets []Bucket) []Cluster {
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	if total == 0 {
		return nil
	}

	var clusters []Cluster
	start := -1
	flush := func(end int) {
		c := Cluster{Low: buckets[start].Low, High: buckets[end].High}
		for i := start; i <= end; i++ {
			c.Count += buckets[i].Count
		}
		c.Share = float64(c.Count) / float64(total)
		for i := start; i <= end; i++ {
			buckets[i].ClusterShare = c.Share
		}
		clusters = append(clusters, c)
	}
	for i, b := range buckets {
		switch {
		case b.Count > 0 && start < 0:
			start = i
		case b.Count == 0 && start >= 0:
			flush(i - 1)
			start = -1
		}
	}
	if start >= 0 {
		flush(len(buckets) - 1)
	}
	return clusters
}

type histogramState struct {
	MaxBins int   `msgpack:"maxBins"`
	Seed    int64 `msgpack:"seed"`
	Bins    []Bin `msgpack:"bins"`
	Total   int64 `msgpack:"total"`
}

// MarshalBinary encodes the histogram with msgpack
func (h *Histogram) MarshalBinary() ([]byte, error) {
	data, err := msgpack.Marshal(histogramState{
		MaxBins: h.maxBins,
		Seed:    h.seed,
		Bins:    h.bins,
		Total:   h.total,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode histogram: %w", err)
	}
	return data, nil
}

// UnmarshalBinary decodes a histogram produced by MarshalBinary
func (h *Histogram) UnmarshalBinary(data []byte) error {
	var state histogramState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode histogram: %w", err)
	}
	if len(state.Bins) > state.MaxBins {
		return fmt.Errorf("failed to decode histogram: %d bins exceed limit %d", len(state.Bins), state.MaxBins)
	}
	fresh := NewHistogram(state.MaxBins, state.Seed)
	fresh.bins = state.Bins
	fresh.total = state.Total
	*h = *fresh
	return nil
}
