/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: quantile.go
Description: Relative-error quantile sketch for the Akaylee Profiler. Values are counted in
log-linear buckets so that any reported quantile is within the configured relative accuracy
of a real observation. Positive, negative and near-zero values are kept in separate stores.
The binary form is msgpack so the sketch travels inside serialized analyses.
*/

package sketch

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// minIndexable is the smallest magnitude given its own bucket; anything smaller counts as zero
const minIndexable = 1e-12

// ErrEmpty is returned when querying a sketch that has seen no values
var ErrEmpty = errors.New("sketch is empty")

// Quantile is a mergeable relative-error quantile sketch
type Quantile struct {
	alpha    float64
	gamma    float64
	logGamma float64

	positive map[int32]int64
	negative map[int32]int64
	zero     int64
	count    int64
	min      float64
	max      float64
}

// NewQuantile creates a sketch with relative accuracy alpha (0 < alpha < 1)
func NewQuantile(alpha float64) (*Quantile, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("relative accuracy must be in (0,1), got %v", alpha)
	}
	gamma := (1 + alpha) / (1 - alpha)
	return &Quantile{
		alpha:    alpha,
		gamma:    gamma,
		logGamma: math.Log(gamma),
		positive: make(map[int32]int64),
		negative: make(map[int32]int64),
		min:      math.Inf(1),
		max:      math.Inf(-1),
	}, nil
}

// RelativeAccuracy returns alpha
func (q *Quantile) RelativeAccuracy() float64 {
	return q.alpha
}

// Count returns the number of values added
func (q *Quantile) Count() int64 {
	return q.count
}

// Min returns the smallest value added
func (q *Quantile) Min() float64 {
	return q.min
}

// Max returns the largest value added
func (q *Quantile) Max() float64 {
	return q.max
}

func (q *Quantile) index(v float64) int32 {
	return int32(math.Ceil(math.Log(v) / q.logGamma))
}

// value returns the representative of bucket i, equidistant in relative terms from both bounds
func (q *Quantile) value(i int32) float64 {
	return 2 * math.Pow(q.gamma, float64(i)) / (q.gamma + 1)
}

// Add records n occurrences of v
func (q *Quantile) Add(v float64, n int64) {
	if n <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	switch {
	case v > minIndexable:
		q.positive[q.index(v)] += n
	case v < -minIndexable:
		q.negative[q.index(-v)] += n
	default:
		q.zero += n
	}
	q.count += n
	if v < q.min {
		q.min = v
	}
	if v > q.max {
		q.max = v
	}
}

// ValueAtQuantile returns an estimate of the value at rank p (0 <= p <= 1)
func (q *Quantile) ValueAtQuantile(p float64) (float64, error) {
	if q.count == 0 {
		return 0, ErrEmpty
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("quantile must be in [0,1], got %v", p)
	}
	if p == 0 {
		return q.min, nil
	}
	if p == 1 {
		return q.max, nil
	}

	rank := int64(p * float64(q.count-1))
	var seen int64

	negatives := sortedIndexes(q.negative)
	for i := len(negatives) - 1; i >= 0; i-- {
		seen += q.negative[negatives[i]]
		if seen > rank {
			return q.clamp(-q.value(negatives[i])), nil
		}
	}

	seen += q.zero
	if seen > rank {
		return q.clamp(0), nil
	}

	for _, idx := range sortedIndexes(q.positive) {
		seen += q.positive[idx]
		if seen > rank {
			return q.clamp(q.value(idx)), nil
		}
	}
	return q.max, nil
}

func (q *Quantile) clamp(v float64) float64 {
	return math.Max(q.min, math.Min(q.max, v))
}

// Merge folds other into q; both must share the same relative accuracy
func (q *Quantile) Merge(other *Quantile) error {
	if other == nil || other.count == 0 {
		return nil
	}
	if other.alpha != q.alpha {
		return fmt.Errorf("cannot merge sketches with accuracy %v and %v", q.alpha, other.alpha)
	}
	for k, v := range other.positive {
		q.positive[k] += v
	}
	for k, v := range other.negative {
		q.negative[k] += v
	}
	q.zero += other.zero
	q.count += other.count
	q.min = math.Min(q.min, other.min)
	q.max = math.Max(q.max, other.max)
	return nil
}

// Clone returns a deep copy
func (q *Quantile) Clone() *Quantile {
	c := *q
	c.positive = make(map[int32]int64, len(q.positive))
	c.negative = make(map[int32]int64, len(q.negative))
	for k, v := range q.positive {
		c.positive[k] = v
	}
	for k, v := range q.negative {
		c.negative[k] = v
	}
	return &c
}

func sortedIndexes(store map[int32]int64) []int32 {
	keys := make([]int32, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// quantileState is the msgpack representation of a sketch
type quantileState struct {
	Alpha    float64         `msgpack:"alpha"`
	Positive map[int32]int64 `msgpack:"positive"`
	Negative map[int32]int64 `msgpack:"negative"`
	Zero     int64           `msgpack:"zero"`
	Count    int64           `msgpack:"count"`
	Min      float64         `msgpack:"min"`
	Max      float64         `msgpack:"max"`
}

// MarshalBinary encodes the sketch with msgpack
func (q *Quantile) MarshalBinary() ([]byte, error) {
	data, err := msgpack.Marshal(quantileState{
		Alpha:    q.alpha,
		Positive: q.positive,
		Negative: q.negative,
		Zero:     q.zero,
		Count:    q.count,
		Min:      q.min,
		Max:      q.max,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode quantile sketch: %w", err)
	}
	return data, nil
}

// UnmarshalBinary decodes a sketch produced by MarshalBinary
func (q *Quantile) UnmarshalBinary(data []byte) error {
	var state quantileState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode quantile sketch: %w", err)
	}
	fresh, err := NewQuantile(state.Alpha)
	if err != nil {
		return fmt.Errorf("failed to decode quantile sketch: %w", err)
	}
	for k, v := range state.Positive {
		fresh.positive[k] = v
	}
	for k, v := range state.Negative {
		fresh.negative[k] = v
	}
	fresh.zero = state.Zero
	fresh.count = state.Count
	fresh.min = state.Min
	fresh.max = state.Max
	*q = *fresh
	return nil
}
