/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: topbottom.go
Description: Top/bottom-K tracker for the Akaylee Profiler. Keeps the K smallest and K
largest distinct values of a stream. A single sorted buffer is used until 2K values have
been seen, after which it splits into two independent sorted halves and only values that
can enter either half are inserted.
*/

package sketch

import "sort"

// TopBottomK tracks the K smallest and K largest distinct values
type TopBottomK[T any] struct {
	k      int
	cmp    func(a, b T) int
	buffer []T
	bottom []T // ascending, at most k
	top    []T // ascending, at most k
	split  bool
}

// NewTopBottomK creates a tracker ordered by cmp (negative, zero or positive like strings.Compare)
func NewTopBottomK[T any](k int, cmp func(a, b T) int) *TopBottomK[T] {
	if k < 1 {
		k = 1
	}
	return &TopBottomK[T]{k: k, cmp: cmp}
}

// insertSorted inserts v into an ascending slice unless already present
func (t *TopBottomK[T]) insertSorted(s []T, v T) ([]T, bool) {
	i := sort.Search(len(s), func(i int) bool { return t.cmp(s[i], v) >= 0 })
	if i < len(s) && t.cmp(s[i], v) == 0 {
		return s, false
	}
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s, true
}

// Add offers a value to the tracker
func (t *TopBottomK[T]) Add(v T) {
	if !t.split {
		t.buffer, _ = t.insertSorted(t.buffer, v)
		if len(t.buffer) >= 2*t.k {
			t.bottom = append([]T(nil), t.buffer[:t.k]...)
			t.top = append([]T(nil), t.buffer[len(t.buffer)-t.k:]...)
			t.buffer = nil
			t.split = true
		}
		return
	}

	if t.cmp(v, t.bottom[len(t.bottom)-1]) < 0 {
		var inserted bool
		if t.bottom, inserted = t.insertSorted(t.bottom, v); inserted {
			t.bottom = t.bottom[:t.k]
		}
	}
	if t.cmp(v, t.top[0]) > 0 {
		var inserted bool
		if t.top, inserted = t.insertSorted(t.top, v); inserted {
			t.top = t.top[1:]
		}
	}
}

// Bottom returns the smallest values in ascending order
func (t *TopBottomK[T]) Bottom() []T {
	if !t.split {
		n := min(t.k, len(t.buffer))
		return append([]T(nil), t.buffer[:n]...)
	}
	return append([]T(nil), t.bottom...)
}

// Top returns the largest values in descending order
func (t *TopBottomK[T]) Top() []T {
	src := t.top
	if !t.split {
		src = t.buffer[max(0, len(t.buffer)-t.k):]
	}
	out := make([]T, len(src))
	for i, v := range src {
		out[len(src)-1-i] = v
	}
	return out
}

// Values returns every retained value in ascending order
func (t *TopBottomK[T]) Values() []T {
	if !t.split {
		return append([]T(nil), t.buffer...)
	}
	out := append([]T(nil), t.bottom...)
	for _, v := range t.top {
		out, _ = t.insertSorted(out, v)
	}
	return out
}

// Merge offers every value retained by other
func (t *TopBottomK[T]) Merge(other *TopBottomK[T]) {
	if other == nil {
		return
	}
	for _, v := range other.Values() {
		t.Add(v)
	}
}

// Reset discards all values
func (t *TopBottomK[T]) Reset() {
	t.buffer, t.bottom, t.top, t.split = nil, nil, nil, false
}

// K returns the configured size
func (t *TopBottomK[T]) K() int {
	return t.k
}
