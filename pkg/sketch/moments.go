/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: moments.go
Description: Running mean and variance for the Akaylee Profiler using Welford's update, with
Chan's pairwise formula to combine two independently accumulated shards.
*/

package sketch

import "math"

// Moments accumulates count, mean and the sum of squared deviations
type Moments struct {
	N    int64   `json:"n"`
	Mean float64 `json:"mean"`
	M2   float64 `json:"m2"`
}

// Add records n occurrences of v
func (m *Moments) Add(v float64, n int64) {
	if n <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	// n identical values form a shard with zero variance
	m.Merge(Moments{N: n, Mean: v})
}

// Merge folds another accumulator into m
func (m *Moments) Merge(o Moments) {
	if o.N == 0 {
		return
	}
	if m.N == 0 {
		*m = o
		return
	}
	n := m.N + o.N
	delta := o.Mean - m.Mean
	m.Mean += delta * float64(o.N) / float64(n)
	m.M2 += o.M2 + delta*delta*float64(m.N)*float64(o.N)/float64(n)
	m.N = n
}

// Variance returns the population variance
func (m Moments) Variance() float64 {
	if m.N < 2 {
		return 0
	}
	return m.M2 / float64(m.N)
}

// StdDev returns the population standard deviation
func (m Moments) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

// Reset clears the accumulator
func (m *Moments) Reset() {
	*m = Moments{}
}
