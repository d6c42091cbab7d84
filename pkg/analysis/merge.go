/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merge.go
Description: Shard merging for the Akaylee Profiler. Two analyzers built with the same
configuration are combined by re-training a fresh analyzer on the union of their bounded
maps and buffered samples, then folding in what the maps could not hold: unstored counts,
moments, approximate distributions, lengths, shapes and monotonicity.
*/

package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
	"github.com/kleascm/akaylee-profiler/pkg/sketch"
	"github.com/sirupsen/logrus"
)

// Merge combines two analyzers of the same stream into a new one; neither input is modified
func Merge(a, b *TextAnalyzer, opts ...Option) (*TextAnalyzer, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: cannot merge a nil analyzer", core.ErrIncompatibleConfig)
	}
	if !a.cfg.Equal(b.cfg) {
		return nil, fmt.Errorf("%w: streams %q and %q", core.ErrIncompatibleConfig, a.ctx.StreamName, b.ctx.StreamName)
	}
	for _, side := range []*TextAnalyzer{a, b} {
		if err := side.start(); err != nil {
			return nil, err
		}
	}

	opts = append([]Option{WithRegistry(a.registry), WithLogger(a.logger)}, opts...)
	m, err := NewTextAnalyzer(a.ctx.Clone(), a.cfg.Clone(), opts...)
	if err != nil {
		return nil, err
	}
	if err := m.start(); err != nil {
		return nil, err
	}

	values := make(map[string]int64)
	for _, side := range []*TextAnalyzer{a, b} {
		for _, e := range side.storedValues() {
			values[e.Key] += e.Count
		}
		for _, p := range side.facts.Pending {
			values[p.Raw] += p.Count
		}
	}
	if err := m.TrainBulk(values); err != nil {
		return nil, err
	}
	if _, err := m.guard(func() { m.absorb(a, b) }); err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"stream":   m.ctx.StreamName,
		"samples":  m.facts.SampleCount,
		"distinct": len(values),
		"overflow": m.facts.CardinalityOverflow,
	}).Debug("Merged analyses")
	return m, nil
}

// absorb folds in the parts of both sides that the bulk re-training could not see
func (m *TextAnalyzer) absorb(a, b *TextAnalyzer) {
	f := m.facts
	sides := []*Facts{a.facts, b.facts}
	overflow := f.CardinalityOverflow

	for _, s := range sides {
		unstoredValid := s.MatchCount - s.Cardinality.Total()
		unstoredOutliers := s.OutlierCount - s.Outliers.Total()
		f.MatchCount += unstoredValid
		f.OutlierCount += unstoredOutliers
		f.SampleCount += unstoredValid + unstoredOutliers + s.NullCount + s.BlankCount
		f.NullCount += s.NullCount
		f.BlankCount += s.BlankCount
		f.InternalErrors += s.InternalErrors
		f.LeadingWhiteSpace += s.LeadingWhiteSpace
		f.TrailingWhiteSpace += s.TrailingWhiteSpace
		f.Multiline += s.Multiline
		f.Backouts += s.Backouts
		for _, e := range s.Invalid.Entries() {
			f.Invalid.MergeIfSpace(e.Key, e.Count)
		}
		overflow = overflow || s.CardinalityOverflow
	}
	if f.TypeInfo == nil {
		return
	}

	base := f.TypeInfo.BaseType
	same := a.facts.TypeInfo != nil && b.facts.TypeInfo != nil &&
		a.facts.TypeInfo.BaseType == base && b.facts.TypeInfo.BaseType == base
	if same {
		f.Moments.Reset()
		for _, s := range sides {
			f.Moments.Merge(s.Moments)
			for _, o := range s.TopBottom.Values() {
				f.TopBottom.Add(o)
			}
			if s.Min != nil && (f.Min == nil || m.compare(*s.Min, *f.Min) < 0) {
				o := *s.Min
				f.Min = &o
			}
			if s.Max != nil && (f.Max == nil || m.compare(*s.Max, *f.Max) > 0) {
				o := *s.Max
				f.Max = &o
			}
		}
	}
	f.MonotonicIncreasing, f.MonotonicDecreasing = false, false
	if same {
		f.MonotonicIncreasing, f.MonotonicDecreasing = m.monotonicShards(a.facts, b.facts)
	}

	if !overflow {
		return
	}
	f.CardinalityOverflow = true
	m.mergeShapes(a, b)
	if same && m.distributable() {
		m.mergeDistributions(a, b)
	}
}

// monotonicShards reports whether two monotonic shards form a monotonic whole
func (m *TextAnalyzer) monotonicShards(a, b *Facts) (bool, bool) {
	if a.Min == nil || b.Min == nil || !ordered(m.facts.TypeInfo) {
		return false, false
	}
	disjoint := m.compare(*a.Max, *b.Min) < 0 || m.compare(*b.Max, *a.Min) < 0
	return disjoint && a.MonotonicIncreasing && b.MonotonicIncreasing,
		disjoint && a.MonotonicDecreasing && b.MonotonicDecreasing
}

// mergeShapes replaces the lengths and shapes with the sum of both sides and their buffered samples
func (m *TextAnalyzer) mergeShapes(a, b *TextAnalyzer) {
	f := m.facts
	f.Lengths = [LengthBuckets]int64{}
	f.MinTrimmedLength, f.MaxTrimmedLength = 0, 0
	f.Shapes.Clear()
	for _, side := range []*TextAnalyzer{a, b} {
		s := side.facts
		for i, n := range s.Lengths {
			f.Lengths[i] += n
		}
		if s.MinTrimmedLength > 0 && (f.MinTrimmedLength == 0 || s.MinTrimmedLength < f.MinTrimmedLength) {
			f.MinTrimmedLength = s.MinTrimmedLength
		}
		f.MaxTrimmedLength = max(f.MaxTrimmedLength, s.MaxTrimmedLength)
		for _, e := range s.Shapes.Entries() {
			f.Shapes.MergeIfSpace(e.Key, e.Count)
		}
		for _, p := range s.Pending {
			trimmed := strings.TrimSpace(p.Raw)
			if trimmed == "" {
				continue
			}
			f.recordLength(utf8.RuneCountInString(trimmed), p.Count)
			f.Shapes.MergeIfSpace(escalator.Smash(trimmed), p.Count)
		}
	}
}

// mergeDistributions combines the approximate distributions of both sides
func (m *TextAnalyzer) mergeDistributions(a, b *TextAnalyzer) {
	f := m.facts
	q, err := sketch.NewQuantile(m.cfg.QuantileRelativeAccuracy)
	if err != nil {
		panic(err)
	}
	h := sketch.NewHistogram(m.cfg.HistogramBins, sketch.DefaultSeed)
	for _, side := range []*TextAnalyzer{a, b} {
		s := side.facts
		if s.Sketch != nil {
			if err := q.Merge(s.Sketch); err != nil {
				panic(err)
			}
			h.Merge(s.Histogram)
			continue
		}
		for _, e := range s.Cardinality.Entries() {
			if obs, ok := side.parse(e.Key); ok {
				q.Add(obs.Value, e.Count)
				h.Add(obs.Value, e.Count)
			}
		}
	}
	f.Sketch, f.Histogram = q, h
}
