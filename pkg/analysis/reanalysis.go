/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reanalysis.go
Description: Re-analysis for the Akaylee Profiler. A stream that ended with a weak or
wildcard classification is re-run in bulk from its bounded maps, first without its worst
outlier, then without low-density numeric clusters, then whole. An attempt is adopted only
when it yields a strictly more specific type that still meets the threshold.
*/

package analysis

import (
	"strconv"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
	"github.com/kleascm/akaylee-profiler/pkg/freqmap"
	"github.com/kleascm/akaylee-profiler/pkg/sketch"
	"github.com/sirupsen/logrus"
)

// reanalysisBuckets is the histogram resolution used to find low-density clusters
const reanalysisBuckets = 10

// specificity ranks how much a classification says about its values
func specificity(ti *core.TypeInfo) int {
	var s int
	switch {
	case ti.IsWildcard():
		s = 0
	case ti.IsAlphanumeric():
		s = 1
	case ti.BaseType == core.BaseString:
		s = 2
	case ti.BaseType == core.BaseDouble:
		s = 3
	default:
		s = 4
	}
	if ti.SemanticType {
		s++
	}
	return s
}

// child creates an analyzer sharing this one's configuration, context and registry
func (a *TextAnalyzer) child(nested bool) (*TextAnalyzer, error) {
	c, err := NewTextAnalyzer(a.ctx, a.cfg.Clone(),
		WithRegistry(a.registry),
		WithLogger(a.logger.WithField("nested", nested)),
	)
	if err != nil {
		return nil, err
	}
	c.nested = nested
	if err := c.start(); err != nil {
		return nil, err
	}
	return c, nil
}

// reanalyse runs the re-analysis attempts until one is adopted
func (a *TextAnalyzer) reanalyse() {
	f := a.facts
	ti := f.TypeInfo
	if ti.SemanticType || f.CardinalityOverflow || f.OutlierCount != f.Outliers.Total() {
		return
	}
	if f.Confidence() >= 1 && !ti.IsWildcard() {
		return
	}

	attempts := []struct {
		name    string
		exclude map[string]bool
	}{
		{"worst-outlier", a.worstOutlier()},
		{"low-density", a.lowDensityValues()},
		{"bulk", map[string]bool{}},
	}
	for _, attempt := range attempts {
		if attempt.exclude == nil {
			continue
		}
		accepted := a.attempt(attempt.name, attempt.exclude)
		a.observer.Reanalysed(a.ctx, attempt.name, accepted)
		if accepted {
			return
		}
	}
}

// worstOutlier returns the most frequent outlier, or nil when there is none
func (a *TextAnalyzer) worstOutlier() map[string]bool {
	byCount := a.facts.Outliers.ByCount()
	if len(byCount) == 0 {
		return nil
	}
	return map[string]bool{byCount[0].Key: true}
}

// lowDensityValues returns the numeric values lying in sparsely populated histogram clusters
func (a *TextAnalyzer) lowDensityValues() map[string]bool {
	values := make(map[string]float64)
	exact := make(map[float64]int64)
	for _, e := range a.storedValues() {
		v, err := strconv.ParseFloat(normalizeNumber(e.Key, a.locale.Symbols), 64)
		if err != nil {
			continue
		}
		values[e.Key] = v
		exact[v] += e.Count
	}
	if len(exact) < 2 {
		return nil
	}
	buckets := sketch.FromExact(exact).Buckets(reanalysisBuckets)
	sketch.TagClusters(buckets)
	if len(buckets) < 2 {
		return nil
	}
	width := buckets[0].High - buckets[0].Low
	low := buckets[0].Low
	exclude := make(map[string]bool)
	for k, v := range values {
		i := min(int((v-low)/width), len(buckets)-1)
		if buckets[i].ClusterShare < a.cfg.Tuning.LowDensityClusterShare {
			exclude[k] = true
		}
	}
	if len(exclude) == 0 {
		return nil
	}
	return exclude
}

// storedValues returns the valid values and the outliers
func (a *TextAnalyzer) storedValues() []freqmap.Entry {
	f := a.facts
	return append(f.Cardinality.Entries(), f.Outliers.Entries()...)
}

// attempt re-runs the stream without the excluded values and adopts the result if it is better
func (a *TextAnalyzer) attempt(name string, exclude map[string]bool) bool {
	f := a.facts
	values := make(map[string]int64)
	for _, e := range a.storedValues() {
		if !exclude[e.Key] {
			values[e.Key] += e.Count
		}
	}
	if len(values) == 0 {
		return false
	}

	c, err := a.child(true)
	if err != nil {
		a.logger.WithField("stream", a.ctx.StreamName).Warnf("Failed to create re-analysis: %v", err)
		return false
	}
	if err := c.TrainBulk(values); err != nil {
		return false
	}
	if _, err := c.guard(c.finalize); err != nil {
		return false
	}

	cf := c.facts
	penalty := f.ConfidencePenalty + a.cfg.Tuning.ReanalysisPenalty
	confidence := float64(cf.MatchCount)/float64(f.RealSamples()) - penalty
	accepted := specificity(cf.TypeInfo) > specificity(f.TypeInfo) && confidence >= a.cfg.ThresholdRatio()

	a.logger.WithFields(logrus.Fields{
		"stream":     a.ctx.StreamName,
		"attempt":    name,
		"type":       cf.TypeInfo.String(),
		"confidence": confidence,
		"accepted":   accepted,
	}).Debug("Re-analysis attempt")
	if !accepted {
		return false
	}

	for _, e := range a.storedValues() {
		if exclude[e.Key] {
			cf.Outliers.MergeIfSpace(e.Key, e.Count)
			cf.OutliersSmashed.MergeIfSpace(escalator.Smash(e.Key), e.Count)
			cf.OutlierCount += e.Count
			cf.SampleCount += e.Count
		}
	}
	cf.SampleCount += f.NullCount + f.BlankCount
	cf.NullCount += f.NullCount
	cf.BlankCount += f.BlankCount
	cf.InternalErrors += f.InternalErrors
	cf.LeadingWhiteSpace, cf.TrailingWhiteSpace, cf.Multiline = f.LeadingWhiteSpace, f.TrailingWhiteSpace, f.Multiline
	cf.ConfidencePenalty = penalty
	cf.Backouts += f.Backouts

	tb := sketch.NewTopBottomK(a.cfg.TopBottomK, a.compare)
	a.facts = cf
	for _, o := range cf.TopBottom.Values() {
		tb.Add(o)
	}
	cf.TopBottom = tb
	a.setType(cf.TypeInfo)
	a.matcher = c.matcher
	return true
}
