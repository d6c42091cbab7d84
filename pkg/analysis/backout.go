/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: backout.go
Description: Backout for the Akaylee Profiler. When outliers pile up or drift is detected the
analyzer moves to a looser classification and re-walks only the bounded maps: every stored
valid value and outlier is classified again under the new type. Confidence after a backout
is never lower than before it.
*/

package analysis

import (
	"strings"
	"unicode"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
	"github.com/sirupsen/logrus"
)

// checkBackout evaluates the backout triggers after a sample has been classified
func (a *TextAnalyzer) checkBackout() {
	f := a.facts
	ti := f.TypeInfo
	if ti == nil || a.replaying || ti.IsWildcard() {
		return
	}
	if f.Outliers.Full() {
		a.backout("outlier capacity reached", a.backoutTarget())
		return
	}

	real := f.RealSamples()
	if real < f.NextReflection {
		return
	}
	for f.NextReflection <= real {
		f.NextReflection += a.cfg.ReflectionWindow()
	}
	if f.OutlierCount == 0 {
		return
	}
	if target := a.driftTarget(); target != nil {
		a.backout("drift", target)
		return
	}
	// Below-threshold confidence already implies an error rate above 1-threshold, so
	// DriftRatio only gates the decision when the threshold is close to 100
	errorRate := float64(f.OutlierCount) / float64(real)
	if errorRate > a.cfg.Tuning.DriftRatio && f.Confidence() < a.cfg.ThresholdRatio() {
		a.backout("error rate", a.backoutTarget())
	}
}

// driftTarget returns the widened type when the outliers show a per-type drift
func (a *TextAnalyzer) driftTarget() *core.TypeInfo {
	ti := a.facts.TypeInfo
	switch {
	case ti.SemanticType:
		return nil
	case ti.BaseType == core.BaseLong && a.outliersAllDouble():
		return a.doubleTarget()
	case ti.IsAlphabetic() && a.outliersAll(isAlphanumeric):
		return alnumTarget()
	}
	return nil
}

// backoutTarget returns the looser type to move to
func (a *TextAnalyzer) backoutTarget() *core.TypeInfo {
	f := a.facts
	ti := f.TypeInfo
	switch {
	case ti.SemanticType:
		pattern := core.PatternAny
		if a.matcher != nil {
			if analysis, ok := a.analyzeCurrent(); ok && analysis.NewPattern != "" {
				pattern = analysis.NewPattern
			}
		}
		if ti.BaseType.IsNumeric() {
			return core.NewNumericTypeInfo(ti.BaseType, ti.Flags|core.FlagSigned, a.locale.Symbols)
		}
		if ti.BaseType != core.BaseString || pattern == core.PatternAny {
			return escalator.Wildcard()
		}
		return core.NewTypeInfo(core.BaseString, pattern, 0)
	case ti.BaseType == core.BaseLong && a.outliersAllDouble():
		return a.doubleTarget()
	case ti.IsAlphabetic() && a.outliersAll(isAlphanumeric):
		return alnumTarget()
	}
	return escalator.Wildcard()
}

// outliersAllDouble reports whether every outlier of a LONG stream is a double
func (a *TextAnalyzer) outliersAllDouble() bool {
	f := a.facts
	return a.cfg.NumericWidening && f.OutlierCount > 0 && f.DoubleOutliers == f.OutlierCount
}

// outliersAll reports whether every outlier satisfies pred; unstored outliers are unknown
func (a *TextAnalyzer) outliersAll(pred func(string) bool) bool {
	f := a.facts
	if f.OutlierCount == 0 || f.OutlierCount != f.Outliers.Total() {
		return false
	}
	for _, k := range f.Outliers.Keys() {
		if !pred(k) {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) < 0
}

func (a *TextAnalyzer) doubleTarget() *core.TypeInfo {
	flags := a.facts.TypeInfo.Flags &^ core.FlagZeroFraction
	return core.NewNumericTypeInfo(core.BaseDouble, flags, a.locale.Symbols)
}

func alnumTarget() *core.TypeInfo {
	return core.NewTypeInfo(core.BaseString, core.PatternAlnum, core.FlagAlphanumeric)
}

// backout moves to target, falling back to the wildcard if target would lose confidence
func (a *TextAnalyzer) backout(reason string, target *core.TypeInfo) {
	f := a.facts
	from := f.TypeInfo
	before := f.Confidence()

	a.retrain(target.Supersedes(from))
	if f.Confidence() < before {
		a.retrain(escalator.Wildcard().Supersedes(from))
	}
	f.Backouts++
	after := f.Confidence()

	a.logger.WithFields(logrus.Fields{
		"stream":     a.ctx.StreamName,
		"reason":     reason,
		"from":       from.String(),
		"to":         f.TypeInfo.String(),
		"confidence": after,
	}).Debug("Backed out")
	a.observer.BackedOut(a.ctx, from, f.TypeInfo, reason, before, after)
}

// retrain installs target and re-walks the bounded maps under it
func (a *TextAnalyzer) retrain(target *core.TypeInfo) {
	f := a.facts
	from := f.TypeInfo
	valid := f.Cardinality.Entries()
	outliers := f.Outliers.Entries()
	unstoredValid := f.MatchCount - f.Cardinality.Total()
	unstoredOutliers := f.OutlierCount - f.Outliers.Total()
	hadOutliers := f.OutlierCount > 0
	increasing, decreasing := f.MonotonicIncreasing, f.MonotonicDecreasing
	// Numeric to numeric after overflow keeps the distribution built from unstored values
	keep := f.CardinalityOverflow && from.BaseType.IsNumeric() && target.BaseType.IsNumeric()

	a.setType(target)
	f.Cardinality.Clear()
	f.Outliers.Clear()
	f.OutliersSmashed.Clear()
	f.MatchCount = unstoredValid
	f.OutlierCount = unstoredOutliers
	f.DoubleOutliers = 0
	if keep {
		switch {
		case from.BaseType == core.BaseLong && target.BaseType == core.BaseDouble:
			f.MinDoubleNonZero = float64(f.MinLongNonZero)
		case from.BaseType == core.BaseDouble && target.BaseType == core.BaseLong:
			f.MinLongNonZero = int64(f.MinDoubleNonZero)
			a.fillLongs()
		}
	} else {
		f.resetStatistics()
		f.resetDistribution()
	}

	a.replaying = true
	a.revalidating, a.keepDistribution = true, keep
	for _, e := range valid {
		a.classify("", e.Key, e.Count)
	}
	a.revalidating, a.keepDistribution = false, false
	for _, e := range outliers {
		a.classify("", e.Key, e.Count)
	}
	a.replaying = false

	f.MonotonicIncreasing = increasing && !hadOutliers
	f.MonotonicDecreasing = decreasing && !hadOutliers
}

// fillLongs gives kept DOUBLE observations their integer form once the stream is LONG
func (a *TextAnalyzer) fillLongs() {
	f := a.facts
	for _, o := range []*Observation{f.Min, f.Max, &f.Last} {
		if o != nil {
			o.Long = int64(o.Value)
		}
	}
	kept := f.TopBottom.Values()
	f.TopBottom.Reset()
	for _, o := range kept {
		o.Long = int64(o.Value)
		f.TopBottom.Add(o)
	}
}
