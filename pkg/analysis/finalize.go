/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: finalize.go
Description: Finalization passes for the Akaylee Profiler. Result runs the one-shot checks
that are too expensive per sample: the last backout, semantic set analysis, LONG and
zero-fraction DOUBLE streams that are really dates or integers, closed-set matchers, enum
detection, re-analysis and pattern refinement.
*/

package analysis

import (
	"math"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/datetime"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
	"github.com/kleascm/akaylee-profiler/pkg/semantic"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// dateHeaderHint matches field names that suggest a date held as a number
const dateHeaderHint = `(?i)date|dob|year|yr|birth|_dt$|^dt_`

// Result finalizes the analysis and returns its snapshot; later training is rejected
func (a *TextAnalyzer) Result() (*Result, error) {
	if err := a.start(); err != nil {
		return nil, err
	}
	if a.result != nil {
		return a.result, nil
	}
	if _, err := a.guard(a.finalize); err != nil {
		return nil, err
	}
	a.result = a.buildResult()
	a.frozen = true

	a.logger.WithFields(logrus.Fields{
		"stream":     a.ctx.StreamName,
		"type":       a.result.TypeInfo.String(),
		"samples":    a.result.SampleCount,
		"confidence": a.result.Confidence,
		"backouts":   a.result.Backouts,
	}).Info("Analysis complete")
	a.observer.Completed(a.ctx, a.result)
	return a.result, nil
}

// finalize runs the finalization passes in order
func (a *TextAnalyzer) finalize() {
	f := a.facts
	if f.TypeInfo == nil {
		if len(f.Pending) > 0 {
			a.commit()
		} else {
			a.setType(escalator.Wildcard())
		}
	}
	a.finalBackout()
	a.checkSemanticSet()
	a.zeroFractionToLong()
	a.longToDate()
	a.matchFiniteSets()
	a.detectEnum()
	if !a.nested {
		a.reanalyse()
	}
	a.refine()
}

// finalBackout backs out a plain type that ends below the threshold
func (a *TextAnalyzer) finalBackout() {
	f := a.facts
	ti := f.TypeInfo
	if ti.SemanticType || ti.IsWildcard() || f.OutlierCount == 0 {
		return
	}
	if f.Confidence() < a.cfg.ThresholdRatio() {
		a.backout("final confidence", a.backoutTarget())
	}
}

// checkSemanticSet asks the current matcher to judge the whole stream
func (a *TextAnalyzer) checkSemanticSet() {
	if !a.facts.TypeInfo.SemanticType || a.matcher == nil {
		return
	}
	if analysis, ok := a.analyzeCurrent(); ok && analysis.Valid {
		return
	}
	a.backout("semantic set rejected", a.backoutTarget())
}

// zeroFractionToLong turns a DOUBLE stream whose fractions are all zero into a LONG
func (a *TextAnalyzer) zeroFractionToLong() {
	f := a.facts
	ti := f.TypeInfo
	if ti.BaseType != core.BaseDouble || ti.SemanticType || ti.Flags.Has(core.FlagExponent) ||
		!f.FractionsSeen || !f.AllZeroFractions || f.Min == nil || f.Max == nil {
		return
	}
	if f.Min.Value < math.MinInt64 || f.Max.Value >= math.MaxInt64 {
		return
	}
	target := core.NewNumericTypeInfo(core.BaseLong, ti.Flags|core.FlagZeroFraction, a.locale.Symbols)
	a.logger.WithField("stream", a.ctx.StreamName).Debug("All fractions are zero, retyping as LONG")
	a.retrain(target.Supersedes(ti))
}

// longToDate retypes a LONG stream of compact dates such as 20240131 as LOCALDATE
func (a *TextAnalyzer) longToDate() {
	f := a.facts
	ti := f.TypeInfo
	if ti.BaseType != core.BaseLong || ti.SemanticType || f.CardinalityOverflow || f.Min == nil ||
		ti.Flags&(core.FlagSigned|core.FlagGrouping|core.FlagZeroFraction) != 0 {
		return
	}
	if f.MinTrimmedLength != f.MaxTrimmedLength {
		return
	}
	var format string
	var divisor int64
	switch f.MinTrimmedLength {
	case 8:
		format, divisor = "yyyyMMdd", 10000
	case 6:
		format, divisor = "yyyyMM", 100
	case 4:
		format, divisor = "yyyy", 1
	default:
		return
	}
	minYear, maxYear := f.Min.Long/divisor, f.Max.Long/divisor
	if minYear < 1800 || maxYear > 2100 {
		return
	}
	if f.RealSamples() < a.cfg.Tuning.DateFromLongMinSamples && !a.headerMatches(dateHeaderHint) {
		return
	}
	for _, k := range f.Cardinality.Keys() {
		if a.parser.Parse(format, k).Kind != datetime.OK {
			return
		}
	}
	target, err := datetime.TypeInfo(format)
	if err != nil {
		return
	}
	a.logger.WithFields(logrus.Fields{
		"stream": a.ctx.StreamName,
		"format": format,
	}).Debug("LONG values are dates")
	a.retrain(target.Supersedes(ti))
}

// headerMatches reports whether the stream name matches a hint pattern
func (a *TextAnalyzer) headerMatches(pattern string) bool {
	if a.ctx.StreamName == "" {
		return false
	}
	re, err := a.registry.Cache().Compile(pattern)
	return err == nil && re.MatchString(a.ctx.StreamName)
}

// matchFiniteSets tries the closed-set matchers against a plain STRING stream
func (a *TextAnalyzer) matchFiniteSets() {
	f := a.facts
	ti := f.TypeInfo
	if ti.BaseType != core.BaseString || ti.SemanticType || f.CardinalityOverflow || f.Cardinality.Len() == 0 {
		return
	}
	values := append(f.Cardinality.Entries(), f.Outliers.Entries()...)
	for _, m := range a.matchers {
		if m.Kind() != semantic.Finite || m.BaseType() != core.BaseString || a.headerVeto(m) {
			continue
		}
		members := make(map[string]int64)
		others := make(map[string]int64)
		var matched int64
		for _, e := range values {
			if a.matcherValid(m, e.Key, e.Count) {
				members[e.Key] += e.Count
				matched += e.Count
			} else {
				others[e.Key] += e.Count
			}
		}
		if matched == 0 {
			continue
		}
		if analysis, ok := a.analyzeSet(m, matched, members, others); !ok || !analysis.Valid {
			continue
		}
		a.logger.WithFields(logrus.Fields{
			"stream":   a.ctx.StreamName,
			"semantic": m.Name(),
		}).Debug("Closed set matched")
		a.matcher = m
		a.retrain(core.NewSemanticTypeInfo(m.BaseType(), m.Regexp(), m.Name()).Supersedes(ti))
		return
	}
}

// detectEnum replaces the pattern of a low-cardinality STRING stream with its value list
func (a *TextAnalyzer) detectEnum() {
	f := a.facts
	ti := f.TypeInfo
	tuning := a.cfg.Tuning
	n := f.Cardinality.Len()
	if ti.BaseType != core.BaseString || ti.SemanticType || f.CardinalityOverflow ||
		n < 2 || n > tuning.EnumMaxCardinality ||
		f.RealSamples() < int64(a.cfg.DetectWindow) || f.MatchCount < 2*int64(n) {
		return
	}

	entries := f.Cardinality.Entries()
	upper := cases.Upper(language.Und)
	folded := make([]string, len(entries))
	for i, e := range entries {
		folded[i] = upper.String(e.Key)
	}
	var pruned []int
	for i, v := range entries {
		limit := 2
		if len([]rune(folded[i])) <= 5 {
			limit = 1
		}
		for j, w := range entries {
			if i != j && w.Count >= 10*v.Count && levenshtein(folded[i], folded[j]) <= limit {
				pruned = append(pruned, i)
				break
			}
		}
	}
	if n-len(pruned) < 2 {
		return
	}
	for _, i := range pruned {
		count := f.Cardinality.Remove(entries[i].Key)
		f.Invalid.MergeIfSpace(entries[i].Key, count)
		f.MatchCount -= count
	}

	pattern, _, err := a.registry.Cache().Enum(f.Cardinality.Keys())
	if err != nil {
		a.logger.WithField("stream", a.ctx.StreamName).Warnf("Failed to build enum pattern: %v", err)
		return
	}
	a.logger.WithFields(logrus.Fields{
		"stream": a.ctx.StreamName,
		"values": f.Cardinality.Len(),
		"pruned": len(pruned),
	}).Debug("Enumeration detected")
	a.setType(core.NewTypeInfo(core.BaseString, pattern, ti.Flags).Supersedes(ti))
}

// refine tightens generic patterns using the observed lengths and shapes
func (a *TextAnalyzer) refine() {
	f := a.facts
	ti := f.TypeInfo
	if ti.SemanticType || f.MatchCount == 0 || f.MinTrimmedLength == 0 {
		return
	}
	lo, hi := f.MinTrimmedLength, f.MaxTrimmedLength
	var pattern string
	switch {
	case ti.BaseType == core.BaseLong && ti.Regexp == core.PatternLong:
		pattern = core.LengthQualified(core.PatternDigits, lo, hi)
	case ti.BaseType != core.BaseString:
		return
	case ti.Regexp != core.PatternAlpha && ti.Regexp != core.PatternAlnum && ti.Regexp != core.PatternAny:
		return
	case f.OutlierCount == 0 && f.Shapes.Len() == 1 && f.Shapes.Total() == f.MatchCount &&
		f.Shapes.Keys()[0] != core.PatternAny:
		pattern = f.Shapes.Keys()[0]
	case ti.Regexp == core.PatternAlpha:
		pattern = core.LengthQualified(`\p{L}`, lo, hi)
	case ti.Regexp == core.PatternAlnum:
		pattern = core.LengthQualified(`[\p{L}\d]`, lo, hi)
	case f.Multiline == 0:
		pattern = core.LengthQualified(".", lo, hi)
	default:
		return
	}
	a.setType(ti.WithRegexp(pattern))
}
