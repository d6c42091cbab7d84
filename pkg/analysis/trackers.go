/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: trackers.go
Description: Per-type validation dispatch for the Akaylee Profiler. Every valid sample is
parsed by the tracker of the current base type and then recorded into the value statistics:
min/max, moments, top/bottom-K, monotonicity and the type-specific facts.
*/

package analysis

import (
	"strings"

	"github.com/kleascm/akaylee-profiler/pkg/core"
)

// track validates a trimmed sample against the current type
func (a *TextAnalyzer) track(trimmed string, count int64) (Observation, bool) {
	if a.matcher != nil && !a.matcherValid(a.matcher, trimmed, count) {
		return Observation{}, false
	}
	return a.parse(trimmed)
}

// parse converts a trimmed sample into an observation under the current type
func (a *TextAnalyzer) parse(trimmed string) (Observation, bool) {
	ti := a.facts.TypeInfo
	switch {
	case ti.BaseType == core.BaseBoolean:
		return a.trackBoolean(trimmed)
	case ti.BaseType == core.BaseLong:
		return a.trackLong(trimmed)
	case ti.BaseType == core.BaseDouble:
		return a.trackDouble(trimmed)
	case ti.BaseType.IsDateType():
		return a.trackDate(trimmed)
	}
	return a.trackString(trimmed)
}

// record folds a valid observation into the value statistics
func (a *TextAnalyzer) record(trimmed string, obs Observation, count int64) {
	f := a.facts
	base := f.TypeInfo.BaseType
	ordered := base.IsNumeric() || base.IsDateType()

	if !a.replaying {
		switch {
		case !ordered || count > 1:
			f.MonotonicIncreasing, f.MonotonicDecreasing = false, false
		case f.LastSeen:
			c := a.compare(obs, f.Last)
			if c <= 0 {
				f.MonotonicIncreasing = false
			}
			if c >= 0 {
				f.MonotonicDecreasing = false
			}
		}
		f.Last, f.LastSeen = obs, true
	}

	if f.Min == nil || a.compare(obs, *f.Min) < 0 {
		o := obs
		f.Min = &o
	}
	if f.Max == nil || a.compare(obs, *f.Max) > 0 {
		o := obs
		f.Max = &o
	}
	if !a.cfg.Statistics {
		return
	}
	if base.IsNumeric() {
		f.Moments.Add(obs.Value, count)
	}
	f.TopBottom.Add(obs)

	switch base {
	case core.BaseLong:
		a.recordLong(trimmed, obs, count)
	case core.BaseDouble:
		a.recordDouble(trimmed, obs, count)
	}
}

// recordLong updates the LONG-specific facts
func (a *TextAnalyzer) recordLong(trimmed string, obs Observation, count int64) {
	f := a.facts
	digits := strings.TrimLeft(trimmed, "+-")
	if len(digits) > 1 && digits[0] == '0' {
		f.LeadingZeroCount += count
	}
	if v := obs.Long; v != 0 && (!f.NonZeroSeen || v < f.MinLongNonZero) {
		f.MinLongNonZero = v
		f.NonZeroSeen = true
	}
	if f.TypeInfo.Flags.Has(core.FlagGrouping) {
		f.GroupingSeparators += int64(strings.Count(trimmed, string(a.locale.Symbols.Grouping))) * count
	}
}

// recordDouble updates the DOUBLE-specific facts
func (a *TextAnalyzer) recordDouble(trimmed string, obs Observation, count int64) {
	f := a.facts
	sym := a.locale.Symbols
	if obs.Value != 0 && (!f.NonZeroSeen || obs.Value < f.MinDoubleNonZero) {
		f.MinDoubleNonZero = obs.Value
		f.NonZeroSeen = true
	}
	if strings.ContainsAny(trimmed, "eE") {
		f.AllZeroFractions = false
		return
	}
	i := strings.IndexRune(trimmed, sym.Decimal)
	if i < 0 {
		return
	}
	f.FractionsSeen = true
	f.DecimalSeparator = string(sym.Decimal)
	fraction := strings.TrimRight(trimmed[i+len(string(sym.Decimal)):], "-")
	if strings.Trim(fraction, "0") != "" {
		f.AllZeroFractions = false
	}
	if f.TypeInfo.Flags.Has(core.FlagGrouping) {
		f.GroupingSeparators += int64(strings.Count(trimmed[:i], string(sym.Grouping))) * count
	}
}
