/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracker_numeric.go
Description: LONG and DOUBLE trackers for the Akaylee Profiler. Samples are parsed with the
fast non-localised path first and fall back to a locale-aware parse that strips grouping
separators and handles sign placement. A sample showing a sign, grouping or exponent the
current type lacks widens the type's flags rather than becoming an outlier.
*/

package analysis

import (
	"strconv"
	"strings"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
)

// trackLong validates a LONG sample
func (a *TextAnalyzer) trackLong(trimmed string) (Observation, bool) {
	v, flags, ok := a.parseLong(trimmed)
	if !ok {
		return Observation{}, false
	}
	a.widen(flags)
	return Observation{Value: float64(v), Long: v, Text: trimmed}, true
}

// trackDouble validates a DOUBLE sample
func (a *TextAnalyzer) trackDouble(trimmed string) (Observation, bool) {
	v, flags, ok := a.parseDouble(trimmed)
	if !ok {
		return Observation{}, false
	}
	a.widen(flags)
	return Observation{Value: v, Text: trimmed}, true
}

// parseLong parses an integer, returning the flags its form implies
func (a *TextAnalyzer) parseLong(trimmed string) (int64, core.TypeFlags, bool) {
	if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		var flags core.TypeFlags
		if trimmed[0] == '-' || trimmed[0] == '+' {
			flags = core.FlagSigned
		}
		return v, flags, true
	}

	sym := a.locale.Symbols
	s := trimmed
	if a.facts.TypeInfo.Flags.Has(core.FlagZeroFraction) {
		s = stripZeroFraction(s, sym)
	}
	shape := escalator.Scan(s, sym)
	if !shape.Numeric || shape.Double {
		return 0, 0, false
	}
	v, err := strconv.ParseInt(normalizeNumber(s, sym), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return v, shape.Flags(), true
}

// parseDouble parses a decimal number, returning the flags its form implies
func (a *TextAnalyzer) parseDouble(trimmed string) (float64, core.TypeFlags, bool) {
	sym := a.locale.Symbols
	shape := escalator.Scan(trimmed, sym)
	if !shape.Numeric {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(normalizeNumber(trimmed, sym), 64)
	if err != nil {
		return 0, 0, false
	}
	return v, shape.Flags(), true
}

// parsesAsDouble reports whether an outlier of a LONG stream is a valid double
func (a *TextAnalyzer) parsesAsDouble(trimmed string) bool {
	_, _, ok := a.parseDouble(trimmed)
	return ok
}

// widen adds flags the current numeric type lacks; semantic types keep their pattern
func (a *TextAnalyzer) widen(flags core.TypeFlags) {
	ti := a.facts.TypeInfo
	flags &= core.FlagSigned | core.FlagTrailingMinus | core.FlagGrouping | core.FlagExponent
	if ti.SemanticType || ti.Flags.Has(flags) {
		return
	}
	if ti.BaseType == core.BaseLong {
		flags &^= core.FlagExponent
	}
	widened := core.NewNumericTypeInfo(ti.BaseType, ti.Flags|flags, a.locale.Symbols)
	a.facts.TypeInfo = widened.Supersedes(ti)
}

// normalizeNumber rewrites a localised number into the form strconv accepts
func normalizeNumber(s string, sym core.Symbols) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == sym.Grouping, sym.Grouping == ' ' && (r == '\u00a0' || r == '\u202f'):
		case r == sym.Decimal:
			b.WriteByte('.')
		case r == sym.Minus:
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if strings.HasSuffix(out, "-") {
		out = "-" + strings.TrimSuffix(out, "-")
	}
	return out
}

// stripZeroFraction drops a decimal separator followed only by zeros
func stripZeroFraction(s string, sym core.Symbols) string {
	i := strings.LastIndex(s, string(sym.Decimal))
	if i < 0 {
		return s
	}
	fraction := s[i+len(string(sym.Decimal)):]
	suffix := ""
	if strings.HasSuffix(fraction, "-") {
		fraction, suffix = strings.TrimSuffix(fraction, "-"), "-"
	}
	if fraction == "" || strings.Trim(fraction, "0") != "" {
		return s
	}
	return s[:i] + suffix
}
