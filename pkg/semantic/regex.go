/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: regex.go
Description: Literal regular expression matchers for the Akaylee Profiler. A regex matcher is
valid for values that fully match its expression and may additionally bound the observed
minimum and maximum (numerically for numeric base types, lexically otherwise).
*/

package semantic

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
)

// RegexMatcher recognises values by a regular expression
type RegexMatcher struct {
	base
	re      *regexp.Regexp
	minimum string
	maximum string
}

// NewRegex builds a regex matcher from a definition
func NewRegex(def Definition, cache *RegexCache) (Matcher, error) {
	if def.Regexp == "" {
		return nil, fmt.Errorf("regex matcher %s has no regexp", def.SemanticType)
	}
	b, err := newBase(def, cache)
	if err != nil {
		return nil, err
	}
	re, err := cache.CompileAnchored(def.Regexp)
	if err != nil {
		return nil, fmt.Errorf("failed to build matcher %s: %w", def.SemanticType, err)
	}
	return &RegexMatcher{base: b, re: re, minimum: def.Minimum, maximum: def.Maximum}, nil
}

// Kind returns RegexMatch
func (m *RegexMatcher) Kind() Kind { return RegexMatch }

// IsCandidate reports a full match
func (m *RegexMatcher) IsCandidate(trimmed string, shape *escalator.NumericShape) bool {
	return m.re.MatchString(trimmed)
}

// IsValid reports a full match
func (m *RegexMatcher) IsValid(value string, detectMode bool, count int64) bool {
	return m.re.MatchString(value)
}

// AnalyzeSet enforces the threshold and the configured minimum and maximum
func (m *RegexMatcher) AnalyzeSet(ctx *core.AnalysisContext, matchCount, realSamples int64, currentRegexp string,
	facts FactsView, cardinality, outliers map[string]int64, shapes map[string]int64,
	cfg *core.AnalysisConfig) Analysis {

	if m.HeaderConfidence(streamName(ctx)) < 0 {
		return Reject(currentRegexp)
	}
	if m.Confidence(matchCount, realSamples, ctx) < m.effectiveThreshold(ctx, cfg) {
		return Reject(currentRegexp)
	}
	if facts != nil {
		if m.minimum != "" && (facts.MinValue() == "" || m.less(facts.MinValue(), m.minimum)) {
			return Reject(currentRegexp)
		}
		if m.maximum != "" && (facts.MaxValue() == "" || m.less(m.maximum, facts.MaxValue())) {
			return Reject(currentRegexp)
		}
	}
	return Accept()
}

// less compares two bounds in the matcher's base type
func (m *RegexMatcher) less(a, b string) bool {
	if m.baseType.IsNumeric() {
		x, errA := strconv.ParseFloat(a, 64)
		y, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			return x < y
		}
	}
	return a < b
}
