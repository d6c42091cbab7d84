/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: finite.go
Description: Closed-set matchers for the Akaylee Profiler. A finite matcher knows every member
of its domain (colours, genders, country codes). Membership is case-insensitive. The set is
accepted when enough samples are members; the number of distinct non-members tolerated grows
with the confidence carried by the field name.
*/

package semantic

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FiniteMatcher recognises members of a closed set
// Not safe for concurrent use; every analysis builds its own matchers
type FiniteMatcher struct {
	base
	members   map[string]struct{}
	minLength int
	maxLength int
	caser     cases.Caser
}

// NewFinite builds a finite matcher from a definition
func NewFinite(def Definition, cache *RegexCache) (Matcher, error) {
	b, err := newBase(def, cache)
	if err != nil {
		return nil, err
	}
	if len(def.Members) == 0 {
		return nil, fmt.Errorf("finite matcher %s has no members", def.SemanticType)
	}
	m := &FiniteMatcher{
		base:      b,
		members:   make(map[string]struct{}, len(def.Members)),
		minLength: int(^uint(0) >> 1),
		caser:     cases.Upper(language.Und),
	}
	for _, member := range def.Members {
		upper := m.caser.String(strings.TrimSpace(member))
		m.members[upper] = struct{}{}
		n := utf8.RuneCountInString(upper)
		m.minLength = min(m.minLength, n)
		m.maxLength = max(m.maxLength, n)
	}
	if m.regexp == "" {
		m.regexp = core.LengthQualified(`\p{L}`, m.minLength, m.maxLength)
	}
	return m, nil
}

// Kind returns Finite
func (m *FiniteMatcher) Kind() Kind { return Finite }

// Members returns the number of members in the set
func (m *FiniteMatcher) Members() int { return len(m.members) }

// IsCandidate checks length bounds before membership
func (m *FiniteMatcher) IsCandidate(trimmed string, shape *escalator.NumericShape) bool {
	n := utf8.RuneCountInString(trimmed)
	if n < m.minLength || n > m.maxLength {
		return false
	}
	return m.IsValid(trimmed, true, 1)
}

// IsValid reports case-insensitive membership
func (m *FiniteMatcher) IsValid(value string, detectMode bool, count int64) bool {
	_, ok := m.members[m.caser.String(strings.TrimSpace(value))]
	return ok
}

// AnalyzeSet accepts when matches reach the threshold and few distinct values are outside the set
func (m *FiniteMatcher) AnalyzeSet(ctx *core.AnalysisContext, matchCount, realSamples int64, currentRegexp string,
	facts FactsView, cardinality, outliers map[string]int64, shapes map[string]int64,
	cfg *core.AnalysisConfig) Analysis {

	header := m.HeaderConfidence(streamName(ctx))
	if header < 0 {
		return Reject(currentRegexp)
	}

	distinctMembers := 0
	for value := range cardinality {
		if m.IsValid(value, false, 0) {
			distinctMembers++
		}
	}
	// A lone distinct value is not enough evidence without a supporting field name
	if distinctMembers < 2 && header <= 0 && len(m.members) > 2 {
		return Reject(currentRegexp)
	}

	budget := 1 + header/25
	if len(outliers) > budget {
		return Reject(currentRegexp)
	}
	if m.Confidence(matchCount, realSamples, ctx) < m.effectiveThreshold(ctx, cfg) {
		return Reject(currentRegexp)
	}
	return Accept()
}
