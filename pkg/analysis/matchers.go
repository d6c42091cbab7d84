/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: matchers.go
Description: Semantic matcher calls for the Akaylee Profiler. Matchers are external code, so
every call is guarded: a panic is logged, reported to the observer and counted as an
abstention. Also holds the detect-window sniff that upgrades a committed base type to a
semantic type.
*/

package analysis

import (
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/semantic"
	"github.com/sirupsen/logrus"
)

// recoverMatcher turns a matcher panic into an abstention
func (a *TextAnalyzer) recoverMatcher(m semantic.Matcher, call string, failed *bool) {
	r := recover()
	if r == nil {
		return
	}
	*failed = true
	a.logger.WithFields(logrus.Fields{
		"stream":  a.ctx.StreamName,
		"matcher": m.Name(),
		"call":    call,
		"panic":   r,
	}).Warn("Semantic matcher failed")
	a.observer.MatcherFailed(a.ctx, m.Name(), call)
}

// matcherValid asks a matcher to validate a value; a failing matcher does not reject
func (a *TextAnalyzer) matcherValid(m semantic.Matcher, value string, count int64) (valid bool) {
	var failed bool
	defer func() {
		if failed {
			valid = true
		}
	}()
	defer a.recoverMatcher(m, "IsValid", &failed)
	return m.IsValid(value, false, count)
}

// matcherCandidate asks a matcher whether a buffered sample could belong to it
func (a *TextAnalyzer) matcherCandidate(m semantic.Matcher, index int) (candidate bool) {
	var failed bool
	defer a.recoverMatcher(m, "IsCandidate", &failed)
	shapes := a.window.Shapes()
	return m.IsCandidate(a.window.Samples()[index], &shapes[index])
}

// analyzeSet asks a matcher for its verdict over a set of values
func (a *TextAnalyzer) analyzeSet(m semantic.Matcher, matchCount int64, cardinality, outliers map[string]int64) (semantic.Analysis, bool) {
	var failed bool
	analysis := func() semantic.Analysis {
		defer a.recoverMatcher(m, "AnalyzeSet", &failed)
		f := a.facts
		return m.AnalyzeSet(a.ctx, matchCount, f.RealSamples(), f.TypeInfo.Regexp, factsView{f},
			cardinality, outliers, f.Shapes.Map(), a.cfg)
	}()
	return analysis, !failed
}

// analyzeCurrent runs the current matcher's set analysis over the current maps
func (a *TextAnalyzer) analyzeCurrent() (semantic.Analysis, bool) {
	f := a.facts
	return a.analyzeSet(a.matcher, f.MatchCount, f.Cardinality.Map(), f.Outliers.Map())
}

// sniff looks for a semantic type among the buffered samples
// Infinite matchers compete on confidence; regex matchers are then tried in priority order.
func (a *TextAnalyzer) sniff(ti *core.TypeInfo) semantic.Matcher {
	pending := a.facts.Pending
	if len(pending) != a.window.Len() {
		return nil
	}
	var total int64
	for _, p := range pending {
		total += p.Count
	}
	if total == 0 {
		return nil
	}

	var best semantic.Matcher
	bestConfidence := 0.0
	for _, m := range a.matchers {
		if m.Kind() != semantic.Infinite || m.BaseType() != ti.BaseType || a.headerVeto(m) {
			continue
		}
		var matched int64
		for i, p := range pending {
			if a.matcherCandidate(m, i) {
				matched += p.Count
			}
		}
		confidence := m.Confidence(matched, total, a.ctx)
		if confidence >= semantic.EffectiveThreshold(m, a.ctx, a.cfg) && confidence > bestConfidence {
			best, bestConfidence = m, confidence
		}
	}
	if best != nil {
		return best
	}

	for _, m := range a.matchers {
		if m.Kind() != semantic.RegexMatch || m.BaseType() != ti.BaseType || a.headerVeto(m) {
			continue
		}
		var matched int64
		for i, p := range pending {
			if a.sniffValid(m, a.window.Samples()[i]) {
				matched += p.Count
			}
		}
		if m.Confidence(matched, total, a.ctx) >= semantic.EffectiveThreshold(m, a.ctx, a.cfg) {
			return m
		}
	}
	return nil
}

// sniffValid validates a buffered sample in detect mode; a failing matcher rejects
func (a *TextAnalyzer) sniffValid(m semantic.Matcher, value string) (valid bool) {
	var failed bool
	defer a.recoverMatcher(m, "IsValid", &failed)
	return m.IsValid(value, true, 1)
}

// headerVeto reports whether the stream name rules a matcher out
func (a *TextAnalyzer) headerVeto(m semantic.Matcher) bool {
	return m.HeaderConfidence(a.ctx.StreamName) < 0
}
