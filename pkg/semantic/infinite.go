/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: infinite.go
Description: Open-domain matchers for the Akaylee Profiler. An infinite matcher cannot list its
members, so it is driven by code: a cheap candidacy test over the sample's character profile
and an authoritative validator. The built-in validators cover email addresses, IPv4
addresses, GUIDs and URLs.
*/

package semantic

import (
	"net/mail"
	"net/netip"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
)

// Validator is the code behind an infinite matcher
type Validator struct {
	Candidate func(trimmed string, shape *escalator.NumericShape) bool
	Valid     func(value string) bool
}

// InfiniteMatcher recognises an open-ended domain with code
type InfiniteMatcher struct {
	base
	validator Validator
}

// NewInfinite builds an infinite matcher around a validator
func NewInfinite(validator Validator) Constructor {
	return func(def Definition, cache *RegexCache) (Matcher, error) {
		b, err := newBase(def, cache)
		if err != nil {
			return nil, err
		}
		if b.regexp == "" {
			b.regexp = core.PatternAny
		}
		return &InfiniteMatcher{base: b, validator: validator}, nil
	}
}

// Kind returns Infinite
func (m *InfiniteMatcher) Kind() Kind { return Infinite }

// IsCandidate runs the validator's cheap test, falling back to full validation
func (m *InfiniteMatcher) IsCandidate(trimmed string, shape *escalator.NumericShape) bool {
	if m.validator.Candidate != nil && shape != nil && !m.validator.Candidate(trimmed, shape) {
		return false
	}
	return m.validator.Valid(trimmed)
}

// IsValid runs the validator
func (m *InfiniteMatcher) IsValid(value string, detectMode bool, count int64) bool {
	return m.validator.Valid(strings.TrimSpace(value))
}

// AnalyzeSet accepts when the match ratio reaches the threshold
func (m *InfiniteMatcher) AnalyzeSet(ctx *core.AnalysisContext, matchCount, realSamples int64, currentRegexp string,
	facts FactsView, cardinality, outliers map[string]int64, shapes map[string]int64,
	cfg *core.AnalysisConfig) Analysis {

	if m.HeaderConfidence(streamName(ctx)) < 0 {
		return Reject(m.backout)
	}
	if m.Confidence(matchCount, realSamples, ctx) < m.effectiveThreshold(ctx, cfg) {
		return Reject(m.backout)
	}
	return Accept()
}

// EmailValidator validates bare email addresses
var EmailValidator = Validator{
	Candidate: func(trimmed string, shape *escalator.NumericShape) bool {
		return shape.Count('@') == 1 && shape.Last('.') > shape.Last('@')
	},
	Valid: func(value string) bool {
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value || addr.Name != "" {
			return false
		}
		at := strings.LastIndexByte(value, '@')
		return strings.Contains(value[at+1:], ".")
	},
}

// IPv4Validator validates dotted-quad IPv4 addresses
var IPv4Validator = Validator{
	Candidate: func(trimmed string, shape *escalator.NumericShape) bool {
		return shape.Count('.') == 3 && shape.Letters == 0 && shape.Digits >= 4
	},
	Valid: func(value string) bool {
		addr, err := netip.ParseAddr(value)
		return err == nil && addr.Is4()
	},
}

// GUIDValidator validates hyphenated 36 character GUIDs
var GUIDValidator = Validator{
	Candidate: func(trimmed string, shape *escalator.NumericShape) bool {
		return shape.Length == 36 && shape.Count('-') == 4
	},
	Valid: func(value string) bool {
		if len(value) != 36 {
			return false
		}
		_, err := uuid.Parse(value)
		return err == nil
	},
}

var urlSchemes = map[string]bool{"http": true, "https": true, "ftp": true, "ftps": true}

// URLValidator validates absolute http(s)/ftp URLs
var URLValidator = Validator{
	Candidate: func(trimmed string, shape *escalator.NumericShape) bool {
		return shape.Count(':') >= 1 && shape.Count('/') >= 2 && shape.Count(' ') == 0
	},
	Valid: func(value string) bool {
		u, err := url.Parse(value)
		return err == nil && urlSchemes[strings.ToLower(u.Scheme)] && u.Host != ""
	},
}
