/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: matcher.go
Description: Semantic type matcher contract for the Akaylee Profiler. A matcher recognises a
named domain concept (an email address, a country code, a colour) on top of a base type.
Matchers come in three kinds: closed finite sets, open code-driven validators and literal
regular expressions. Each kind applies its own acceptance policy in AnalyzeSet.
*/

package semantic

import (
	"fmt"
	"regexp"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
)

// Kind is the closed set of matcher variants
type Kind int

const (
	Finite Kind = iota
	Infinite
	RegexMatch
)

// String returns the kind name used in definition files
func (k Kind) String() string {
	switch k {
	case Finite:
		return "finite"
	case Infinite:
		return "infinite"
	case RegexMatch:
		return "regex"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a definition kind back to a Kind
func ParseKind(s string) (Kind, error) {
	switch s {
	case "finite":
		return Finite, nil
	case "infinite", "java", "code":
		return Infinite, nil
	case "regex":
		return RegexMatch, nil
	}
	return Finite, fmt.Errorf("unknown matcher kind %q", s)
}

// FactsView is the read-only slice of analysis facts a matcher may consult
type FactsView interface {
	MinValue() string
	MaxValue() string
	MinTrimmedLength() int
	MaxTrimmedLength() int
	SampleCount() int64
	NullCount() int64
	BlankCount() int64
}

// Analysis is a matcher's verdict over the whole set of values
type Analysis struct {
	Valid      bool   `json:"valid"`
	NewPattern string `json:"newPattern,omitempty"` // Fallback pattern when rejected
}

// Accept is a positive verdict
func Accept() Analysis {
	return Analysis{Valid: true}
}

// Reject is a negative verdict suggesting a fallback pattern
func Reject(pattern string) Analysis {
	return Analysis{NewPattern: pattern}
}

// Matcher is implemented by every semantic type
type Matcher interface {
	Name() string
	Kind() Kind
	BaseType() core.BaseType
	Regexp() string
	Priority() int
	Threshold() int

	// IsCandidate is a cheap shape-level test used while probing the detect window
	IsCandidate(trimmed string, shape *escalator.NumericShape) bool
	// IsValid is the authoritative per-value test
	IsValid(value string, detectMode bool, count int64) bool
	// AnalyzeSet judges the stream as a whole
	AnalyzeSet(ctx *core.AnalysisContext, matchCount, realSamples int64, currentRegexp string,
		facts FactsView, cardinality, outliers map[string]int64, shapes map[string]int64,
		cfg *core.AnalysisConfig) Analysis
	Confidence(matchCount, realSamples int64, ctx *core.AnalysisContext) float64
	// HeaderConfidence scores a field name from -100 (never this type) to 100 (certainly this type)
	HeaderConfidence(streamName string) int
}

// headerHint is a compiled header expression and its confidence
type headerHint struct {
	re         *regexp.Regexp
	confidence int
}

// base holds what every matcher kind shares
type base struct {
	name      string
	baseType  core.BaseType
	regexp    string
	priority  int
	threshold int
	backout   string
	headers   []headerHint
}

func newBase(def Definition, cache *RegexCache) (base, error) {
	bt, err := core.ParseBaseType(def.BaseType)
	if err != nil {
		return base{}, fmt.Errorf("failed to build matcher %s: %w", def.SemanticType, err)
	}
	b := base{
		name:      def.SemanticType,
		baseType:  bt,
		regexp:    def.Regexp,
		priority:  def.Priority,
		threshold: def.Threshold,
		backout:   def.Backout,
	}
	if b.backout == "" {
		b.backout = core.PatternAny
	}
	for _, h := range def.HeaderRegExps {
		re, err := cache.Compile("(?i)" + h.Regexp)
		if err != nil {
			return base{}, fmt.Errorf("failed to compile header expression for %s: %w", def.SemanticType, err)
		}
		b.headers = append(b.headers, headerHint{re: re, confidence: h.Confidence})
	}
	return b, nil
}

func (b *base) Name() string            { return b.name }
func (b *base) BaseType() core.BaseType { return b.baseType }
func (b *base) Regexp() string          { return b.regexp }
func (b *base) Priority() int           { return b.priority }
func (b *base) Threshold() int          { return b.threshold }

// HeaderConfidence returns the confidence of the first header expression matching the name
func (b *base) HeaderConfidence(streamName string) int {
	if streamName == "" {
		return 0
	}
	for _, h := range b.headers {
		if h.re.MatchString(streamName) {
			return h.confidence
		}
	}
	return 0
}

// Confidence is the share of real samples that matched
func (b *base) Confidence(matchCount, realSamples int64, ctx *core.AnalysisContext) float64 {
	if realSamples <= 0 {
		return 0
	}
	return float64(matchCount) / float64(realSamples)
}

func (b *base) effectiveThreshold(ctx *core.AnalysisContext, cfg *core.AnalysisConfig) float64 {
	return EffectiveThreshold(b, ctx, cfg)
}

// headerScorer is the part of a matcher EffectiveThreshold needs
type headerScorer interface {
	Threshold() int
	HeaderConfidence(streamName string) int
}

// EffectiveThreshold is a matcher's acceptance ratio after applying the header signal
func EffectiveThreshold(m headerScorer, ctx *core.AnalysisContext, cfg *core.AnalysisConfig) float64 {
	threshold := m.Threshold()
	if threshold == 0 {
		threshold = cfg.PluginThreshold
	}
	threshold -= m.HeaderConfidence(streamName(ctx)) / 10
	threshold = max(0, min(100, threshold))
	return float64(threshold) / 100
}

// streamName tolerates a nil context
func streamName(ctx *core.AnalysisContext) string {
	if ctx == nil {
		return ""
	}
	return ctx.StreamName
}
