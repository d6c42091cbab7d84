/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: facts.go
Description: Accumulated state of one analysis for the Akaylee Profiler. Facts is owned by
exactly one TextAnalyzer and is mutated only through it. It holds the counters, the bounded
frequency maps, the per-type statistics and the approximate distributions, and it can be
written to JSON and read back so an analysis can continue in another process.
*/

package analysis

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/freqmap"
	"github.com/kleascm/akaylee-profiler/pkg/sketch"
)

// LengthBuckets is the number of trimmed-length buckets; the last one holds everything longer
const LengthBuckets = 34

// Observation is one valid value as seen by the statistics
// Long orders LONG values exactly, Value orders the other numeric, boolean and date values
// and feeds the moments and sketches; Text orders strings
type Observation struct {
	Value float64 `json:"value"`
	Long  int64   `json:"long,omitempty"`
	Text  string  `json:"text"`
}

// pendingSample is a sample buffered before the type is committed
type pendingSample struct {
	Raw   string `json:"raw"`
	Count int64  `json:"count"`
}

// Facts is the mutable state of an analysis
type Facts struct {
	TypeInfo          *core.TypeInfo `json:"typeInfo,omitempty"`
	ConfidencePenalty float64        `json:"confidencePenalty"`
	Backouts          int            `json:"backouts"`

	SampleCount        int64 `json:"sampleCount"`
	NullCount          int64 `json:"nullCount"`
	BlankCount         int64 `json:"blankCount"`
	MatchCount         int64 `json:"matchCount"`
	OutlierCount       int64 `json:"outlierCount"`
	DoubleOutliers     int64 `json:"doubleOutliers"` // outliers of a LONG stream that parse as doubles
	InternalErrors     int64 `json:"internalErrors"`
	LeadingWhiteSpace  int64 `json:"leadingWhiteSpace"`
	TrailingWhiteSpace int64 `json:"trailingWhiteSpace"`
	Multiline          int64 `json:"multiline"`

	Cardinality         *freqmap.Bounded `json:"cardinality"`
	CardinalityOverflow bool             `json:"cardinalityOverflow"`
	Outliers            *freqmap.Bounded `json:"outliers"`
	OutliersSmashed     *freqmap.Bounded `json:"outliersSmashed"`
	Invalid             *freqmap.Bounded `json:"invalid"`
	Shapes              *freqmap.Bounded `json:"shapes"`

	Lengths          [LengthBuckets]int64 `json:"lengths"`
	MinTrimmedLength int                  `json:"minTrimmedLength"`
	MaxTrimmedLength int                  `json:"maxTrimmedLength"`

	Min     *Observation   `json:"min,omitempty"`
	Max     *Observation   `json:"max,omitempty"`
	Moments sketch.Moments `json:"moments"`

	MinLongNonZero      int64       `json:"minLongNonZero"`
	MinDoubleNonZero    float64     `json:"minDoubleNonZero"`
	NonZeroSeen         bool        `json:"nonZeroSeen"`
	LeadingZeroCount    int64       `json:"leadingZeroCount"`
	MonotonicIncreasing bool        `json:"monotonicIncreasing"`
	MonotonicDecreasing bool        `json:"monotonicDecreasing"`
	Last                Observation `json:"last"`
	LastSeen            bool        `json:"lastSeen"`
	AllZeroFractions    bool        `json:"allZeroFractions"`
	FractionsSeen       bool        `json:"fractionsSeen"`
	GroupingSeparators  int64       `json:"groupingSeparators"`
	DecimalSeparator    string      `json:"decimalSeparator,omitempty"`

	Sketch    *sketch.Quantile                `json:"-"`
	Histogram *sketch.Histogram               `json:"-"`
	TopBottom *sketch.TopBottomK[Observation] `json:"-"`

	SketchState    []byte          `json:"sketch,omitempty"`
	HistogramState []byte          `json:"histogram,omitempty"`
	TopBottomState []Observation   `json:"topBottom,omitempty"`
	Pending        []pendingSample `json:"pending,omitempty"`

	// nextReflection is the real sample count at which drift is next evaluated
	NextReflection int64 `json:"nextReflection"`
}

// newFacts creates empty facts sized by the configuration
func newFacts(cfg *core.AnalysisConfig) *Facts {
	f := &Facts{
		Cardinality:     freqmap.New(cfg.MaxCardinality),
		Outliers:        freqmap.New(cfg.MaxOutliers),
		OutliersSmashed: freqmap.New(cfg.MaxOutliers),
		Invalid:         freqmap.New(cfg.MaxInvalids),
		Shapes:          freqmap.New(cfg.MaxShapes),
		NextReflection:  cfg.ReflectionWindow(),
	}
	f.resetStatistics()
	return f
}

// RealSamples is the number of non-null, non-blank samples
func (f *Facts) RealSamples() int64 {
	return f.SampleCount - f.NullCount - f.BlankCount
}

// Confidence is the share of real samples that matched, less any re-analysis penalty
func (f *Facts) Confidence() float64 {
	real := f.RealSamples()
	if real <= 0 {
		return 0
	}
	return max(0, float64(f.MatchCount)/float64(real)-f.ConfidencePenalty)
}

// resetStatistics clears the type-dependent value statistics
// Lengths, shapes and whitespace do not depend on the type and survive a retrain.
func (f *Facts) resetStatistics() {
	f.Min, f.Max = nil, nil
	f.MinLongNonZero, f.MinDoubleNonZero, f.NonZeroSeen = 0, 0, false
	f.LeadingZeroCount = 0
	f.MonotonicIncreasing, f.MonotonicDecreasing = true, true
	f.Last, f.LastSeen = Observation{}, false
	f.AllZeroFractions, f.FractionsSeen = true, false
	f.GroupingSeparators = 0
	f.DecimalSeparator = ""
}

// resetDistribution clears the moments and approximate distributions
func (f *Facts) resetDistribution() {
	f.Moments.Reset()
	f.Sketch, f.Histogram = nil, nil
	if f.TopBottom != nil {
		f.TopBottom.Reset()
	}
}

// recordLength updates the trimmed-length facts
func (f *Facts) recordLength(n int, count int64) {
	f.Lengths[min(n, LengthBuckets-1)] += count
	if f.MinTrimmedLength == 0 || n < f.MinTrimmedLength {
		f.MinTrimmedLength = n
	}
	f.MaxTrimmedLength = max(f.MaxTrimmedLength, n)
}

// prepare encodes the parts of the facts JSON cannot carry directly
func (f *Facts) prepare() error {
	f.SketchState, f.HistogramState, f.TopBottomState = nil, nil, nil
	if f.Sketch != nil {
		data, err := f.Sketch.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode sketch: %w", err)
		}
		f.SketchState = data
	}
	if f.Histogram != nil {
		data, err := f.Histogram.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode histogram: %w", err)
		}
		f.HistogramState = data
	}
	if f.TopBottom != nil {
		f.TopBottomState = f.TopBottom.Values()
	}
	return nil
}

// hydrate rebuilds the encoded parts after the facts were read from JSON
func (f *Facts) hydrate(cfg *core.AnalysisConfig, compare func(a, b Observation) int) error {
	if f.Cardinality == nil || f.Outliers == nil || f.OutliersSmashed == nil || f.Invalid == nil || f.Shapes == nil {
		return fmt.Errorf("facts are missing frequency maps")
	}
	if len(f.SketchState) > 0 {
		q := &sketch.Quantile{}
		if err := q.UnmarshalBinary(f.SketchState); err != nil {
			return fmt.Errorf("failed to decode sketch: %w", err)
		}
		f.Sketch = q
	}
	if len(f.HistogramState) > 0 {
		h := sketch.NewHistogram(cfg.HistogramBins, sketch.DefaultSeed)
		if err := h.UnmarshalBinary(f.HistogramState); err != nil {
			return fmt.Errorf("failed to decode histogram: %w", err)
		}
		f.Histogram = h
	}
	f.TopBottom = sketch.NewTopBottomK(cfg.TopBottomK, compare)
	for _, o := range f.TopBottomState {
		f.TopBottom.Add(o)
	}
	f.SketchState, f.HistogramState, f.TopBottomState = nil, nil, nil
	if f.NextReflection == 0 {
		f.NextReflection = cfg.ReflectionWindow()
	}
	return nil
}

// compareObservations orders observations for a base type
func compareObservations(base core.BaseType, a, b Observation) int {
	switch base {
	case core.BaseString:
		return strings.Compare(a.Text, b.Text)
	case core.BaseLong:
		return cmp.Compare(a.Long, b.Long)
	}
	return cmp.Compare(a.Value, b.Value)
}

// factsView exposes facts to semantic matchers
type factsView struct {
	f *Facts
}

func (v factsView) MinValue() string {
	if v.f.Min == nil {
		return ""
	}
	return v.f.Min.Text
}

func (v factsView) MaxValue() string {
	if v.f.Max == nil {
		return ""
	}
	return v.f.Max.Text
}

func (v factsView) MinTrimmedLength() int { return v.f.MinTrimmedLength }
func (v factsView) MaxTrimmedLength() int { return v.f.MaxTrimmedLength }
func (v factsView) SampleCount() int64    { return v.f.SampleCount }
func (v factsView) NullCount() int64      { return v.f.NullCount }
func (v factsView) BlankCount() int64     { return v.f.BlankCount }
