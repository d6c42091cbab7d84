/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: result.go
Description: Analysis result for the Akaylee Profiler. A Result is an immutable snapshot of a
finalized analysis: the classification, counts, bounded details, summary statistics and
two signatures that identify the stream's structure and its data independently of the
stream's name. Quantiles and histograms are answered exactly from the cardinality map
until it overflows and from the approximate distribution after that.
*/

package analysis

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/datetime"
	"github.com/kleascm/akaylee-profiler/pkg/freqmap"
	"github.com/kleascm/akaylee-profiler/pkg/sketch"
)

// ErrNoDistribution is returned when a distribution query cannot be answered for the type
var ErrNoDistribution = errors.New("no distribution available for this stream")

// keyHeaderHint matches field names that suggest a key
const keyHeaderHint = `(?i)(^|[_ ])(id|key|pk|code)$|identifier`

// Result is the finalized profile of one stream
type Result struct {
	StreamName   string         `json:"streamName"`
	Type         core.BaseType  `json:"type"`
	TypeInfo     *core.TypeInfo `json:"typeInfo"`
	SemanticType string         `json:"semanticType,omitempty"`
	Regexp       string         `json:"regexp"`
	Qualifier    string         `json:"qualifier,omitempty"`

	Min       string  `json:"min,omitempty"`
	Max       string  `json:"max,omitempty"`
	MinLength int     `json:"minLength"`
	MaxLength int     `json:"maxLength"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stdDev"`

	SampleCount    int64   `json:"sampleCount"`
	NullCount      int64   `json:"nullCount"`
	BlankCount     int64   `json:"blankCount"`
	MatchCount     int64   `json:"matchCount"`
	OutlierCount   int64   `json:"outlierCount"`
	InternalErrors int64   `json:"internalErrors"`
	Confidence     float64 `json:"confidence"`

	Cardinality        int             `json:"cardinality"` // -1 once the map overflowed
	CardinalityDetails []freqmap.Entry `json:"cardinalityDetails"`
	Outliers           []freqmap.Entry `json:"outliers"`
	Invalids           []freqmap.Entry `json:"invalids"`
	Shapes             []freqmap.Entry `json:"shapes"`
	TopK               []string        `json:"topK"`
	BottomK            []string        `json:"bottomK"`

	LeadingWhiteSpace   int64   `json:"leadingWhiteSpace"`
	TrailingWhiteSpace  int64   `json:"trailingWhiteSpace"`
	Multiline           int64   `json:"multiline"`
	LeadingZeroCount    int64   `json:"leadingZeroCount"`
	Uniqueness          float64 `json:"uniqueness"` // -1 when unknown
	KeyConfidence       float64 `json:"keyConfidence"`
	MonotonicIncreasing bool    `json:"monotonicIncreasing"`
	MonotonicDecreasing bool    `json:"monotonicDecreasing"`
	Backouts            int     `json:"backouts"`

	StructureSignature string `json:"structureSignature"`
	DataSignature      string `json:"dataSignature"`

	statistics bool
	exact      []Observation // distinct valid values in ascending order, before overflow
	counts     []int64
	quantile   *sketch.Quantile
	histogram  *sketch.Histogram
}

// buildResult snapshots the finalized facts
func (a *TextAnalyzer) buildResult() *Result {
	f := a.facts
	ti := f.TypeInfo
	r := &Result{
		StreamName:          a.ctx.StreamName,
		Type:                ti.BaseType,
		TypeInfo:            ti,
		SemanticType:        ti.SemanticName(),
		Regexp:              ti.Regexp,
		Qualifier:           ti.Qualifier,
		MinLength:           f.MinTrimmedLength,
		MaxLength:           f.MaxTrimmedLength,
		SampleCount:         f.SampleCount,
		NullCount:           f.NullCount,
		BlankCount:          f.BlankCount,
		MatchCount:          f.MatchCount,
		OutlierCount:        f.OutlierCount,
		InternalErrors:      f.InternalErrors,
		Confidence:          f.Confidence(),
		Cardinality:         f.Cardinality.Len(),
		CardinalityDetails:  f.Cardinality.ByCount(),
		Outliers:            f.Outliers.ByCount(),
		Invalids:            f.Invalid.ByCount(),
		Shapes:              f.Shapes.ByCount(),
		LeadingWhiteSpace:   f.LeadingWhiteSpace,
		TrailingWhiteSpace:  f.TrailingWhiteSpace,
		Multiline:           f.Multiline,
		LeadingZeroCount:    f.LeadingZeroCount,
		MonotonicIncreasing: f.MonotonicIncreasing && f.LastSeen && ordered(ti),
		MonotonicDecreasing: f.MonotonicDecreasing && f.LastSeen && ordered(ti),
		Backouts:            f.Backouts,
		statistics:          a.cfg.Statistics,
	}
	if f.CardinalityOverflow {
		r.Cardinality = -1
	}
	if f.Min != nil {
		r.Min, r.Max = f.Min.Text, f.Max.Text
	}
	if a.cfg.Statistics {
		r.Mean = f.Moments.Mean
		r.StdDev = f.Moments.StdDev()
		for _, o := range f.TopBottom.Top() {
			r.TopK = append(r.TopK, o.Text)
		}
		for _, o := range f.TopBottom.Bottom() {
			r.BottomK = append(r.BottomK, o.Text)
		}
		if f.CardinalityOverflow {
			if f.Sketch != nil {
				r.quantile = f.Sketch.Clone()
				r.histogram = f.Histogram.Clone()
			}
		} else {
			r.exact, r.counts = a.exactDistribution()
		}
	}
	r.Uniqueness = a.uniqueness()
	r.KeyConfidence = a.keyConfidence(r.Uniqueness)
	r.StructureSignature, r.DataSignature = a.signatures()
	return r
}

func ordered(ti *core.TypeInfo) bool {
	return ti.BaseType.IsNumeric() || ti.BaseType.IsDateType()
}

// exactDistribution parses the cardinality map into ascending observations
func (a *TextAnalyzer) exactDistribution() ([]Observation, []int64) {
	entries := a.facts.Cardinality.Entries()
	type weighted struct {
		obs   Observation
		count int64
	}
	values := make([]weighted, 0, len(entries))
	text := a.facts.TypeInfo.BaseType == core.BaseString
	for _, e := range entries {
		if text {
			values = append(values, weighted{Observation{Text: e.Key}, e.Count})
		} else if obs, ok := a.parse(e.Key); ok {
			values = append(values, weighted{obs, e.Count})
		}
	}
	sort.SliceStable(values, func(i, j int) bool { return a.compare(values[i].obs, values[j].obs) < 0 })
	obs := make([]Observation, len(values))
	counts := make([]int64, len(values))
	for i, v := range values {
		obs[i], counts[i] = v.obs, v.count
	}
	return obs, counts
}

// uniqueness is the share of distinct values seen exactly once
func (a *TextAnalyzer) uniqueness() float64 {
	f := a.facts
	if f.CardinalityOverflow {
		if f.MonotonicIncreasing || f.MonotonicDecreasing {
			return 1
		}
		return -1
	}
	n := f.Cardinality.Len()
	if n == 0 {
		return 0
	}
	singletons, _ := f.Cardinality.CountWhere(func(_ string, count int64) bool { return count == 1 })
	return float64(singletons) / float64(n)
}

// keyConfidence scores how likely the stream is a record key
func (a *TextAnalyzer) keyConfidence(uniqueness float64) float64 {
	f := a.facts
	ti := f.TypeInfo
	if uniqueness != 1 || f.NullCount+f.BlankCount > 0 || f.OutlierCount > 0 ||
		ti.BaseType == core.BaseBoolean || ti.BaseType == core.BaseDouble || f.Cardinality.Len() < 2 {
		return 0
	}
	confidence := 0.8
	if ti.BaseType == core.BaseLong && (f.MonotonicIncreasing || f.MonotonicDecreasing) {
		confidence = 0.9
	}
	if a.headerMatches(keyHeaderHint) {
		confidence += 0.1
	}
	return math.Min(confidence, 1)
}

// signatures hashes the structure and the data of the stream; the stream name is excluded
func (a *TextAnalyzer) signatures() (string, string) {
	f := a.facts
	ti := f.TypeInfo

	var structure strings.Builder
	structure.WriteString(ti.BaseType.String())
	structure.WriteByte('|')
	if name := ti.SemanticName(); name != "" {
		structure.WriteString(name)
	} else {
		structure.WriteString(ti.Regexp)
	}
	for _, k := range f.Shapes.Keys() {
		structure.WriteByte('|')
		structure.WriteString(k)
	}

	data := structure.String()
	var b strings.Builder
	b.WriteString(data)
	for _, e := range f.Cardinality.Entries() {
		b.WriteByte('|')
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(strconv.FormatInt(e.Count, 10))
	}
	return digest(structure.String()), digest(b.String())
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// DistinctCount returns the exact number of distinct valid values, or -1 once unknown
func (r *Result) DistinctCount() int {
	return r.Cardinality
}

// RealSamples is the number of non-null, non-blank samples
func (r *Result) RealSamples() int64 {
	return r.SampleCount - r.NullCount - r.BlankCount
}

// ValueAtQuantile returns the value at quantile q in [0, 1]
func (r *Result) ValueAtQuantile(q float64) (string, error) {
	if !r.statistics {
		return "", core.ErrStatisticsDisabled
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return "", fmt.Errorf("quantile %v out of range [0, 1]", q)
	}
	if r.exact != nil {
		var total int64
		for _, c := range r.counts {
			total += c
		}
		if total == 0 {
			return "", ErrNoDistribution
		}
		rank := int64(math.Ceil(q * float64(total)))
		rank = max(rank, 1)
		var seen int64
		for i, c := range r.counts {
			seen += c
			if seen >= rank {
				return r.exact[i].Text, nil
			}
		}
		return r.exact[len(r.exact)-1].Text, nil
	}
	if r.quantile == nil {
		return "", ErrNoDistribution
	}
	v, err := r.quantile.ValueAtQuantile(q)
	if err != nil {
		return "", err
	}
	return r.format(v), nil
}

// Histogram returns the distribution of the stream in n equal-width buckets
func (r *Result) Histogram(n int) ([]sketch.Bucket, error) {
	if !r.statistics {
		return nil, core.ErrStatisticsDisabled
	}
	if n < 1 {
		return nil, fmt.Errorf("bucket count %d must be positive", n)
	}
	h := r.histogram
	if r.exact != nil {
		if !ordered(r.TypeInfo) {
			return nil, ErrNoDistribution
		}
		exact := make(map[float64]int64, len(r.exact))
		for i, o := range r.exact {
			exact[o.Value] += r.counts[i]
		}
		h = sketch.FromExact(exact)
	}
	if h == nil {
		return nil, ErrNoDistribution
	}
	buckets := h.Buckets(n)
	sketch.TagClusters(buckets)
	return buckets, nil
}

// format renders an approximate value in the stream's type
func (r *Result) format(v float64) string {
	switch {
	case r.Type == core.BaseLong:
		return strconv.FormatInt(int64(math.Round(v)), 10)
	case r.Type.IsDateType():
		sec, frac := math.Modf(v)
		t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		if format := r.TypeInfo.DateFormat(); format != "" {
			if s, err := datetime.Format(format, t); err == nil {
				return s
			}
		}
		return t.Format(time.RFC3339Nano)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
