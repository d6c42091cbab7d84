/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyzer_test.go
Description: Tests for streaming analysis: type commitment, outliers, closed sets, dates,
bulk training, backouts, finalization passes and result statistics.
*/

package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzer(t *testing.T, name string, configure func(*core.AnalysisConfig), opts ...Option) *TextAnalyzer {
	t.Helper()
	cfg := core.DefaultAnalysisConfig()
	if configure != nil {
		configure(cfg)
	}
	a, err := NewTextAnalyzer(core.NewAnalysisContext(name), cfg, opts...)
	require.NoError(t, err)
	return a
}

func trainAll(t *testing.T, a *TextAnalyzer, samples ...string) {
	t.Helper()
	for _, s := range samples {
		_, err := a.Train(s)
		require.NoError(t, err)
	}
}

func result(t *testing.T, a *TextAnalyzer) *Result {
	t.Helper()
	r, err := a.Result()
	require.NoError(t, err)
	return r
}

func sequence(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

// recordingObserver captures lifecycle events
type recordingObserver struct {
	nopObserver
	mu        sync.Mutex
	backouts  []backoutEvent
	completed int
}

type backoutEvent struct {
	from, to      *core.TypeInfo
	reason        string
	before, after float64
}

func (o *recordingObserver) BackedOut(_ *core.AnalysisContext, from, to *core.TypeInfo, reason string, before, after float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backouts = append(o.backouts, backoutEvent{from, to, reason, before, after})
}

func (o *recordingObserver) Completed(*core.AnalysisContext, *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func TestLongWithOutlier(t *testing.T) {
	a := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetThreshold(75))
	})
	trainAll(t, a, "123", "456", "789", "12a")

	r := result(t, a)
	assert.Equal(t, core.BaseLong, r.Type)
	assert.Equal(t, `\d{3}`, r.Regexp)
	assert.Equal(t, int64(4), r.SampleCount)
	assert.Equal(t, int64(3), r.MatchCount)
	assert.InDelta(t, 0.75, r.Confidence, 1e-9)
	require.Len(t, r.Outliers, 1)
	assert.Equal(t, "12a", r.Outliers[0].Key)
	assert.Equal(t, "123", r.Min)
	assert.Equal(t, "789", r.Max)
	assert.Equal(t, 3, r.DistinctCount())
}

func TestClosedSetMatch(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	trainAll(t, a, "red", "blue", "green", "red")

	r := result(t, a)
	assert.Equal(t, core.BaseString, r.Type)
	assert.Equal(t, "COLOR.TEXT_EN", r.SemanticType)
	assert.Equal(t, 3, r.Cardinality)
	assert.Equal(t, int64(4), r.MatchCount)
	assert.InDelta(t, 1.0, r.Confidence, 1e-9)
}

func TestDatesWithNoise(t *testing.T) {
	dates := make([]string, 20)
	for i := range dates {
		dates[i] = fmt.Sprintf("2023-01-%02d", i+1)
	}

	t.Run("one non-date keeps the date type", func(t *testing.T) {
		a := newAnalyzer(t, "", nil)
		trainAll(t, a, dates...)
		trainAll(t, a, "apple")
		r := result(t, a)
		assert.Equal(t, core.BaseLocalDate, r.Type)
		assert.Equal(t, "2023-01-01", r.Min)
		assert.Equal(t, "2023-01-20", r.Max)
		assert.Equal(t, int64(20), r.MatchCount)
	})

	t.Run("five non-dates fall back to string", func(t *testing.T) {
		a := newAnalyzer(t, "", nil)
		trainAll(t, a, dates...)
		trainAll(t, a, "apple", "pear", "plum", "fig", "lime")
		r := result(t, a)
		assert.Equal(t, core.BaseString, r.Type)
		assert.Equal(t, int64(25), r.MatchCount)
		assert.Empty(t, r.Outliers)
		assert.Equal(t, 1, r.Backouts)
	})
}

func TestBulkMatchesStreaming(t *testing.T) {
	stream := newAnalyzer(t, "", nil)
	trainAll(t, stream, "42", "42", "42", "7", "7")
	streamed := result(t, stream)

	bulk := newAnalyzer(t, "", nil)
	require.NoError(t, bulk.TrainBulk(map[string]int64{"42": 3, "7": 2}))
	bulked := result(t, bulk)

	for _, r := range []*Result{streamed, bulked} {
		assert.Equal(t, core.BaseLong, r.Type)
		assert.Equal(t, "7", r.Min)
		assert.Equal(t, "42", r.Max)
		assert.Equal(t, int64(5), r.MatchCount)
	}
	assert.Equal(t, streamed.Regexp, bulked.Regexp)
	assert.Equal(t, streamed.StructureSignature, bulked.StructureSignature)
	assert.Equal(t, streamed.DataSignature, bulked.DataSignature)
}

func TestSignaturesIgnoreStreamName(t *testing.T) {
	a := newAnalyzer(t, "left", nil)
	b := newAnalyzer(t, "right", nil)
	trainAll(t, a, "x1", "y2", "z3")
	trainAll(t, b, "x1", "y2", "z3")
	ra, rb := result(t, a), result(t, b)
	assert.Equal(t, ra.StructureSignature, rb.StructureSignature)
	assert.Equal(t, ra.DataSignature, rb.DataSignature)

	c := newAnalyzer(t, "left", nil)
	trainAll(t, c, "x1", "y2", "z4")
	rc := result(t, c)
	assert.Equal(t, ra.StructureSignature, rc.StructureSignature)
	assert.NotEqual(t, ra.DataSignature, rc.DataSignature)
}

func TestResultIsIdempotentAndFreezes(t *testing.T) {
	observer := &recordingObserver{}
	a := newAnalyzer(t, "", nil, WithObserver(observer))
	trainAll(t, a, sequence(100, 140)...)

	first := result(t, a)
	second := result(t, a)
	assert.Same(t, first, second)
	assert.Equal(t, 1, observer.completed)

	_, err := a.Train("141")
	assert.ErrorIs(t, err, core.ErrFrozen)
	_, err = a.TrainNull()
	assert.ErrorIs(t, err, core.ErrFrozen)
	assert.ErrorIs(t, a.TrainBulk(map[string]int64{"1": 1}), core.ErrFrozen)
	assert.ErrorIs(t, a.Config().SetThreshold(50), core.ErrConfigFrozen)
}

func TestNullsAndBlanks(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	trainAll(t, a, "10", " ", "", "20", " 30 ")
	_, err := a.TrainNull()
	require.NoError(t, err)

	r := result(t, a)
	assert.Equal(t, int64(6), r.SampleCount)
	assert.Equal(t, int64(1), r.NullCount)
	assert.Equal(t, int64(2), r.BlankCount)
	assert.Equal(t, int64(3), r.MatchCount)
	assert.Equal(t, int64(1), r.LeadingWhiteSpace)
	assert.Equal(t, int64(1), r.TrailingWhiteSpace)
	assert.InDelta(t, 1.0, r.Confidence, 1e-9)
	assert.Equal(t, 0.0, r.KeyConfidence)
}

func TestBackoutAlphaToAlphanumeric(t *testing.T) {
	observer := &recordingObserver{}
	a := newAnalyzer(t, "", nil, WithObserver(observer))
	words := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for i := 0; i < 50; i++ {
		trainAll(t, a, words[i%len(words)])
	}
	for i := 0; i < 10; i++ {
		trainAll(t, a, "abc123")
	}

	require.NotEmpty(t, observer.backouts)
	event := observer.backouts[0]
	assert.True(t, event.from.IsAlphabetic())
	assert.True(t, event.to.IsAlphanumeric())
	assert.Equal(t, "drift", event.reason)
	assert.GreaterOrEqual(t, event.after, event.before)
	assert.Equal(t, int64(60), a.Facts().MatchCount)
}

func TestBackoutLongToDouble(t *testing.T) {
	observer := &recordingObserver{}
	a := newAnalyzer(t, "", nil, WithObserver(observer))
	trainAll(t, a, sequence(100, 149)...)
	for i := 0; i < 10; i++ {
		trainAll(t, a, "1.5")
	}

	require.NotEmpty(t, observer.backouts)
	event := observer.backouts[0]
	assert.Equal(t, core.BaseLong, event.from.BaseType)
	assert.Equal(t, core.BaseDouble, event.to.BaseType)
	assert.GreaterOrEqual(t, event.after, event.before)

	r := result(t, a)
	assert.Equal(t, core.BaseDouble, r.Type)
	assert.Equal(t, int64(60), r.MatchCount)
	assert.Equal(t, "1.5", r.Min)
	assert.Equal(t, "149", r.Max)
}

func TestZeroFractionsBecomeLong(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	for i := 1; i <= 25; i++ {
		trainAll(t, a, fmt.Sprintf("%d.00", i*10))
	}
	r := result(t, a)
	assert.Equal(t, core.BaseLong, r.Type)
	assert.True(t, r.TypeInfo.Flags.Has(core.FlagZeroFraction))
	assert.Equal(t, int64(25), r.MatchCount)
}

func TestZeroFractionsBecomeLongAfterOverflow(t *testing.T) {
	a := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetMaxCardinality(10))
	})
	for i := 1; i <= 25; i++ {
		trainAll(t, a, fmt.Sprintf("%d.00", i*10))
	}
	r := result(t, a)
	require.Equal(t, core.BaseLong, r.Type)
	assert.Equal(t, -1, r.Cardinality)
	assert.Equal(t, "10.00", r.Min)
	assert.Equal(t, "250.00", r.Max)
	require.NotEmpty(t, r.TopK)
	assert.Equal(t, "250.00", r.TopK[0])
	assert.Equal(t, "10.00", r.BottomK[0])
	assert.True(t, r.MonotonicIncreasing)
	assert.Equal(t, int64(10), a.Facts().Min.Long)
	assert.Equal(t, int64(250), a.Facts().Max.Long)
}

func TestCompactDatesBecomeLocalDate(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	for day := 1; day <= 28; day++ {
		trainAll(t, a, fmt.Sprintf("202402%02d", day))
	}
	r := result(t, a)
	assert.Equal(t, core.BaseLocalDate, r.Type)
	assert.Equal(t, int64(28), r.MatchCount)
}

func TestEnumDetectionPrunesMisspellings(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	for i := 0; i < 10; i++ {
		trainAll(t, a, "alpha", "beta", "gamma")
	}
	trainAll(t, a, "alphx")

	r := result(t, a)
	assert.Equal(t, core.BaseString, r.Type)
	assert.Contains(t, r.Regexp, "beta")
	assert.NotContains(t, r.Regexp, "alphx")
	require.Len(t, r.Invalids, 1)
	assert.Equal(t, "alphx", r.Invalids[0].Key)
	assert.Equal(t, int64(30), r.MatchCount)
	assert.Equal(t, 3, r.Cardinality)
}

func TestKeyConfidence(t *testing.T) {
	a := newAnalyzer(t, "customer_id", nil)
	trainAll(t, a, sequence(1, 30)...)
	r := result(t, a)
	assert.InDelta(t, 1.0, r.Uniqueness, 1e-9)
	assert.InDelta(t, 1.0, r.KeyConfidence, 1e-9)
	assert.True(t, r.MonotonicIncreasing)
	assert.False(t, r.MonotonicDecreasing)
}

func TestStatistics(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	trainAll(t, a, sequence(1, 100)...)
	r := result(t, a)

	assert.InDelta(t, 50.5, r.Mean, 1e-9)
	median, err := r.ValueAtQuantile(0.5)
	require.NoError(t, err)
	assert.Equal(t, "50", median)
	top, err := r.ValueAtQuantile(1)
	require.NoError(t, err)
	assert.Equal(t, "100", top)
	_, err = r.ValueAtQuantile(1.5)
	assert.Error(t, err)

	assert.Equal(t, []string{"100", "99", "98", "97", "96", "95", "94", "93", "92", "91"}, r.TopK)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, r.BottomK)

	buckets, err := r.Histogram(4)
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, int64(100), total)
}

func TestApproximateStatisticsAfterOverflow(t *testing.T) {
	a := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetMaxCardinality(10))
	})
	trainAll(t, a, sequence(1, 1000)...)
	r := result(t, a)

	assert.Equal(t, -1, r.Cardinality)
	assert.Equal(t, int64(1000), r.MatchCount)
	assert.InDelta(t, 1.0, r.Uniqueness, 1e-9)
	median, err := r.ValueAtQuantile(0.5)
	require.NoError(t, err)
	v, err := strconv.Atoi(median)
	require.NoError(t, err)
	assert.InDelta(t, 500, v, 15)
	assert.Equal(t, 1, r.MinLength)
	assert.Equal(t, 4, r.MaxLength)
}

func TestLongOrderingIsExactBeyondDoublePrecision(t *testing.T) {
	for _, start := range []int64{1 << 53, math.MaxInt64 - 29} {
		t.Run(strconv.FormatInt(start, 10), func(t *testing.T) {
			samples := make([]string, 30)
			for i := range samples {
				samples[i] = strconv.FormatInt(start+int64(i), 10)
			}
			first, last := samples[0], samples[len(samples)-1]

			a := newAnalyzer(t, "", nil)
			trainAll(t, a, samples...)
			r := result(t, a)
			assert.Equal(t, core.BaseLong, r.Type)
			assert.Equal(t, first, r.Min)
			assert.Equal(t, last, r.Max)
			assert.True(t, r.MonotonicIncreasing)
			assert.False(t, r.MonotonicDecreasing)
			assert.Equal(t, 30, r.DistinctCount())
			require.Len(t, r.TopK, 10)
			require.Len(t, r.BottomK, 10)
			assert.Equal(t, last, r.TopK[0])
			assert.Equal(t, samples[len(samples)-2], r.TopK[1])
			assert.Equal(t, first, r.BottomK[0])
			assert.Equal(t, samples[1], r.BottomK[1])
			assert.Equal(t, samples[20:], reversed(r.TopK))
			assert.Equal(t, samples[:10], r.BottomK)

			part := newAnalyzer(t, "", nil)
			trainAll(t, part, samples[:25]...)
			data, err := part.Serialize()
			require.NoError(t, err)
			restored, err := Deserialize(data)
			require.NoError(t, err)
			trainAll(t, restored, samples[25:]...)
			got := result(t, restored)
			assert.Equal(t, last, got.Max)
			assert.Equal(t, first, got.Min)
			assert.True(t, got.MonotonicIncreasing)
		})
	}

	t.Run("decreasing", func(t *testing.T) {
		a := newAnalyzer(t, "", nil)
		for i := int64(0); i < 30; i++ {
			trainAll(t, a, strconv.FormatInt(math.MaxInt64-i, 10))
		}
		r := result(t, a)
		assert.True(t, r.MonotonicDecreasing)
		assert.False(t, r.MonotonicIncreasing)
		assert.Equal(t, strconv.FormatInt(math.MaxInt64, 10), r.Max)
		assert.Equal(t, strconv.FormatInt(math.MaxInt64-29, 10), r.Min)
	})
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

func TestTrainingMemoryStaysBounded(t *testing.T) {
	observer := &recordingObserver{}
	a := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetMaxOutliers(5))
		require.NoError(t, c.SetMaxInvalids(5))
		require.NoError(t, c.SetMaxCardinality(10))
	}, WithObserver(observer))

	samples := sequence(1, 40)
	for i := 1; i <= 8; i++ {
		samples = append(samples, fmt.Sprintf("x%d", i))
	}
	for _, s := range samples {
		_, err := a.Train(s)
		require.NoError(t, err)
		f := a.Facts()
		assert.LessOrEqual(t, f.Outliers.Len(), 5, s)
		assert.LessOrEqual(t, f.OutliersSmashed.Len(), 5, s)
		assert.LessOrEqual(t, f.Invalid.Len(), 5, s)
		assert.LessOrEqual(t, f.Cardinality.Len(), 10, s)
	}

	require.Len(t, observer.backouts, 1)
	event := observer.backouts[0]
	assert.Equal(t, "outlier capacity reached", event.reason)
	assert.Equal(t, core.BaseLong, event.from.BaseType)
	assert.Equal(t, core.BaseString, event.to.BaseType)

	r := result(t, a)
	assert.Equal(t, int64(48), r.SampleCount)
	assert.Equal(t, int64(48), r.MatchCount)
	assert.Equal(t, -1, r.Cardinality)
	assert.Equal(t, -1, r.DistinctCount())
	assert.LessOrEqual(t, len(r.Outliers), 5)
	assert.Equal(t, 1, r.Backouts)
}

func TestFreshAnalyzersAgree(t *testing.T) {
	samples := append(sequence(100, 160), "12a", " 7", "")
	run := func() *Result {
		a := newAnalyzer(t, "amount", nil)
		trainAll(t, a, samples...)
		return result(t, a)
	}
	first, second := run(), run()

	assert.True(t, first.TypeInfo.Equal(second.TypeInfo))
	assert.Equal(t, first.Type, second.Type)
	assert.Equal(t, first.Regexp, second.Regexp)
	assert.Equal(t, first.StructureSignature, second.StructureSignature)
	assert.Equal(t, first.DataSignature, second.DataSignature)
	assert.Equal(t, first.SampleCount, second.SampleCount)
	assert.Equal(t, first.MatchCount, second.MatchCount)
	assert.Equal(t, first.BlankCount, second.BlankCount)
	assert.Equal(t, first.OutlierCount, second.OutlierCount)
	assert.Equal(t, first.Outliers, second.Outliers)
	assert.Equal(t, first.Min, second.Min)
	assert.Equal(t, first.Max, second.Max)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestErrorRateBelowDriftRatioKeepsType(t *testing.T) {
	strict := func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetThreshold(100))
	}

	t.Run("rare outlier", func(t *testing.T) {
		observer := &recordingObserver{}
		a := newAnalyzer(t, "", strict, WithObserver(observer))
		trainAll(t, a, sequence(1, 150)...)
		trainAll(t, a, "abc")
		trainAll(t, a, sequence(151, 199)...)

		assert.Empty(t, observer.backouts)
		f := a.Facts()
		assert.Equal(t, core.BaseLong, f.TypeInfo.BaseType)
		assert.Equal(t, int64(1), f.OutlierCount)
		assert.Less(t, f.Confidence(), 1.0)
	})

	t.Run("frequent outlier", func(t *testing.T) {
		observer := &recordingObserver{}
		a := newAnalyzer(t, "", strict, WithObserver(observer))
		trainAll(t, a, sequence(1, 30)...)
		trainAll(t, a, "abc")
		trainAll(t, a, sequence(31, 59)...)

		require.Len(t, observer.backouts, 1)
		assert.Equal(t, "error rate", observer.backouts[0].reason)
		assert.Equal(t, core.BaseString, a.Facts().TypeInfo.BaseType)
	})
}

func TestApproximateDateQuantilesUseDateFormat(t *testing.T) {
	a := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetMaxCardinality(10))
		require.NoError(t, c.SetQuantileRelativeAccuracy(1e-6))
	})
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		trainAll(t, a, start.AddDate(0, 0, i).Format("2006-01-02"))
	}
	r := result(t, a)
	require.Equal(t, core.BaseLocalDate, r.Type)
	require.Equal(t, -1, r.Cardinality)

	median, err := r.ValueAtQuantile(0.5)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), median)
	assert.GreaterOrEqual(t, median, r.Min)
	assert.LessOrEqual(t, median, r.Max)
	day, err := time.Parse("2006-01-02", median)
	require.NoError(t, err)
	assert.InDelta(t, 19, day.Sub(start).Hours()/24, 1)
}

func TestStatisticsDisabled(t *testing.T) {
	a := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetStatistics(false))
	})
	trainAll(t, a, sequence(1, 30)...)
	r := result(t, a)

	_, err := r.ValueAtQuantile(0.5)
	assert.ErrorIs(t, err, core.ErrStatisticsDisabled)
	_, err = r.Histogram(10)
	assert.ErrorIs(t, err, core.ErrStatisticsDisabled)
	assert.Empty(t, r.TopK)
	assert.Equal(t, "1", r.Min)
	assert.Equal(t, "30", r.Max)
}

func TestGuardRecoversPanics(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	require.NoError(t, a.start())
	_, err := a.guard(func() { panic("boom") })
	assert.NoError(t, err)
	assert.Equal(t, int64(1), a.Facts().InternalErrors)

	debug := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetDebug(true))
	})
	require.NoError(t, debug.start())
	_, err = debug.guard(func() { panic("boom") })
	assert.ErrorIs(t, err, core.ErrInternal)
}

func TestEmptyStream(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	r := result(t, a)
	assert.Equal(t, core.BaseString, r.Type)
	assert.Equal(t, int64(0), r.SampleCount)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, 0.0, r.Uniqueness)
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"ALPHA", "ALPHX", 1},
		{"ALPHA", "ALPAH", 2},
		{"grün", "grun", 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, levenshtein(c.a, c.b), "%s/%s", c.a, c.b)
		assert.Equal(t, c.want, levenshtein(c.b, c.a), "%s/%s", c.b, c.a)
	}
}
