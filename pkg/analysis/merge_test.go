/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merge_test.go
Description: Tests for merging shard analyses, persistence and replay traces.
*/

package analysis

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDisjointShards(t *testing.T) {
	for _, capacity := range []int{core.DefaultMaxCardinality, 10} {
		configure := func(c *core.AnalysisConfig) {
			require.NoError(t, c.SetMaxCardinality(capacity))
		}
		a := newAnalyzer(t, "id", configure)
		b := newAnalyzer(t, "id", configure)
		trainAll(t, a, sequence(1, 50)...)
		trainAll(t, b, sequence(51, 100)...)

		m, err := Merge(a, b)
		require.NoError(t, err)
		r := result(t, m)

		assert.Equal(t, core.BaseLong, r.Type, "capacity %d", capacity)
		assert.Equal(t, int64(100), r.SampleCount, "capacity %d", capacity)
		assert.Equal(t, int64(100), r.MatchCount, "capacity %d", capacity)
		assert.Equal(t, "1", r.Min, "capacity %d", capacity)
		assert.Equal(t, "100", r.Max, "capacity %d", capacity)
		assert.InDelta(t, 1.0, r.Uniqueness, 1e-9, "capacity %d", capacity)
		assert.InDelta(t, 50.5, r.Mean, 1e-9, "capacity %d", capacity)
		assert.True(t, r.MonotonicIncreasing, "capacity %d", capacity)
	}
}

func TestMergeOverlappingShardsLosesMonotonicity(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	b := newAnalyzer(t, "", nil)
	trainAll(t, a, sequence(1, 30)...)
	trainAll(t, b, sequence(20, 40)...)

	m, err := Merge(a, b)
	require.NoError(t, err)
	r := result(t, m)
	assert.False(t, r.MonotonicIncreasing)
	assert.Equal(t, int64(51), r.MatchCount)
	assert.Equal(t, 40, r.Cardinality)
	assert.Less(t, r.Uniqueness, 1.0)
}

func TestMergeKeepsNullsAndBuffered(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	b := newAnalyzer(t, "", nil)
	trainAll(t, a, "1", "2", "3")
	_, err := a.TrainNull()
	require.NoError(t, err)
	trainAll(t, b, "4", "", "5")

	m, err := Merge(a, b)
	require.NoError(t, err)
	r := result(t, m)
	assert.Equal(t, core.BaseLong, r.Type)
	assert.Equal(t, int64(7), r.SampleCount)
	assert.Equal(t, int64(1), r.NullCount)
	assert.Equal(t, int64(1), r.BlankCount)
	assert.Equal(t, int64(5), r.MatchCount)

	assert.Nil(t, a.Facts().TypeInfo, "inputs are not modified")
}

func TestMergeRejectsDifferentConfigs(t *testing.T) {
	a := newAnalyzer(t, "", nil)
	b := newAnalyzer(t, "", func(c *core.AnalysisConfig) {
		require.NoError(t, c.SetThreshold(90))
	})
	trainAll(t, a, "1")
	trainAll(t, b, "2")

	m, err := Merge(a, b)
	assert.ErrorIs(t, err, core.ErrIncompatibleConfig)
	assert.Nil(t, m)
}

func TestSerializeRoundTrip(t *testing.T) {
	samples := sequence(100, 140)

	t.Run("while buffering", func(t *testing.T) {
		whole := newAnalyzer(t, "amount", nil)
		trainAll(t, whole, samples...)

		part := newAnalyzer(t, "amount", nil)
		trainAll(t, part, samples[:10]...)
		data, err := part.Serialize()
		require.NoError(t, err)
		require.True(t, json.Valid(data))

		restored, err := Deserialize(data)
		require.NoError(t, err)
		assert.Equal(t, "amount", restored.Context().StreamName)
		trainAll(t, restored, samples[10:]...)

		want, got := result(t, whole), result(t, restored)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Regexp, got.Regexp)
		assert.Equal(t, want.MatchCount, got.MatchCount)
		assert.Equal(t, want.DataSignature, got.DataSignature)
	})

	t.Run("after commitment", func(t *testing.T) {
		a := newAnalyzer(t, "", nil)
		trainAll(t, a, samples[:30]...)
		data, err := a.Serialize()
		require.NoError(t, err)

		restored, err := Deserialize(data)
		require.NoError(t, err)
		require.NotNil(t, restored.TypeInfo())
		assert.Equal(t, core.BaseLong, restored.TypeInfo().BaseType)
		assert.True(t, restored.Config().Frozen())

		trainAll(t, restored, samples[30:]...)
		r := result(t, restored)
		assert.Equal(t, int64(len(samples)), r.MatchCount)
		assert.Equal(t, "100", r.Min)
		assert.Equal(t, "140", r.Max)
		assert.Equal(t, []string{"100", "101", "102", "103", "104", "105", "106", "107", "108", "109"}, r.BottomK)
	})

	t.Run("semantic type", func(t *testing.T) {
		a := newAnalyzer(t, "", nil)
		for i := 0; i < 25; i++ {
			trainAll(t, a, "user@example.com")
		}
		require.NotNil(t, a.TypeInfo())
		require.True(t, a.TypeInfo().SemanticType)
		data, err := a.Serialize()
		require.NoError(t, err)

		restored, err := Deserialize(data)
		require.NoError(t, err)
		trainAll(t, restored, "other@example.org")
		r := result(t, restored)
		assert.Equal(t, "EMAIL", r.SemanticType)
		assert.Equal(t, int64(26), r.MatchCount)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Deserialize([]byte("{"))
		assert.Error(t, err)
		_, err = Deserialize([]byte("{}"))
		assert.Error(t, err)
	})
}

func TestTraceReplay(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()
	require.NoError(t, cfg.SetThreshold(90))
	ctx := core.NewAnalysisContext("quantity")

	var samples []*string
	for _, s := range sequence(1, 25) {
		samples = append(samples, &s)
	}
	samples = append(samples, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, cfg, ctx, samples, map[string]int64{"26": 4}))

	trace, err := ReadTrace(&buf)
	require.NoError(t, err)
	assert.False(t, trace.ConfigOnly)
	assert.Equal(t, 90, trace.Config.Threshold)
	assert.Equal(t, "quantity", trace.Context.StreamName)
	require.Len(t, trace.Samples.Samples, 26)

	_, r, err := Replay(trace)
	require.NoError(t, err)
	assert.Equal(t, core.BaseLong, r.Type)
	assert.Equal(t, int64(30), r.SampleCount)
	assert.Equal(t, int64(1), r.NullCount)
	assert.Equal(t, int64(29), r.MatchCount)
	assert.Equal(t, "26", r.Max)
}

func TestTraceConfigOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(core.DefaultAnalysisConfig()))

	trace, err := ReadTrace(&buf)
	require.NoError(t, err)
	assert.True(t, trace.ConfigOnly)
	assert.Equal(t, core.DefaultThreshold, trace.Config.Threshold)
}
