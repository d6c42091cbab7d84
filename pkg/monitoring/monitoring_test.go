/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: monitoring_test.go
Description: Tests for the Prometheus analysis collector and the runtime profiler.
*/

package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(t *testing.T, c *Collector, name string, samples ...string) *analysis.Result {
	t.Helper()
	a, err := analysis.NewTextAnalyzer(core.NewAnalysisContext(name), core.DefaultAnalysisConfig(), analysis.WithObserver(c))
	require.NoError(t, err)
	for _, s := range samples {
		_, err := a.Train(s)
		require.NoError(t, err)
	}
	r, err := a.Result()
	require.NoError(t, err)
	return r
}

func numbers(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

func TestMetricsConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultMetricsConfig().Validate())

	cfg := DefaultMetricsConfig()
	cfg.Namespace = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultMetricsConfig()
	cfg.ConfidenceBuckets = nil
	assert.Error(t, cfg.Validate())

	_, err := NewCollector(cfg, nil)
	assert.Error(t, err)
}

func TestCollectorCountsStreams(t *testing.T) {
	c, err := NewCollector(nil, logrus.New())
	require.NoError(t, err)

	profile(t, c, "id", numbers(1, 40)...)
	profile(t, c, "colour", "red", "blue", "green", "red")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.streams.WithLabelValues("LONG", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.determinations.WithLabelValues("LONG")))
	assert.Equal(t, 44.0, testutil.ToFloat64(c.samples))

	s, err := c.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Streams)
	assert.Equal(t, int64(44), s.Samples)
	assert.Equal(t, int64(1), s.StreamsByType["LONG"])
	assert.Equal(t, int64(1), s.StreamsByType["STRING"])
	assert.Zero(t, s.Backouts)
	assert.InDelta(t, 1.0, s.MeanConfidence, 1e-9)
}

func TestCollectorCountsBackouts(t *testing.T) {
	c, err := NewCollector(nil, logrus.New())
	require.NoError(t, err)

	samples := numbers(100, 149)
	for i := 0; i < 10; i++ {
		samples = append(samples, "1.5")
	}
	r := profile(t, c, "price", samples...)
	require.Equal(t, core.BaseDouble, r.Type)

	s, err := c.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(r.Backouts), s.Backouts)
	assert.GreaterOrEqual(t, s.Backouts, int64(1))
	assert.Equal(t, int64(1), s.StreamsByType["DOUBLE"])
}

func TestCollectorHandler(t *testing.T) {
	c, err := NewCollector(nil, nil)
	require.NoError(t, err)
	profile(t, c, "", numbers(1, 30)...)

	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `akaylee_profiler_streams_total{semantic="",type="LONG"} 1`)
	assert.Contains(t, string(body), "akaylee_profiler_confidence_bucket")
}

func TestProfiler(t *testing.T) {
	p := NewProfiler(&ProfilerConfig{
		OutputDir:        t.TempDir(),
		CPUProfile:       true,
		MemoryProfile:    true,
		GoroutineProfile: true,
	}, logrus.New())

	_, err := p.Stop()
	assert.Error(t, err)

	require.NoError(t, p.Start())
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start())

	summary, err := p.Stop()
	require.NoError(t, err)
	assert.False(t, p.IsRunning())
	assert.Positive(t, summary.GoRoutines)

	results := p.Results()
	require.Len(t, results, 3)
	for _, r := range results {
		assert.FileExists(t, r.OutputFile)
	}
	assert.Equal(t, ProfilerTypeCPU, results[0].Type)
}
