/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporting_test.go
Description: Tests for building and rendering profile reports.
*/

package reporting

import (
	"bytes"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profiled(t *testing.T, name string, statistics bool, samples ...string) *analysis.Result {
	t.Helper()
	cfg := core.DefaultAnalysisConfig()
	require.NoError(t, cfg.SetStatistics(statistics))
	a, err := analysis.NewTextAnalyzer(core.NewAnalysisContext(name), cfg)
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

func sampleReport(t *testing.T) *Report {
	t.Helper()
	results := []*analysis.Result{
		profiled(t, "quantity", true, numbers(1, 100)...),
		profiled(t, "colour", true, "red", "blue", "green", "red"),
		profiled(t, "silent", false, numbers(1, 30)...),
	}
	summary := &monitoring.Summary{Streams: 3, Samples: 134, MeanConfidence: 1}
	report, err := NewReport("Run <1>", "1.0.0", results, summary, 10)
	require.NoError(t, err)
	return report
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestNewReportDistributions(t *testing.T) {
	report := sampleReport(t)
	require.Len(t, report.Streams, 3)

	numeric := report.Streams[0]
	require.Len(t, numeric.Quantiles, len(reportQuantiles))
	assert.Equal(t, "50", numeric.Quantiles[2].Value)
	require.Len(t, numeric.Histogram, 10)
	var total int64
	for _, b := range numeric.Histogram {
		total += b.Count
		assert.LessOrEqual(t, b.Percent, 100.0)
	}
	assert.Equal(t, int64(100), total)

	colour := report.Streams[1]
	assert.Len(t, colour.Quantiles, len(reportQuantiles))
	assert.Empty(t, colour.Histogram)

	silent := report.Streams[2]
	assert.Empty(t, silent.Quantiles)
	assert.Empty(t, silent.Histogram)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).Render(&buf, FormatText))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "STREAM")
	assert.Contains(t, string(lines[1]), "quantity")
	assert.Contains(t, string(lines[1]), "LONG")
	assert.Contains(t, string(lines[2]), "COLOR")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).Render(&buf, FormatJSON))

	var decoded struct {
		Title   string `json:"title"`
		Streams []struct {
			Result struct {
				StreamName string `json:"streamName"`
				Type       string `json:"type"`
			} `json:"result"`
		} `json:"streams"`
		Summary struct {
			Streams int64 `json:"streams"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Run <1>", decoded.Title)
	require.Len(t, decoded.Streams, 3)
	assert.Equal(t, "LONG", decoded.Streams[0].Result.Type)
	assert.Equal(t, int64(3), decoded.Summary.Streams)
}

func TestWriteHTMLEscapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport(t).Render(&buf, FormatHTML))
	out := buf.String()

	assert.Contains(t, out, "Run &lt;1&gt;")
	assert.NotContains(t, out, "Run <1>")
	assert.Contains(t, out, `class="bar"`)
	assert.Contains(t, out, "COLOR")
}

func TestGenerator(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewGenerator(dir, nil).Generate(sampleReport(t))
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}
