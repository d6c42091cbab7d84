/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logging_test.go
Description: Tests for the logging system: configuration checks, formatters, file output,
retention and log analysis.
*/

package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultLoggerConfig().Validate())

	cfg := DefaultLoggerConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = DefaultLoggerConfig()
	cfg.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg = DefaultLoggerConfig()
	cfg.MaxFiles = 0
	assert.Error(t, cfg.Validate())
}

func TestLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Colors = false
	cfg.Timestamp = false
	logger, err := NewLogger(cfg, &buf)
	require.NoError(t, err)
	defer logger.Close()

	logger.LogStream("zip", "LONG", "POSTAL_CODE.ZIP5_US", 120, 0.99, 5*time.Millisecond)
	out := buf.String()
	assert.Contains(t, out, "INFO [PROFILE] Stream profiled")
	assert.Contains(t, out, "confidence=99.00%")
	assert.Contains(t, out, "semantic=POSTAL_CODE.ZIP5_US")
	assert.Empty(t, logger.FilePath())
}

func TestLoggerFileOutputAndAnalysis(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultLoggerConfig()
	cfg.OutputDir = dir
	cfg.Colors = false
	logger, err := NewLogger(cfg, &bytes.Buffer{})
	require.NoError(t, err)

	logger.LogStream("a", "STRING", "", 10, 1, time.Millisecond)
	logger.LogMerge("a", 4, 40)
	logger.LogStats(1, 40, 2, nil)
	logger.Warning("Semantic matcher failed", map[string]interface{}{"matcher": "EMAIL"})
	require.NoError(t, logger.Close())

	require.FileExists(t, logger.FilePath())
	analysis, err := NewLogManager(dir, 5).AnalyzeLogs()
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.LogFiles)
	assert.Equal(t, int64(1), analysis.StreamCount)
	assert.Equal(t, int64(1), analysis.MergeCount)
	assert.Equal(t, int64(1), analysis.MatcherFails)
	assert.Equal(t, int64(1), analysis.WarningCount)
	assert.Contains(t, analysis.Summary(), "Streams: 1")
}

func TestLogRetention(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"1", "2", "3", "4"} {
		path := filepath.Join(dir, filePrefix+name+".log")
		require.NoError(t, os.WriteFile(path, []byte("INFO Stream profiled\n"), 0644))
		mod := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(path, mod, mod))
	}

	lm := NewLogManager(dir, 2)
	compressed, err := lm.CompressLogs()
	require.NoError(t, err)
	assert.Equal(t, 3, compressed)

	stats, err := lm.GetLogStats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 3, stats.CompressedFiles)
	assert.Equal(t, 1, stats.UncompressedFiles)

	removed, err := lm.CleanupOldLogs()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.FileExists(t, filepath.Join(dir, filePrefix+"4.log"))
}

func TestFormatters(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Backed out",
		Data: logrus.Fields{
			"stream":  "price",
			"session": "0123456789abcdef",
			"err":     errors.New("boom"),
		},
	}

	plain := &CustomFormatter{Timestamp: true}
	out, err := plain.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02 03:04:05.000 WARNING Backed out err=boom session=0123456789abcdef stream=price\n", string(out))

	tagged := &ProfilerFormatter{}
	out, err = tagged.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "WARNING [BACKOUT] Backed out err=boom session=01234567... stream=price\n", string(out))

	colored := &CustomFormatter{Colors: true}
	out, err = colored.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\033[33mWARNING\033[0m")
}
