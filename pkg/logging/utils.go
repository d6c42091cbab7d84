/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Log management for the Akaylee Profiler. Compresses and prunes old log files,
reports log directory statistics and scans log files for profiler events.
*/

package logging

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogManager manages the log directory
type LogManager struct {
	logDir   string
	maxFiles int
}

// NewLogManager creates a new log manager
func NewLogManager(logDir string, maxFiles int) *LogManager {
	return &LogManager{logDir: logDir, maxFiles: maxFiles}
}

func (lm *LogManager) files(suffix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(lm.logDir, filePrefix+"*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("failed to glob log files: %w", err)
	}
	return files, nil
}

// CompressLogs gzips every plain log file except the newest
func (lm *LogManager) CompressLogs() (int, error) {
	files, err := lm.files(".log")
	if err != nil {
		return 0, err
	}
	sortByModTime(files)
	if len(files) <= 1 {
		return 0, nil
	}
	compressed := 0
	for _, file := range files[:len(files)-1] {
		if err := compressFile(file); err != nil {
			return compressed, fmt.Errorf("failed to compress %s: %w", file, err)
		}
		compressed++
	}
	return compressed, nil
}

// compressFile replaces a log file with its gzip, keeping its modification time
func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()
	stat, err := source.Stat()
	if err != nil {
		return err
	}

	target, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(target)
	if _, err := io.Copy(gz, source); err != nil {
		target.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		target.Close()
		return err
	}
	if err := target.Close(); err != nil {
		return err
	}
	if err := os.Chtimes(path+".gz", stat.ModTime(), stat.ModTime()); err != nil {
		return err
	}
	return os.Remove(path)
}

// CleanupOldLogs removes the oldest log files beyond the retention count
func (lm *LogManager) CleanupOldLogs() (int, error) {
	files, err := lm.files(".log*")
	if err != nil {
		return 0, err
	}
	if len(files) <= lm.maxFiles {
		return 0, nil
	}
	sortByModTime(files)
	remove := files[:len(files)-lm.maxFiles]
	for _, file := range remove {
		if err := os.Remove(file); err != nil {
			return 0, fmt.Errorf("failed to remove file %s: %w", file, err)
		}
	}
	return len(remove), nil
}

func sortByModTime(files []string) {
	mod := make(map[string]time.Time, len(files))
	for _, f := range files {
		if stat, err := os.Stat(f); err == nil {
			mod[f] = stat.ModTime()
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return mod[files[i]].Before(mod[files[j]]) })
}

// GetLogStats returns statistics about log files
func (lm *LogManager) GetLogStats() (*LogStats, error) {
	files, err := lm.files(".log*")
	if err != nil {
		return nil, err
	}
	stats := &LogStats{TotalFiles: len(files)}
	for _, file := range files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}
		stats.TotalSize += stat.Size()
		if stats.OldestFile.IsZero() || stat.ModTime().Before(stats.OldestFile) {
			stats.OldestFile = stat.ModTime()
		}
		if stat.ModTime().After(stats.NewestFile) {
			stats.NewestFile = stat.ModTime()
		}
		if strings.HasSuffix(file, ".gz") {
			stats.CompressedFiles++
		} else {
			stats.UncompressedFiles++
		}
	}
	return stats, nil
}

// LogStats holds statistics about log files
type LogStats struct {
	TotalFiles        int       `json:"total_files"`
	TotalSize         int64     `json:"total_size"`
	CompressedFiles   int       `json:"compressed_files"`
	UncompressedFiles int       `json:"uncompressed_files"`
	OldestFile        time.Time `json:"oldest_file"`
	NewestFile        time.Time `json:"newest_file"`
}

// LogAnalysis holds event counts found in the logs
type LogAnalysis struct {
	LogFiles     int   `json:"log_files"`
	TotalLines   int64 `json:"total_lines"`
	DebugCount   int64 `json:"debug_count"`
	InfoCount    int64 `json:"info_count"`
	WarningCount int64 `json:"warning_count"`
	ErrorCount   int64 `json:"error_count"`
	StreamCount  int64 `json:"stream_count"`
	BackoutCount int64 `json:"backout_count"`
	MergeCount   int64 `json:"merge_count"`
	MatcherFails int64 `json:"matcher_fails"`
}

// AnalyzeLogs scans the plain log files for levels and profiler events
func (lm *LogManager) AnalyzeLogs() (*LogAnalysis, error) {
	files, err := lm.files(".log")
	if err != nil {
		return nil, err
	}
	analysis := &LogAnalysis{LogFiles: len(files)}
	for _, file := range files {
		if err := analyzeFile(file, analysis); err != nil {
			return nil, fmt.Errorf("failed to analyze file %s: %w", file, err)
		}
	}
	return analysis, nil
}

func analyzeFile(path string, analysis *LogAnalysis) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		analysis.analyzeLine(scanner.Text())
	}
	return scanner.Err()
}

// analyzeLine counts one log line
func (a *LogAnalysis) analyzeLine(line string) {
	a.TotalLines++

	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "DEBUG"):
		a.DebugCount++
	case strings.Contains(upper, "INFO"):
		a.InfoCount++
	case strings.Contains(upper, "WARN"):
		a.WarningCount++
	case strings.Contains(upper, "ERROR"):
		a.ErrorCount++
	}

	switch {
	case strings.Contains(line, "Stream profiled"):
		a.StreamCount++
	case strings.Contains(line, "Backed out"):
		a.BackoutCount++
	case strings.Contains(line, "Shards merged"), strings.Contains(line, "Merged analyses"):
		a.MergeCount++
	case strings.Contains(line, "Semantic matcher failed"):
		a.MatcherFails++
	}
}

// Summary returns a readable summary of the analysis
func (a *LogAnalysis) Summary() string {
	return fmt.Sprintf(
		"Log Analysis Summary:\n"+
			"  Files: %d\n"+
			"  Total Lines: %d\n"+
			"  Debug: %d  Info: %d  Warning: %d  Error: %d\n"+
			"  Streams: %d\n"+
			"  Backouts: %d\n"+
			"  Merges: %d\n"+
			"  Matcher Failures: %d",
		a.LogFiles, a.TotalLines, a.DebugCount, a.InfoCount, a.WarningCount, a.ErrorCount,
		a.StreamCount, a.BackoutCount, a.MergeCount, a.MatcherFails,
	)
}
