/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Custom log formatters for the Akaylee Profiler. CustomFormatter prints one
readable line per entry with optional colours; ProfilerFormatter adds an event tag derived
from the message and shortens the profiler's own fields.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter provides structured single-line output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.format(entry, "", f.formatValue), nil
}

// format renders the shared layout with an optional tag and value formatter
func (f *CustomFormatter) format(entry *logrus.Entry, tag string, value func(key string, v interface{}) string) []byte {
	var output strings.Builder

	if f.Timestamp {
		output.WriteString(f.paint(36, entry.Time.Format("2006-01-02 15:04:05.000")))
		output.WriteByte(' ')
	}
	output.WriteString(f.paint(f.getLevelColor(entry.Level), strings.ToUpper(entry.Level.String())))
	output.WriteByte(' ')
	if tag != "" {
		output.WriteString(f.paint(35, "["+tag+"]"))
		output.WriteByte(' ')
	}
	if f.Caller && entry.HasCaller() {
		output.WriteString(f.paint(33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line)))
		output.WriteByte(' ')
	}
	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			output.WriteByte(' ')
			output.WriteString(f.paint(34, k))
			output.WriteByte('=')
			output.WriteString(f.paint(32, value(k, entry.Data[k])))
		}
	}
	output.WriteByte('\n')
	return []byte(output.String())
}

func (f *CustomFormatter) paint(color int, s string) string {
	if !f.Colors {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, s)
}

// getLevelColor returns the ANSI color code for a log level
func (f *CustomFormatter) getLevelColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return 32
	case logrus.WarnLevel:
		return 33
	case logrus.ErrorLevel:
		return 31
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35
	default:
		return 37
	}
}

// formatValue formats a field value appropriately
func (f *CustomFormatter) formatValue(_ string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case string:
		if len(v) > 50 {
			return v[:50] + "..."
		}
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ProfilerFormatter tags profiler events and formats their fields
type ProfilerFormatter struct {
	CustomFormatter
}

// Format formats profiler log entries
func (f *ProfilerFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.format(entry, f.getProfilerPrefix(entry.Message), f.formatProfilerValue), nil
}

// getProfilerPrefix returns a tag based on the log message
func (f *ProfilerFormatter) getProfilerPrefix(message string) string {
	switch {
	case strings.Contains(message, "Type determined"):
		return "DETECT"
	case strings.Contains(message, "Backed out"):
		return "BACKOUT"
	case strings.Contains(message, "Re-analysis"):
		return "REANALYSE"
	case strings.Contains(message, "merged"), strings.Contains(message, "Merged"):
		return "MERGE"
	case strings.Contains(message, "Stream profiled"), strings.Contains(message, "Analysis complete"):
		return "PROFILE"
	case strings.Contains(message, "Statistics update"):
		return "STATS"
	case strings.Contains(message, "matcher"):
		return "SEMANTIC"
	default:
		return ""
	}
}

// formatProfilerValue formats profiler-specific field values
func (f *ProfilerFormatter) formatProfilerValue(key string, value interface{}) string {
	switch key {
	case "confidence":
		if c, ok := value.(float64); ok {
			return fmt.Sprintf("%.2f%%", c*100)
		}
	case "samples_per_sec":
		if r, ok := value.(float64); ok {
			return fmt.Sprintf("%.0f/sec", r)
		}
	case "session":
		if s, ok := value.(string); ok && len(s) > 8 {
			return s[:8] + "..."
		}
	}
	return f.formatValue(key, value)
}
