/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logs.go
Description: Log maintenance commands for the Akaylee Profiler: statistics, analysis,
compression and cleanup of the log directory.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akaylee-profiler/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func logManager() (*logging.LogManager, error) {
	if err := LoadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	dir := viper.GetString("log.dir")
	if dir == "" {
		return nil, fmt.Errorf("no log directory configured, set --log-dir")
	}
	return logging.NewLogManager(dir, viper.GetInt("log.max_files")), nil
}

// ShowLogStats prints statistics about the log directory
func ShowLogStats(cmd *cobra.Command, args []string) error {
	printHeader("🗂️  Akaylee Profiler - Log Statistics")
	lm, err := logManager()
	if err != nil {
		return err
	}
	stats, err := lm.GetLogStats()
	if err != nil {
		return err
	}
	fmt.Printf("📁 Files: %d (%d compressed, %d plain)\n", stats.TotalFiles, stats.CompressedFiles, stats.UncompressedFiles)
	fmt.Printf("💾 Size: %d bytes\n", stats.TotalSize)
	if stats.TotalFiles > 0 {
		fmt.Printf("🕰️  Oldest: %s\n", stats.OldestFile.Format("2006-01-02 15:04:05"))
		fmt.Printf("🆕 Newest: %s\n", stats.NewestFile.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// AnalyzeLogs prints the profiler events found in the logs
func AnalyzeLogs(cmd *cobra.Command, args []string) error {
	printHeader("🧠 Akaylee Profiler - Log Analysis")
	lm, err := logManager()
	if err != nil {
		return err
	}
	analysis, err := lm.AnalyzeLogs()
	if err != nil {
		return err
	}
	fmt.Println(analysis.Summary())
	if analysis.ErrorCount > 0 || analysis.MatcherFails > 0 {
		warnColor.Printf("⚠️  %d errors and %d matcher failures logged\n", analysis.ErrorCount, analysis.MatcherFails)
	}
	return nil
}

// CompressLogs gzips old log files and removes those beyond the retention count
func CompressLogs(cmd *cobra.Command, args []string) error {
	printHeader("🗜️  Akaylee Profiler - Log Maintenance")
	lm, err := logManager()
	if err != nil {
		return err
	}
	compressed, err := lm.CompressLogs()
	if err != nil {
		return err
	}
	removed, err := lm.CleanupOldLogs()
	if err != nil {
		return err
	}
	okColor.Printf("✅ Compressed %d and removed %d log files\n", compressed, removed)
	return nil
}
