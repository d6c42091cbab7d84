/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: merge.go
Description: Merge and replay commands for the Akaylee Profiler. Merge folds analyzer
states saved by separate profiling runs into one result; replay re-runs a recorded trace.
*/

package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/monitoring"
	"github.com/kleascm/akaylee-profiler/pkg/reporting"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunMerge merges saved analyzer states of one stream
func RunMerge(cmd *cobra.Command, args []string) error {
	printHeader("🔗 Akaylee Profiler - Merging Shards")

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	format, err := reporting.ParseFormat(viper.GetString("merge.format"))
	if err != nil {
		return err
	}
	collector, err := monitoring.NewCollector(nil, logger.GetLogger())
	if err != nil {
		return err
	}
	opts := analyzerOptions(logger, registry, analysis.WithObserver(collector))

	var merged *analysis.TextAnalyzer
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read state %s: %w", path, err)
		}
		a, err := analysis.Deserialize(data, opts...)
		if err != nil {
			return fmt.Errorf("failed to restore %s: %w", path, err)
		}
		labelColor.Fprintf(os.Stderr, "📥 %s", path)
		fmt.Fprintf(os.Stderr, " (%s, %d samples)\n", a.Context().StreamName, a.Facts().SampleCount)
		if merged == nil {
			merged = a
			continue
		}
		if merged, err = analysis.Merge(merged, a, opts...); err != nil {
			return fmt.Errorf("failed to merge %s: %w", path, err)
		}
	}
	logger.LogMerge(merged.Context().StreamName, len(args), merged.Facts().SampleCount)

	if dir := viper.GetString("merge.state_dir"); dir != "" {
		path, err := saveState(dir, merged)
		if err != nil {
			return err
		}
		okColor.Fprintf(os.Stderr, "💾 Merged state saved to %s\n", path)
	}

	result, err := merged.Result()
	if err != nil {
		return err
	}
	summary, err := collector.Summary()
	if err != nil {
		return err
	}
	return renderResults([]*analysis.Result{result}, summary, format, logger)
}

// RunReplay re-runs a trace written by profile --trace
func RunReplay(cmd *cobra.Command, args []string) error {
	printHeader("🔁 Akaylee Profiler - Replaying Trace")

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	format, err := reporting.ParseFormat(viper.GetString("replay.format"))
	if err != nil {
		return err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer file.Close()
	trace, err := analysis.ReadTrace(file)
	if err != nil {
		return err
	}
	if trace.ConfigOnly {
		warnColor.Fprintln(os.Stderr, "⚠️  Trace holds a configuration only")
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trace.Config)
	}

	_, result, err := analysis.Replay(trace, analyzerOptions(logger, registry)...)
	if err != nil {
		return err
	}
	return renderResults([]*analysis.Result{result}, nil, format, logger)
}
