/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for the Akaylee Profiler. Wires the cobra
commands, their flags and the viper keys they are read from, so every option can come
from a flag, a configuration file or a PROFILER_ environment variable.
*/

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/kleascm/akaylee-profiler/cmd/profiler/commands"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const version = "1.0.0"

// bind maps viper keys to flags of the same set
func bind(flags *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func main() {
	commands.Version = version

	rootCmd := &cobra.Command{
		Use:   "akaylee-profiler",
		Short: "Akaylee Profiler - Streaming type inference and statistics for text data",
		Long: `Akaylee Profiler reads columns of text samples and infers, in a single pass,
their base type, semantic type and a canonical regular expression, together with bounded
statistics: min/max, mean, cardinality, outliers, quantiles, histograms and top/bottom-K.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file path")
	pf.Bool("no-color", false, "Disable coloured output")
	pf.String("log-level", "info", "Logging level (debug, info, warn, error)")
	pf.String("log-format", "custom", "Log format (text, json, custom)")
	pf.Bool("json-logs", false, "Use JSON log format")
	pf.String("log-dir", "", "Log output directory (console only when empty)")
	pf.Int("log-max-files", 10, "Maximum number of log files to keep")

	// Analysis flags
	defaults := core.DefaultAnalysisConfig()
	pf.Int("threshold", defaults.Threshold, "Percentage of samples that must match the detected type")
	pf.Int("plugin-threshold", defaults.PluginThreshold, "Percentage of samples that must match a semantic type")
	pf.Int("max-cardinality", defaults.MaxCardinality, "Distinct values tracked before switching to approximate statistics")
	pf.Int("max-outliers", defaults.MaxOutliers, "Distinct outliers tracked")
	pf.Int("max-invalids", defaults.MaxInvalids, "Distinct invalid values tracked")
	pf.Int("detect-window", defaults.DetectWindow, "Samples seen before the type is committed")
	pf.Int("top-bottom-k", defaults.TopBottomK, "Number of largest and smallest values kept")
	pf.Int("histogram-bins", defaults.HistogramBins, "Bins of the approximate histogram")
	pf.String("locale", defaults.Locale, "Locale of the samples (BCP 47)")
	pf.Bool("statistics", defaults.Statistics, "Collect statistics (mean, quantiles, histograms, top/bottom-K)")
	pf.Bool("semantic-types", defaults.DefaultSemanticTypes, "Detect built-in semantic types")
	pf.Bool("debug", defaults.Debug, "Return internal errors instead of counting them")
	pf.StringSlice("plugins", nil, "YAML files with additional semantic type definitions")

	// Report flags
	pf.String("title", "Akaylee Profiler Report", "Report title")
	pf.String("output-dir", "", "Directory for HTML, JSON and text report files")
	pf.String("results-dir", "", "Directory for timestamped JSON results")
	pf.Int("buckets", 20, "Histogram bars per stream in reports")

	bind(pf, map[string]string{
		"config":                    "config",
		"no_color":                  "no-color",
		"log.level":                 "log-level",
		"log.format":                "log-format",
		"log.json":                  "json-logs",
		"log.dir":                   "log-dir",
		"log.max_files":             "log-max-files",
		"analysis.threshold":        "threshold",
		"analysis.plugin_threshold": "plugin-threshold",
		"analysis.max_cardinality":  "max-cardinality",
		"analysis.max_outliers":     "max-outliers",
		"analysis.max_invalids":     "max-invalids",
		"analysis.detect_window":    "detect-window",
		"analysis.top_bottom_k":     "top-bottom-k",
		"analysis.histogram_bins":   "histogram-bins",
		"analysis.locale":           "locale",
		"analysis.statistics":       "statistics",
		"analysis.semantic_types":   "semantic-types",
		"analysis.debug":            "debug",
		"analysis.plugins":          "plugins",
		"report.title":              "title",
		"report.output_dir":         "output-dir",
		"report.results_dir":        "results-dir",
		"report.buckets":            "buckets",
	})

	cobra.OnInitialize(func() {
		if viper.GetBool("no_color") {
			color.NoColor = true
		}
	})

	// profile
	profileCmd := &cobra.Command{
		Use:   "profile [files...]",
		Short: "Profile one stream per input file",
		Long: `Profile each input file as a stream with one sample per line ("-" reads standard
input). Large streams can be split into shards that are trained concurrently and merged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: commands.RunProfile,
	}
	profileCmd.Flags().String("name", "", "Stream name for a single input (defaults to the file name)")
	profileCmd.Flags().String("null", "", "Line content treated as a null sample")
	profileCmd.Flags().StringP("format", "f", "text", "Output format (text, json, html)")
	profileCmd.Flags().Int("shards", 1, "Shards per stream trained concurrently")
	profileCmd.Flags().Int("jobs", 0, "Streams profiled concurrently (0 = number of CPUs)")
	profileCmd.Flags().String("state-dir", "", "Directory for serialized analyzer states")
	profileCmd.Flags().String("trace", "", "Write a replay trace of the first stream")
	profileCmd.Flags().String("pprof-dir", "", "Write CPU and heap profiles of the run")
	bind(profileCmd.Flags(), map[string]string{
		"profile.name":      "name",
		"profile.null":      "null",
		"profile.format":    "format",
		"profile.shards":    "shards",
		"profile.jobs":      "jobs",
		"profile.state_dir": "state-dir",
		"profile.trace":     "trace",
		"profile.pprof_dir": "pprof-dir",
	})
	rootCmd.AddCommand(profileCmd)

	// merge
	mergeCmd := &cobra.Command{
		Use:   "merge [states...]",
		Short: "Merge saved analyzer states of one stream",
		Long: `Merge analyzer states written by profile --state-dir. All states must share the
same analysis configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: commands.RunMerge,
	}
	mergeCmd.Flags().StringP("format", "f", "text", "Output format (text, json, html)")
	mergeCmd.Flags().String("state-dir", "", "Directory for the merged analyzer state")
	bind(mergeCmd.Flags(), map[string]string{
		"merge.format":    "format",
		"merge.state_dir": "state-dir",
	})
	rootCmd.AddCommand(mergeCmd)

	// replay
	replayCmd := &cobra.Command{
		Use:   "replay [trace]",
		Short: "Replay a trace written by profile --trace",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunReplay,
	}
	replayCmd.Flags().StringP("format", "f", "text", "Output format (text, json, html)")
	bind(replayCmd.Flags(), map[string]string{"replay.format": "format"})
	rootCmd.AddCommand(replayCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "plugins",
		Short: "List the semantic types the profiler can detect",
		RunE:  commands.ListPlugins,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Perform built-in self-checks",
		Long: `Validate the configuration and semantic type definitions, check that output
directories are writable and classify a known stream. Useful for CI/CD integration.`,
		RunE: commands.PerformSelfCheck,
	})

	// logs
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect and maintain the log directory",
	}
	logsCmd.AddCommand(
		&cobra.Command{Use: "stats", Short: "Show log file statistics", RunE: commands.ShowLogStats},
		&cobra.Command{Use: "analyze", Short: "Count profiler events in the logs", RunE: commands.AnalyzeLogs},
		&cobra.Command{Use: "compress", Short: "Compress old logs and remove those beyond --log-max-files", RunE: commands.CompressLogs},
	)
	rootCmd.AddCommand(logsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
