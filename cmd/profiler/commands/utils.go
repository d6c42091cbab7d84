/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akaylee Profiler commands. Provides configuration
loading, logging setup, analysis configuration from flags, files and PROFILER_ environment
variables, matcher plugin loading, sample reading and coloured console output.
*/

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/logging"
	"github.com/kleascm/akaylee-profiler/pkg/parallel"
	"github.com/kleascm/akaylee-profiler/pkg/semantic"
	"github.com/spf13/viper"
)

// Version is set by main
var Version = "dev"

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed, color.Bold)
	labelColor  = color.New(color.FgBlue)
)

// printHeader prints a command banner
func printHeader(title string) {
	headerColor.Fprintln(os.Stderr, title)
	headerColor.Fprintln(os.Stderr, strings.Repeat("=", len([]rune(title))+1))
	fmt.Fprintln(os.Stderr)
}

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	viper.SetEnvPrefix("PROFILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// SetupLogging creates the logger from the log.* settings
func SetupLogging() (*logging.Logger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.LogLevel(viper.GetString("log.level"))
	cfg.Format = logging.LogFormat(viper.GetString("log.format"))
	cfg.OutputDir = viper.GetString("log.dir")
	cfg.MaxFiles = viper.GetInt("log.max_files")
	cfg.Colors = !viper.GetBool("no_color")
	if viper.GetBool("log.json") {
		cfg.Format = logging.LogFormatJSON
	}
	logger, err := logging.NewLogger(cfg, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// analysisConfig builds the analysis configuration from the analysis.* settings
func analysisConfig() (*core.AnalysisConfig, error) {
	cfg := core.DefaultAnalysisConfig()
	setters := []struct {
		key string
		set func() error
	}{
		{"analysis.threshold", func() error { return cfg.SetThreshold(viper.GetInt("analysis.threshold")) }},
		{"analysis.plugin_threshold", func() error { return cfg.SetPluginThreshold(viper.GetInt("analysis.plugin_threshold")) }},
		{"analysis.max_cardinality", func() error { return cfg.SetMaxCardinality(viper.GetInt("analysis.max_cardinality")) }},
		{"analysis.max_outliers", func() error { return cfg.SetMaxOutliers(viper.GetInt("analysis.max_outliers")) }},
		{"analysis.max_invalids", func() error { return cfg.SetMaxInvalids(viper.GetInt("analysis.max_invalids")) }},
		{"analysis.detect_window", func() error { return cfg.SetDetectWindow(viper.GetInt("analysis.detect_window")) }},
		{"analysis.top_bottom_k", func() error { return cfg.SetTopBottomK(viper.GetInt("analysis.top_bottom_k")) }},
		{"analysis.histogram_bins", func() error { return cfg.SetHistogramBins(viper.GetInt("analysis.histogram_bins")) }},
		{"analysis.locale", func() error { return cfg.SetLocale(viper.GetString("analysis.locale")) }},
		{"analysis.statistics", func() error { return cfg.SetStatistics(viper.GetBool("analysis.statistics")) }},
		{"analysis.semantic_types", func() error { return cfg.SetDefaultSemanticTypes(viper.GetBool("analysis.semantic_types")) }},
		{"analysis.debug", func() error { return cfg.SetDebug(viper.GetBool("analysis.debug")) }},
	}
	for _, s := range setters {
		if !viper.IsSet(s.key) {
			continue
		}
		if err := s.set(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.key, err)
		}
	}
	return cfg, nil
}

// loadRegistry builds the matcher registry with any plugin definition files
func loadRegistry() (*semantic.Registry, error) {
	registry := semantic.NewRegistry(nil)
	for _, path := range viper.GetStringSlice("analysis.plugins") {
		defs, err := semantic.LoadDefinitions(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load plugins from %s: %w", path, err)
		}
		if err := registry.AddDefinitions(defs); err != nil {
			return nil, fmt.Errorf("invalid plugins in %s: %w", path, err)
		}
	}
	return registry, nil
}

// analyzerOptions returns the options shared by every analyzer of a command
func analyzerOptions(logger *logging.Logger, registry *semantic.Registry, extra ...analysis.Option) []analysis.Option {
	opts := []analysis.Option{
		analysis.WithLogger(logger.GetLogger()),
		analysis.WithRegistry(registry),
	}
	return append(opts, extra...)
}

// readStream reads one sample per line; "-" reads standard input
// Lines equal to nullToken are null samples
func readStream(path, name, nullToken string) (parallel.Stream, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return parallel.Stream{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()
		r = file
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
	}
	samples, err := readSamples(r, nullToken)
	if err != nil {
		return parallel.Stream{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parallel.Stream{Name: name, Samples: samples}, nil
}

func readSamples(r io.Reader, nullToken string) ([]*string, error) {
	var samples []*string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if nullToken != "" && line == nullToken {
			samples = append(samples, nil)
			continue
		}
		samples = append(samples, &line)
	}
	return samples, scanner.Err()
}
