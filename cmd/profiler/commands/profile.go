/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: profile.go
Description: Profile command for the Akaylee Profiler. Reads one stream per input file,
profiles the streams (sharding large ones across goroutines), records metrics and logs,
renders the report and optionally keeps analyzer states, a replay trace and runtime
profiles for later inspection.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/logging"
	"github.com/kleascm/akaylee-profiler/pkg/monitoring"
	"github.com/kleascm/akaylee-profiler/pkg/parallel"
	"github.com/kleascm/akaylee-profiler/pkg/reporting"
	"github.com/kleascm/akaylee-profiler/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunProfile profiles every input file as its own stream
func RunProfile(cmd *cobra.Command, args []string) error {
	printHeader("📊 Akaylee Profiler - Profiling Streams")

	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	cfg, err := analysisConfig()
	if err != nil {
		return fmt.Errorf("invalid analysis configuration: %w", err)
	}
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	format, err := reporting.ParseFormat(viper.GetString("profile.format"))
	if err != nil {
		return err
	}
	collector, err := monitoring.NewCollector(nil, logger.GetLogger())
	if err != nil {
		return err
	}
	opts := analyzerOptions(logger, registry, analysis.WithObserver(collector))

	name := viper.GetString("profile.name")
	if name != "" && len(args) > 1 {
		return fmt.Errorf("--name can only be used with a single input")
	}
	streams := make([]parallel.Stream, 0, len(args))
	for _, path := range args {
		stream, err := readStream(path, name, viper.GetString("profile.null"))
		if err != nil {
			return err
		}
		streams = append(streams, stream)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	profiler, err := startProfiler(logger)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := profileStreams(ctx, cfg, streams, logger, opts)
	if err != nil {
		return err
	}

	if profiler != nil {
		perf, err := profiler.Stop()
		if err != nil {
			return err
		}
		logger.Info("Runtime profile written", map[string]interface{}{
			"dir":         viper.GetString("profile.pprof_dir"),
			"total_alloc": perf.TotalAlloc,
			"gcs":         perf.GCs,
		})
	}

	summary, err := collector.Summary()
	if err != nil {
		return err
	}
	logger.LogStats(len(results), summary.Samples, int(summary.Backouts), map[string]interface{}{
		"duration": time.Since(start),
	})

	if trace := viper.GetString("profile.trace"); trace != "" {
		if err := writeTrace(trace, cfg, streams); err != nil {
			return err
		}
		okColor.Fprintf(os.Stderr, "✅ Trace written to %s\n", trace)
	}
	return renderResults(results, summary, format, logger)
}

// profileStreams trains the streams, saving each analyzer's state first when asked to
func profileStreams(ctx context.Context, cfg *core.AnalysisConfig, streams []parallel.Stream, logger *logging.Logger, opts []analysis.Option) ([]*analysis.Result, error) {
	shards := viper.GetInt("profile.shards")
	stateDir := viper.GetString("profile.state_dir")

	if shards <= 1 && stateDir == "" {
		start := time.Now()
		results, err := parallel.ProfileStreams(ctx, cfg, streams, viper.GetInt("profile.jobs"), opts...)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			logger.LogStream(r.StreamName, r.Type.String(), r.SemanticType, r.SampleCount, r.Confidence, time.Since(start))
		}
		return results, nil
	}

	results := make([]*analysis.Result, 0, len(streams))
	for i, stream := range streams {
		start := time.Now()
		actx := core.NewAnalysisContext(stream.Name)
		actx.StreamIndex = i
		a, err := parallel.Profile(ctx, actx, cfg, stream.Samples, shards, opts...)
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", stream.Name, err)
		}
		if shards > 1 {
			logger.LogMerge(stream.Name, shards, a.Facts().SampleCount)
		}
		if stateDir != "" {
			path, err := saveState(stateDir, a)
			if err != nil {
				return nil, err
			}
			okColor.Fprintf(os.Stderr, "💾 State of %s saved to %s\n", stream.Name, path)
		}
		r, err := a.Result()
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", stream.Name, err)
		}
		logger.LogStream(r.StreamName, r.Type.String(), r.SemanticType, r.SampleCount, r.Confidence, time.Since(start))
		results = append(results, r)
	}
	return results, nil
}

// saveState writes an analyzer's serialized state
func saveState(dir string, a *analysis.TextAnalyzer) (string, error) {
	data, err := a.Serialize()
	if err != nil {
		return "", err
	}
	return utils.WriteState(dir, a.Context().StreamName, data)
}

// startProfiler starts runtime profiling when a pprof directory is configured
func startProfiler(logger *logging.Logger) (*monitoring.Profiler, error) {
	dir := viper.GetString("profile.pprof_dir")
	if dir == "" {
		return nil, nil
	}
	p := monitoring.NewProfiler(&monitoring.ProfilerConfig{
		OutputDir:        dir,
		CPUProfile:       true,
		MemoryProfile:    true,
		GoroutineProfile: false,
	}, logger.GetLogger())
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}
	return p, nil
}

// writeTrace records the first stream so its analysis can be replayed
func writeTrace(path string, cfg *core.AnalysisConfig, streams []parallel.Stream) error {
	if len(streams) == 0 {
		return fmt.Errorf("no stream to trace")
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}
	defer file.Close()
	return analysis.WriteTrace(file, cfg, core.NewAnalysisContext(streams[0].Name), streams[0].Samples, nil)
}

// renderResults prints the report and writes report files and results when configured
func renderResults(results []*analysis.Result, summary *monitoring.Summary, format reporting.Format, logger *logging.Logger) error {
	report, err := reporting.NewReport(viper.GetString("report.title"), Version, results, summary, viper.GetInt("report.buckets"))
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := report.Render(os.Stdout, format); err != nil {
		return err
	}

	if dir := viper.GetString("report.output_dir"); dir != "" {
		paths, err := reporting.NewGenerator(dir, logger.GetLogger()).Generate(report)
		if err != nil {
			return err
		}
		for _, p := range paths {
			okColor.Fprintf(os.Stderr, "📄 %s\n", p)
		}
	}
	if dir := viper.GetString("report.results_dir"); dir != "" {
		path, err := utils.WriteResult(dir, "profile", Version, report)
		if err != nil {
			return err
		}
		okColor.Fprintf(os.Stderr, "📁 Results saved to %s\n", path)
	}

	for _, r := range results {
		if r.Confidence < 0.9 && r.SampleCount > 0 {
			warnColor.Fprintf(os.Stderr, "⚠️  %s: low confidence %.2f%% as %s\n", r.StreamName, r.Confidence*100, r.Type)
		}
	}
	fmt.Fprintln(os.Stderr)
	okColor.Fprintln(os.Stderr, "✨ Profiling completed!")
	return nil
}
