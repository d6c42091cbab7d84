/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: profiler.go
Description: Runtime profiling for the Akaylee Profiler. Captures CPU, heap and goroutine
pprof profiles around a profiling run and summarises the memory the run used, so large
inputs and small cardinality limits can be checked for their real footprint.
*/

package monitoring

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ProfilerType represents the type of profiling
type ProfilerType string

const (
	ProfilerTypeCPU       ProfilerType = "cpu"
	ProfilerTypeMemory    ProfilerType = "memory"
	ProfilerTypeGoroutine ProfilerType = "goroutine"
)

// ProfilerConfig represents profiling configuration
type ProfilerConfig struct {
	OutputDir        string `json:"output_dir" mapstructure:"output_dir"`
	CPUProfile       bool   `json:"cpu_profile" mapstructure:"cpu_profile"`
	MemoryProfile    bool   `json:"memory_profile" mapstructure:"memory_profile"`
	GoroutineProfile bool   `json:"goroutine_profile" mapstructure:"goroutine_profile"`
}

// ProfileResult describes one written profile
type ProfileResult struct {
	Type       ProfilerType  `json:"type"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	OutputFile string        `json:"output_file"`
	Size       int64         `json:"size"`
}

// PerformanceSummary represents the memory used by a run
type PerformanceSummary struct {
	Duration    time.Duration `json:"duration"`
	HeapAlloc   uint64        `json:"heap_alloc"`
	TotalAlloc  uint64        `json:"total_alloc"`
	HeapObjects uint64        `json:"heap_objects"`
	GoRoutines  int           `json:"go_routines"`
	GCs         uint32        `json:"gcs"`
	GCPauseTime time.Duration `json:"gc_pause_time"`
}

// Profiler wraps runtime/pprof around a run
type Profiler struct {
	config *ProfilerConfig
	logger logrus.FieldLogger

	mu        sync.Mutex
	running   bool
	cpuFile   *os.File
	startTime time.Time
	baseline  runtime.MemStats
	results   []*ProfileResult
}

// NewProfiler creates a new runtime profiler
func NewProfiler(config *ProfilerConfig, logger logrus.FieldLogger) *Profiler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Profiler{config: config, logger: logger}
}

// Start begins profiling
func (p *Profiler) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("profiler already running")
	}
	if err := os.MkdirAll(p.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	p.startTime = time.Now()
	p.results = nil
	runtime.ReadMemStats(&p.baseline)

	if p.config.CPUProfile {
		path := p.outputFile(ProfilerTypeCPU)
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(file); err != nil {
			file.Close()
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		p.cpuFile = file
		p.logger.Info("CPU profiling started")
	}
	p.running = true
	return nil
}

// Stop ends profiling, writes the snapshot profiles and summarises the run
func (p *Profiler) Stop() (*PerformanceSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil, fmt.Errorf("profiler not running")
	}
	p.running = false
	end := time.Now()

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		path := p.cpuFile.Name()
		if err := p.cpuFile.Close(); err != nil {
			return nil, fmt.Errorf("failed to close CPU profile: %w", err)
		}
		p.cpuFile = nil
		p.record(ProfilerTypeCPU, path, end)
		p.logger.Info("CPU profiling stopped")
	}
	if p.config.MemoryProfile {
		runtime.GC()
		if err := p.writeLookup(ProfilerTypeMemory, "heap", end); err != nil {
			return nil, err
		}
	}
	if p.config.GoroutineProfile {
		if err := p.writeLookup(ProfilerTypeGoroutine, "goroutine", end); err != nil {
			return nil, err
		}
	}
	return p.summary(end), nil
}

// writeLookup writes a named runtime profile
func (p *Profiler) writeLookup(kind ProfilerType, name string, end time.Time) error {
	path := p.outputFile(kind)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s profile file: %w", kind, err)
	}
	defer file.Close()
	if err := pprof.Lookup(name).WriteTo(file, 0); err != nil {
		return fmt.Errorf("failed to write %s profile: %w", kind, err)
	}
	p.record(kind, path, end)
	return nil
}

func (p *Profiler) outputFile(kind ProfilerType) string {
	return filepath.Join(p.config.OutputDir, fmt.Sprintf("%s_%d.prof", kind, p.startTime.UnixNano()))
}

func (p *Profiler) record(kind ProfilerType, path string, end time.Time) {
	result := &ProfileResult{
		Type:       kind,
		StartTime:  p.startTime,
		EndTime:    end,
		Duration:   end.Sub(p.startTime),
		OutputFile: path,
	}
	if stat, err := os.Stat(path); err == nil {
		result.Size = stat.Size()
	}
	p.results = append(p.results, result)
}

// summary compares the memory statistics with the baseline taken at Start
func (p *Profiler) summary(end time.Time) *PerformanceSummary {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &PerformanceSummary{
		Duration:    end.Sub(p.startTime),
		HeapAlloc:   m.HeapAlloc,
		TotalAlloc:  m.TotalAlloc - p.baseline.TotalAlloc,
		HeapObjects: m.HeapObjects,
		GoRoutines:  runtime.NumGoroutine(),
		GCs:         m.NumGC - p.baseline.NumGC,
		GCPauseTime: time.Duration(m.PauseTotalNs - p.baseline.PauseTotalNs),
	}
}

// Results returns the profiles written by the last run
func (p *Profiler) Results() []*ProfileResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ProfileResult(nil), p.results...)
}

// IsRunning returns whether profiling is active
func (p *Profiler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
