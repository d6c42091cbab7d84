/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics.go
Description: Analysis metrics for the Akaylee Profiler. The Collector implements the analysis
Observer with Prometheus counters and histograms, so every type determination, backout,
re-analysis, matcher failure and finished stream is counted on a registry that can be
scraped over HTTP or summarised at the end of a run.
*/

package monitoring

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
)

// MetricsConfig configures the collector
type MetricsConfig struct {
	Namespace         string    `json:"namespace" mapstructure:"namespace"`
	Subsystem         string    `json:"subsystem" mapstructure:"subsystem"`
	ConfidenceBuckets []float64 `json:"confidence_buckets" mapstructure:"confidence_buckets"`
	SampleBuckets     []float64 `json:"sample_buckets" mapstructure:"sample_buckets"`
}

// DefaultMetricsConfig returns the profiler's metric names and buckets
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace:         "akaylee",
		Subsystem:         "profiler",
		ConfidenceBuckets: []float64{0.5, 0.75, 0.9, 0.95, 0.98, 0.99, 1},
		SampleBuckets:     prometheus.ExponentialBuckets(10, 10, 7),
	}
}

// Validate checks the metrics configuration
func (c *MetricsConfig) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if c.Subsystem == "" {
		return fmt.Errorf("subsystem is required")
	}
	if len(c.ConfidenceBuckets) == 0 || len(c.SampleBuckets) == 0 {
		return fmt.Errorf("histogram buckets must not be empty")
	}
	return nil
}

// Collector counts analysis events on a Prometheus registry
type Collector struct {
	config   *MetricsConfig
	logger   logrus.FieldLogger
	registry *prometheus.Registry

	streams        *prometheus.CounterVec
	samples        prometheus.Counter
	outliers       prometheus.Counter
	determinations *prometheus.CounterVec
	backouts       *prometheus.CounterVec
	reanalyses     *prometheus.CounterVec
	matcherFails   *prometheus.CounterVec
	confidence     prometheus.Histogram
	detectSamples  prometheus.Histogram
}

// Compile-time check that Collector observes analyses
var _ analysis.Observer = (*Collector)(nil)

// NewCollector creates a collector with its own registry
func NewCollector(config *MetricsConfig, logger logrus.FieldLogger) (*Collector, error) {
	if config == nil {
		config = DefaultMetricsConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: config.Namespace, Subsystem: config.Subsystem, Name: name, Help: help}
	}
	c := &Collector{
		config:   config,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		streams: prometheus.NewCounterVec(prometheus.CounterOpts(opts("streams_total",
			"Streams profiled, by base and semantic type.")), []string{"type", "semantic"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts(opts("samples_total",
			"Samples seen by finished analyses."))),
		outliers: prometheus.NewCounter(prometheus.CounterOpts(opts("outliers_total",
			"Samples that did not match the final type."))),
		determinations: prometheus.NewCounterVec(prometheus.CounterOpts(opts("determinations_total",
			"Types committed at the end of the detect window.")), []string{"type"}),
		backouts: prometheus.NewCounterVec(prometheus.CounterOpts(opts("backouts_total",
			"Type changes after commitment.")), []string{"from", "to", "reason"}),
		reanalyses: prometheus.NewCounterVec(prometheus.CounterOpts(opts("reanalyses_total",
			"Re-analysis attempts during finalization.")), []string{"attempt", "accepted"}),
		matcherFails: prometheus.NewCounterVec(prometheus.CounterOpts(opts("matcher_failures_total",
			"Semantic matcher panics treated as abstain.")), []string{"matcher", "call"}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace, Subsystem: config.Subsystem, Name: "confidence",
			Help: "Confidence of finished analyses.", Buckets: config.ConfidenceBuckets,
		}),
		detectSamples: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace, Subsystem: config.Subsystem, Name: "samples_per_stream",
			Help: "Samples per finished stream.", Buckets: config.SampleBuckets,
		}),
	}

	for _, collector := range []prometheus.Collector{
		c.streams, c.samples, c.outliers, c.determinations, c.backouts,
		c.reanalyses, c.matcherFails, c.confidence, c.detectSamples,
	} {
		if err := c.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return c, nil
}

// Registry returns the registry the metrics live on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Determined implements analysis.Observer
func (c *Collector) Determined(_ *core.AnalysisContext, ti *core.TypeInfo, _ int64) {
	c.determinations.WithLabelValues(ti.BaseType.String()).Inc()
}

// BackedOut implements analysis.Observer
func (c *Collector) BackedOut(ctx *core.AnalysisContext, from, to *core.TypeInfo, reason string, before, after float64) {
	c.backouts.WithLabelValues(from.BaseType.String(), to.BaseType.String(), reason).Inc()
	if after < before {
		c.logger.WithFields(logrus.Fields{
			"stream": ctx.StreamName,
			"before": before,
			"after":  after,
		}).Warn("Backout lowered confidence")
	}
}

// Reanalysed implements analysis.Observer
func (c *Collector) Reanalysed(_ *core.AnalysisContext, attempt string, accepted bool) {
	c.reanalyses.WithLabelValues(attempt, strconv.FormatBool(accepted)).Inc()
}

// MatcherFailed implements analysis.Observer
func (c *Collector) MatcherFailed(_ *core.AnalysisContext, matcher string, call string) {
	c.matcherFails.WithLabelValues(matcher, call).Inc()
}

// Completed implements analysis.Observer
func (c *Collector) Completed(_ *core.AnalysisContext, result *analysis.Result) {
	c.streams.WithLabelValues(result.Type.String(), result.SemanticType).Inc()
	c.samples.Add(float64(result.SampleCount))
	c.outliers.Add(float64(result.OutlierCount))
	c.confidence.Observe(result.Confidence)
	c.detectSamples.Observe(float64(result.SampleCount))
}

// Summary holds the run totals read back from the registry
type Summary struct {
	Streams        int64            `json:"streams"`
	Samples        int64            `json:"samples"`
	Outliers       int64            `json:"outliers"`
	Backouts       int64            `json:"backouts"`
	MatcherFails   int64            `json:"matcher_failures"`
	Reanalyses     int64            `json:"reanalyses"`
	Accepted       int64            `json:"reanalyses_accepted"`
	StreamsByType  map[string]int64 `json:"streams_by_type"`
	MeanConfidence float64          `json:"mean_confidence"`
}

// Summary gathers the registry into run totals
func (c *Collector) Summary() (*Summary, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	s := &Summary{StreamsByType: make(map[string]int64)}
	name := func(metric string) string {
		return prometheus.BuildFQName(c.config.Namespace, c.config.Subsystem, metric)
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			switch family.GetName() {
			case name("streams_total"):
				n := int64(m.GetCounter().GetValue())
				s.Streams += n
				s.StreamsByType[label(m, "type")] += n
			case name("samples_total"):
				s.Samples += int64(m.GetCounter().GetValue())
			case name("outliers_total"):
				s.Outliers += int64(m.GetCounter().GetValue())
			case name("backouts_total"):
				s.Backouts += int64(m.GetCounter().GetValue())
			case name("matcher_failures_total"):
				s.MatcherFails += int64(m.GetCounter().GetValue())
			case name("reanalyses_total"):
				n := int64(m.GetCounter().GetValue())
				s.Reanalyses += n
				if label(m, "accepted") == "true" {
					s.Accepted += n
				}
			case name("confidence"):
				if h := m.GetHistogram(); h.GetSampleCount() > 0 {
					s.MeanConfidence = h.GetSampleSum() / float64(h.GetSampleCount())
				}
			}
		}
	}
	return s, nil
}

// label returns the value of a metric label, empty when absent
func label(m *dto.Metric, name string) string {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}
