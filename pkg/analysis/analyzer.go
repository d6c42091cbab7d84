/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyzer.go
Description: Streaming text analyzer for the Akaylee Profiler. A TextAnalyzer profiles one
stream of samples: it buffers a detect window, commits to a classification, then validates
every later sample against it, keeping bounded accounting of valid values and outliers and
backing out to a looser classification when the evidence turns against it. A TextAnalyzer
is not safe for concurrent use; run one per stream and combine shards with Merge.
*/

package analysis

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/datetime"
	"github.com/kleascm/akaylee-profiler/pkg/escalator"
	"github.com/kleascm/akaylee-profiler/pkg/semantic"
	"github.com/kleascm/akaylee-profiler/pkg/sketch"
	"github.com/sirupsen/logrus"
)

// Option configures a TextAnalyzer
type Option func(*TextAnalyzer)

// WithLogger sets the logger used for analysis events
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *TextAnalyzer) {
		a.logger = logger
	}
}

// WithObserver sets the lifecycle observer
func WithObserver(observer Observer) Option {
	return func(a *TextAnalyzer) {
		a.observer = observer
	}
}

// WithRegistry sets the semantic type registry (and with it the shared regex cache)
func WithRegistry(registry *semantic.Registry) Option {
	return func(a *TextAnalyzer) {
		a.registry = registry
	}
}

// TextAnalyzer profiles a single stream of samples
type TextAnalyzer struct {
	cfg      *core.AnalysisConfig
	ctx      *core.AnalysisContext
	logger   logrus.FieldLogger
	observer Observer
	registry *semantic.Registry

	started bool
	frozen  bool
	nested  bool // re-analysis child, never re-analyses itself

	locale   *core.Locale
	booleans *escalator.Booleans
	builder  *escalator.Builder
	detector *datetime.Detector
	parser   *datetime.Parser
	window   *escalator.Window
	matchers []semantic.Matcher
	matcher  semantic.Matcher // matcher of the current semantic type
	compiled *regexp.Regexp   // anchored regexp for non-wildcard string types

	facts  *Facts
	result *Result

	replaying        bool // re-walking the bounded maps after a type change
	revalidating     bool // replaying values that were valid before the change
	keepDistribution bool // revalidated values are already in the statistics
}

// NewTextAnalyzer creates an analyzer for one stream
func NewTextAnalyzer(ctx *core.AnalysisContext, cfg *core.AnalysisConfig, opts ...Option) (*TextAnalyzer, error) {
	if cfg == nil {
		cfg = core.DefaultAnalysisConfig()
	}
	if ctx == nil {
		ctx = core.NewAnalysisContext("")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create analyzer for %q: %w", ctx.StreamName, err)
	}

	a := &TextAnalyzer{
		cfg:      cfg,
		ctx:      ctx,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		a.logger = logger
	}
	if a.registry == nil {
		a.registry = semantic.NewRegistry(nil)
	}
	return a, nil
}

// Config returns the configuration; it can be changed until training starts
func (a *TextAnalyzer) Config() *core.AnalysisConfig {
	return a.cfg
}

// Context returns the stream context
func (a *TextAnalyzer) Context() *core.AnalysisContext {
	return a.ctx
}

// Facts returns the accumulated state, nil before training starts
func (a *TextAnalyzer) Facts() *Facts {
	return a.facts
}

// TypeInfo returns the current classification, nil until one is committed
func (a *TextAnalyzer) TypeInfo() *core.TypeInfo {
	if a.facts == nil {
		return nil
	}
	return a.facts.TypeInfo
}

// start freezes the configuration and builds the per-analysis collaborators
func (a *TextAnalyzer) start() error {
	if a.started {
		return nil
	}
	if err := a.cfg.Freeze(); err != nil {
		return fmt.Errorf("failed to start analysis of %q: %w", a.ctx.StreamName, err)
	}
	a.locale = a.cfg.ResolvedLocale()
	a.booleans = escalator.NewBooleans(a.locale)
	a.builder = escalator.NewBuilder(a.locale, a.booleans)
	a.detector = datetime.NewDetector(a.locale.MonthFirst)
	a.parser = datetime.NewParser()
	a.window = escalator.NewWindow(a.cfg.DetectWindow)
	if a.cfg.DefaultSemanticTypes {
		matchers, err := a.registry.BuildAll()
		if err != nil {
			return fmt.Errorf("failed to build semantic matchers: %w", err)
		}
		a.matchers = matchers
	}
	if a.facts == nil {
		a.facts = newFacts(a.cfg)
		a.facts.TopBottom = sketch.NewTopBottomK(a.cfg.TopBottomK, a.compare)
	}
	a.started = true
	return nil
}

// compare orders observations under the current base type
func (a *TextAnalyzer) compare(x, y Observation) int {
	base := core.BaseString
	if a.facts != nil && a.facts.TypeInfo != nil {
		base = a.facts.TypeInfo.BaseType
	}
	return compareObservations(base, x, y)
}

// Train adds one sample; it reports whether a type has been committed
func (a *TextAnalyzer) Train(sample string) (bool, error) {
	if a.frozen {
		return true, fmt.Errorf("%w: stream %q", core.ErrFrozen, a.ctx.StreamName)
	}
	if err := a.start(); err != nil {
		return false, err
	}
	return a.guard(func() { a.train(sample, 1) })
}

// TrainNull records a missing sample
func (a *TextAnalyzer) TrainNull() (bool, error) {
	if a.frozen {
		return true, fmt.Errorf("%w: stream %q", core.ErrFrozen, a.ctx.StreamName)
	}
	if err := a.start(); err != nil {
		return false, err
	}
	return a.guard(func() {
		a.facts.SampleCount++
		a.facts.NullCount++
	})
}

// TrainBulk adds samples given as value counts
// A seeded subset of up to one detect window is trained sample by sample to drive detection;
// the remainder is applied as aggregated counts.
func (a *TextAnalyzer) TrainBulk(values map[string]int64) error {
	if a.frozen {
		return fmt.Errorf("%w: stream %q", core.ErrFrozen, a.ctx.StreamName)
	}
	if err := a.start(); err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	remaining := make(map[string]int64, len(values))
	for k, n := range values {
		if n > 0 {
			keys = append(keys, k)
			remaining[k] = n
		}
	}
	sort.Strings(keys)
	order := append([]string(nil), keys...)
	rng := rand.New(rand.NewSource(sketch.DefaultSeed))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	_, err := a.guard(func() {
		budget := a.cfg.DetectWindow
		for budget > 0 {
			progressed := false
			for _, k := range order {
				if budget == 0 {
					break
				}
				if remaining[k] == 0 {
					continue
				}
				a.train(k, 1)
				remaining[k]--
				budget--
				progressed = true
			}
			if !progressed {
				break
			}
		}
		for _, k := range keys {
			if n := remaining[k]; n > 0 {
				a.train(k, n)
			}
		}
		// Order is lost in bulk mode
		a.facts.MonotonicIncreasing, a.facts.MonotonicDecreasing = false, false
	})
	return err
}

// guard runs a training step, converting panics into internal error counts
func (a *TextAnalyzer) guard(step func()) (determined bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.facts.InternalErrors++
			a.logger.WithFields(logrus.Fields{
				"stream": a.ctx.StreamName,
				"panic":  r,
			}).Warn("Internal error while training")
			if a.cfg.Debug {
				err = fmt.Errorf("%w: %v", core.ErrInternal, r)
			}
		}
		determined = a.facts.TypeInfo != nil
	}()
	step()
	return
}

// train processes count occurrences of one raw sample
func (a *TextAnalyzer) train(raw string, count int64) {
	f := a.facts
	f.SampleCount += count
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		f.BlankCount += count
		return
	}
	if f.TypeInfo == nil {
		a.buffer(raw, trimmed, count)
		return
	}
	a.classify(raw, trimmed, count)
	a.checkBackout()
}

// buffer holds a sample in the detect window, committing once it fills
func (a *TextAnalyzer) buffer(raw, trimmed string, count int64) {
	e, shape := a.builder.Build(trimmed)
	var det *datetime.Detection
	if d, ok := a.detector.Determine(trimmed); ok {
		det = &d
	}
	a.window.Add(trimmed, e, shape, det)
	a.facts.Pending = append(a.facts.Pending, pendingSample{Raw: raw, Count: count})
	if a.window.Full() {
		a.commit()
	}
}

// commit picks the classification for the buffered samples and replays them
func (a *TextAnalyzer) commit() {
	f := a.facts
	decision := escalator.Determine(a.window, a.cfg)
	ti := decision.Type
	if m := a.sniff(ti); m != nil {
		a.matcher = m
		ti = core.NewSemanticTypeInfo(m.BaseType(), m.Regexp(), m.Name()).Supersedes(ti)
	}
	a.setType(ti)

	a.logger.WithFields(logrus.Fields{
		"stream":  a.ctx.StreamName,
		"type":    f.TypeInfo.String(),
		"level":   decision.Level,
		"matched": decision.Matched,
		"window":  decision.Total,
	}).Debug("Type determined")

	pending := f.Pending
	f.Pending = nil
	a.window.Reset()
	for _, p := range pending {
		a.classify(p.Raw, strings.TrimSpace(p.Raw), p.Count)
	}
	a.observer.Determined(a.ctx, f.TypeInfo, f.RealSamples())
	a.checkBackout()
}

// setType installs a new classification
func (a *TextAnalyzer) setType(ti *core.TypeInfo) {
	a.facts.TypeInfo = ti
	a.compiled = nil
	if !ti.SemanticType {
		a.matcher = nil
	}
	if ti.BaseType != core.BaseString || ti.IsWildcard() {
		return
	}
	re, err := a.registry.Cache().CompileAnchored(ti.Regexp)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"stream": a.ctx.StreamName,
			"regexp": ti.Regexp,
		}).Warnf("Failed to compile type pattern: %v", err)
		a.facts.TypeInfo = escalator.Wildcard().Supersedes(ti)
		return
	}
	a.compiled = re
}

// classify validates one sample against the current type and accounts for it
// raw is empty when bounded maps are being replayed
func (a *TextAnalyzer) classify(raw, trimmed string, count int64) {
	f := a.facts
	obs, ok := a.track(trimmed, count)
	if !ok {
		f.OutlierCount += count
		f.Outliers.MergeIfSpace(trimmed, count)
		f.OutliersSmashed.MergeIfSpace(escalator.Smash(trimmed), count)
		if f.TypeInfo.BaseType == core.BaseLong && a.parsesAsDouble(trimmed) {
			f.DoubleOutliers += count
		}
		return
	}

	f.MatchCount += count
	if raw != "" {
		a.whitespace(raw, trimmed, count)
	}
	merged := f.Cardinality.MergeIfSpace(trimmed, count)
	if !a.revalidating {
		f.recordLength(utf8.RuneCountInString(trimmed), count)
		f.Shapes.MergeIfSpace(escalator.Smash(trimmed), count)
	}
	if a.revalidating && a.keepDistribution {
		return
	}
	a.record(trimmed, obs, count)
	if !merged && !f.CardinalityOverflow {
		f.CardinalityOverflow = true
		a.logger.WithFields(logrus.Fields{
			"stream":   a.ctx.StreamName,
			"capacity": f.Cardinality.Cap(),
		}).Debug("Cardinality overflow, switching to approximate distribution")
		a.seedDistribution()
	}
	if f.CardinalityOverflow {
		a.distribute(obs, count)
	}
}

// whitespace updates the surrounding whitespace and multiline facts
func (a *TextAnalyzer) whitespace(raw, trimmed string, count int64) {
	f := a.facts
	if !strings.HasPrefix(raw, trimmed) {
		f.LeadingWhiteSpace += count
	}
	if !strings.HasSuffix(raw, trimmed) {
		f.TrailingWhiteSpace += count
	}
	if strings.ContainsAny(trimmed, "\r\n") {
		f.Multiline += count
	}
}

// distributable reports whether the current type feeds the approximate distribution
func (a *TextAnalyzer) distributable() bool {
	ti := a.facts.TypeInfo
	return a.cfg.Statistics && a.cfg.Distributions && ti != nil &&
		(ti.BaseType.IsNumeric() || ti.BaseType.IsDateType())
}

// distribute feeds one observation to the sketch and histogram
func (a *TextAnalyzer) distribute(obs Observation, count int64) {
	if !a.distributable() {
		return
	}
	f := a.facts
	if f.Sketch == nil {
		q, err := sketch.NewQuantile(a.cfg.QuantileRelativeAccuracy)
		if err != nil {
			panic(err)
		}
		f.Sketch = q
		f.Histogram = sketch.NewHistogram(a.cfg.HistogramBins, sketch.DefaultSeed)
	}
	f.Sketch.Add(obs.Value, count)
	f.Histogram.Add(obs.Value, count)
}

// seedDistribution feeds every value in the cardinality map to the distribution
func (a *TextAnalyzer) seedDistribution() {
	if !a.distributable() {
		return
	}
	for _, e := range a.facts.Cardinality.Entries() {
		if obs, ok := a.parse(e.Key); ok {
			a.distribute(obs, e.Count)
		}
	}
}
