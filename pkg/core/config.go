/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Analysis configuration for the Akaylee Profiler. Every knob is validated the
moment it is set and the whole configuration is frozen once training starts. Bounds are
declared as validator tags so the setters, Validate and the CLI share one set of rules.
*/

package core

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Default configuration values
const (
	DefaultMaxCardinality           = 12000
	DefaultMaxOutliers              = 50
	DefaultMaxInvalids              = 50
	DefaultMaxShapes                = 400
	DefaultDetectWindow             = 20
	DefaultTopBottomK               = 10
	DefaultThreshold                = 95
	DefaultPluginThreshold          = 98
	DefaultQuantileRelativeAccuracy = 0.01
	DefaultHistogramBins            = 1000
	DefaultLocale                   = "en-US"
)

var validate = validator.New()

// Tuning holds the empirically tuned constants of the inference engine
type Tuning struct {
	DriftRatio             float64 `json:"driftRatio" validate:"gt=0,lt=1"`             // Error rate that triggers a backout
	NumericPromotionMargin float64 `json:"numericPromotionMargin" validate:"gte=0,lt=1"` // Level-2 improvement needed between numeric shapes
	TypeChangeMargin       float64 `json:"typeChangeMargin" validate:"gte=0,lt=1"`       // Level-2 improvement needed to change base type
	LevelCoverage          float64 `json:"levelCoverage" validate:"gt=0,lte=1"`          // Share of the window a level must cover
	ReflectionMultiple     int     `json:"reflectionMultiple" validate:"gte=1,lte=100"`  // Reflection point as a multiple of the detect window
	ReanalysisPenalty      float64 `json:"reanalysisPenalty" validate:"gte=0,lt=1"`      // Confidence cost of an accepted re-analysis
	EnumMaxCardinality     int     `json:"enumMaxCardinality" validate:"gte=0"`          // Largest cardinality considered an enumeration
	DateFromLongMinSamples int64   `json:"dateFromLongMinSamples" validate:"gte=1"`      // Samples needed to read longs as dates without a header hint
	LowDensityClusterShare float64 `json:"lowDensityClusterShare" validate:"gte=0,lt=1"` // Histogram cluster share treated as noise
}

// DefaultTuning returns the tuned defaults
func DefaultTuning() Tuning {
	return Tuning{
		DriftRatio:             0.01,
		NumericPromotionMargin: 0.05,
		TypeChangeMargin:       0.10,
		LevelCoverage:          0.80,
		ReflectionMultiple:     3,
		ReanalysisPenalty:      0.01,
		EnumMaxCardinality:     40,
		DateFromLongMinSamples: 20,
		LowDensityClusterShare: 0.01,
	}
}

// AnalysisConfig holds the configuration of a single analysis
type AnalysisConfig struct {
	MaxCardinality           int     `json:"maxCardinality" validate:"gte=1,lte=1000000"`
	MaxOutliers              int     `json:"maxOutliers" validate:"gte=1,lte=10000"`
	MaxInvalids              int     `json:"maxInvalids" validate:"gte=1,lte=10000"`
	MaxShapes                int     `json:"maxShapes" validate:"gte=1,lte=10000"`
	DetectWindow             int     `json:"detectWindow" validate:"gte=5,lte=10000"`
	TopBottomK               int     `json:"topBottomK" validate:"gte=1,lte=1000"`
	Threshold                int     `json:"threshold" validate:"gte=0,lte=100"`
	PluginThreshold          int     `json:"pluginThreshold" validate:"gte=0,lte=100"`
	QuantileRelativeAccuracy float64 `json:"quantileRelativeAccuracy" validate:"gt=0,lt=1"`
	HistogramBins            int     `json:"histogramBins" validate:"gte=2,lte=100000"`
	Locale                   string  `json:"locale" validate:"required"`
	Statistics               bool    `json:"statistics"`
	Distributions            bool    `json:"distributions"`
	NumericWidening          bool    `json:"numericWidening"`
	DefaultSemanticTypes     bool    `json:"defaultSemanticTypes"`
	Debug                    bool    `json:"debug"`
	Tuning                   Tuning  `json:"tuning"`

	frozen bool
	locale *Locale
}

// DefaultAnalysisConfig returns a configuration with all defaults applied
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		MaxCardinality:           DefaultMaxCardinality,
		MaxOutliers:              DefaultMaxOutliers,
		MaxInvalids:              DefaultMaxInvalids,
		MaxShapes:                DefaultMaxShapes,
		DetectWindow:             DefaultDetectWindow,
		TopBottomK:               DefaultTopBottomK,
		Threshold:                DefaultThreshold,
		PluginThreshold:          DefaultPluginThreshold,
		QuantileRelativeAccuracy: DefaultQuantileRelativeAccuracy,
		HistogramBins:            DefaultHistogramBins,
		Locale:                   DefaultLocale,
		Statistics:               true,
		Distributions:            true,
		NumericWidening:          true,
		DefaultSemanticTypes:     true,
		Tuning:                   DefaultTuning(),
	}
}

// Validate checks every field against its bounds and resolves the locale
func (c *AnalysisConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	locale, err := ResolveLocale(c.Locale)
	if err != nil {
		return err
	}
	c.locale = locale
	return nil
}

// Freeze validates the configuration and blocks further changes
func (c *AnalysisConfig) Freeze() error {
	if c.frozen {
		return nil
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c.frozen = true
	return nil
}

// Frozen reports whether training has started
func (c *AnalysisConfig) Frozen() bool {
	return c.frozen
}

// ResolvedLocale returns the resolved locale, resolving it on first use
func (c *AnalysisConfig) ResolvedLocale() *Locale {
	if c.locale == nil {
		locale, err := ResolveLocale(c.Locale)
		if err != nil {
			locale, _ = ResolveLocale(DefaultLocale)
		}
		c.locale = locale
	}
	return c.locale
}

// Clone returns an unfrozen copy of the configuration
func (c *AnalysisConfig) Clone() *AnalysisConfig {
	clone := *c
	clone.frozen = false
	return &clone
}

// Equal reports whether two configurations would profile identically
func (c *AnalysisConfig) Equal(o *AnalysisConfig) bool {
	if c == nil || o == nil {
		return c == o
	}
	a, b := *c, *o
	a.frozen, b.frozen = false, false
	a.locale, b.locale = nil, nil
	return a == b
}

// set validates a single value against its tag and applies it
func (c *AnalysisConfig) set(field string, value any, tag string, apply func()) error {
	if c.frozen {
		return fmt.Errorf("%w: cannot set %s", ErrConfigFrozen, field)
	}
	if err := validate.Var(value, tag); err != nil {
		return fmt.Errorf("%w: %s=%v must satisfy %q", ErrInvalidConfig, field, value, tag)
	}
	apply()
	return nil
}

// SetMaxCardinality sets the cardinality map capacity
func (c *AnalysisConfig) SetMaxCardinality(n int) error {
	return c.set("MaxCardinality", n, "gte=1,lte=1000000", func() { c.MaxCardinality = n })
}

// SetMaxOutliers sets the outlier map capacity
func (c *AnalysisConfig) SetMaxOutliers(n int) error {
	return c.set("MaxOutliers", n, "gte=1,lte=10000", func() { c.MaxOutliers = n })
}

// SetMaxInvalids sets the invalid map capacity
func (c *AnalysisConfig) SetMaxInvalids(n int) error {
	return c.set("MaxInvalids", n, "gte=1,lte=10000", func() { c.MaxInvalids = n })
}

// SetMaxShapes sets the shape map capacity
func (c *AnalysisConfig) SetMaxShapes(n int) error {
	return c.set("MaxShapes", n, "gte=1,lte=10000", func() { c.MaxShapes = n })
}

// SetDetectWindow sets the number of samples buffered before a type is committed
func (c *AnalysisConfig) SetDetectWindow(n int) error {
	return c.set("DetectWindow", n, "gte=5,lte=10000", func() { c.DetectWindow = n })
}

// SetTopBottomK sets how many extreme values are kept
func (c *AnalysisConfig) SetTopBottomK(n int) error {
	return c.set("TopBottomK", n, "gte=1,lte=1000", func() { c.TopBottomK = n })
}

// SetThreshold sets the base type detection threshold (percent)
func (c *AnalysisConfig) SetThreshold(n int) error {
	return c.set("Threshold", n, "gte=0,lte=100", func() { c.Threshold = n })
}

// SetPluginThreshold sets the semantic type detection threshold (percent)
func (c *AnalysisConfig) SetPluginThreshold(n int) error {
	return c.set("PluginThreshold", n, "gte=0,lte=100", func() { c.PluginThreshold = n })
}

// SetQuantileRelativeAccuracy sets the sketch relative accuracy
func (c *AnalysisConfig) SetQuantileRelativeAccuracy(alpha float64) error {
	return c.set("QuantileRelativeAccuracy", alpha, "gt=0,lt=1", func() { c.QuantileRelativeAccuracy = alpha })
}

// SetHistogramBins sets the maximum number of streaming histogram bins
func (c *AnalysisConfig) SetHistogramBins(n int) error {
	return c.set("HistogramBins", n, "gte=2,lte=100000", func() { c.HistogramBins = n })
}

// SetLocale sets and resolves the locale
func (c *AnalysisConfig) SetLocale(locale string) error {
	if c.frozen {
		return fmt.Errorf("%w: cannot set Locale", ErrConfigFrozen)
	}
	resolved, err := ResolveLocale(locale)
	if err != nil {
		return err
	}
	c.Locale = locale
	c.locale = resolved
	return nil
}

// SetTuning replaces the tuning constants
func (c *AnalysisConfig) SetTuning(t Tuning) error {
	if c.frozen {
		return fmt.Errorf("%w: cannot set Tuning", ErrConfigFrozen)
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: tuning: %v", ErrInvalidConfig, err)
	}
	c.Tuning = t
	return nil
}

// SetStatistics toggles statistics collection
func (c *AnalysisConfig) SetStatistics(on bool) error {
	return c.toggle("Statistics", &c.Statistics, on)
}

// SetDistributions toggles quantile and histogram tracking
func (c *AnalysisConfig) SetDistributions(on bool) error {
	return c.toggle("Distributions", &c.Distributions, on)
}

// SetNumericWidening toggles LONG to DOUBLE widening on backout
func (c *AnalysisConfig) SetNumericWidening(on bool) error {
	return c.toggle("NumericWidening", &c.NumericWidening, on)
}

// SetDefaultSemanticTypes toggles the built-in semantic type matchers
func (c *AnalysisConfig) SetDefaultSemanticTypes(on bool) error {
	return c.toggle("DefaultSemanticTypes", &c.DefaultSemanticTypes, on)
}

// SetDebug toggles surfacing of internal errors
func (c *AnalysisConfig) SetDebug(on bool) error {
	return c.toggle("Debug", &c.Debug, on)
}

func (c *AnalysisConfig) toggle(field string, target *bool, on bool) error {
	if c.frozen {
		return fmt.Errorf("%w: cannot set %s", ErrConfigFrozen, field)
	}
	*target = on
	return nil
}

// ReflectionWindow is the sample count at which drift is first re-evaluated
func (c *AnalysisConfig) ReflectionWindow() int64 {
	return int64(c.DetectWindow * c.Tuning.ReflectionMultiple)
}

// ThresholdRatio returns the base type threshold as a ratio
func (c *AnalysisConfig) ThresholdRatio() float64 {
	return float64(c.Threshold) / 100
}
