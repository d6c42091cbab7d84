/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config_test.go
Description: Tests for analysis configuration validation, freezing and locale handling.
*/

package core_test

import (
	"testing"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(60), cfg.ReflectionWindow())
	assert.InDelta(t, 0.95, cfg.ThresholdRatio(), 1e-9)
}

func TestSettersRejectOutOfRange(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()

	assert.ErrorIs(t, cfg.SetThreshold(101), core.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.SetThreshold(-1), core.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.SetMaxCardinality(0), core.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.SetQuantileRelativeAccuracy(1.5), core.ErrInvalidConfig)
	assert.ErrorIs(t, cfg.SetDetectWindow(2), core.ErrInvalidConfig)

	require.NoError(t, cfg.SetThreshold(75))
	assert.Equal(t, 75, cfg.Threshold)
}

func TestSettersFailOnceFrozen(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()
	require.NoError(t, cfg.Freeze())
	assert.True(t, cfg.Frozen())

	assert.ErrorIs(t, cfg.SetThreshold(80), core.ErrConfigFrozen)
	assert.ErrorIs(t, cfg.SetLocale("fr-FR"), core.ErrConfigFrozen)
	assert.ErrorIs(t, cfg.SetStatistics(false), core.ErrConfigFrozen)

	clone := cfg.Clone()
	assert.False(t, clone.Frozen())
	assert.True(t, cfg.Equal(clone))
}

func TestLocaleValidation(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()

	assert.ErrorIs(t, cfg.SetLocale("en-US-u-ca-buddhist"), core.ErrUnsupportedLocale)
	assert.ErrorIs(t, cfg.SetLocale("!!"), core.ErrUnsupportedLocale)
	require.NoError(t, cfg.SetLocale("de-DE-u-ca-gregory"))

	locale := cfg.ResolvedLocale()
	assert.Equal(t, ',', locale.Symbols.Decimal)
	assert.Equal(t, '.', locale.Symbols.Grouping)
	assert.Equal(t, "ja", locale.Yes)
	assert.False(t, locale.MonthFirst)
}

func TestEqualIgnoresFreezeState(t *testing.T) {
	a := core.DefaultAnalysisConfig()
	b := core.DefaultAnalysisConfig()
	require.NoError(t, a.Freeze())
	assert.True(t, a.Equal(b))

	require.NoError(t, b.SetMaxOutliers(10))
	assert.False(t, a.Equal(b))
}

func TestSetTuningValidates(t *testing.T) {
	cfg := core.DefaultAnalysisConfig()
	tuning := core.DefaultTuning()
	tuning.DriftRatio = 0
	assert.ErrorIs(t, cfg.SetTuning(tuning), core.ErrInvalidConfig)

	tuning.DriftRatio = 0.02
	require.NoError(t, cfg.SetTuning(tuning))
	assert.InDelta(t, 0.02, cfg.Tuning.DriftRatio, 1e-12)
}
