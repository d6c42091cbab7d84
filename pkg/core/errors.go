/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Sentinel errors for the Akaylee Profiler. Callers match these with errors.Is;
call sites wrap them with context using fmt.Errorf and %w.
*/

package core

import "errors"

var (
	// ErrInvalidConfig is returned by setters for out-of-range values
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigFrozen is returned by setters once training has started
	ErrConfigFrozen = errors.New("configuration is frozen once training starts")

	// ErrUnsupportedLocale is returned for unparseable or non-Gregorian locales
	ErrUnsupportedLocale = errors.New("unsupported locale")

	// ErrIncompatibleConfig is returned when merging analyses with different configurations
	ErrIncompatibleConfig = errors.New("cannot merge analyses with different configurations")

	// ErrFrozen is returned when training an analysis whose result has been produced
	ErrFrozen = errors.New("analysis is frozen, result already produced")

	// ErrStatisticsDisabled is returned by distribution accessors when statistics are off
	ErrStatisticsDisabled = errors.New("statistics not enabled")

	// ErrInternal wraps unexpected failures in the per-sample path (surfaced only in debug mode)
	ErrInternal = errors.New("internal error")
)
