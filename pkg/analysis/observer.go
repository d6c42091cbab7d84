/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: observer.go
Description: Analysis lifecycle hooks for the Akaylee Profiler. An Observer is told when a
type is committed, when a backout or re-analysis happens, when a matcher fails and when a
result is produced. The monitoring package implements it with Prometheus counters.
*/

package analysis

import "github.com/kleascm/akaylee-profiler/pkg/core"

// Observer receives analysis lifecycle events
// Implementations must be safe for concurrent use when shared between analyzers
type Observer interface {
	// Determined is called once the detect window commits a type
	Determined(ctx *core.AnalysisContext, ti *core.TypeInfo, samples int64)
	// BackedOut is called after a backout with the confidence before and after it
	BackedOut(ctx *core.AnalysisContext, from, to *core.TypeInfo, reason string, before, after float64)
	// Reanalysed is called for each re-analysis attempt made during finalization
	Reanalysed(ctx *core.AnalysisContext, attempt string, accepted bool)
	// MatcherFailed is called when a semantic matcher panics
	MatcherFailed(ctx *core.AnalysisContext, matcher string, call string)
	// Completed is called when a result is produced
	Completed(ctx *core.AnalysisContext, result *Result)
}

// nopObserver ignores every event
type nopObserver struct{}

func (nopObserver) Determined(*core.AnalysisContext, *core.TypeInfo, int64) {}
func (nopObserver) BackedOut(*core.AnalysisContext, *core.TypeInfo, *core.TypeInfo, string, float64, float64) {
}
func (nopObserver) Reanalysed(*core.AnalysisContext, string, bool)     {}
func (nopObserver) MatcherFailed(*core.AnalysisContext, string, string) {}
func (nopObserver) Completed(*core.AnalysisContext, *Result)           {}
