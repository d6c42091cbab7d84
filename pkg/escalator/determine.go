/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: determine.go
Description: Type commitment for the Akaylee Profiler. Buffers the escalations of the detect
window and, once it fills (or a result is forced), picks the classification to commit to:
the most frequent shape per level after numeric and alphabetic promotion, preferring more
general levels only when they are clearly better, with a universal wildcard as the last
resort. Dates override everything when all but one sample parses as a date.
*/

package escalator

import (
	"sort"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/datetime"
)

// Window buffers the first samples of a stream until a type is committed
type Window struct {
	capacity    int
	escalations []Escalation
	shapes      []NumericShape
	samples     []string
	detections  []datetime.Detection
}

// NewWindow creates a window holding up to capacity samples
func NewWindow(capacity int) *Window {
	return &Window{capacity: capacity}
}

// Add buffers one non-blank sample; det is nil when the sample is not a date
func (w *Window) Add(trimmed string, e Escalation, shape NumericShape, det *datetime.Detection) {
	w.escalations = append(w.escalations, e)
	w.shapes = append(w.shapes, shape)
	w.samples = append(w.samples, trimmed)
	if det != nil {
		w.detections = append(w.detections, *det)
	}
}

// Len returns the number of buffered samples
func (w *Window) Len() int {
	return len(w.escalations)
}

// Full reports whether the window has reached its capacity
func (w *Window) Full() bool {
	return len(w.escalations) >= w.capacity
}

// Samples returns the buffered trimmed samples
func (w *Window) Samples() []string {
	return w.samples
}

// Shapes returns the numeric shapes of the buffered samples
func (w *Window) Shapes() []NumericShape {
	return w.shapes
}

// Dates returns how many buffered samples parsed as a date
func (w *Window) Dates() int {
	return len(w.detections)
}

// Reset discards the buffered samples
func (w *Window) Reset() {
	w.escalations, w.shapes, w.samples, w.detections = nil, nil, nil, nil
}

// Decision is the committed classification
type Decision struct {
	Type    *core.TypeInfo
	Level   int // Escalation level chosen, -1 for a date override or wildcard fallback
	Matched int // Buffered samples the chosen level covers
	Total   int
}

// Wildcard is the universal string classification
func Wildcard() *core.TypeInfo {
	return core.NewTypeInfo(core.BaseString, core.PatternAny, 0)
}

type candidate struct {
	key   string
	ti    *core.TypeInfo
	count int
}

// Determine commits to a classification for the buffered samples
func Determine(w *Window, cfg *core.AnalysisConfig) Decision {
	total := w.Len()
	if total == 0 {
		return Decision{Type: Wildcard(), Level: -1}
	}
	sym := cfg.ResolvedLocale().Symbols
	tuning := cfg.Tuning
	coverage := tuning.LevelCoverage * float64(total)

	if dates := w.Dates(); dates > 0 && dates >= total-1 && dates*2 > total {
		if format, covered := datetime.Resolve(w.detections); covered >= total-1 {
			if ti, err := datetime.TypeInfo(format); err == nil {
				return Decision{Type: ti, Level: -1, Matched: covered, Total: total}
			}
		}
	}

	cur := bestAt(w.escalations, 0, sym)
	level := 0

	b1 := bestAt(w.escalations, 1, sym)
	if b1.ti != nil && float64(b1.count) >= coverage && (cur.ti == nil || b1.count > cur.count) {
		cur, level = b1, 1
	}

	b2 := bestAt(w.escalations, 2, sym)
	if strictlyBetter(b2, cur, total, cfg) {
		cur, level = b2, 2
		if float64(cur.count) < coverage {
			return Decision{Type: Wildcard(), Level: -1, Matched: total, Total: total}
		}
	}

	if cur.ti == nil {
		return Decision{Type: Wildcard(), Level: -1, Matched: total, Total: total}
	}
	return Decision{Type: cur.ti, Level: level, Matched: cur.count, Total: total}
}

// strictlyBetter reports whether the level-2 candidate should replace the current choice
func strictlyBetter(b2, cur candidate, total int, cfg *core.AnalysisConfig) bool {
	switch {
	case b2.ti == nil:
		return false
	case cur.ti == nil:
		return true
	case b2.key == cur.key:
		return b2.count > cur.count
	case b2.count <= cur.count:
		return false
	case b2.ti.BaseType == cur.ti.BaseType:
		return true
	case b2.ti.BaseType.IsNumeric() && cur.ti.BaseType.IsNumeric():
		return float64(b2.count) >= float64(cur.count)*(1+cfg.Tuning.NumericPromotionMargin)
	}
	currentCoverage := float64(cur.count) / float64(total)
	return currentCoverage < cfg.ThresholdRatio() &&
		float64(b2.count) >= float64(cur.count)*(1+cfg.Tuning.TypeChangeMargin)
}

// bestAt returns the most frequent shape at a level after promotion of the top two
func bestAt(escalations []Escalation, level int, sym core.Symbols) candidate {
	index := make(map[string]int)
	var list []candidate
	for _, e := range escalations {
		key := e.Levels[level]
		if i, ok := index[key]; ok {
			list[i].count++
			continue
		}
		index[key] = len(list)
		list = append(list, candidate{key: key, ti: e.Types[level], count: 1})
	}
	if len(list) == 0 {
		return candidate{}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].key < list[j].key
	})
	if len(list) > 1 {
		if merged, ok := promote(list[0], list[1], sym); ok {
			return merged
		}
	}
	return list[0]
}

// promote merges two candidates under the more general of their shapes when compatible
func promote(a, b candidate, sym core.Symbols) (candidate, bool) {
	if a.ti == nil || b.ti == nil {
		return candidate{}, false
	}

	if a.ti.BaseType.IsNumeric() && b.ti.BaseType.IsNumeric() {
		base := core.BaseLong
		if a.ti.BaseType == core.BaseDouble || b.ti.BaseType == core.BaseDouble {
			base = core.BaseDouble
		}
		ti := core.NewNumericTypeInfo(base, a.ti.Flags|b.ti.Flags, sym)
		return candidate{key: ti.Regexp, ti: ti, count: a.count + b.count}, true
	}

	textual := func(t *core.TypeInfo) bool {
		return t.BaseType == core.BaseString && !t.SemanticType &&
			(t.Flags.Has(core.FlagAlpha) || t.Flags.Has(core.FlagAlphanumeric))
	}
	if textual(a.ti) && textual(b.ti) {
		ti := core.NewTypeInfo(core.BaseString, core.PatternAlpha, core.FlagAlpha)
		if a.ti.Flags.Has(core.FlagAlphanumeric) || b.ti.Flags.Has(core.FlagAlphanumeric) {
			ti = core.NewTypeInfo(core.BaseString, core.PatternAlnum, core.FlagAlphanumeric)
		}
		return candidate{key: ti.Regexp, ti: ti, count: a.count + b.count}, true
	}
	return candidate{}, false
}
