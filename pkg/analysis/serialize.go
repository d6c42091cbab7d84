/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serialize.go
Description: Analyzer persistence for the Akaylee Profiler. An analysis in progress is
written as one JSON document holding its configuration, context and facts, and can be read
back to continue training in another process.
*/

package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kleascm/akaylee-profiler/pkg/core"
	"github.com/kleascm/akaylee-profiler/pkg/datetime"
)

// snapshot is the serialized form of an analyzer
type snapshot struct {
	Config  *core.AnalysisConfig  `json:"config"`
	Context *core.AnalysisContext `json:"context"`
	Facts   *Facts                `json:"facts"`
}

// Serialize writes the analyzer's state as JSON
func (a *TextAnalyzer) Serialize() ([]byte, error) {
	if err := a.start(); err != nil {
		return nil, err
	}
	if err := a.facts.prepare(); err != nil {
		return nil, fmt.Errorf("failed to serialize %q: %w", a.ctx.StreamName, err)
	}
	defer func() {
		a.facts.SketchState, a.facts.HistogramState, a.facts.TopBottomState = nil, nil, nil
	}()
	data, err := json.Marshal(snapshot{Config: a.cfg, Context: a.ctx, Facts: a.facts})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %q: %w", a.ctx.StreamName, err)
	}
	return data, nil
}

// Deserialize restores an analyzer written by Serialize
func Deserialize(data []byte, opts ...Option) (*TextAnalyzer, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to read analyzer state: %w", err)
	}
	if s.Config == nil || s.Facts == nil {
		return nil, fmt.Errorf("analyzer state is missing its config or facts")
	}
	a, err := NewTextAnalyzer(s.Context, s.Config, opts...)
	if err != nil {
		return nil, err
	}
	if err := a.start(); err != nil {
		return nil, err
	}
	a.facts = s.Facts
	if err := a.facts.hydrate(a.cfg, a.compare); err != nil {
		return nil, fmt.Errorf("failed to restore %q: %w", a.ctx.StreamName, err)
	}

	if ti := a.facts.TypeInfo; ti != nil {
		if ti.SemanticType {
			for _, m := range a.matchers {
				if m.Name() == ti.SemanticName() {
					a.matcher = m
					break
				}
			}
			if a.matcher == nil {
				return nil, fmt.Errorf("%w: semantic type %s is not registered", core.ErrIncompatibleConfig, ti.SemanticName())
			}
		}
		a.setType(ti)
	}
	for _, p := range a.facts.Pending {
		trimmed := strings.TrimSpace(p.Raw)
		e, shape := a.builder.Build(trimmed)
		var det *datetime.Detection
		if d, ok := a.detector.Determine(trimmed); ok {
			det = &d
		}
		a.window.Add(trimmed, e, shape, det)
	}
	return a, nil
}
