/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: trace.go
Description: Replay traces for the Akaylee Profiler. A trace captures everything needed to
reproduce an analysis: the configuration, the context and the samples, written as three
consecutive JSON documents. A trace with only the first document describes a configuration.
*/

package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kleascm/akaylee-profiler/pkg/core"
)

// TraceSamples is the sample fragment of a trace; a nil entry is a null sample
type TraceSamples struct {
	Samples []*string        `json:"samples"`
	Bulk    map[string]int64 `json:"bulk,omitempty"`
}

// Trace is a recorded analysis
type Trace struct {
	Config     *core.AnalysisConfig
	Context    *core.AnalysisContext
	Samples    TraceSamples
	ConfigOnly bool
}

// WriteTrace writes a trace of the given samples
func WriteTrace(w io.Writer, cfg *core.AnalysisConfig, ctx *core.AnalysisContext, samples []*string, bulk map[string]int64) error {
	if cfg == nil {
		cfg = core.DefaultAnalysisConfig()
	}
	if ctx == nil {
		ctx = core.NewAnalysisContext("")
	}
	enc := json.NewEncoder(w)
	for _, fragment := range []any{cfg, ctx, TraceSamples{Samples: samples, Bulk: bulk}} {
		if err := enc.Encode(fragment); err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
	}
	return nil
}

// ReadTrace reads a trace written by WriteTrace
func ReadTrace(r io.Reader) (*Trace, error) {
	dec := json.NewDecoder(r)
	t := &Trace{Config: &core.AnalysisConfig{}, Context: &core.AnalysisContext{}}
	if err := dec.Decode(t.Config); err != nil {
		return nil, fmt.Errorf("failed to read trace config: %w", err)
	}
	if err := t.Config.Validate(); err != nil {
		return nil, err
	}
	if err := dec.Decode(t.Context); err != nil {
		if errors.Is(err, io.EOF) {
			t.Context, t.ConfigOnly = core.NewAnalysisContext(""), true
			return t, nil
		}
		return nil, fmt.Errorf("failed to read trace context: %w", err)
	}
	if err := dec.Decode(&t.Samples); err != nil {
		if errors.Is(err, io.EOF) {
			t.ConfigOnly = true
			return t, nil
		}
		return nil, fmt.Errorf("failed to read trace samples: %w", err)
	}
	return t, nil
}

// Replay re-runs a trace and returns the finalized result
func Replay(t *Trace, opts ...Option) (*TextAnalyzer, *Result, error) {
	a, err := NewTextAnalyzer(t.Context, t.Config.Clone(), opts...)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range t.Samples.Samples {
		if s == nil {
			_, err = a.TrainNull()
		} else {
			_, err = a.Train(*s)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if len(t.Samples.Bulk) > 0 {
		if err := a.TrainBulk(t.Samples.Bulk); err != nil {
			return nil, nil, err
		}
	}
	result, err := a.Result()
	if err != nil {
		return nil, nil, err
	}
	return a, result, nil
}
