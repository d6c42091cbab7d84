/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parallel.go
Description: Sharded profiling for the Akaylee Profiler. A large stream is split into
contiguous shards that are trained concurrently and folded back together with
analysis.Merge; independent streams are profiled side by side with a bounded number
of goroutines.
*/

package parallel

import (
	"context"
	"fmt"
	"runtime"

	"github.com/kleascm/akaylee-profiler/pkg/analysis"
	"github.com/kleascm/akaylee-profiler/pkg/core"
	"golang.org/x/sync/errgroup"
)

// checkEvery is how many samples a shard trains between cancellation checks
const checkEvery = 1024

// Stream is one named column of samples, nil entries are nulls
type Stream struct {
	Name    string
	Samples []*string
}

// Profile trains samples in shards concurrently and merges the shards in order
func Profile(ctx context.Context, actx *core.AnalysisContext, cfg *core.AnalysisConfig, samples []*string, shards int, opts ...analysis.Option) (*analysis.TextAnalyzer, error) {
	if shards <= 0 {
		shards = runtime.GOMAXPROCS(0)
	}
	shards = max(1, min(shards, len(samples)))
	size := (len(samples) + shards - 1) / shards
	if size > 0 {
		shards = (len(samples) + size - 1) / size
	}

	analyzers := make([]*analysis.TextAnalyzer, shards)
	g, gctx := errgroup.WithContext(ctx)
	for i := range analyzers {
		lo := min(i*size, len(samples))
		hi := min(lo+size, len(samples))
		g.Go(func() error {
			a, err := analysis.NewTextAnalyzer(actx.Clone(), cfg.Clone(), opts...)
			if err != nil {
				return err
			}
			if err := train(gctx, a, samples[lo:hi]); err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			analyzers[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := analyzers[0]
	for _, next := range analyzers[1:] {
		m, err := analysis.Merge(merged, next, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to merge shards: %w", err)
		}
		merged = m
	}
	return merged, nil
}

// train feeds one shard, stopping when the context is cancelled
func train(ctx context.Context, a *analysis.TextAnalyzer, samples []*string) error {
	for i, s := range samples {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		var err error
		if s == nil {
			_, err = a.TrainNull()
		} else {
			_, err = a.Train(*s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ProfileStreams profiles independent streams with at most jobs goroutines
// Results are returned in the order of the streams
func ProfileStreams(ctx context.Context, cfg *core.AnalysisConfig, streams []Stream, jobs int, opts ...analysis.Option) ([]*analysis.Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]*analysis.Result, len(streams))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(streams))))
	for i, stream := range streams {
		g.Go(func() error {
			actx := core.NewAnalysisContext(stream.Name)
			actx.StreamIndex = i
			a, err := analysis.NewTextAnalyzer(actx, cfg.Clone(), opts...)
			if err != nil {
				return err
			}
			if err := train(gctx, a, stream.Samples); err != nil {
				return fmt.Errorf("stream %q: %w", stream.Name, err)
			}
			r, err := a.Result()
			if err != nil {
				return fmt.Errorf("stream %q: %w", stream.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Strings converts plain samples into the nullable form used by Profile
func Strings(samples []string) []*string {
	out := make([]*string, len(samples))
	for i := range samples {
		out[i] = &samples[i]
	}
	return out
}
