// Package runner schedules fuzzer streams over the contract operations.
package runner

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/pipeline"
)

// Result summarizes one fuzzer stream.
type Result struct {
	Fuzzer string
	// Operations is how many operations the stream fuzzed.
	Operations int
	// Failed is how many of them returned an error.
	Failed   int
	Duration time.Duration
}

// Stats tracks execution statistics across streams.
type Stats struct {
	Total     int64
	Completed int64
	Failed    int64
	StartTime time.Time
}

// Progress returns completion percentage (0-100)
func (s *Stats) Progress() float64 {
	total := atomic.LoadInt64(&s.Total)
	if total == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&s.Completed)) / float64(total) * 100
}

// Runner runs every fuzzer as an independent stream over all operations.
// Streams run concurrently; within a stream operations run one after
// another.
type Runner struct {
	// Concurrency is the number of streams run at once (default 2)
	Concurrency int

	// Paths restricts the run to these contract paths; empty runs all.
	Paths []string

	// Stats tracks execution statistics
	Stats Stats

	// OnProgress is called after each operation a stream completes
	OnProgress func(fuzzer string, data pipeline.PathData, completed, total int64)

	log *zap.Logger
}

// New creates a runner with default settings.
func New(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Concurrency: defaults.Concurrency, log: log}
}

// Filter returns the operations whose path is in paths, keeping order.
// An empty paths keeps everything.
func Filter(ops []pipeline.PathData, paths []string) []pipeline.PathData {
	if len(paths) == 0 {
		return ops
	}
	var out []pipeline.PathData
	for _, op := range ops {
		if slices.Contains(paths, op.Path) {
			out = append(out, op)
		}
	}
	return out
}

// Run fuzzes ops with every fuzzer. Cancelling ctx stops scheduling new
// operations; an operation already started runs to completion. Results
// are in fuzzer order.
func (r *Runner) Run(ctx context.Context, fuzzers []pipeline.Fuzzer, ops []pipeline.PathData) ([]Result, error) {
	if len(fuzzers) == 0 {
		return nil, ErrNoFuzzers
	}
	ops = Filter(ops, r.Paths)
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: path filter %v", ErrNoOperations, r.Paths)
	}

	r.Stats = Stats{
		Total:     int64(len(fuzzers) * len(ops)),
		StartTime: time.Now(),
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = defaults.Concurrency
	}

	results := make([]Result, len(fuzzers))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, f := range fuzzers {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.stream(ctx, f, ops)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("run interrupted: %w", err)
	}
	return results, nil
}

func (r *Runner) stream(ctx context.Context, f pipeline.Fuzzer, ops []pipeline.PathData) Result {
	res := Result{Fuzzer: f.Name()}
	start := time.Now()
	log := r.log.With(zap.String("fuzzer", f.Name()))
	log.Info("starting fuzzer", zap.Int("operations", len(ops)))

	// In-flight operations are never cut short by cancellation.
	opCtx := context.WithoutCancel(ctx)
	for _, op := range ops {
		if ctx.Err() != nil {
			log.Warn("fuzzer stopped", zap.Error(ctx.Err()))
			break
		}
		err := f.Fuzz(opCtx, op)
		res.Operations++
		completed := atomic.AddInt64(&r.Stats.Completed, 1)
		if err != nil {
			res.Failed++
			atomic.AddInt64(&r.Stats.Failed, 1)
			log.Error("operation failed",
				zap.String("path", op.Path),
				zap.String("method", op.Method),
				zap.Error(err))
		}
		if r.OnProgress != nil {
			r.OnProgress(f.Name(), op, completed, atomic.LoadInt64(&r.Stats.Total))
		}
	}
	res.Duration = time.Since(start)
	log.Info("fuzzer finished",
		zap.Int("operations", res.Operations),
		zap.Duration("duration", res.Duration))
	return res
}
