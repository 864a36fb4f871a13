// Package registry records one structured outcome per executed test case
// and derives the run statistics.
//
// Begin allocates a sequence id and returns a Tracker, the handle through
// which the running test narrates itself and reports its verdict. Each
// record is finalized exactly once; finalized records are handed to the
// Exporter unless skipped.
//
// Usage:
//
//	reg := registry.New(registry.Config{Exporter: exp})
//	reg.Execute(ctx, "CustomFuzzer", func(ctx context.Context, t *registry.Tracker) error {
//	    t.Scenario("send request with custom values supplied. Test key [%s]", key)
//	    return t.Report(verdict)
//	})
//	stats := reg.Summary()
package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/respcode"
)

// Policy downgrades verdicts for response codes the user chose to ignore.
type Policy struct {
	// IgnoredCodes are exact codes ("409") or ranges ("5XX").
	IgnoredCodes []string
	// SkipReportingForIgnored turns ignored warnings and errors into skips
	// instead of successes.
	SkipReportingForIgnored bool
}

// Ignores reports whether code is covered by the policy.
func (p Policy) Ignores(code int) bool {
	return slices.ContainsFunc(p.IgnoredCodes, func(token string) bool {
		return respcode.Matches(token, code)
	})
}

// Config configures a Registry.
type Config struct {
	Exporter  Exporter
	Observers []Observer
	Policy    Policy
	Logger    *zap.Logger
}

// Registry owns every record of a run. It is safe for concurrent use.
type Registry struct {
	runID     string
	startedAt time.Time
	nextID    atomic.Int64

	mu      sync.Mutex
	records map[int64]*Record
	stats   Stats
	closed  bool

	exporter  Exporter
	observers []Observer
	policy    Policy
	log       *zap.Logger
}

// New returns an empty registry.
func New(cfg Config) *Registry {
	r := &Registry{
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		records:   make(map[int64]*Record),
		exporter:  cfg.Exporter,
		observers: cfg.Observers,
		policy:    cfg.Policy,
		log:       cfg.Logger,
	}
	if r.exporter == nil {
		r.exporter = nopExporter{}
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// RunID identifies this run in reports.
func (r *Registry) RunID() string {
	return r.runID
}

// Begin starts a new test for fuzzer and returns its tracker.
func (r *Registry) Begin(fuzzer string) *Tracker {
	id := r.nextID.Add(1)
	r.mu.Lock()
	r.records[id] = &Record{ID: id, Fuzzer: fuzzer, StartedAt: time.Now()}
	r.mu.Unlock()
	return &Tracker{reg: r, id: id, log: r.log.With(zap.Int64("test_id", id), zap.String("fuzzer", fuzzer))}
}

// update applies fn to an unfinalized record. It reports whether fn ran.
func (r *Registry) update(id int64, fn func(rec *Record)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Finalized {
		return false
	}
	fn(rec)
	return true
}

// Finalize sets the verdict of test id. A second call returns
// ErrAlreadyFinalized and changes nothing.
func (r *Registry) Finalize(id int64, v oracle.Verdict) error {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownTest, id)
	}
	if rec.Finalized {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrAlreadyFinalized, id)
	}
	rec.Result = v.Result
	rec.Reason = v.Reason
	rec.Detail = v.Detail
	rec.Note = v.Note
	rec.FinishedAt = time.Now()
	rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
	rec.Finalized = true
	r.stats.add(v.Result)
	snapshot := *rec
	r.mu.Unlock()

	r.logVerdict(snapshot)
	for _, o := range r.observers {
		o.Observe(snapshot)
	}
	if snapshot.Result != oracle.Skipped {
		if err := r.exporter.Export(snapshot); err != nil {
			r.log.Error("export test case", zap.Int64("test_id", id), zap.Error(err))
		}
	}
	return nil
}

func (r *Registry) logVerdict(rec Record) {
	fields := []zap.Field{
		zap.Int64("test_id", rec.ID),
		zap.String("fuzzer", rec.Fuzzer),
		zap.String("path", rec.Path),
		zap.String("reason", string(rec.Reason)),
		zap.String("detail", rec.Detail),
	}
	switch rec.Result {
	case oracle.Warning:
		r.log.Warn("test finished with warning", fields...)
	case oracle.Error:
		r.log.Error("test failed", fields...)
	case oracle.Skipped:
		r.log.Info("test skipped", fields...)
	default:
		r.log.Info("test passed", fields...)
	}
}

// Record returns a copy of the record with id.
func (r *Registry) Record(id int64) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns copies of all records ordered by id.
func (r *Registry) Records() []Record {
	r.mu.Lock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b Record) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Summary returns the current statistics.
func (r *Registry) Summary() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close hands the run summary and all records to the exporter. Only the
// first call exports.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	run := Run{
		ID:         r.runID,
		StartedAt:  r.startedAt,
		FinishedAt: time.Now(),
		Stats:      r.Summary(),
		Records:    r.Records(),
	}
	if err := r.exporter.Close(run); err != nil {
		return fmt.Errorf("close exporter: %w", err)
	}
	return nil
}

// Execute runs one test. Panics and returned errors become an error
// verdict with reason EXCEPTION; a test that returns without a verdict is
// finalized as an error. The finalized record is returned.
func (r *Registry) Execute(ctx context.Context, fuzzer string, fn func(ctx context.Context, t *Tracker) error) Record {
	t := r.Begin(fuzzer)
	ctx = WithTracker(ctx, t)

	err := r.run(ctx, t, fn)
	switch {
	case err != nil && t.Finalized():
		t.log.Warn("test returned an error after its verdict", zap.Error(err))
	case err != nil:
		_ = r.Finalize(t.id, oracle.Fail(oracle.ReasonException, "Fuzzer failed with exception: %v", err))
	case !t.Finalized():
		_ = r.Finalize(t.id, oracle.Fail(oracle.ReasonNoVerdict, "Test finished without a verdict"))
	}

	rec, _ := r.Record(t.id)
	return rec
}

func (r *Registry) run(ctx context.Context, t *Tracker, fn func(ctx context.Context, t *Tracker) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, t)
}
