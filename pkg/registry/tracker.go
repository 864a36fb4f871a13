package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/oracle"
)

// Tracker is the handle of one running test. Narration after the test is
// finalized is ignored.
type Tracker struct {
	reg *Registry
	id  int64
	log *zap.Logger
}

// ID returns the sequence id of the test.
func (t *Tracker) ID() int64 {
	return t.id
}

// Logger returns a logger carrying the test's id and fuzzer.
func (t *Tracker) Logger() *zap.Logger {
	return t.log
}

// Scenario sets the scenario text.
func (t *Tracker) Scenario(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	t.reg.update(t.id, func(rec *Record) { rec.Scenario = text })
	t.log.Info("scenario", zap.String("text", text))
}

// ExpectedResult sets the expected-result text.
func (t *Tracker) ExpectedResult(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	t.reg.update(t.id, func(rec *Record) { rec.ExpectedResult = text })
	t.log.Info("expected result", zap.String("text", text))
}

// Path sets the contract path under test.
func (t *Tracker) Path(path string) {
	t.reg.update(t.id, func(rec *Record) { rec.Path = path })
	t.log = t.log.With(zap.String("path", path))
}

// FullURL sets the URL actually called.
func (t *Tracker) FullURL(url string) {
	t.reg.update(t.id, func(rec *Record) { rec.FullURL = url })
}

// Request stores the request snapshot unless one is already stored.
func (t *Tracker) Request(req Request) {
	t.reg.update(t.id, func(rec *Record) {
		if rec.Request == nil {
			rec.Request = &req
		}
	})
}

// Response stores the response snapshot unless one is already stored.
func (t *Tracker) Response(resp Response) {
	t.reg.update(t.id, func(rec *Record) {
		if rec.Response == nil {
			rec.Response = &resp
		}
	})
}

// Finalized reports whether the test already has a verdict.
func (t *Tracker) Finalized() bool {
	rec, ok := t.reg.Record(t.id)
	return ok && rec.Finalized
}

// Report applies the ignored-codes policy to v and finalizes the test.
func (t *Tracker) Report(v oracle.Verdict) error {
	rec, ok := t.reg.Record(t.id)
	if ok && rec.Response != nil && (v.Result == oracle.Warning || v.Result == oracle.Error) &&
		t.reg.policy.Ignores(rec.Response.StatusCode) {
		code := rec.Response.StatusCode
		if t.reg.policy.SkipReportingForIgnored {
			v = oracle.Skip(oracle.ReasonIgnoredCode,
				"Response code %d was marked as ignored and skip reporting for ignored codes is enabled", code)
		} else {
			v = oracle.Verdict{Result: oracle.Success, Reason: v.Reason, Detail: v.Detail,
				Note: fmt.Sprintf("response code %d is ignored", code)}
		}
	}
	return t.reg.Finalize(t.id, v)
}

// Skip finalizes the test as skipped.
func (t *Tracker) Skip(reason oracle.Reason, format string, args ...any) error {
	t.ExpectedResult("Test will be skipped!")
	return t.reg.Finalize(t.id, oracle.Skip(reason, format, args...))
}

type trackerKey struct{}

// WithTracker returns a context carrying t.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// FromContext returns the tracker carried by ctx, or nil.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
