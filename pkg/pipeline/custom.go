package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/customtest"
	"github.com/waftester/contractfuzz/pkg/registry"
)

// FuzzerOption configures CustomFuzzer and SecurityFuzzer.
type FuzzerOption func(*base)

// WithFuzzerLogger sets the fuzzer's logger.
func WithFuzzerLogger(log *zap.Logger) FuzzerOption {
	return func(b *base) {
		if log != nil {
			b.log = log
		}
	}
}

// WithSkipRecorder reports skipped definitions to r.
func WithSkipRecorder(r SkipRecorder) FuzzerOption {
	return func(b *base) { b.skips = r }
}

// WithRefData records variable references of executed definitions in r.
func WithRefData(r *customtest.RefData) FuzzerOption {
	return func(b *base) { b.refData = r }
}

// base holds what both file-driven fuzzers share: validation, expansion
// and execution of one definition.
type base struct {
	name     string
	engine   *Engine
	registry *registry.Registry
	expander *customtest.Expander
	refData  *customtest.RefData
	skips    SkipRecorder
	log      *zap.Logger
}

func newBase(name string, engine *Engine, reg *registry.Registry, opts []FuzzerOption) base {
	b := base{name: name, engine: engine, registry: reg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&b)
	}
	b.log = b.log.With(zap.String("fuzzer", name))
	b.expander = customtest.NewExpander(b.log)
	return b
}

// execute validates def and runs each of its cases.
func (b *base) execute(ctx context.Context, data PathData, key string, def customtest.Definition, fuzzedField string) {
	if err := customtest.CheckOneOf(def, data.Payload); err != nil {
		b.skip(data, key, err)
		return
	}
	cases, err := b.expander.Expand(data.Path, def, data.PropertyTypes())
	if err != nil {
		b.skip(data, key, err)
		return
	}
	if b.refData != nil {
		b.refData.Record(data.Path, def)
	}

	b.log.Info("running custom test",
		zap.String("path", data.Path),
		zap.String("method", data.Method),
		zap.String("test_key", key),
		zap.Int("cases", len(cases)))
	for _, c := range cases {
		b.registry.Execute(ctx, b.name, func(ctx context.Context, t *registry.Tracker) error {
			return b.engine.RunJob(ctx, t, Job{Data: data, TestKey: key, Case: c, FuzzedField: fuzzedField})
		})
	}
}

func (b *base) skip(data PathData, key string, err error) {
	reason := "invalid"
	var skipErr *customtest.SkipError
	if errors.As(err, &skipErr) {
		skipErr.Path = data.Path
		skipErr.TestKey = key
		reason = skipErr.Reason
	}
	b.log.Warn("skipping custom test definition",
		zap.String("path", data.Path),
		zap.String("test_key", key),
		zap.String("reason", reason),
		zap.Error(err))
	if b.skips != nil {
		b.skips.DefinitionSkipped(b.name, reason)
	}
}

// appliesTo reports whether def targets the method of data. Definitions
// without a method are kept so validation reports them.
func appliesTo(def customtest.Definition, data PathData) bool {
	method, ok := def.Control(customtest.HTTPMethod)
	if !ok || method == "" || method == "null" {
		return true
	}
	return strings.EqualFold(method, data.Method)
}

// CustomFuzzer runs the definitions of a custom test file.
type CustomFuzzer struct {
	base
	file customtest.File
}

// CustomFuzzerName is the fuzzer name recorded on every custom test.
const CustomFuzzerName = "CustomFuzzer"

// NewCustomFuzzer returns a fuzzer running the definitions in file.
func NewCustomFuzzer(engine *Engine, reg *registry.Registry, file customtest.File, opts ...FuzzerOption) *CustomFuzzer {
	return &CustomFuzzer{base: newBase(CustomFuzzerName, engine, reg, opts), file: file}
}

// Name implements Fuzzer.
func (f *CustomFuzzer) Name() string { return f.name }

// Fuzz runs every definition for data's path whose method matches, in
// test-key order.
func (f *CustomFuzzer) Fuzz(ctx context.Context, data PathData) error {
	defs := f.file.ForPath(data.Path)
	if len(defs) == 0 {
		f.log.Debug("path not configured in custom test file", zap.String("path", data.Path))
		return nil
	}
	for _, key := range customtest.SortedKeys(defs) {
		def := defs[key]
		if !appliesTo(def, data) {
			continue
		}
		f.execute(ctx, data, key, def, "")
	}
	return nil
}
