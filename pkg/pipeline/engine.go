// Package pipeline executes concrete custom test cases against the target
// and routes every response to the verify checker or the oracle.
//
// One case runs start to finish before the next begins: narrate, build the
// payload and path, call the transport, capture outputs, judge, report.
// CustomFuzzer and SecurityFuzzer turn custom test files into cases for
// each contract operation.
//
// Usage:
//
//	eng := pipeline.NewEngine(pipeline.Config{Transport: tr, State: st})
//	fz := pipeline.NewCustomFuzzer(eng, reg, file)
//	err := fz.Fuzz(ctx, data)
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/customtest"
	"github.com/waftester/contractfuzz/pkg/dsl"
	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/regexcache"
	"github.com/waftester/contractfuzz/pkg/registry"
	"github.com/waftester/contractfuzz/pkg/respcode"
	"github.com/waftester/contractfuzz/pkg/runstate"
	"github.com/waftester/contractfuzz/pkg/verify"
)

// TracerName is the instrumentation scope of pipeline spans.
const TracerName = "contractfuzz/pipeline"

// Config configures an Engine.
type Config struct {
	Transport Transport
	State     *runstate.State
	Oracle    oracle.Options
	Logger    *zap.Logger
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Engine runs concrete cases. It holds no per-case state.
type Engine struct {
	transport Transport
	state     *runstate.State
	resolver  *dsl.Resolver
	checker   *verify.Checker
	oracle    *oracle.Oracle
	tracer    trace.Tracer
	log       *zap.Logger
}

// NewEngine wires the resolver, verify checker and oracle around one run
// state.
func NewEngine(cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	state := cfg.State
	if state == nil {
		state = runstate.NewState()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	resolver := dsl.NewResolver(state.Vars, dsl.WithLogger(log))
	return &Engine{
		transport: cfg.Transport,
		state:     state,
		resolver:  resolver,
		checker:   verify.New(resolver, log),
		oracle:    oracle.New(state, cfg.Oracle, oracle.WithLogger(log)),
		tracer:    tracer,
		log:       log,
	}
}

// State returns the run state shared by every case.
func (e *Engine) State() *runstate.State {
	return e.state
}

// Job is one case bound to its operation.
type Job struct {
	Data    PathData
	TestKey string
	Case    customtest.Case
	// FuzzedField is the field a security test targets, if any.
	FuzzedField string
}

// Run executes c against data, narrating through t.
func (e *Engine) Run(ctx context.Context, t *registry.Tracker, data PathData, testKey string, c customtest.Case) error {
	return e.RunJob(ctx, t, Job{Data: data, TestKey: testKey, Case: c})
}

// RunJob executes one job. Transport faults are returned wrapped in
// ErrTransport; every other outcome is reported as a verdict on t.
func (e *Engine) RunJob(ctx context.Context, t *registry.Tracker, job Job) error {
	data, c := job.Data, job.Case
	ctx, span := e.tracer.Start(ctx, "contractfuzz.case",
		trace.WithAttributes(
			attribute.String("path", data.Path),
			attribute.String("method", data.Method),
			attribute.String("test_key", job.TestKey),
			attribute.Int64("test_id", t.ID()),
		))
	defer span.End()

	expectedCode, _ := c.Control(customtest.ExpectedResponseCode)
	t.Path(data.Path)
	t.Scenario("%s", Scenario(job.TestKey, c))
	t.ExpectedResult("Should return [%s]", expectedCode)

	payload := e.buildPayload(data, c)
	path := e.buildPath(data.Path, c, payload)

	t.Request(registry.Request{Method: data.Method, URL: path, Headers: data.Headers, Payload: payload})
	resp, err := e.transport.Invoke(ctx, Call{
		Path:    path,
		Method:  data.Method,
		Headers: data.Headers,
		Payload: payload,
		Query:   data.Query,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport fault")
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, data.Method, path, err)
	}

	t.FullURL(resp.URL)
	t.Response(registry.Response{
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
		Headers:     resp.Headers,
		Duration:    resp.Duration,
		FuzzedField: job.FuzzedField,
	})
	span.SetAttributes(attribute.Int("status_code", resp.StatusCode))

	if output, ok := c.Control(customtest.Output); ok {
		e.resolver.CaptureOutputs(output, payload, resp.Body)
	}

	var v oracle.Verdict
	if verifyEntry, ok := c.Control(customtest.Verify); ok {
		v = e.checker.Check(payload, resp.StatusCode, resp.Body, verifyEntry, expectedCode)
	} else {
		v = e.oracle.Judge(data.Contract(), oracle.Observed{
			StatusCode:  resp.StatusCode,
			Body:        resp.Body,
			FuzzedField: job.FuzzedField,
		}, respcode.Parse(expectedCode))
	}

	span.SetAttributes(attribute.String("verdict", v.Result.String()), attribute.String("reason", string(v.Reason)))
	if v.Result == oracle.Error {
		span.SetStatus(codes.Error, string(v.Reason))
	}
	return t.Report(v)
}

// Scenario is the narration for a case: its description, or a generated
// text naming the test key.
func Scenario(testKey string, c customtest.Case) string {
	if d, ok := c.Control(customtest.Description); ok && strings.TrimSpace(d) != "" && d != "null" {
		return d
	}
	return fmt.Sprintf("send request with custom values supplied. Test key [%s]", testKey)
}

// buildPayload writes every payload field of c into the base payload and
// applies an additionalProperties directive. Request references resolve
// against the payload as built so far.
func (e *Engine) buildPayload(data PathData, c customtest.Case) string {
	payload := data.Payload
	for _, p := range c.Payload() {
		value := e.resolver.ResolveString(p.Value, payload, "")
		updated, ok := jsonutil.Replace(payload, p.Name, value)
		if !ok {
			if !strings.Contains(data.Path, "{"+p.Name+"}") {
				e.log.Warn("property does not exist in payload", zap.String("path", data.Path), zap.String("property", p.Name))
			}
			continue
		}
		payload = updated
	}

	if directive, ok := c.Control(customtest.AdditionalProperties); ok {
		extra := e.resolver.Entries(directive)
		element := extra[customtest.Element]
		delete(extra, customtest.Element)
		if merged, ok := jsonutil.Merge(payload, element, extra); ok {
			payload = merged
		} else {
			e.log.Warn("cannot add additional properties", zap.String("element", element))
		}
	}
	e.log.Debug("final payload", zap.String("payload", payload))
	return payload
}

// buildPath substitutes `{name}` placeholders with case values. Variables
// resolve from the table and request references from the payload;
// placeholders without a case value stay as written.
func (e *Engine) buildPath(path string, c customtest.Case, payload string) string {
	for _, m := range regexcache.MustGet(`\{([^{}/]+)\}`).FindAllStringSubmatch(path, -1) {
		raw, ok := c.Field(m[1])
		if !ok {
			continue
		}
		expr := dsl.Parse(raw)
		value := expr.Value
		if expr.IsReference() {
			value = e.resolver.Resolve(expr, payload, "")
		}
		path = strings.ReplaceAll(path, m[0], value)
	}
	return path
}
