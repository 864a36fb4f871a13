// Package oracle judges responses against the contract.
//
// Judge computes a fixed set of Assertions (not found, expected code,
// documented code, schema match, unimplemented) and runs them through an
// ordered decision table; the first matching rule produces the Verdict.
// Successful creations and deletions also maintain the run's prior-success
// stack so dependent tests can find the objects they need.
//
// Usage:
//
//	o := oracle.New(state, oracle.Options{})
//	v := o.Judge(contract, oracle.Observed{StatusCode: 201, Body: body}, respcode.Parse("2XX"))
package oracle

import (
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/respcode"
	"github.com/waftester/contractfuzz/pkg/runstate"
)

// NotNecessarilyDocumented are codes a contract conventionally omits.
var NotNecessarilyDocumented = []int{406, 414, 415}

// Contract is what the oracle needs to know about one operation.
type Contract struct {
	Path   string
	Method string
	// ResponseCodes are the documented codes, including range tokens such as "4XX".
	ResponseCodes []string
	// Examples maps a response code (or range key such as "4xx") to example bodies.
	Examples map[string][]string
	// AdditionalProperties names fields whose object values always match.
	AdditionalProperties []string
}

// Observed is the response being judged.
type Observed struct {
	StatusCode int
	Body       string
	// FuzzedField is the field mutated by the test, if any. A 4xx body is
	// only considered matching when it mentions this field.
	FuzzedField string
}

// Options waive individual checks.
type Options struct {
	IgnoreResponseBodyCheck bool
	IgnoreUndocumentedCheck bool
}

// Oracle judges responses. It is safe for concurrent use.
type Oracle struct {
	prior *runstate.PriorSuccess
	opts  Options
	log   *zap.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithLogger sets the oracle's logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Oracle) {
		if log != nil {
			o.log = log
		}
	}
}

// New returns an Oracle that records creations in state.
func New(state *runstate.State, opts Options, options ...Option) *Oracle {
	o := &Oracle{prior: state.Prior, opts: opts, log: zap.NewNop()}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Options returns the configured check overrides.
func (o *Oracle) Options() Options {
	return o.opts
}

// Assess computes the assertions for resp without side effects.
func (o *Oracle) Assess(c Contract, resp Observed, expected respcode.Family) Assertions {
	code := resp.StatusCode
	examples := ExamplesFor(c, code)
	return Assertions{
		NotFound: code == respcode.NotFound,
		Expected: expected.Allows(code) || code == respcode.NotImplemented,
		Documented: slices.Contains(c.ResponseCodes, strconv.Itoa(code)) ||
			notNecessarilyDocumented(code) ||
			slices.ContainsFunc(c.ResponseCodes, func(token string) bool { return respcode.MatchesRange(token, code) }),
		MatchesSchema: MatchesSchema(resp.Body, examples, c.AdditionalProperties, resp.FuzzedField, code) ||
			(len(examples) == 0 && jsonutil.IsEmptyBody(resp.Body)) ||
			notNecessarilyDocumented(code),
		Unimplemented: respcode.IsUnimplemented(code),
	}
}

// Judge records creation side effects and returns the verdict for resp.
func (o *Oracle) Judge(c Contract, resp Observed, expected respcode.Family) Verdict {
	o.trackLifecycle(c, resp)

	a := o.Assess(c, resp, expected)
	v, rule := decide(Facts{
		Assertions: a,
		StatusCode: resp.StatusCode,
		Expected:   expected,
		Documented: c.ResponseCodes,
		Options:    o.opts,
	})
	o.log.Debug("oracle decision",
		zap.String("path", c.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("rule", rule),
		zap.Bool("expected", a.Expected),
		zap.Bool("documented", a.Documented),
		zap.Bool("matches_schema", a.MatchesSchema),
		zap.Stringer("result", v.Result))
	return v
}

func (o *Oracle) trackLifecycle(c Contract, resp Observed) {
	if !respcode.Is2xx(resp.StatusCode) {
		return
	}
	switch strings.ToUpper(c.Method) {
	case "POST":
		o.prior.Push(c.Path, resp.Body)
		o.log.Debug("stored creation response", zap.String("path", c.Path))
	case "DELETE":
		parent := runstate.ParentPath(c.Path)
		if _, ok := o.prior.Pop(parent); ok {
			o.log.Debug("removed creation response", zap.String("path", parent))
		}
	}
}

// ExamplesFor returns the documented example bodies for code, falling back
// to its range key ("4xx", any case) when the exact code has none.
func ExamplesFor(c Contract, code int) []string {
	if ex := c.Examples[strconv.Itoa(code)]; len(ex) > 0 {
		return ex
	}
	rangeKey := respcode.RangeToken(code)
	for key, ex := range c.Examples {
		if strings.EqualFold(key, rangeKey) {
			return ex
		}
	}
	return nil
}

func notNecessarilyDocumented(code int) bool {
	return slices.Contains(NotNecessarilyDocumented, code)
}
