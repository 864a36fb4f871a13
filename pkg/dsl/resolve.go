package dsl

import (
	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/runstate"
)

// Resolver evaluates expressions against a variable table.
type Resolver struct {
	vars *runstate.Variables
	log  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report resolution misses.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver returns a resolver bound to vars.
func NewResolver(vars *runstate.Variables, opts ...Option) *Resolver {
	r := &Resolver{vars: vars, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve evaluates e. Variables come from the table; request and response
// paths are looked up in the given bodies. Misses yield runstate.NotSet and
// are logged, never returned as errors.
func (r *Resolver) Resolve(e Expr, request, response string) string {
	switch e.Kind {
	case Variable:
		value, ok := r.vars.Lookup(e.Value)
		if !ok {
			r.log.Warn("variable not set", zap.String("variable", e.Value))
			return runstate.NotSet
		}
		return value
	case RequestPath:
		return r.lookup(request, e, "request")
	case ResponsePath:
		return r.lookup(response, e, "response")
	}
	return e.Value
}

// ResolveString parses raw as a payload value and resolves it.
func (r *Resolver) ResolveString(raw, request, response string) string {
	return r.Resolve(Parse(raw), request, response)
}

// ResolveEntryValue resolves a value taken from a flattened `{k=v}` entry,
// where the `$name` shorthand also names a variable.
func (r *Resolver) ResolveEntryValue(raw, request, response string) string {
	return r.Resolve(ParseEntryValue(raw), request, response)
}

func (r *Resolver) lookup(body string, e Expr, side string) string {
	value, ok := jsonutil.Lookup(body, e.Value)
	if !ok {
		r.log.Debug("path not found",
			zap.String("side", side),
			zap.String("path", e.Value))
		return runstate.NotSet
	}
	return value
}
