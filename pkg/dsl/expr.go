// Package dsl implements the small value language used by custom test
// files: variable references, request/response path expressions, and the
// `{k=v, k2=v2}` entry shorthand used by output, verify and one-of
// directives.
//
// Values are parsed once into an Expr and then resolved against the run's
// variable table and the current request/response bodies. Resolution never
// fails: anything that cannot be resolved yields runstate.NotSet.
//
// Usage:
//
//	r := dsl.NewResolver(state.Vars)
//	r.Resolve(dsl.Parse("${petId}"), req, resp)          // table lookup
//	r.Resolve(dsl.Parse("$response.owner.name"), req, resp)
//	r.Resolve(dsl.ParseEntryValue("$petId"), req, resp)  // flattened entry shorthand
//	entries := dsl.ParseEntry("{id=4[0-9], name=${petName}}")
package dsl

import (
	"strings"

	"github.com/waftester/contractfuzz/pkg/regexcache"
)

// Kind classifies a parsed value.
type Kind int

const (
	// Literal values are used as written.
	Literal Kind = iota
	// Variable values name an entry of the variable table.
	Variable
	// RequestPath values address a field of the request body.
	RequestPath
	// ResponsePath values address a field of the response body.
	ResponsePath
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case RequestPath:
		return "request"
	case ResponsePath:
		return "response"
	default:
		return "literal"
	}
}

// Expr is a parsed DSL value. Value holds the literal text, the variable
// name, or the path inside the addressed body, depending on Kind.
type Expr struct {
	Kind  Kind
	Value string
}

const (
	requestRoot  = "request"
	responseRoot = "response"
)

// identPattern is the `$name` shorthand left behind when entry flattening
// strips the braces of `${name}`.
const identPattern = `[A-Za-z0-9_.#\[\]\-]+`

// Parse classifies a payload value. Only `${...}` and the `$request` /
// `$response` roots are references; any other text, including text that
// merely starts with `$`, is a literal. A leading `$$` escapes a literal
// that would otherwise read as a reference.
func Parse(raw string) Expr {
	switch {
	case strings.HasPrefix(raw, "$$"):
		return Expr{Kind: Literal, Value: raw[1:]}
	case strings.HasPrefix(raw, "${") && strings.HasSuffix(raw, "}") && len(raw) > 3:
		return classify(raw[2:len(raw)-1], raw)
	case strings.HasPrefix(raw, "$"):
		inner := raw[1:]
		if path, ok := underRoot(inner, requestRoot); ok {
			return Expr{Kind: RequestPath, Value: path}
		}
		if path, ok := underRoot(inner, responseRoot); ok {
			return Expr{Kind: ResponsePath, Value: path}
		}
	}
	return Expr{Kind: Literal, Value: raw}
}

// ParseEntryValue classifies a value taken from a flattened `{k=v}` entry,
// where `${name}` has lost its braces and `$name` names a variable.
func ParseEntryValue(raw string) Expr {
	e := Parse(raw)
	if e.Kind == Literal && !strings.HasPrefix(raw, "$$") &&
		regexcache.MustGet(`^\$`+identPattern+`$`).MatchString(raw) {
		return classify(raw[1:], raw)
	}
	return e
}

// Quote escapes s so that Parse returns it unchanged as a literal.
func Quote(s string) string {
	if strings.HasPrefix(s, "$") {
		return "$" + s
	}
	return s
}

func classify(inner, raw string) Expr {
	if path, ok := underRoot(inner, requestRoot); ok {
		return Expr{Kind: RequestPath, Value: path}
	}
	if path, ok := underRoot(inner, responseRoot); ok {
		return Expr{Kind: ResponsePath, Value: path}
	}
	if strings.TrimSpace(inner) == "" {
		return Expr{Kind: Literal, Value: raw}
	}
	return Expr{Kind: Variable, Value: inner}
}

// underRoot reports whether s is root itself or root followed by a path
// separator, returning the remaining path.
func underRoot(s, root string) (string, bool) {
	if !strings.HasPrefix(s, root) {
		return "", false
	}
	rest := s[len(root):]
	if rest == "" {
		return "", true
	}
	if rest[0] == '.' || rest[0] == '#' {
		return rest[1:], true
	}
	return "", false
}

// IsReference reports whether the expression needs resolution.
func (e Expr) IsReference() bool {
	return e.Kind != Literal
}

// String renders the expression in its canonical `${...}` form.
func (e Expr) String() string {
	switch e.Kind {
	case Variable:
		return "${" + e.Value + "}"
	case RequestPath:
		return "${" + joinRoot(requestRoot, e.Value) + "}"
	case ResponsePath:
		return "${" + joinRoot(responseRoot, e.Value) + "}"
	}
	return e.Value
}

func joinRoot(root, path string) string {
	if path == "" {
		return root
	}
	return root + "." + path
}
