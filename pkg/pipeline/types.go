package pipeline

import (
	"context"
	"time"

	"github.com/waftester/contractfuzz/pkg/oracle"
)

// Call is one outgoing request.
type Call struct {
	Path    string
	Method  string
	Headers map[string]string
	Payload string
	Query   map[string]string
}

// Response is what the transport observed. 4xx and 5xx are ordinary
// responses.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Duration   time.Duration
	// URL is the fully computed URL that was called.
	URL string
}

// Transport performs calls. It returns an error only for faults below HTTP
// (connection refused, timeouts, malformed URLs).
type Transport interface {
	Invoke(ctx context.Context, call Call) (*Response, error)
}

// Property is a declared payload property of an operation.
type Property struct {
	Type   string
	Format string
}

// PathData describes one contract operation.
type PathData struct {
	Path    string
	Method  string
	Headers map[string]string
	Query   map[string]string
	// Payload is the base JSON request body.
	Payload string
	// ResponseCodes are the documented response codes, including range tokens.
	ResponseCodes []string
	// Examples maps response codes to documented example bodies.
	Examples map[string][]string
	// Properties maps field names (nested names joined with '#') to their
	// declared type.
	Properties map[string]Property
	// AdditionalProperties names fields declared with additionalProperties.
	AdditionalProperties []string
}

// Contract returns the part of d the oracle judges against.
func (d PathData) Contract() oracle.Contract {
	return oracle.Contract{
		Path:                 d.Path,
		Method:               d.Method,
		ResponseCodes:        d.ResponseCodes,
		Examples:             d.Examples,
		AdditionalProperties: d.AdditionalProperties,
	}
}

// PropertyTypes maps every declared property to its type.
func (d PathData) PropertyTypes() map[string]string {
	out := make(map[string]string, len(d.Properties))
	for name, p := range d.Properties {
		out[name] = p.Type
	}
	return out
}

// Fuzzer produces and runs test cases for one operation at a time.
type Fuzzer interface {
	Name() string
	Fuzz(ctx context.Context, data PathData) error
}

// SkipRecorder is told about every definition that was not executed.
type SkipRecorder interface {
	DefinitionSkipped(fuzzer, reason string)
}
