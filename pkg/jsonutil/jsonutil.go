// Package jsonutil wraps github.com/go-json-experiment/json for every JSON
// operation in contractfuzz: request/response body decoding, structural
// path lookup used by the DSL, field replacement used to build fuzzed
// payloads, and record encoding used by the exporters.
//
// Usage:
//
//	v := jsonutil.Lookup(`{"pet":{"id":42}}`, "pet.id") // "42", true
//	out, ok := jsonutil.Replace(payload, "address#street", "x")
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the JSON encoding of v. Map keys are emitted in sorted
// order so rebuilt payloads are stable between runs.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalIndent returns the indented JSON encoding of v.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true), jsontext.WithIndent(indent))
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// LineEncoder writes one JSON document per line (JSONL).
type LineEncoder struct {
	w io.Writer
}

// NewLineEncoder creates a JSONL encoder that writes to w.
func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

// Encode writes the JSON encoding of v followed by a newline.
func (e *LineEncoder) Encode(v any) error {
	if err := json.MarshalWrite(e.w, v, json.Deterministic(true)); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{'\n'})
	return err
}
