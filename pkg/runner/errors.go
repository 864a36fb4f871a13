package runner

import "errors"

// Sentinel errors for runner failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrNoFuzzers indicates Run was called without any fuzzer.
	ErrNoFuzzers = errors.New("runner: no fuzzers")

	// ErrNoOperations indicates the path filter left no contract
	// operation to fuzz.
	ErrNoOperations = errors.New("runner: no operations")
)
