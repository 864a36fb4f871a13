package registry

import "errors"

var (
	// ErrAlreadyFinalized is returned when a test is finalized twice.
	ErrAlreadyFinalized = errors.New("registry: test already finalized")

	// ErrUnknownTest is returned for an id that was never begun.
	ErrUnknownTest = errors.New("registry: unknown test id")
)
