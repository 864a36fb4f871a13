package pipeline

import "errors"

// ErrTransport wraps faults raised by the transport.
var ErrTransport = errors.New("transport fault")
