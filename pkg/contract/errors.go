package contract

import "errors"

// ErrUnsupportedContract is returned for documents that are not OpenAPI 3
// or declare no paths.
var ErrUnsupportedContract = errors.New("unsupported contract")
