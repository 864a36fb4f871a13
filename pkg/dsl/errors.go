package dsl

import "errors"

// ErrSelection is returned when a one-of directive is not a single
// `{field=value}` pair.
var ErrSelection = errors.New("dsl: malformed one-of selection")
