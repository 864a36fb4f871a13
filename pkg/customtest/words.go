package customtest

import "slices"

// ControlKind names a reserved word of the custom test language. Keys that
// are control words steer the test instead of being written to the payload.
type ControlKind string

const (
	ExpectedResponseCode ControlKind = "expectedResponseCode"
	Description          ControlKind = "description"
	Output               ControlKind = "output"
	Verify               ControlKind = "verify"
	OneOfSelection       ControlKind = "oneOfSelection"
	HTTPMethod           ControlKind = "httpMethod"
	AdditionalProperties ControlKind = "additionalProperties"

	// Security strings fuzzer only.
	StringsFile       ControlKind = "stringsFile"
	TargetFields      ControlKind = "targetFields"
	TargetFieldsTypes ControlKind = "targetFieldsTypes"
)

// AllPaths is the path key whose definitions apply to every path without
// its own entry.
const AllPaths = "all"

// Element is the additionalProperties key naming the object that receives
// the extra properties.
const Element = "element"

var customWords = []ControlKind{
	ExpectedResponseCode, Description, Output, Verify,
	OneOfSelection, HTTPMethod, AdditionalProperties,
}

var securityWords = []ControlKind{StringsFile, TargetFields, TargetFieldsTypes}

// CustomWords returns the reserved words understood by custom test files.
func CustomWords() []ControlKind {
	return slices.Clone(customWords)
}

// SecurityWords returns the reserved words understood by security fuzzer
// files, which include every custom word.
func SecurityWords() []ControlKind {
	return append(CustomWords(), securityWords...)
}

// ControlFor reports whether key is a reserved word.
func ControlFor(key string) (ControlKind, bool) {
	kind := ControlKind(key)
	if slices.Contains(customWords, kind) || slices.Contains(securityWords, kind) {
		return kind, true
	}
	return "", false
}

// IsReserved reports whether key is a reserved word.
func IsReserved(key string) bool {
	_, ok := ControlFor(key)
	return ok
}
