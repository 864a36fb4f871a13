package customtest

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition is wrapped by every SkipError.
var ErrInvalidDefinition = errors.New("invalid custom test definition")

// Skip reasons, used as metric labels.
const (
	ReasonResponseCode  = "invalid_response_code"
	ReasonFanOut        = "multiple_fan_out_fields"
	ReasonMissingMethod = "missing_http_method"
	ReasonOneOf         = "one_of_not_applicable"
	ReasonStringsFile   = "strings_file_unreadable"
)

// SkipError reports a definition that will not be executed. It is a
// per-definition outcome, never a run failure.
type SkipError struct {
	Path    string
	TestKey string
	Reason  string
	Detail  string
}

func (e *SkipError) Error() string {
	msg := "skipping custom test"
	if e.Path != "" {
		msg += fmt.Sprintf(" path [%s]", e.Path)
	}
	if e.TestKey != "" {
		msg += fmt.Sprintf(" key [%s]", e.TestKey)
	}
	return fmt.Sprintf("%s: %s: %s", msg, e.Reason, e.Detail)
}

// Unwrap lets errors.Is match ErrInvalidDefinition.
func (e *SkipError) Unwrap() error {
	return ErrInvalidDefinition
}

func skip(reason, format string, args ...any) *SkipError {
	return &SkipError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
