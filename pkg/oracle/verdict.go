package oracle

import "fmt"

// Result is the outcome class of a test case.
type Result int

const (
	Success Result = iota
	Warning
	Error
	Skipped
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Warning:
		return "warn"
	case Error:
		return "error"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// MarshalText renders the result for JSON and YAML reports.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Reason is the machine-readable cause attached to a verdict.
type Reason string

const (
	ReasonOK                  Reason = "OK"
	ReasonNotFound            Reason = "NOT_FOUND"
	ReasonSchemaMismatch      Reason = "NOT_MATCHING_RESPONSE_SCHEMA"
	ReasonUndocumentedCode    Reason = "UNDOCUMENTED_RESPONSE_CODE"
	ReasonUnexpectedCode      Reason = "UNEXPECTED_RESPONSE_CODE"
	ReasonNotImplemented      Reason = "NOT_IMPLEMENTED"
	ReasonUnexpectedBehaviour Reason = "UNEXPECTED_BEHAVIOUR"
	ReasonException           Reason = "EXCEPTION"
	ReasonVerifyMatched       Reason = "VERIFY_MATCHED"
	ReasonVerifyCodeMismatch  Reason = "VERIFY_RESPONSE_CODE_MISMATCH"
	ReasonVerifyMismatch      Reason = "VERIFY_NOT_MATCHING"
	ReasonVerifyAbsent        Reason = "VERIFY_FIELDS_ABSENT"
	ReasonIgnoredCode         Reason = "IGNORED_RESPONSE_CODE"
	ReasonNoVerdict           Reason = "NO_VERDICT"
)

// Verdict is the judgment of one executed test case. Note keeps the reason
// a check was waived when a configured override turned a warning into a
// success.
type Verdict struct {
	Result Result
	Reason Reason
	Detail string
	Note   string
}

// Pass returns a success verdict.
func Pass(reason Reason, format string, args ...any) Verdict {
	return Verdict{Result: Success, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Warn returns a warning verdict.
func Warn(reason Reason, format string, args ...any) Verdict {
	return Verdict{Result: Warning, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Fail returns an error verdict.
func Fail(reason Reason, format string, args ...any) Verdict {
	return Verdict{Result: Error, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Skip returns a skipped verdict.
func Skip(reason Reason, format string, args ...any) Verdict {
	return Verdict{Result: Skipped, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
