package oracle

import (
	"strings"

	"github.com/waftester/contractfuzz/pkg/respcode"
)

// Assertions are the independent facts the decision table is keyed on.
type Assertions struct {
	NotFound      bool
	Expected      bool
	Documented    bool
	MatchesSchema bool
	Unimplemented bool
}

// Facts carries the assertions plus what the verdict messages need.
type Facts struct {
	Assertions
	StatusCode int
	Expected   respcode.Family
	Documented []string
	Options    Options
}

// Rule is one row of the decision table.
type Rule struct {
	Name string
	When func(Assertions) bool
	Then func(Facts) Verdict
}

var rules = []Rule{
	{
		Name: "not found",
		When: func(a Assertions) bool { return a.NotFound },
		Then: func(Facts) Verdict {
			return Fail(ReasonNotFound, "Response HTTP code 404: you might need to provide business context using reference data or custom tests")
		},
	},
	{
		Name: "expected, documented, matches schema",
		When: func(a Assertions) bool { return a.Expected && a.Documented && a.MatchesSchema },
		Then: func(f Facts) Verdict {
			return Pass(ReasonOK, "Call returned as expected. Response code %d matches the contract. Response body matches the contract", f.StatusCode)
		},
	},
	{
		Name: "expected, documented, schema mismatch",
		When: func(a Assertions) bool { return a.Expected && a.Documented && !a.MatchesSchema },
		Then: func(f Facts) Verdict {
			v := Warn(ReasonSchemaMismatch, "Call returned as expected. Response code %d matches the contract. Response body does NOT match the contract", f.StatusCode)
			return waive(v, f.Options.IgnoreResponseBodyCheck)
		},
	},
	{
		Name: "expected, undocumented",
		When: func(a Assertions) bool { return a.Expected && !a.Documented },
		Then: func(f Facts) Verdict {
			v := Warn(ReasonUndocumentedCode, "Call returned as expected, but with undocumented code: expected %v, actual %d, documented response codes: %s",
				f.Expected.Allowed, f.StatusCode, joinCodes(f.Documented))
			return waive(v, f.Options.IgnoreUndocumentedCheck)
		},
	},
	{
		Name: "documented, not expected",
		When: func(a Assertions) bool { return a.Documented && !a.Expected },
		Then: func(f Facts) Verdict {
			return Fail(ReasonUnexpectedCode, "Call returned an unexpected result, but with documented code: expected %v, actual %d", f.Expected.Allowed, f.StatusCode)
		},
	},
	{
		Name: "unimplemented",
		When: func(a Assertions) bool { return a.Unimplemented },
		Then: func(f Facts) Verdict {
			return Warn(ReasonNotImplemented, "Response HTTP code %d: you forgot to implement this functionality", f.StatusCode)
		},
	},
	{
		Name: "unexpected behaviour",
		When: func(Assertions) bool { return true },
		Then: func(f Facts) Verdict {
			return Fail(ReasonUnexpectedBehaviour, "Unexpected behaviour: expected %v, actual %d", f.Expected.Allowed, f.StatusCode)
		},
	},
}

// Rules returns the decision table in priority order. The first rule whose
// predicate holds decides; the last rule holds for every input.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Decide applies the decision table to f.
func Decide(f Facts) Verdict {
	v, _ := decide(f)
	return v
}

func decide(f Facts) (Verdict, string) {
	for _, r := range rules {
		if r.When(f.Assertions) {
			return r.Then(f), r.Name
		}
	}
	last := rules[len(rules)-1]
	return last.Then(f), last.Name
}

// waive turns a warning into a success when the corresponding check is
// disabled, keeping the original reason and detail as a note.
func waive(v Verdict, ignored bool) Verdict {
	if !ignored {
		return v
	}
	return Verdict{Result: Success, Reason: v.Reason, Detail: v.Detail, Note: "check disabled by configuration"}
}

func joinCodes(codes []string) string {
	return "[" + strings.Join(codes, ", ") + "]"
}
