package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/contractfuzz/pkg/respcode"
	"github.com/waftester/contractfuzz/pkg/runstate"
)

func allAssertions() []Assertions {
	var out []Assertions
	for bits := 0; bits < 32; bits++ {
		out = append(out, Assertions{
			NotFound:      bits&1 != 0,
			Expected:      bits&2 != 0,
			Documented:    bits&4 != 0,
			MatchesSchema: bits&8 != 0,
			Unimplemented: bits&16 != 0,
		})
	}
	return out
}

func TestDecisionTableIsTotal(t *testing.T) {
	t.Parallel()

	for _, a := range allAssertions() {
		fired := 0
		for _, r := range Rules() {
			if r.When(a) {
				fired++
				break
			}
		}
		assert.Equal(t, 1, fired, "%+v", a)

		_, rule := decide(Facts{Assertions: a})
		assert.NotEmpty(t, rule)
	}
}

func TestNotFoundDominates(t *testing.T) {
	t.Parallel()

	for _, a := range allAssertions() {
		if !a.NotFound {
			continue
		}
		v := Decide(Facts{Assertions: a, StatusCode: 404})
		assert.Equal(t, Error, v.Result, "%+v", a)
		assert.Equal(t, ReasonNotFound, v.Reason, "%+v", a)
	}
}

func TestDecisionRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a      Assertions
		opts   Options
		result Result
		reason Reason
		noted  bool
	}{
		{"ok", Assertions{Expected: true, Documented: true, MatchesSchema: true}, Options{}, Success, ReasonOK, false},
		{"schema mismatch", Assertions{Expected: true, Documented: true}, Options{}, Warning, ReasonSchemaMismatch, false},
		{"schema mismatch waived", Assertions{Expected: true, Documented: true}, Options{IgnoreResponseBodyCheck: true}, Success, ReasonSchemaMismatch, true},
		{"undocumented", Assertions{Expected: true, MatchesSchema: true}, Options{}, Warning, ReasonUndocumentedCode, false},
		{"undocumented waived", Assertions{Expected: true}, Options{IgnoreUndocumentedCheck: true}, Success, ReasonUndocumentedCode, true},
		{"documented not expected", Assertions{Documented: true, Unimplemented: true}, Options{}, Error, ReasonUnexpectedCode, false},
		{"unimplemented", Assertions{Unimplemented: true}, Options{}, Warning, ReasonNotImplemented, false},
		{"unexpected", Assertions{MatchesSchema: true}, Options{}, Error, ReasonUnexpectedBehaviour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := Decide(Facts{Assertions: tt.a, StatusCode: 200, Expected: respcode.Parse("2XX"), Options: tt.opts})
			assert.Equal(t, tt.result, v.Result)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.noted, v.Note != "")
			assert.NotEmpty(t, v.Detail)
		})
	}
}

func TestMatchesSchema(t *testing.T) {
	t.Parallel()

	petExample := `{"id":1,"name":"Rex","owner":{"id":2,"email":"a@b"}}`
	tests := []struct {
		name       string
		body       string
		examples   []string
		additional []string
		fuzzed     string
		code       int
		want       bool
	}{
		{"leaves present", `{"id":7,"name":"Tom"}`, []string{petExample}, nil, "", 200, true},
		{"nested leaves present", `{"owner":{"email":"x"}}`, []string{petExample}, nil, "", 200, true},
		{"unknown leaf", `{"id":7,"color":"red"}`, []string{petExample}, nil, "", 200, false},
		{"second example matches", `{"color":"red"}`, []string{petExample, `{"color":"x"}`}, nil, "", 200, true},
		{"array first element only", `[{"id":1},{"bogus":2}]`, []string{petExample}, nil, "", 200, true},
		{"empty array vs array example", `[]`, []string{`[{"whatever":1}]`}, nil, "", 200, true},
		{"empty array vs object example", `[]`, []string{petExample}, nil, "", 200, false},
		{"additional properties object", `{"meta":{"anything":1}}`, []string{`{"meta":{}}`}, []string{"meta"}, "", 200, true},
		{"no examples", `{"id":1}`, nil, nil, "", 200, false},
		{"not json", `oops`, []string{petExample}, nil, "", 200, false},
		{"4xx mentions fuzzed field", `{"error":"name too long"}`, []string{`{"error":"e"}`}, nil, "name", 400, true},
		{"4xx omits fuzzed field", `{"error":"bad input"}`, []string{`{"error":"e"}`}, nil, "name", 400, false},
		{"4xx without fuzzed field", `{"error":"bad input"}`, []string{`{"error":"e"}`}, nil, "", 422, true},
		{"5xx ignores fuzzed field", `{"error":"boom"}`, []string{`{"error":"e"}`}, nil, "name", 500, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MatchesSchema(tt.body, tt.examples, tt.additional, tt.fuzzed, tt.code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExamplesForRangeFallback(t *testing.T) {
	t.Parallel()

	c := Contract{Examples: map[string][]string{
		"200": {`{"id":1}`},
		"4xx": {`{"error":"e"}`},
	}}
	assert.Equal(t, []string{`{"id":1}`}, ExamplesFor(c, 200))
	assert.Equal(t, []string{`{"error":"e"}`}, ExamplesFor(c, 409))
	assert.Nil(t, ExamplesFor(c, 500))
}

func TestAssess(t *testing.T) {
	t.Parallel()

	o := New(runstate.NewState(), Options{})
	c := Contract{
		Path:          "/pets",
		Method:        "POST",
		ResponseCodes: []string{"201", "4XX"},
		Examples:      map[string][]string{"201": {`{"id":1}`}},
	}

	a := o.Assess(c, Observed{StatusCode: 201, Body: `{"id":5}`}, respcode.Parse("2XX"))
	assert.Equal(t, Assertions{Expected: true, Documented: true, MatchesSchema: true}, a)

	a = o.Assess(c, Observed{StatusCode: 409, Body: ``}, respcode.Parse("4XX"))
	assert.True(t, a.Documented, "4XX token documents 409")
	assert.False(t, a.Expected, "409 is not in the standard 4XX set")
	assert.True(t, a.MatchesSchema, "no examples and empty body")

	a = o.Assess(c, Observed{StatusCode: 415, Body: `junk`}, respcode.Parse("2XX"))
	assert.True(t, a.Documented)
	assert.True(t, a.MatchesSchema)

	a = o.Assess(c, Observed{StatusCode: 501}, respcode.Parse("2XX"))
	assert.True(t, a.Expected)
	assert.True(t, a.Unimplemented)
	assert.False(t, a.Documented)
}

func TestJudgeMaintainsPriorSuccess(t *testing.T) {
	t.Parallel()

	state := runstate.NewState()
	o := New(state, Options{})

	create := Contract{Path: "/pets", Method: "POST", ResponseCodes: []string{"201"}}
	remove := Contract{Path: "/pets/{id}", Method: "DELETE", ResponseCodes: []string{"204"}}

	o.Judge(create, Observed{StatusCode: 201, Body: `{"id":1}`}, respcode.Parse("2XX"))
	o.Judge(create, Observed{StatusCode: 201, Body: `{"id":2}`}, respcode.Parse("2XX"))
	o.Judge(create, Observed{StatusCode: 400, Body: `{"id":3}`}, respcode.Parse("4XX"))
	require.Equal(t, 2, state.Prior.Len("/pets"))

	o.Judge(remove, Observed{StatusCode: 204}, respcode.Parse("2XX"))
	assert.Equal(t, 1, state.Prior.Len("/pets"))
	top, _ := state.Prior.Peek("/pets")
	assert.Equal(t, `{"id":1}`, top)

	o.Judge(remove, Observed{StatusCode: 500}, respcode.Parse("2XX"))
	assert.Equal(t, 1, state.Prior.Len("/pets"))
}

func TestJudgeVerdicts(t *testing.T) {
	t.Parallel()

	o := New(runstate.NewState(), Options{})
	c := Contract{Path: "/pets", Method: "GET", ResponseCodes: []string{"200", "400"},
		Examples: map[string][]string{"200": {`{"id":1}`}}}

	v := o.Judge(c, Observed{StatusCode: 404}, respcode.Parse("2XX"))
	assert.Equal(t, ReasonNotFound, v.Reason)

	v = o.Judge(c, Observed{StatusCode: 200, Body: `{"id":3}`}, respcode.Parse("2XX"))
	assert.Equal(t, Success, v.Result)

	v = o.Judge(c, Observed{StatusCode: 400, Body: `{}`}, respcode.Parse("2XX"))
	assert.Equal(t, Error, v.Result)
	assert.Equal(t, ReasonUnexpectedCode, v.Reason)
}

func TestResultString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "warn", Warning.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "skipped", Skipped.String())
	text, err := Warning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warn", string(text))
}
