package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waftester/contractfuzz/pkg/dsl"
	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/runstate"
)

func newChecker() (*Checker, *runstate.Variables) {
	vars := runstate.NewVariables()
	return New(dsl.NewResolver(vars), nil), vars
}

func TestCheck(t *testing.T) {
	t.Parallel()

	resp := `{"id":"42","name":"Rex","owner":{"email":"ann@example.com"}}`
	tests := []struct {
		name     string
		entry    string
		expected string
		actual   int
		result   oracle.Result
		reason   oracle.Reason
		detail   string
	}{
		{"pattern matches", "{id=4[0-9]}", "200", 200, oracle.Success, oracle.ReasonVerifyMatched, ""},
		{"pattern mismatch", "{id=99}", "200", 200, oracle.Error, oracle.ReasonVerifyMismatch,
			"Parameter [id] with value [42] not matching [99]."},
		{"absent field", "{missing=.*}", "200", 200, oracle.Error, oracle.ReasonVerifyAbsent, "[missing]"},
		{"absent wins over mismatch", "{id=99, missing=.*}", "200", 200, oracle.Error, oracle.ReasonVerifyAbsent, "[missing]"},
		{"code differs", "{id=42}", "201", 200, oracle.Warning, oracle.ReasonVerifyCodeMismatch, "expected [201], actual [200]"},
		{"range token is not equal", "{id=42}", "2XX", 200, oracle.Warning, oracle.ReasonVerifyCodeMismatch, ""},
		{"full string only", "{id=4}", "200", 200, oracle.Error, oracle.ReasonVerifyMismatch, ""},
		{"case sensitive", "{name=rex}", "200", 200, oracle.Error, oracle.ReasonVerifyMismatch, ""},
		{"nested field", "{owner#email=.*@example\\.com}", "200", 200, oracle.Success, oracle.ReasonVerifyMatched, ""},
		{"invalid regex", "{id=[}", "200", 200, oracle.Error, oracle.ReasonVerifyMismatch, "Parameter [id]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newChecker()
			v := c.Check(`{}`, tt.actual, resp, tt.entry, tt.expected)
			assert.Equal(t, tt.result, v.Result)
			assert.Equal(t, tt.reason, v.Reason)
			if tt.detail != "" {
				assert.Contains(t, v.Detail, tt.detail)
			}
		})
	}
}

func TestCheckResolvesPatternReferences(t *testing.T) {
	t.Parallel()

	c, vars := newChecker()
	vars.Set("petName", "Rex")
	resp := `{"id":"42","name":"Rex"}`

	v := c.Check(`{"name":"Rex"}`, 200, resp, "{name=${petName}}", "200")
	assert.Equal(t, oracle.Success, v.Result)

	v = c.Check(`{"name":"Rex"}`, 200, resp, "{name=${request.name}}", "200")
	assert.Equal(t, oracle.Success, v.Result)

	v = c.Check(`{"name":"Tom"}`, 200, resp, "{name=${request.name}}", "200")
	assert.Equal(t, oracle.Error, v.Result)
	assert.Contains(t, v.Detail, "not matching [Tom]")

	v = c.Check(`{}`, 200, resp, "{name=${unbound}}", "200")
	assert.Equal(t, oracle.Error, v.Result)
	assert.Contains(t, v.Detail, runstate.NotSet)
}

func TestCheckReportsEveryMismatch(t *testing.T) {
	t.Parallel()

	c, _ := newChecker()
	v := c.Check(`{}`, 200, `{"a":"1","b":"2"}`, "{b=x, a=y}", "200")
	assert.Equal(t,
		"Parameter [a] with value [1] not matching [y]. Parameter [b] with value [2] not matching [x].",
		v.Detail)
}
