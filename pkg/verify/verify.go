// Package verify checks explicit `verify` expectations of a custom test
// against the response body.
//
// Each expectation names a response field and a pattern. The pattern may
// itself be a DSL reference and is resolved before matching; matching is a
// case-sensitive, full-string regular expression match.
//
// Usage:
//
//	c := verify.New(resolver, logger)
//	v := c.Check(reqBody, 200, respBody, "{id=4[0-9]}", "200")
package verify

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/dsl"
	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/regexcache"
	"github.com/waftester/contractfuzz/pkg/runstate"
)

const notMatching = "Parameter [%s] with value [%s] not matching [%s]. "

// Checker evaluates verify expectations.
type Checker struct {
	resolver *dsl.Resolver
	log      *zap.Logger
}

// New returns a Checker resolving patterns through r.
func New(r *dsl.Resolver, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{resolver: r, log: log}
}

// Check matches the fields named in verify against responseBody. If any
// named field is absent the verdict is an error listing them and no
// pattern is evaluated.
func (c *Checker) Check(requestBody string, statusCode int, responseBody, verify, expectedCode string) oracle.Verdict {
	expectations := c.resolver.Entries(verify)
	names := make([]string, 0, len(expectations))
	for name := range expectations {
		names = append(names, name)
	}
	slices.Sort(names)

	observed := make(map[string]string, len(names))
	var absent []string
	for _, name := range names {
		value, ok := jsonutil.Lookup(responseBody, name)
		if !ok {
			value = runstate.NotSet
		}
		if strings.EqualFold(value, runstate.NotSet) {
			absent = append(absent, name)
		}
		observed[name] = value
	}
	c.log.Debug("verify parameters",
		zap.Any("expected", expectations),
		zap.Any("observed", observed))

	if len(absent) > 0 {
		return oracle.Fail(oracle.ReasonVerifyAbsent,
			"The following Verify parameters were not present in the response: %v", absent)
	}

	var mismatches strings.Builder
	for _, name := range names {
		pattern := c.pattern(expectations[name], requestBody, responseBody)
		ok, err := regexcache.MatchFull(pattern, observed[name])
		if err != nil {
			fmt.Fprintf(&mismatches, notMatching, name, observed[name], pattern+" ("+err.Error()+")")
			continue
		}
		if !ok {
			fmt.Fprintf(&mismatches, notMatching, name, observed[name], pattern)
		}
	}

	actual := strconv.Itoa(statusCode)
	switch {
	case mismatches.Len() > 0:
		return oracle.Fail(oracle.ReasonVerifyMismatch, "%s", strings.TrimSpace(mismatches.String()))
	case strings.EqualFold(strings.TrimSpace(expectedCode), actual):
		return oracle.Pass(oracle.ReasonVerifyMatched, "Response matches all 'verify' parameters")
	default:
		return oracle.Warn(oracle.ReasonVerifyCodeMismatch,
			"Response matches all 'verify' parameters, but response code doesn't match expected response code: expected [%s], actual [%s]",
			expectedCode, actual)
	}
}

// pattern resolves a verify value: request/response references are looked
// up in the bodies and variable references in the table.
func (c *Checker) pattern(raw, requestBody, responseBody string) string {
	return c.resolver.ResolveEntryValue(raw, requestBody, responseBody)
}
