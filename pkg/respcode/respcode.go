// Package respcode models the response-code families a test expects.
//
// A family is a class token such as "4XX" plus the concrete codes that
// count as expected for it. Custom tests may name a family ("4xx") or a
// single code ("409"); a single code widens its class family with that code.
//
// Usage:
//
//	fam := respcode.Parse("409")
//	fam.Allows(409)        // true
//	fam.Allows(400)        // true, 400 is in the standard 4XX set
//	respcode.IsValid("6XX") // false
package respcode

import (
	"slices"
	"strconv"
	"strings"
)

// Status codes with fixed meaning in the oracle.
const (
	NotFound       = 404
	NotImplemented = 501
)

// Family is an expected response-code class.
type Family struct {
	Token   string
	Allowed []int
}

var standard = map[byte][]int{
	'1': {100, 101},
	'2': {200, 201, 202, 204},
	'3': {301, 302, 304},
	'4': {400, 413, 414, 422},
	'5': {500, 501},
}

// Standard returns the built-in family for class digit c ('1'..'5').
func Standard(c byte) (Family, bool) {
	codes, ok := standard[c]
	if !ok {
		return Family{}, false
	}
	return Family{Token: string(c) + "XX", Allowed: slices.Clone(codes)}, true
}

// Parse turns an expected-code token into a family. Tokens that are
// neither a class nor a valid code yield an empty family that allows
// nothing; callers validate with IsValid first.
func Parse(token string) Family {
	token = strings.TrimSpace(token)
	if !IsValid(token) {
		return Family{Token: token}
	}
	fam, _ := Standard(token[0])
	if isRange(token) {
		return fam
	}
	code, _ := strconv.Atoi(token)
	if !slices.Contains(fam.Allowed, code) {
		fam.Allowed = append(fam.Allowed, code)
	}
	return fam
}

// IsValid reports whether token is a class token ("2XX", any case) or an
// integer status code between 100 and 599.
func IsValid(token string) bool {
	token = strings.TrimSpace(token)
	if isRange(token) {
		return true
	}
	code, err := strconv.Atoi(token)
	return err == nil && len(token) == 3 && code >= 100 && code <= 599
}

func isRange(token string) bool {
	return len(token) == 3 && token[0] >= '1' && token[0] <= '5' &&
		strings.EqualFold(token[1:], "xx")
}

// Allows reports whether code belongs to the family.
func (f Family) Allows(code int) bool {
	return slices.Contains(f.Allowed, code)
}

// String returns the family token.
func (f Family) String() string {
	return f.Token
}

// Is2xx reports whether code is a success code.
func Is2xx(code int) bool { return code >= 200 && code < 300 }

// Is4xx reports whether code is a client error code.
func Is4xx(code int) bool { return code >= 400 && code < 500 }

// IsUnimplemented reports whether code denotes a not-implemented status.
func IsUnimplemented(code int) bool { return code == NotImplemented }

// RangeToken returns the class token of code, e.g. 404 -> "4XX".
func RangeToken(code int) string {
	return strconv.Itoa(code/100) + "XX"
}

// MatchesRange reports whether token is a class token covering code,
// compared case-insensitively.
func MatchesRange(token string, code int) bool {
	return isRange(token) && strings.EqualFold(token, RangeToken(code))
}

// Matches reports whether token names code, either exactly or as its class.
func Matches(token string, code int) bool {
	token = strings.TrimSpace(token)
	return token == strconv.Itoa(code) || MatchesRange(token, code)
}
