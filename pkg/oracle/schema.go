package oracle

import (
	"slices"
	"strings"

	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/respcode"
)

const rootName = "ROOT"

// MatchesSchema reports whether body structurally matches at least one of
// the documented examples. Arrays are judged by their first element; an
// empty array matches when an example is itself an array. Every leaf name
// of an object must occur somewhere in the example text, except below
// fields listed in additional, whose object values always match. A 4xx
// body must also mention fuzzedField.
func MatchesSchema(body string, examples, additional []string, fuzzedField string, statusCode int) bool {
	if len(examples) == 0 {
		return false
	}
	root, err := jsonutil.Decode(body)
	if err != nil || root == nil {
		return false
	}
	matched := slices.ContainsFunc(examples, func(example string) bool {
		return matchesElement(example, root, additional)
	})
	if !matched {
		return false
	}
	if respcode.Is4xx(statusCode) && fuzzedField != "" {
		return strings.Contains(body, fuzzedField)
	}
	return true
}

func matchesElement(example string, v any, additional []string) bool {
	arr, ok := v.([]any)
	if !ok {
		return matchesSingle(example, v, rootName, additional)
	}
	if len(arr) == 0 {
		return jsonutil.IsArray(example)
	}
	return matchesSingle(example, arr[0], rootName, additional)
}

func matchesSingle(example string, v any, name string, additional []string) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return strings.Contains(example, name)
	}
	if slices.Contains(additional, name) {
		return true
	}
	for key, child := range obj {
		if !matchesSingle(example, child, key, additional) {
			return false
		}
	}
	return true
}
