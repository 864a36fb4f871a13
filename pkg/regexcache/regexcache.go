// Package regexcache provides a thread-safe cache for compiled regular
// expressions. Verify patterns are evaluated once per executed test case and
// the same pattern usually repeats across every fan-out case of a
// definition, so compiled expressions are kept for the whole run.
//
// Usage:
//
//	ok, err := regexcache.MatchFull(`4[0-9]`, "42") // true, nil
package regexcache

import (
	"regexp"
	"sync"
)

// cache holds compiled regular expressions keyed by pattern string.
var cache sync.Map

// Get returns a compiled regexp for the given pattern, compiling it on
// first use.
func Get(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// MustGet returns a compiled regexp for the given pattern.
// It panics if the pattern is invalid; use it only for constant patterns.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Full returns pattern compiled so that it must match the entire input.
func Full(pattern string) (*regexp.Regexp, error) {
	return Get(`^(?:` + pattern + `)$`)
}

// MatchFull reports whether value matches pattern as a whole string.
// Matching is case-sensitive unless the pattern opts out with (?i).
func MatchFull(pattern, value string) (bool, error) {
	re, err := Full(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}

// Clear removes all cached regular expressions.
func Clear() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}

// Size returns the number of cached regular expressions.
func Size() int {
	count := 0
	cache.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
