package jsonutil

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/go-cmp/cmp"
)

var errTrailingData = errors.New("jsonutil: trailing data after top-level value")

// segment is one step of a structural path: an object key, optionally
// followed by array indexes (`items[0]`), or a bare array index (`0`).
type segment struct {
	key     string
	indexes []int
}

// splitPath turns `a.b#c[0]` into segments. Both `.` and `#` separate
// segments; `#` is the field notation used by custom test files.
func splitPath(path string) []segment {
	path = strings.TrimPrefix(strings.TrimPrefix(path, "$"), ".")
	if path == "" {
		return nil
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == '#' })
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		seg := segment{key: part}
		if open := strings.IndexByte(part, '['); open >= 0 && strings.HasSuffix(part, "]") {
			seg.key = part[:open]
			for _, idx := range strings.Split(part[open+1:len(part)-1], "][") {
				n, err := strconv.Atoi(idx)
				if err != nil {
					seg = segment{key: part}
					break
				}
				seg.indexes = append(seg.indexes, n)
			}
		}
		segs = append(segs, seg)
	}
	return segs
}

// Decode parses a body into generic JSON values. Numbers are kept as their
// literal jsontext.Value so that re-encoding a payload never rounds values
// it did not touch. Blank bodies decode to nil.
func Decode(body string) (any, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	dec := jsontext.NewDecoder(strings.NewReader(body))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.ReadToken(); err != io.EOF {
		if err == nil {
			err = errTrailingData
		}
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *jsontext.Decoder) (any, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	switch tok.Kind() {
	case 'n':
		return nil, nil
	case 't', 'f':
		return tok.Bool(), nil
	case '"':
		return tok.String(), nil
	case '0':
		return jsontext.Value(tok.String()), nil
	case '{':
		obj := make(map[string]any)
		for dec.PeekKind() != '}' {
			name, err := dec.ReadToken()
			if err != nil {
				return nil, err
			}
			child, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj[name.String()] = child
		}
		_, err := dec.ReadToken()
		return obj, err
	case '[':
		arr := []any{}
		for dec.PeekKind() != ']' {
			child, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, child)
		}
		_, err := dec.ReadToken()
		return arr, err
	}
	return nil, fmt.Errorf("jsonutil: unexpected %v", tok.Kind())
}

// Lookup returns the value addressed by path inside body, stringified.
// Arrays reached without an explicit index resolve through their first
// element. The second result is false when the body is not JSON or the
// path does not exist.
func Lookup(body, path string) (string, bool) {
	root, err := Decode(body)
	if err != nil || root == nil {
		return "", false
	}
	v, ok := walk(root, splitPath(path))
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

func walk(v any, segs []segment) (any, bool) {
	for _, seg := range segs {
		var ok bool
		if v, ok = step(v, seg.key); !ok {
			return nil, false
		}
		for _, idx := range seg.indexes {
			arr, isArr := v.([]any)
			if !isArr || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			v = arr[idx]
		}
	}
	return v, true
}

func step(v any, key string) (any, bool) {
	switch node := v.(type) {
	case map[string]any:
		child, ok := node[key]
		return child, ok
	case []any:
		if n, err := strconv.Atoi(key); err == nil {
			if n < 0 || n >= len(node) {
				return nil, false
			}
			return node[n], true
		}
		if len(node) == 0 {
			return nil, false
		}
		return step(node[0], key)
	}
	return nil, false
}

// Stringify renders a decoded JSON value the way the DSL compares it:
// strings unquoted, numbers exactly as written, containers as JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case jsontext.Value:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		out, err := Marshal(val)
		if err != nil {
			return ""
		}
		return string(out)
	}
}

// Replace sets the field addressed by path to value and returns the
// re-encoded payload. The replacement keeps the JSON type of the existing
// field when value can be read as that type; otherwise it is written as a
// string. Arrays reached without an index have the field replaced in every
// element. The boolean is false, and payload is returned unchanged, when
// the field does not exist.
func Replace(payload, path, value string) (string, bool) {
	root, err := Decode(payload)
	if err != nil || root == nil {
		return payload, false
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		return payload, false
	}
	if !replaceIn(root, segs, value) {
		return payload, false
	}
	out, err := Marshal(root)
	if err != nil {
		return payload, false
	}
	return string(out), true
}

func replaceIn(v any, segs []segment, value string) bool {
	seg := segs[0]
	last := len(segs) == 1 && len(seg.indexes) == 0

	switch node := v.(type) {
	case []any:
		if n, err := strconv.Atoi(seg.key); err == nil {
			if n < 0 || n >= len(node) {
				return false
			}
			if last {
				node[n] = coerce(node[n], value)
				return true
			}
			return replaceIn(node[n], segs[1:], value)
		}
		replaced := false
		for _, elem := range node {
			if replaceIn(elem, segs, value) {
				replaced = true
			}
		}
		return replaced
	case map[string]any:
		child, ok := node[seg.key]
		if !ok {
			return false
		}
		if last {
			node[seg.key] = coerce(child, value)
			return true
		}
		for i, idx := range seg.indexes {
			arr, isArr := child.([]any)
			if !isArr || idx < 0 || idx >= len(arr) {
				return false
			}
			if i == len(seg.indexes)-1 && len(segs) == 1 {
				arr[idx] = coerce(arr[idx], value)
				return true
			}
			child = arr[idx]
		}
		return replaceIn(child, segs[1:], value)
	}
	return false
}

func coerce(existing any, value string) any {
	switch existing.(type) {
	case jsontext.Value:
		if isNumber(value) {
			return jsontext.Value(value)
		}
	case bool:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	case map[string]any, []any:
		if decoded, err := Decode(value); err == nil && decoded != nil {
			return decoded
		}
	}
	return value
}

// isNumber reports whether s is exactly one JSON number literal.
func isNumber(s string) bool {
	raw := jsontext.Value(s)
	return s == strings.TrimSpace(s) && raw.IsValid() && raw.Kind() == '0'
}

// Merge adds every entry of extra into the object at path (root when path
// is empty), creating the object when it is missing. Non-object targets
// leave the payload unchanged.
func Merge(payload, path string, extra map[string]string) (string, bool) {
	root, err := Decode(payload)
	if err != nil {
		return payload, false
	}
	if root == nil {
		root = map[string]any{}
	}
	target, ok := root.(map[string]any)
	if !ok {
		return payload, false
	}
	for _, seg := range splitPath(path) {
		child, exists := target[seg.key]
		if !exists {
			child = map[string]any{}
			target[seg.key] = child
		}
		if target, ok = child.(map[string]any); !ok {
			return payload, false
		}
	}
	for k, v := range extra {
		target[k] = v
	}
	out, err := Marshal(root)
	if err != nil {
		return payload, false
	}
	return string(out), true
}

// IsEmptyBody reports whether body is blank, `{}` or `[]`.
func IsEmptyBody(body string) bool {
	trimmed := strings.TrimSpace(body)
	return trimmed == "" || trimmed == "{}" || trimmed == "[]"
}

// IsArray reports whether body decodes to a JSON array.
func IsArray(body string) bool {
	v, err := Decode(body)
	if err != nil {
		return false
	}
	_, ok := v.([]any)
	return ok
}

// SemanticEqual reports whether two JSON documents decode to the same
// value, ignoring key order and whitespace. Numbers compare by value, so
// `1` equals `1.0`. Invalid JSON falls back to a plain string comparison.
func SemanticEqual(a, b string) bool {
	va, errA := Decode(a)
	vb, errB := Decode(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return cmp.Equal(va, vb, numberComparer)
}

var numberComparer = cmp.Comparer(func(x, y jsontext.Value) bool {
	fx, okX := new(big.Float).SetPrec(512).SetString(string(x))
	fy, okY := new(big.Float).SetPrec(512).SetString(string(y))
	if !okX || !okY {
		return string(x) == string(y)
	}
	return fx.Cmp(fy) == 0
})
