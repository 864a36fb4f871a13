package dsl

import (
	"fmt"
	"maps"
	"strings"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/runstate"
)

// ParseEntry flattens the `{k1=v1, k2=v2}` shorthand into a map. Every
// brace is removed before splitting, so `${x}` inside an entry becomes the
// `$x` shorthand. Pairs without `=` are ignored; blank input yields an
// empty map.
func ParseEntry(s string) map[string]string {
	entries, _ := parsePairs(s)
	return entries
}

func parsePairs(s string) (map[string]string, []string) {
	entries := make(map[string]string)
	var dropped []string

	flat := strings.NewReplacer("{", "", "}", "").Replace(s)
	if strings.TrimSpace(flat) == "" {
		return entries, nil
	}
	for _, pair := range strings.Split(flat, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			dropped = append(dropped, pair)
			continue
		}
		entries[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return entries, dropped
}

// ParseSelection parses the one-of shorthand `{field=value}`.
func ParseSelection(s string) (field, value string, err error) {
	entries := ParseEntry(s)
	if len(entries) != 1 {
		return "", "", fmt.Errorf("%w: %q has %d pairs", ErrSelection, s, len(entries))
	}
	for k, v := range entries {
		field, value = k, v
	}
	return field, value, nil
}

// Entries is ParseEntry with dropped pairs logged.
func (r *Resolver) Entries(s string) map[string]string {
	entries, dropped := parsePairs(s)
	for _, pair := range dropped {
		r.log.Debug("ignoring entry without '='", zap.String("pair", pair))
	}
	return entries
}

// CaptureOutputs binds the variables declared by an output entry and
// returns what was bound. Every name is first bound to its raw value;
// request-derived entries are then resolved against request, the rest
// against response (a plain value is a response path), and the
// request-derived results are merged last. The whole capture is applied
// under one lock.
func (r *Resolver) CaptureOutputs(outputs, request, response string) map[string]string {
	entries := r.Entries(outputs)
	captured := make(map[string]string, len(entries))
	if len(entries) == 0 {
		return captured
	}

	r.vars.Update(func(vars map[string]string) {
		maps.Copy(vars, entries)

		fromRequest := make(map[string]string)
		for name, raw := range entries {
			if e := ParseEntryValue(raw); e.Kind == RequestPath {
				fromRequest[name] = r.lookup(request, e, "request")
			}
		}

		for name, raw := range entries {
			e := ParseEntryValue(raw)
			switch e.Kind {
			case RequestPath:
				continue
			case Variable:
				value, ok := vars[e.Value]
				if !ok {
					r.log.Warn("variable not set", zap.String("variable", e.Value))
					value = runstate.NotSet
				}
				vars[name] = value
			default:
				vars[name] = r.lookup(response, Expr{Kind: ResponsePath, Value: e.Value}, "response")
			}
			captured[name] = vars[name]
		}

		maps.Copy(vars, fromRequest)
		maps.Copy(captured, fromRequest)
	})

	for name, value := range captured {
		r.log.Debug("captured output", zap.String("variable", name), zap.String("value", value))
	}
	return captured
}
