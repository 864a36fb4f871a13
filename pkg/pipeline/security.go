package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/customtest"
	"github.com/waftester/contractfuzz/pkg/dsl"
	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/registry"
)

// SecurityFuzzerName is the fuzzer name recorded on every security test.
const SecurityFuzzerName = "SecurityFuzzer"

// SecurityFuzzer sends every line of a strings file into each targeted
// field. Targets are named explicitly (targetFields) or selected by
// declared type or format (targetFieldsTypes).
type SecurityFuzzer struct {
	base
	file customtest.File

	mu    sync.Mutex
	lines map[string][]string
}

// NewSecurityFuzzer returns a fuzzer running the definitions in file.
func NewSecurityFuzzer(engine *Engine, reg *registry.Registry, file customtest.File, opts ...FuzzerOption) *SecurityFuzzer {
	return &SecurityFuzzer{
		base:  newBase(SecurityFuzzerName, engine, reg, opts),
		file:  file,
		lines: make(map[string][]string),
	}
}

// Name implements Fuzzer.
func (f *SecurityFuzzer) Name() string { return f.name }

// Fuzz runs every security definition for data's path.
func (f *SecurityFuzzer) Fuzz(ctx context.Context, data PathData) error {
	defs := f.file.ForPath(data.Path)
	if len(defs) == 0 {
		f.log.Debug("path not configured in security fuzzer file", zap.String("path", data.Path))
		return nil
	}
	for _, key := range customtest.SortedKeys(defs) {
		def := defs[key]
		if !appliesTo(def, data) {
			continue
		}
		f.fuzzDefinition(ctx, data, key, def)
	}
	return nil
}

func (f *SecurityFuzzer) fuzzDefinition(ctx context.Context, data PathData, key string, def customtest.Definition) {
	stringsFile, _ := def.Control(customtest.StringsFile)
	lines, err := f.readLines(stringsFile)
	if err != nil {
		f.skip(data, key, &customtest.SkipError{Reason: customtest.ReasonStringsFile, Detail: err.Error()})
		return
	}

	// Strings-file lines are sent as written, never resolved.
	values := make([]string, len(lines))
	for i, line := range lines {
		values[i] = dsl.Quote(line)
	}

	description, ok := def.Control(customtest.Description)
	if !ok || description == "null" {
		description = fmt.Sprintf("send request with custom values supplied. Test key [%s]", key)
	}
	stripped := def.Without(
		string(customtest.TargetFields),
		string(customtest.TargetFieldsTypes),
		string(customtest.StringsFile))

	for _, target := range TargetFields(def, data) {
		f.log.Info("fuzzing field", zap.String("path", data.Path), zap.String("field", target))
		perField := stripped.
			With(customtest.List(target, values...)).
			With(customtest.Scalar(string(customtest.Description), description+", field ["+target+"]"))
		f.execute(ctx, data, key, perField, target)
	}
}

// TargetFields returns the fields a security definition targets: declared
// properties whose type or format is listed in targetFieldsTypes and that
// exist in the base payload, followed by the explicit targetFields.
func TargetFields(def customtest.Definition, data PathData) []string {
	types := listEntry(def, customtest.TargetFieldsTypes)
	var targets []string
	if len(types) > 0 {
		names := make([]string, 0, len(data.Properties))
		for name := range data.Properties {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			p := data.Properties[name]
			if !slices.Contains(types, strings.ToLower(p.Type)) && !slices.Contains(types, strings.ToLower(p.Format)) {
				continue
			}
			if _, ok := jsonutil.Lookup(data.Payload, name); ok {
				targets = append(targets, name)
			}
		}
	}
	for _, name := range listEntry(def, customtest.TargetFields) {
		if !slices.Contains(targets, name) {
			targets = append(targets, name)
		}
	}
	return targets
}

// listEntry reads a list-valued control declared either as a YAML
// sequence or as a bracketed, comma separated string.
func listEntry(def customtest.Definition, kind customtest.ControlKind) []string {
	e, ok := def.Lookup(string(kind))
	if !ok {
		return nil
	}
	var out []string
	for _, v := range e.Values {
		v = strings.NewReplacer("[", "", "]", "", " ", "").Replace(v)
		for _, item := range strings.Split(v, ",") {
			if item != "" && item != "null" {
				out = append(out, item)
			}
		}
	}
	return out
}

func (f *SecurityFuzzer) readLines(path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lines, ok := f.lines[path]; ok {
		return lines, nil
	}
	if path == "" || path == "null" {
		return nil, fmt.Errorf("no %s given", customtest.StringsFile)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("invalid %s [%s]: %w", customtest.StringsFile, path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s [%s]: %w", customtest.StringsFile, path, err)
	}
	f.log.Info("strings file parsed", zap.String("file", path), zap.Int("entries", len(lines)))
	f.lines[path] = lines
	return lines, nil
}
