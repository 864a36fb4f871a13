package customtest

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/waftester/contractfuzz/pkg/dsl"
	"github.com/waftester/contractfuzz/pkg/runstate"
)

// DefaultRefDataFile is where WriteRefData writes when no name is given.
const DefaultRefDataFile = "refData_custom.yml"

// RefData remembers, per path, which payload fields of an executed
// definition referenced a variable, so the values they resolved to can be
// written out at the end of a run.
type RefData struct {
	mu    sync.Mutex
	paths map[string]map[string]string
}

// NewRefData returns an empty collector.
func NewRefData() *RefData {
	return &RefData{paths: make(map[string]map[string]string)}
}

// Record notes the variable references of def for path. A later record for
// the same path replaces the earlier one.
func (r *RefData) Record(path string, def Definition) {
	refs := make(map[string]string)
	for _, e := range def.Entries {
		if IsReserved(e.Key) || len(e.Values) == 0 {
			continue
		}
		if !strings.HasPrefix(e.Values[0], "${") {
			continue
		}
		if expr := dsl.Parse(e.Values[0]); expr.Kind == dsl.Variable {
			refs[e.Key] = expr.Value
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(refs) == 0 {
		delete(r.paths, path)
		return
	}
	r.paths[path] = refs
}

// Resolve returns path -> field -> current variable value (NotSet when the
// variable was never bound).
func (r *RefData) Resolve(vars *runstate.Variables) map[string]map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]string, len(r.paths))
	for path, refs := range r.paths {
		fields := make(map[string]string, len(refs))
		for field, name := range refs {
			fields[field] = vars.Get(name)
		}
		out[path] = fields
	}
	return out
}

// WriteRefData writes the resolved reference data as YAML to filename.
func (r *RefData) WriteRefData(filename string, vars *runstate.Variables) error {
	if filename == "" {
		filename = DefaultRefDataFile
	}
	data, err := yaml.Marshal(r.Resolve(vars))
	if err != nil {
		return fmt.Errorf("encode reference data: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write reference data: %w", err)
	}
	return nil
}
