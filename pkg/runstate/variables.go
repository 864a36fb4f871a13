// Package runstate holds the mutable state shared by every test case of a
// run: the variable table filled by DSL output capture and the per-path
// stack of successful creation responses.
//
// State is created once per run and passed explicitly to the components
// that read or write it. All operations are safe for concurrent use.
//
// Usage:
//
//	st := runstate.NewState()
//	st.Vars.Set("petId", "42")
//	id := st.Vars.Get("petId")       // "42"
//	miss := st.Vars.Get("ownerId")   // runstate.NotSet
package runstate

import (
	"maps"
	"sync"
)

// NotSet is returned by every lookup that cannot be resolved. Callers must
// compare against it explicitly; a miss is never reported as an error.
const NotSet = "NOT_SET"

// Variables is the run-wide variable table.
type Variables struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewVariables returns an empty variable table.
func NewVariables() *Variables {
	return &Variables{vars: make(map[string]string)}
}

// Get returns the value bound to name, or NotSet.
func (v *Variables) Get(name string) string {
	if value, ok := v.Lookup(name); ok {
		return value
	}
	return NotSet
}

// Lookup returns the value bound to name and whether it was bound.
func (v *Variables) Lookup(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	value, ok := v.vars[name]
	return value, ok
}

// Set binds name to value, replacing any previous binding.
func (v *Variables) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vars[name] = value
}

// Merge binds every entry of values; existing names are overwritten.
func (v *Variables) Merge(values map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	maps.Copy(v.vars, values)
}

// Update runs fn with exclusive access to the table so a capture that
// reads and writes several variables is applied atomically.
func (v *Variables) Update(fn func(vars map[string]string)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v.vars)
}

// Snapshot returns a copy of the table.
func (v *Variables) Snapshot() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.vars)
}

// Len returns the number of bound variables.
func (v *Variables) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vars)
}

// State bundles the shared tables of one run.
type State struct {
	Vars  *Variables
	Prior *PriorSuccess
}

// NewState returns a fresh, empty run state.
func NewState() *State {
	return &State{
		Vars:  NewVariables(),
		Prior: NewPriorSuccess(),
	}
}
