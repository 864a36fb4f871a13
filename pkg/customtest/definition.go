// Package customtest loads, validates and expands custom test definitions.
//
// A definition is one named test under a contract path in a custom test
// file. Values are kept as strings in declaration order; a YAML list marks
// the fan-out field whose elements each produce one concrete Case.
// Nested YAML mappings are rendered in the `{k=v, k2=v2}` entry form that
// the dsl package flattens.
//
// Usage:
//
//	file, err := customtest.LoadFile("customFuzzer.yml")
//	for key, def := range file.ForPath("/pets") {
//	    cases, err := customtest.Expand(def) // *SkipError when invalid
//	}
package customtest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one key of a definition before expansion.
type Entry struct {
	Key    string
	Values []string
	// List is set when the value was declared as a YAML sequence.
	List bool
}

// Definition is an ordered set of entries.
type Definition struct {
	Entries []Entry
}

// NewDefinition builds a definition from entries, keeping their order.
func NewDefinition(entries ...Entry) Definition {
	return Definition{Entries: entries}
}

// Scalar is a single-valued entry.
func Scalar(key, value string) Entry {
	return Entry{Key: key, Values: []string{value}}
}

// List is a fan-out entry.
func List(key string, values ...string) Entry {
	return Entry{Key: key, Values: values, List: true}
}

// Get returns the first value of key.
func (d Definition) Get(key string) (string, bool) {
	for _, e := range d.Entries {
		if e.Key == key {
			if len(e.Values) == 0 {
				return "", true
			}
			return e.Values[0], true
		}
	}
	return "", false
}

// Control returns the value of a control entry.
func (d Definition) Control(kind ControlKind) (string, bool) {
	return d.Get(string(kind))
}

// Lookup returns the entry for key.
func (d Definition) Lookup(key string) (Entry, bool) {
	for _, e := range d.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// With returns a copy of d with key set to e, replacing an existing entry
// in place or appending a new one.
func (d Definition) With(e Entry) Definition {
	out := Definition{Entries: make([]Entry, 0, len(d.Entries)+1)}
	replaced := false
	for _, cur := range d.Entries {
		if cur.Key == e.Key {
			out.Entries = append(out.Entries, e)
			replaced = true
			continue
		}
		out.Entries = append(out.Entries, cur)
	}
	if !replaced {
		out.Entries = append(out.Entries, e)
	}
	return out
}

// Without returns a copy of d without the given keys.
func (d Definition) Without(keys ...string) Definition {
	out := Definition{Entries: make([]Entry, 0, len(d.Entries))}
	for _, cur := range d.Entries {
		drop := false
		for _, k := range keys {
			if cur.Key == k {
				drop = true
				break
			}
		}
		if !drop {
			out.Entries = append(out.Entries, cur)
		}
	}
	return out
}

// UnmarshalYAML keeps the mapping order of the definition.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("custom test definition must be a mapping, got %s at line %d",
			nodeKind(node), node.Line)
	}
	d.Entries = make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		entry := Entry{Key: key.Value}
		if value.Kind == yaml.SequenceNode {
			entry.List = true
			for _, item := range value.Content {
				entry.Values = append(entry.Values, render(item))
			}
		} else {
			entry.Values = []string{render(value)}
		}
		d.Entries = append(d.Entries, entry)
	}
	return nil
}

// MarshalYAML writes the definition back as an ordered mapping.
func (d Definition) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range d.Entries {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Key})
		if e.List {
			seq := &yaml.Node{Kind: yaml.SequenceNode}
			for _, v := range e.Values {
				seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
			}
			node.Content = append(node.Content, seq)
			continue
		}
		value := ""
		if len(e.Values) > 0 {
			value = e.Values[0]
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value})
	}
	return node, nil
}

// render turns a YAML value into the string form the DSL consumes:
// scalars as written (null as "null"), mappings as `{k=v, k2=v2}` and
// sequences as `[a, b]`.
func render(n *yaml.Node) string {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias != nil {
			return render(n.Alias)
		}
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "null"
		}
		return n.Value
	case yaml.MappingNode:
		parts := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			parts = append(parts, n.Content[i].Value+"="+render(n.Content[i+1]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			parts = append(parts, render(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	}
	return "node"
}
