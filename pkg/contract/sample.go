package contract

import (
	"maps"
	"slices"
	"strings"
)

// maxDepth bounds sample generation and property walks on recursive schemas.
const maxDepth = 8

// sample builds an example value for s. Request samples leave out
// readOnly properties.
func (p *Parser) sample(doc *Document, s *Schema, forRequest bool, depth int) any {
	s = p.schema(doc, s)
	if s == nil || depth > maxDepth {
		return nil
	}
	switch {
	case s.Example != nil:
		return s.Example
	case s.Default != nil:
		return s.Default
	case len(s.Enum) > 0:
		return s.Enum[0]
	case len(s.AllOf) > 0:
		merged := map[string]any{}
		for _, part := range s.AllOf {
			if m, ok := p.sample(doc, part, forRequest, depth+1).(map[string]any); ok {
				maps.Copy(merged, m)
			}
		}
		return merged
	case len(s.OneOf) > 0:
		return p.sample(doc, s.OneOf[0], forRequest, depth+1)
	case len(s.AnyOf) > 0:
		return p.sample(doc, s.AnyOf[0], forRequest, depth+1)
	}

	switch schemaType(s) {
	case "object":
		obj := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			resolved := p.schema(doc, prop)
			if resolved == nil || (forRequest && resolved.ReadOnly) {
				continue
			}
			if v := p.sample(doc, resolved, forRequest, depth+1); v != nil {
				obj[name] = v
			}
		}
		if len(s.Properties) == 0 {
			if extra := additionalSchema(s.AdditionalProperties); extra != nil {
				obj["key"] = p.sample(doc, extra, forRequest, depth+1)
			}
		}
		return obj
	case "array":
		if item := p.sample(doc, s.Items, forRequest, depth+1); item != nil {
			return []any{item}
		}
		return []any{}
	case "integer":
		if s.Minimum != nil {
			return int64(*s.Minimum)
		}
		return 1
	case "number":
		if s.Minimum != nil {
			return *s.Minimum
		}
		return 1.5
	case "boolean":
		return true
	case "string":
		return stringSample(s.Format)
	}
	return nil
}

func stringSample(format string) string {
	switch strings.ToLower(format) {
	case "date":
		return "2024-01-01"
	case "date-time":
		return "2024-01-01T00:00:00Z"
	case "email":
		return "user@example.com"
	case "uuid":
		return "3fa85f64-5717-4562-b3fc-2c963f66afa6"
	case "uri", "url":
		return "https://example.com"
	case "ipv4":
		return "192.0.2.1"
	case "byte":
		return "ZXhhbXBsZQ=="
	}
	return "string"
}

func schemaType(s *Schema) string {
	if s.Type != "" {
		return s.Type
	}
	if len(s.Properties) > 0 || s.AdditionalProperties != nil {
		return "object"
	}
	if s.Items != nil {
		return "array"
	}
	return ""
}

// walkProperties records every property below s under its '#'-joined
// name. visit is called with the joined name, the leaf name and the
// resolved schema.
func (p *Parser) walkProperties(doc *Document, s *Schema, prefix string, depth int, visit func(name, leaf string, s *Schema)) {
	s = p.schema(doc, s)
	if s == nil || depth > maxDepth {
		return
	}
	for _, group := range [][]*Schema{s.AllOf, s.OneOf, s.AnyOf} {
		for _, part := range group {
			p.walkProperties(doc, part, prefix, depth+1, visit)
		}
	}
	if schemaType(s) == "array" {
		p.walkProperties(doc, s.Items, prefix, depth+1, visit)
		return
	}
	for _, leaf := range slices.Sorted(maps.Keys(s.Properties)) {
		prop := p.schema(doc, s.Properties[leaf])
		if prop == nil {
			continue
		}
		name := leaf
		if prefix != "" {
			name = prefix + "#" + leaf
		}
		visit(name, leaf, prop)
		p.walkProperties(doc, prop, name, depth+1, visit)
	}
}
