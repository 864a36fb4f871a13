package contract

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/pipeline"
	"github.com/waftester/contractfuzz/pkg/respcode"
)

// methodOrder runs creations first and deletions last on every path.
var methodOrder = []string{"POST", "GET", "PUT", "PATCH", "HEAD", "OPTIONS", "DELETE"}

// Load parses the contract file at path and returns its operations.
func Load(path string, opts ...Option) ([]pipeline.PathData, error) {
	p := NewParser(opts...)
	doc, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return p.Operations(doc), nil
}

// Operations returns one PathData per operation, paths in lexical order
// and methods in methodOrder.
func (p *Parser) Operations(doc *Document) []pipeline.PathData {
	var out []pipeline.PathData
	for _, path := range slices.Sorted(maps.Keys(doc.Paths)) {
		item := doc.Paths[path]
		ops := map[string]*Operation{
			"GET": item.Get, "POST": item.Post, "PUT": item.Put, "DELETE": item.Delete,
			"PATCH": item.Patch, "OPTIONS": item.Options, "HEAD": item.Head,
		}
		for _, method := range methodOrder {
			op := ops[method]
			if op == nil {
				continue
			}
			params := p.parameters(doc, item.Parameters, op.Parameters)
			out = append(out, p.pathData(doc, path, method, op, params))
		}
	}
	p.log.Info("contract loaded", zap.Int("operations", len(out)))
	return out
}

// parameters resolves references and merges path-level parameters into
// the operation's. Operation params override path params with the same
// name and location.
func (p *Parser) parameters(doc *Document, pathParams, opParams []Parameter) []Parameter {
	resolve := func(in []Parameter) []Parameter {
		out := make([]Parameter, 0, len(in))
		for _, param := range in {
			if param.Ref != "" {
				resolved := p.ResolveParamRef(doc, param.Ref)
				if resolved == nil {
					p.log.Debug("unresolvable parameter reference", zap.String("ref", param.Ref))
					continue
				}
				param = *resolved
			}
			out = append(out, param)
		}
		return out
	}
	merged := resolve(opParams)
	seen := make(map[string]bool, len(merged))
	for _, param := range merged {
		seen[param.In+":"+param.Name] = true
	}
	for _, param := range resolve(pathParams) {
		if !seen[param.In+":"+param.Name] {
			merged = append(merged, param)
		}
	}
	return merged
}

func (p *Parser) pathData(doc *Document, path, method string, op *Operation, params []Parameter) pipeline.PathData {
	data := pipeline.PathData{
		Path:       path,
		Method:     method,
		Headers:    map[string]string{"Accept": "application/json"},
		Examples:   map[string][]string{},
		Properties: map[string]pipeline.Property{},
	}

	query := map[string]any{}
	for _, param := range params {
		switch param.In {
		case "header":
			data.Headers[param.Name] = fmt.Sprint(p.paramValue(doc, param))
		case "query":
			if param.Required || param.Example != nil {
				query[param.Name] = p.paramValue(doc, param)
			}
		}
	}

	additional := map[string]bool{}
	if contentType, media, ok := jsonMedia(op.RequestBody); ok {
		data.Headers["Content-Type"] = contentType
		body := media.Example
		if body == nil {
			body = p.sample(doc, media.Schema, true, 0)
		}
		data.Payload = marshal(body)
		p.walkProperties(doc, media.Schema, "", 0, func(name, leaf string, s *Schema) {
			data.Properties[name] = pipeline.Property{Type: schemaType(s), Format: s.Format}
			if allowsAdditional(s.AdditionalProperties) {
				additional[leaf] = true
			}
		})
		if len(query) > 0 {
			data.Query = make(map[string]string, len(query))
			for k, v := range query {
				data.Query[k] = fmt.Sprint(v)
			}
		}
	} else if len(query) > 0 {
		// Bodyless operations carry their query parameters as the payload.
		data.Payload = marshal(query)
		for _, param := range params {
			if _, ok := query[param.Name]; ok && param.In == "query" {
				s := p.schema(doc, param.Schema)
				if s != nil {
					data.Properties[param.Name] = pipeline.Property{Type: schemaType(s), Format: s.Format}
				}
			}
		}
	}

	for _, code := range slices.Sorted(maps.Keys(op.Responses)) {
		if !respcode.IsValid(code) {
			continue
		}
		data.ResponseCodes = append(data.ResponseCodes, code)
		_, media, ok := jsonMedia(&RequestBody{Content: op.Responses[code].Content})
		if !ok {
			continue
		}
		if examples := p.examples(doc, media); len(examples) > 0 {
			data.Examples[code] = examples
		}
		p.walkProperties(doc, media.Schema, "", 0, func(_, leaf string, s *Schema) {
			if allowsAdditional(s.AdditionalProperties) {
				additional[leaf] = true
			}
		})
	}
	data.AdditionalProperties = slices.Sorted(maps.Keys(additional))
	return data
}

// examples returns the documented examples of media, or one generated
// from its schema.
func (p *Parser) examples(doc *Document, media MediaType) []string {
	if media.Example != nil {
		return []string{marshal(media.Example)}
	}
	if len(media.Examples) > 0 {
		out := make([]string, 0, len(media.Examples))
		for _, name := range slices.Sorted(maps.Keys(media.Examples)) {
			if v := media.Examples[name].Value; v != nil {
				out = append(out, marshal(v))
			}
		}
		return out
	}
	if v := p.sample(doc, media.Schema, false, 0); v != nil {
		return []string{marshal(v)}
	}
	return nil
}

func (p *Parser) paramValue(doc *Document, param Parameter) any {
	if param.Example != nil {
		return param.Example
	}
	if v := p.sample(doc, param.Schema, true, 0); v != nil {
		return v
	}
	return "string"
}

// jsonMedia picks the JSON content of body: application/json first, then
// any other JSON media type.
func jsonMedia(body *RequestBody) (string, MediaType, bool) {
	if body == nil || len(body.Content) == 0 {
		return "", MediaType{}, false
	}
	if m, ok := body.Content["application/json"]; ok {
		return "application/json", m, true
	}
	for _, ct := range slices.Sorted(maps.Keys(body.Content)) {
		if strings.Contains(ct, "json") {
			return ct, body.Content[ct], true
		}
	}
	return "", MediaType{}, false
}

func marshal(v any) string {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
