package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/regexcache"
)

// Parser parses contracts and resolves their references.
type Parser struct {
	doc *Document
	// Resolved schemas cache
	resolved map[string]*Schema
	log      *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the parser's logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// NewParser creates a new contract parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{resolved: make(map[string]*Schema), log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile parses a contract from a file
func (p *Parser) ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return p.ParseJSON(data)
	case ".yaml", ".yml":
		return p.ParseYAML(data)
	default:
		if jsonutil.Valid(data) {
			return p.ParseJSON(data)
		}
		return p.ParseYAML(data)
	}
}

// ParseJSON parses a contract from JSON data
func (p *Parser) ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := jsonutil.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse contract JSON: %w", err)
	}
	return &doc, checkDocument(&doc)
}

// ParseYAML parses a contract from YAML data
func (p *Parser) ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse contract YAML: %w", err)
	}
	return &doc, checkDocument(&doc)
}

func checkDocument(doc *Document) error {
	if doc.Swagger != "" {
		return fmt.Errorf("%w: swagger %s documents must be converted to OpenAPI 3", ErrUnsupportedContract, doc.Swagger)
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.") {
		return fmt.Errorf("%w: openapi version %q", ErrUnsupportedContract, doc.OpenAPI)
	}
	if len(doc.Paths) == 0 {
		return fmt.Errorf("%w: no paths declared", ErrUnsupportedContract)
	}
	return nil
}

// ResolveRef resolves a $ref reference to its schema. Circular chains
// resolve to nil.
func (p *Parser) ResolveRef(doc *Document, ref string) *Schema {
	if ref == "" {
		return nil
	}
	if p.doc != doc {
		p.doc = doc
		clear(p.resolved)
	}
	if schema, ok := p.resolved[ref]; ok {
		return schema
	}
	// In progress; breaks circular chains.
	p.resolved[ref] = nil

	matches := regexcache.MustGet(`^#/components/schemas/(.+)$`).FindStringSubmatch(ref)
	if len(matches) != 2 || doc.Components == nil {
		p.log.Debug("unresolvable schema reference", zap.String("ref", ref))
		return nil
	}
	schema, ok := doc.Components.Schemas[matches[1]]
	if !ok || schema == nil {
		p.log.Debug("unknown schema reference", zap.String("ref", ref))
		return nil
	}
	if schema.Ref != "" {
		schema = p.ResolveRef(doc, schema.Ref)
	}
	p.resolved[ref] = schema
	return schema
}

// ResolveParamRef resolves a $ref reference to a Parameter.
func (p *Parser) ResolveParamRef(doc *Document, ref string) *Parameter {
	seen := make(map[string]bool)
	for ref != "" && !seen[ref] {
		seen[ref] = true
		if doc.Components == nil {
			return nil
		}
		matches := regexcache.MustGet(`^#/components/parameters/(.+)$`).FindStringSubmatch(ref)
		if len(matches) != 2 {
			return nil
		}
		param, ok := doc.Components.Parameters[matches[1]]
		if !ok || param == nil {
			return nil
		}
		if param.Ref == "" {
			return param
		}
		ref = param.Ref
	}
	return nil
}

// schema follows s's reference, if any.
func (p *Parser) schema(doc *Document, s *Schema) *Schema {
	if s != nil && s.Ref != "" {
		return p.ResolveRef(doc, s.Ref)
	}
	return s
}

// BaseURL returns the first server URL from the document
func BaseURL(doc *Document) string {
	if len(doc.Servers) > 0 {
		return strings.TrimSuffix(doc.Servers[0].URL, "/")
	}
	return ""
}
