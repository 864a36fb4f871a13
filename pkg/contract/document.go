// Package contract loads OpenAPI 3 documents and turns each operation into
// the pipeline.PathData the fuzzers run against.
package contract

// Document is a parsed OpenAPI 3 contract.
type Document struct {
	OpenAPI    string              `json:"openapi" yaml:"openapi"`
	Swagger    string              `json:"swagger,omitempty" yaml:"swagger,omitempty"`
	Info       Info                `json:"info" yaml:"info"`
	Servers    []Server            `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components *Components         `json:"components,omitempty" yaml:"components,omitempty"`
}

// Info contains API metadata
type Info struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// Server represents a server definition
type Server struct {
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PathItem holds all operations of one path.
type PathItem struct {
	Get        *Operation  `json:"get,omitempty" yaml:"get,omitempty"`
	Post       *Operation  `json:"post,omitempty" yaml:"post,omitempty"`
	Put        *Operation  `json:"put,omitempty" yaml:"put,omitempty"`
	Delete     *Operation  `json:"delete,omitempty" yaml:"delete,omitempty"`
	Patch      *Operation  `json:"patch,omitempty" yaml:"patch,omitempty"`
	Options    *Operation  `json:"options,omitempty" yaml:"options,omitempty"`
	Head       *Operation  `json:"head,omitempty" yaml:"head,omitempty"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Operation is a single API operation.
type Operation struct {
	OperationID string              `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Summary     string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses,omitempty" yaml:"responses,omitempty"`
}

// Parameter is an operation parameter.
type Parameter struct {
	Name     string  `json:"name" yaml:"name"`
	In       string  `json:"in" yaml:"in"` // query, path, header, cookie
	Required bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Schema   *Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
	Example  any     `json:"example,omitempty" yaml:"example,omitempty"`
	Ref      string  `json:"$ref,omitempty" yaml:"$ref,omitempty"`
}

// RequestBody is the request body of an operation.
type RequestBody struct {
	Required bool                 `json:"required,omitempty" yaml:"required,omitempty"`
	Content  map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// MediaType is the schema and examples of one content type.
type MediaType struct {
	Schema   *Schema            `json:"schema,omitempty" yaml:"schema,omitempty"`
	Example  any                `json:"example,omitempty" yaml:"example,omitempty"`
	Examples map[string]Example `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Example is a named example value.
type Example struct {
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Schema is the subset of JSON Schema the loader understands.
type Schema struct {
	Type       string             `json:"type,omitempty" yaml:"type,omitempty"`
	Format     string             `json:"format,omitempty" yaml:"format,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Required   []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Enum       []any              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Ref        string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Example    any                `json:"example,omitempty" yaml:"example,omitempty"`
	Default    any                `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum    *float64           `json:"minimum,omitempty" yaml:"minimum,omitempty"`

	AllOf []*Schema `json:"allOf,omitempty" yaml:"allOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty" yaml:"anyOf,omitempty"`

	ReadOnly bool `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`

	// AdditionalProperties is either a boolean or a schema.
	AdditionalProperties any `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// Response is a documented response.
type Response struct {
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// Components holds reusable definitions.
type Components struct {
	Schemas    map[string]*Schema    `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Parameters map[string]*Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// allowsAdditional reports whether an additionalProperties value opens
// the object to undeclared keys.
func allowsAdditional(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		return true
	}
}

// additionalSchema returns the schema of undeclared values, if one is given.
func additionalSchema(v any) *Schema {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	s := &Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = t
	}
	if f, ok := m["format"].(string); ok {
		s.Format = f
	}
	if r, ok := m["$ref"].(string); ok {
		s.Ref = r
	}
	return s
}
