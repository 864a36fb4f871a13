package customtest

import (
	"sync"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/dsl"
	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/respcode"
)

// Field is one entry of a concrete Case: a Payload or a Control.
type Field interface {
	FieldName() string
	FieldValue() string
	isField()
}

// Payload is a value written into the request body or path.
type Payload struct {
	Name  string
	Value string
}

// Control is a reserved-word entry steering the test.
type Control struct {
	Kind  ControlKind
	Value string
}

func (p Payload) FieldName() string  { return p.Name }
func (p Payload) FieldValue() string { return p.Value }
func (Payload) isField()             {}

func (c Control) FieldName() string  { return string(c.Kind) }
func (c Control) FieldValue() string { return c.Value }
func (Control) isField()             {}

// Case is one concrete, single-valued test case.
type Case struct {
	Fields []Field
}

// Control returns the value of a control field.
func (c Case) Control(kind ControlKind) (string, bool) {
	for _, f := range c.Fields {
		if ctl, ok := f.(Control); ok && ctl.Kind == kind {
			return ctl.Value, true
		}
	}
	return "", false
}

// Payload returns the payload fields in definition order.
func (c Case) Payload() []Payload {
	var out []Payload
	for _, f := range c.Fields {
		if p, ok := f.(Payload); ok {
			out = append(out, p)
		}
	}
	return out
}

// Field returns the value of any field by name.
func (c Case) Field(name string) (string, bool) {
	for _, f := range c.Fields {
		if f.FieldName() == name {
			return f.FieldValue(), true
		}
	}
	return "", false
}

// Validate checks a definition before expansion. Every violation is a
// *SkipError.
func Validate(def Definition) error {
	code, _ := def.Control(ExpectedResponseCode)
	if !respcode.IsValid(code) {
		return skip(ReasonResponseCode, "expected response code [%s] is not a valid code or range", code)
	}
	lists := 0
	for _, e := range def.Entries {
		if e.List {
			lists++
		}
	}
	if lists > 1 {
		return skip(ReasonFanOut, "%d fields hold a list of values, at most one is allowed", lists)
	}
	if method, ok := def.Control(HTTPMethod); !ok || method == "" || method == "null" {
		return skip(ReasonMissingMethod, "no %s given", HTTPMethod)
	}
	return nil
}

// Expand validates def and returns one Case per element of its fan-out
// field, in list order, or a single Case when there is none.
func Expand(def Definition) ([]Case, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}

	fanOut := -1
	for i, e := range def.Entries {
		if e.List {
			fanOut = i
			break
		}
	}
	if fanOut < 0 {
		return []Case{build(def, -1, "")}, nil
	}

	values := def.Entries[fanOut].Values
	cases := make([]Case, 0, len(values))
	for _, v := range values {
		cases = append(cases, build(def, fanOut, v))
	}
	return cases, nil
}

func build(def Definition, fanOut int, fanValue string) Case {
	c := Case{Fields: make([]Field, 0, len(def.Entries))}
	for i, e := range def.Entries {
		value := fanValue
		if i != fanOut {
			value = ""
			if len(e.Values) > 0 {
				value = e.Values[0]
			}
		}
		if kind, ok := ControlFor(e.Key); ok {
			c.Fields = append(c.Fields, Control{Kind: kind, Value: value})
		} else {
			c.Fields = append(c.Fields, Payload{Name: e.Key, Value: value})
		}
	}
	return c
}

// CheckOneOf verifies that a oneOfSelection directive applies to
// basePayload. The selection is substituted the way the pipeline would; a
// substitution that leaves the decoded payload unchanged only passes when
// the field already holds the selected value. Definitions without the
// directive pass.
func CheckOneOf(def Definition, basePayload string) error {
	selection, ok := def.Control(OneOfSelection)
	if !ok || selection == "null" {
		return nil
	}
	field, value, err := dsl.ParseSelection(selection)
	if err != nil {
		return skip(ReasonOneOf, "%v", err)
	}
	updated, _ := jsonutil.Replace(basePayload, field, value)
	if !jsonutil.SemanticEqual(basePayload, updated) {
		return nil
	}
	if _, present := jsonutil.Lookup(basePayload, field); !present {
		return skip(ReasonOneOf, "field [%s] of %s is not part of the payload", field, OneOfSelection)
	}
	return nil
}

// Expander expands definitions for a contract path and warns when a
// reserved word shadows a declared payload property.
type Expander struct {
	log    *zap.Logger
	warned sync.Map
}

// NewExpander returns an Expander logging to log (nil for no logging).
func NewExpander(log *zap.Logger) *Expander {
	if log == nil {
		log = zap.NewNop()
	}
	return &Expander{log: log}
}

// Expand checks reserved-word collisions against the declared property
// types of path and then expands def. The colliding key stays a control.
func (x *Expander) Expand(path string, def Definition, propertyTypes map[string]string) ([]Case, error) {
	for _, e := range def.Entries {
		if !IsReserved(e.Key) {
			continue
		}
		if _, declared := propertyTypes[e.Key]; !declared {
			continue
		}
		if _, seen := x.warned.LoadOrStore(path+"\x00"+e.Key, struct{}{}); seen {
			continue
		}
		x.log.Warn("payload property shadowed by reserved word",
			zap.String("path", path),
			zap.String("word", e.Key))
	}
	return Expand(def)
}
