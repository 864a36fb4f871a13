package customtest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/waftester/contractfuzz/pkg/runstate"
)

const sampleFile = `
/pets:
  test_2:
    description: create a dog
    name: [Rex, Fido, Bella]
    expectedResponseCode: 201
    httpMethod: POST
    output:
      petId: id
    verify:
      name: ${request.name}
  test_1:
    name: Tom
    expectedResponseCode: 4XX
    httpMethod: POST
    tag: ~
/pets/{id}:
  test_1:
    id: ${petId}
    expectedResponseCode: 204
    httpMethod: DELETE
all:
  generic:
    expectedResponseCode: 200
    httpMethod: GET
`

func loadSample(t *testing.T) File {
	t.Helper()
	f, err := Parse([]byte(sampleFile))
	require.NoError(t, err)
	return f
}

func TestParseKeepsEntryOrder(t *testing.T) {
	t.Parallel()

	f := loadSample(t)
	def := f["/pets"]["test_2"]

	keys := make([]string, 0, len(def.Entries))
	for _, e := range def.Entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"description", "name", "expectedResponseCode", "httpMethod", "output", "verify"}, keys)

	name, ok := def.Lookup("name")
	require.True(t, ok)
	assert.True(t, name.List)
	assert.Equal(t, []string{"Rex", "Fido", "Bella"}, name.Values)

	output, _ := def.Control(Output)
	assert.Equal(t, "{petId=id}", output)
	verify, _ := def.Control(Verify)
	assert.Equal(t, "{name=${request.name}}", verify)

	tag, _ := f["/pets"]["test_1"].Get("tag")
	assert.Equal(t, "null", tag)
}

func TestParseRejectsNonMapping(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("/pets:\n  t1: [a, b]\n"))
	assert.Error(t, err)
}

func TestForPathFallsBackToAll(t *testing.T) {
	t.Parallel()

	f := loadSample(t)
	assert.Len(t, f.ForPath("/pets"), 2)
	assert.Contains(t, f.ForPath("/owners"), "generic")
	assert.Equal(t, []string{"test_1", "test_2"}, SortedKeys(f.ForPath("/pets")))
}

func fieldMap(c Case) map[string]string {
	out := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		out[f.FieldName()] = f.FieldValue()
	}
	return out
}

func TestExpandWithoutFanOut(t *testing.T) {
	t.Parallel()

	def := loadSample(t)["/pets"]["test_1"]
	cases, err := Expand(def)
	require.NoError(t, err)
	require.Len(t, cases, 1)

	got := fieldMap(cases[0])
	assert.Len(t, got, len(def.Entries))
	assert.Equal(t, "Tom", got["name"])

	assert.Equal(t, []Payload{{Name: "name", Value: "Tom"}, {Name: "tag", Value: "null"}}, cases[0].Payload())
	code, ok := cases[0].Control(ExpectedResponseCode)
	require.True(t, ok)
	assert.Equal(t, "4XX", code)
}

func TestExpandFanOutKeepsOrder(t *testing.T) {
	t.Parallel()

	def := loadSample(t)["/pets"]["test_2"]
	cases, err := Expand(def)
	require.NoError(t, err)
	require.Len(t, cases, 3)

	for i, want := range []string{"Rex", "Fido", "Bella"} {
		name, ok := cases[i].Field("name")
		require.True(t, ok)
		assert.Equal(t, want, name)

		// Every other field is identical across cases.
		other := fieldMap(cases[i])
		delete(other, "name")
		first := fieldMap(cases[0])
		delete(first, "name")
		assert.Equal(t, first, other)
	}
}

func TestControlWordsNeverBecomePayload(t *testing.T) {
	t.Parallel()

	def := NewDefinition(
		Scalar("expectedResponseCode", "200"),
		Scalar("httpMethod", "POST"),
		Scalar("description", "d"),
		Scalar("verify", "{id=1}"),
		Scalar("field", "v"),
	)
	cases, err := Expand(def)
	require.NoError(t, err)
	assert.Equal(t, []Payload{{Name: "field", Value: "v"}}, cases[0].Payload())
}

func TestValidateSkips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		def    Definition
		reason string
	}{
		{
			name: "bad code",
			def: NewDefinition(
				Scalar("expectedResponseCode", "6XX"),
				Scalar("httpMethod", "GET")),
			reason: ReasonResponseCode,
		},
		{
			name:   "missing code",
			def:    NewDefinition(Scalar("httpMethod", "GET")),
			reason: ReasonResponseCode,
		},
		{
			name: "two fan-out fields",
			def: NewDefinition(
				Scalar("expectedResponseCode", "200"),
				Scalar("httpMethod", "GET"),
				List("a", "1", "2"),
				List("b", "3")),
			reason: ReasonFanOut,
		},
		{
			name:   "missing method",
			def:    NewDefinition(Scalar("expectedResponseCode", "200")),
			reason: ReasonMissingMethod,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cases, err := Expand(tt.def)
			assert.Nil(t, cases)
			require.ErrorIs(t, err, ErrInvalidDefinition)

			var skipErr *SkipError
			require.True(t, errors.As(err, &skipErr))
			assert.Equal(t, tt.reason, skipErr.Reason)
		})
	}
}

func TestCheckOneOf(t *testing.T) {
	t.Parallel()

	base := `{"pet":{"type":"Dog","name":"Rex"}}`
	withSelection := func(sel string) Definition {
		return NewDefinition(Scalar("oneOfSelection", sel))
	}

	assert.NoError(t, CheckOneOf(NewDefinition(), base))
	assert.NoError(t, CheckOneOf(withSelection("{pet#type=Cat}"), base))
	assert.NoError(t, CheckOneOf(withSelection("{pet#type=Dog}"), base))

	err := CheckOneOf(withSelection("{pet#color=Black}"), base)
	var skipErr *SkipError
	require.ErrorAs(t, err, &skipErr)
	assert.Equal(t, ReasonOneOf, skipErr.Reason)

	assert.ErrorIs(t, CheckOneOf(withSelection("{a=1, b=2}"), base), ErrInvalidDefinition)
}

func TestCheckOneOfComparesDecodedPayload(t *testing.T) {
	t.Parallel()

	base := `{ "kind": {"id": 12345678901234567891, "size": 3} }`
	withSelection := func(sel string) Definition {
		return NewDefinition(Scalar("oneOfSelection", sel))
	}

	// Same value written differently still selects the field.
	assert.NoError(t, CheckOneOf(withSelection("{kind#size=3.0}"), base))
	assert.NoError(t, CheckOneOf(withSelection("{kind#id=12345678901234567891}"), base))
	assert.NoError(t, CheckOneOf(withSelection("{kind#id=12345678901234567890}"), base))
	assert.ErrorIs(t, CheckOneOf(withSelection("{kind#weight=3}"), base), ErrInvalidDefinition)
	assert.ErrorIs(t, CheckOneOf(withSelection("{size=3}"), `not json`), ErrInvalidDefinition)
}

func TestExpanderWarnsOnceOnCollision(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	x := NewExpander(zap.New(core))

	def := NewDefinition(
		Scalar("expectedResponseCode", "200"),
		Scalar("httpMethod", "POST"),
		Scalar("description", "x"),
	)
	props := map[string]string{"description": "string"}

	for range 2 {
		cases, err := x.Expand("/notes", def, props)
		require.NoError(t, err)
		_, isControl := cases[0].Control(Description)
		assert.True(t, isControl)
	}
	assert.Equal(t, 1, logs.FilterMessage("payload property shadowed by reserved word").Len())
}

func TestSkipErrorMessage(t *testing.T) {
	t.Parallel()

	err := &SkipError{Path: "/pets", TestKey: "t1", Reason: ReasonFanOut, Detail: "2 fields"}
	assert.Equal(t, "skipping custom test path [/pets] key [t1]: multiple_fan_out_fields: 2 fields", err.Error())
}

func TestDefinitionWithAndWithout(t *testing.T) {
	t.Parallel()

	def := NewDefinition(Scalar("a", "1"), Scalar("b", "2"))
	updated := def.With(List("a", "x", "y")).With(Scalar("c", "3")).Without("b")

	assert.Len(t, def.Entries, 2)
	require.Len(t, updated.Entries, 2)
	assert.Equal(t, List("a", "x", "y"), updated.Entries[0])
	assert.Equal(t, Scalar("c", "3"), updated.Entries[1])
}

func TestDefinitionMarshalRoundTripsOrder(t *testing.T) {
	t.Parallel()

	def := NewDefinition(Scalar("z", "1"), List("a", "x", "y"))
	out, err := yaml.Marshal(def)
	require.NoError(t, err)
	assert.Equal(t, "z: \"1\"\na:\n    - x\n    - y\n", string(out))
}

func TestWriteRefData(t *testing.T) {
	t.Parallel()

	vars := runstate.NewVariables()
	vars.Set("petId", "42")

	ref := NewRefData()
	ref.Record("/pets/{id}", NewDefinition(
		Scalar("id", "${petId}"),
		Scalar("owner", "${ownerId}"),
		Scalar("name", "plain"),
		Scalar("expectedResponseCode", "200"),
	))
	ref.Record("/plain", NewDefinition(Scalar("name", "plain")))

	assert.Equal(t, map[string]map[string]string{
		"/pets/{id}": {"id": "42", "owner": runstate.NotSet},
	}, ref.Resolve(vars))

	file := filepath.Join(t.TempDir(), "ref.yml")
	require.NoError(t, ref.WriteRefData(file, vars))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var got map[string]map[string]string
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "42", got["/pets/{id}"]["id"])
}

func TestReservedWords(t *testing.T) {
	t.Parallel()

	assert.True(t, IsReserved("verify"))
	assert.True(t, IsReserved("stringsFile"))
	assert.False(t, IsReserved("name"))
	assert.Len(t, CustomWords(), 7)
	assert.Len(t, SecurityWords(), 10)
}
