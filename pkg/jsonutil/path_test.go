package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	body := `{"id":"42","count":7,"ratio":1.5,"ok":true,"pet":{"name":"rex","tags":["a","b"]},"items":[{"sku":"x1"},{"sku":"x2"}],"nothing":null}`

	tests := []struct {
		path  string
		want  string
		found bool
	}{
		{"id", "42", true},
		{"count", "7", true},
		{"ratio", "1.5", true},
		{"ok", "true", true},
		{"pet.name", "rex", true},
		{"pet#name", "rex", true},
		{"pet.tags[1]", "b", true},
		{"pet.tags.0", "a", true},
		{"items.sku", "x1", true},
		{"items[1].sku", "x2", true},
		{"nothing", "null", true},
		{"pet", `{"name":"rex","tags":["a","b"]}`, true},
		{"missing", "", false},
		{"pet.age", "", false},
		{"items[5].sku", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := Lookup(body, tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupLargeInteger(t *testing.T) {
	t.Parallel()

	body := `{"id":12345678901234567891,"nested":{"ids":[9007199254740993]}}`
	got, ok := Lookup(body, "id")
	require.True(t, ok)
	assert.Equal(t, "12345678901234567891", got)

	got, ok = Lookup(body, "nested#ids[0]")
	require.True(t, ok)
	assert.Equal(t, "9007199254740993", got)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	t.Parallel()

	_, err := Decode(`{"a":1} {"b":2}`)
	assert.Error(t, err)
	_, err = Decode(`{"a":`)
	assert.Error(t, err)
}

func TestLookupNonJSON(t *testing.T) {
	t.Parallel()

	_, ok := Lookup("not json", "id")
	assert.False(t, ok)
	_, ok = Lookup("", "id")
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	t.Parallel()

	t.Run("string field", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"name":"rex","age":3}`, "name", "fido")
		require.True(t, ok)
		assert.Equal(t, `{"age":3,"name":"fido"}`, out)
	})

	t.Run("keeps number type", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"age":3}`, "age", "10")
		require.True(t, ok)
		assert.Equal(t, `{"age":10}`, out)
	})

	t.Run("number field with non-numeric value becomes string", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"age":3}`, "age", "old")
		require.True(t, ok)
		assert.Equal(t, `{"age":"old"}`, out)
	})

	t.Run("nested with hash notation", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"address":{"street":"main"}}`, "address#street", "elm")
		require.True(t, ok)
		assert.Equal(t, `{"address":{"street":"elm"}}`, out)
	})

	t.Run("every array element", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"items":[{"sku":"a"},{"sku":"b"}]}`, "items#sku", "z")
		require.True(t, ok)
		assert.Equal(t, `{"items":[{"sku":"z"},{"sku":"z"}]}`, out)
	})

	t.Run("indexed element", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"tags":["a","b"]}`, "tags[1]", "c")
		require.True(t, ok)
		assert.Equal(t, `{"tags":["a","c"]}`, out)
	})

	t.Run("missing field leaves payload", func(t *testing.T) {
		t.Parallel()
		in := `{"name":"rex"}`
		out, ok := Replace(in, "owner", "x")
		assert.False(t, ok)
		assert.Equal(t, in, out)
	})

	t.Run("untouched numbers keep their literal", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"id":12345678901234567891,"price":1.50,"name":"x"}`, "name", "y")
		require.True(t, ok)
		assert.Equal(t, `{"id":12345678901234567891,"name":"y","price":1.50}`, out)
	})

	t.Run("large number replaced exactly", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace(`{"id":1}`, "id", "98765432109876543210")
		require.True(t, ok)
		assert.Equal(t, `{"id":98765432109876543210}`, out)
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()
		out, ok := Replace("{no", "name", "x")
		assert.False(t, ok)
		assert.Equal(t, "{no", out)
	})
}

func TestMerge(t *testing.T) {
	t.Parallel()

	out, ok := Merge(`{"name":"rex"}`, "", map[string]string{"extra": "1"})
	require.True(t, ok)
	assert.Equal(t, `{"extra":"1","name":"rex"}`, out)

	out, ok = Merge(`{"name":"rex"}`, "meta", map[string]string{"k": "v"})
	require.True(t, ok)
	assert.Equal(t, `{"meta":{"k":"v"},"name":"rex"}`, out)

	_, ok = Merge(`{"name":"rex"}`, "name", map[string]string{"k": "v"})
	assert.False(t, ok)
}

func TestIsEmptyBody(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "  ", "{}", "[]", " [] "} {
		assert.True(t, IsEmptyBody(body), body)
	}
	for _, body := range []string{`{"a":1}`, `[1]`, "text"} {
		assert.False(t, IsEmptyBody(body), body)
	}
}

func TestSemanticEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, SemanticEqual(`{"a":1,"b":[1,2]}`, `{ "b": [1, 2], "a": 1 }`))
	assert.False(t, SemanticEqual(`{"a":1}`, `{"a":2}`))
	assert.True(t, SemanticEqual("{no", "{no"))
	assert.True(t, SemanticEqual(`{"a":1}`, `{"a":1.0}`))
	assert.False(t, SemanticEqual(`{"id":12345678901234567891}`, `{"id":12345678901234567890}`))
}

func TestIsArray(t *testing.T) {
	t.Parallel()

	assert.True(t, IsArray(`[{"a":1}]`))
	assert.True(t, IsArray(`[]`))
	assert.False(t, IsArray(`{"a":[]}`))
	assert.False(t, IsArray(`{no`))
}
