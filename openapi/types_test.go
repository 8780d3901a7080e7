package openapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaType(t *testing.T) {
	t.Run("marshal", func(t *testing.T) {
		tests := []struct {
			name     string
			input    SchemaType
			expected string
		}{
			{"single type marshals as string", TypeString("string"), `"string"`},
			{"multiple types marshal as array", TypeArray("string", "null"), `["string","null"]`},
			{"empty type marshals as null", SchemaType{}, "null"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				data, err := json.Marshal(tt.input)
				require.NoError(t, err)
				assert.JSONEq(t, tt.expected, string(data))
			})
		}
	})

	t.Run("unmarshal", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected []string
			wantErr  bool
		}{
			{"single string", `"integer"`, []string{"integer"}, false},
			{"array", `["string","null"]`, []string{"string", "null"}, false},
			{"invalid", `123`, nil, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var st SchemaType
				err := json.Unmarshal([]byte(tt.input), &st)
				if tt.wantErr {
					assert.Error(t, err)
				} else {
					require.NoError(t, err)
					assert.Equal(t, tt.expected, st.Values())
				}
			})
		}
	})

	t.Run("primary skips null", func(t *testing.T) {
		assert.Equal(t, "string", TypeArray("null", "string").Primary())
		assert.Equal(t, "integer", TypeString("integer").Primary())
		assert.Equal(t, "", SchemaType{}.Primary())
		assert.Equal(t, "", TypeString("null").Primary())
	})

	t.Run("nullable", func(t *testing.T) {
		assert.True(t, TypeArray("string", "null").Nullable())
		assert.False(t, TypeString("string").Nullable())
	})

	t.Run("unset type is omitted", func(t *testing.T) {
		data, err := json.Marshal(&Schema{Description: "x"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"description":"x"}`, string(data))
	})
}

func TestSchemaWireKeys(t *testing.T) {
	minimum := 1.0
	maxLen := 5
	s := &Schema{
		Ref:        "#/components/schemas/Pet",
		DynamicRef: "#node",
		ID:         "urn:pet",
		Default:    "a",
		Enum:       []any{"a", "b"},
		If:         &Schema{Type: TypeString("string")},
		Then:       &Schema{MaxLength: &maxLen},
		Else:       &Schema{Minimum: &minimum},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"$ref", "$dynamicRef", "$id", "default", "enum", "if", "then", "else"} {
		assert.Contains(t, raw, key)
	}
}

func TestBooleanSchema(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"true", `true`, true},
		{"false", `false`, false},
		{"padded", ` false `, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Schema
			require.NoError(t, json.Unmarshal([]byte(tt.input), &s))
			require.NotNil(t, s.Boolean)
			assert.Equal(t, tt.want, *s.Boolean)

			out, err := json.Marshal(s)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}

	t.Run("nested additionalProperties false", func(t *testing.T) {
		var s Schema
		require.NoError(t, json.Unmarshal([]byte(`{"type":"object","additionalProperties":false}`), &s))
		require.NotNil(t, s.AdditionalProperties)
		require.NotNil(t, s.AdditionalProperties.Boolean)
		assert.False(t, *s.AdditionalProperties.Boolean)
	})
}

func TestSchemaHelpers(t *testing.T) {
	t.Run("IsRequired", func(t *testing.T) {
		s := &Schema{Required: []string{"id"}}
		assert.True(t, s.IsRequired("id"))
		assert.False(t, s.IsRequired("name"))

		var nilSchema *Schema
		assert.False(t, nilSchema.IsRequired("id"))
	})

	t.Run("HasComposition", func(t *testing.T) {
		assert.False(t, (&Schema{}).HasComposition())
		assert.True(t, (&Schema{AllOf: []*Schema{{}}}).HasComposition())
		assert.True(t, (&Schema{OneOf: []*Schema{{}}}).HasComposition())
		assert.True(t, (&Schema{AnyOf: []*Schema{{}}}).HasComposition())
	})
}

func TestExtensionsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		into  any
	}{
		{"schema", `{"type":"string","x-go-type":"Name","nullable":true}`, &Schema{}},
		{"operation", `{"operationId":"list","x-rate-limit":10}`, &Operation{}},
		{"parameter", `{"name":"id","in":"query","x-internal":{"a":[1,2]}}`, &Parameter{}},
		{"info", `{"title":"t","version":"1","x-logo":{"url":"l.png"}}`, &Info{}},
		{"discriminator", `{"propertyName":"kind","x-extra":"y"}`, &Discriminator{}},
		{"empty object with extension", `{"x-a":1}`, &Contact{}},
		{"large integer preserved", `{"x-id":12345678901234567890}`, &Tag{}},
		{"empty operation security", `{"operationId":"open","security":[]}`, &Operation{}},
		{"only empty security", `{"security":[]}`, &Operation{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, json.Unmarshal([]byte(tt.input), tt.into))

			out, err := json.Marshal(tt.into)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}

	t.Run("extension keys sorted after fields", func(t *testing.T) {
		tag := Tag{Name: "pets", Extra: Extensions{"x-b": 2, "x-a": 1}}
		out, err := json.Marshal(tag)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"pets","x-a":1,"x-b":2}`, string(out))
	})

	t.Run("extra never overrides a field", func(t *testing.T) {
		tag := Tag{Name: "pets", Extra: Extensions{"name": "other"}}
		out, err := json.Marshal(tag)
		require.NoError(t, err)
		assert.Equal(t, `{"name":"pets"}`, string(out))
	})

	t.Run("known keys stay out of extra", func(t *testing.T) {
		var op Operation
		require.NoError(t, json.Unmarshal([]byte(`{"summary":"s","x-y":true}`), &op))
		assert.Equal(t, "s", op.Summary)
		assert.Equal(t, Extensions{"x-y": true}, op.Extra)
	})
}
