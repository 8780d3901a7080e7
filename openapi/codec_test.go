package openapi

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstoreJSON = `{
  "openapi": "3.1.0",
  "$self": "https://example.com/openapi.json",
  "info": {"title": "Pet Store", "version": "1.0.0", "x-audience": "public"},
  "paths": {
    "/pets/{id}": {
      "get": {
        "operationId": "getPet",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string", "format": "uuid"}}
        ],
        "responses": {
          "200": {
            "description": "OK",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}
          }
        }
      }
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "format": "uuid"},
          "tags": {"type": "array", "items": {"type": "string"}},
          "kind": {"type": "string", "enum": ["cat", "dog"]}
        },
        "x-entity": true
      }
    },
    "securitySchemes": {
      "bearer": {"type": "http", "scheme": "bearer"}
    }
  },
  "x-generator": {"name": "apisync"}
}`

const petstoreYAML = `openapi: 3.1.0
$self: https://example.com/openapi.json
info:
  title: Pet Store
  version: 1.0.0
  x-audience: public
paths:
  /pets/{id}:
    get:
      operationId: getPet
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
            format: uuid
      responses:
        200:
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Pet'
components:
  schemas:
    Pet:
      type: object
      required: [id]
      properties:
        id:
          type: string
          format: uuid
        tags:
          type: array
          items:
            type: string
        kind:
          type: string
          enum: [cat, dog]
      x-entity: true
  securitySchemes:
    bearer:
      type: http
      scheme: bearer
x-generator:
  name: apisync
`

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat([]byte("  {\"a\":1}")))
	assert.Equal(t, FormatYAML, DetectFormat([]byte("openapi: 3.1.0")))
	assert.Equal(t, FormatYAML, DetectFormat(nil))
}

func TestParse(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		doc, err := Parse([]byte(petstoreJSON))
		require.NoError(t, err)

		assert.Equal(t, "3.1.0", doc.OpenAPI)
		assert.Equal(t, "https://example.com/openapi.json", doc.Self)
		assert.Equal(t, "public", doc.Info.Extra["x-audience"])
		assert.Equal(t, map[string]any{"name": "apisync"}, doc.Extra["x-generator"])

		pet, ok := doc.LookupSchema("Pet")
		require.True(t, ok)
		assert.Equal(t, []string{"id"}, pet.Required)
		assert.Equal(t, true, pet.Extra["x-entity"])

		op := doc.Paths["/pets/{id}"].Get
		require.NotNil(t, op)
		assert.Equal(t, "#/components/schemas/Pet", op.Responses["200"].Content["application/json"].Schema.Ref)
	})

	t.Run("yaml matches json", func(t *testing.T) {
		fromJSON, err := Parse([]byte(petstoreJSON))
		require.NoError(t, err)
		fromYAML, err := Parse([]byte(petstoreYAML))
		require.NoError(t, err)

		assert.True(t, Equal(fromJSON, fromYAML), Diff(fromJSON, fromYAML))
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name  string
			input string
		}{
			{"empty", "   "},
			{"broken json", `{"openapi": `},
			{"broken yaml", "openapi: [3.1"},
			{"wrong type", `{"info": "text"}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Parse([]byte(tt.input))
				require.Error(t, err)

				var pe *ParseError
				assert.True(t, errors.As(err, &pe))
			})
		}
	})

	t.Run("empty document sentinel", func(t *testing.T) {
		_, err := Parse(nil)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestRoundTrip(t *testing.T) {
	t.Run("json preserves every key", func(t *testing.T) {
		doc, err := Parse([]byte(petstoreJSON))
		require.NoError(t, err)

		out, err := Marshal(doc, FormatJSON)
		require.NoError(t, err)
		assert.JSONEq(t, petstoreJSON, string(out))
	})

	t.Run("yaml output parses back equal", func(t *testing.T) {
		doc, err := Parse([]byte(petstoreJSON))
		require.NoError(t, err)

		out, err := Marshal(doc, FormatYAML)
		require.NoError(t, err)
		assert.Contains(t, string(out), "openapi: 3.1.0\n")
		assert.Regexp(t, `['"]200['"]:`, string(out))
		assert.NotContains(t, string(out), "{\"")

		again, err := Parse(out)
		require.NoError(t, err)
		assert.True(t, Equal(doc, again), Diff(doc, again))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := Marshal(&Document{}, "toml")
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema([]byte(`{"type":"object","properties":{"id":{"type":"string","format":"uuid"}},"required":["id"]}`))
	require.NoError(t, err)
	assert.Equal(t, "object", s.Type.Primary())
	assert.Equal(t, "uuid", s.Properties["id"].Format)

	s, err = ParseSchema([]byte("type: string\nenum: [a, b]\n"))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, s.Enum)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string","enum":["a","b"]}`, string(data))
}

func TestSchemaKeepsKeywords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		extra Extensions
	}{
		{
			name:  "null values",
			input: `{"type":["string","null"],"default":null,"const":null,"example":null}`,
			extra: Extensions{"default": nil, "const": nil, "example": nil},
		},
		{
			name:  "boolean exclusive bounds",
			input: `{"type":"integer","minimum":0,"exclusiveMinimum":true,"maximum":10,"exclusiveMaximum":false}`,
			extra: Extensions{"exclusiveMinimum": true, "exclusiveMaximum": false},
		},
		{
			name:  "fractional length",
			input: `{"type":"string","minLength":1.5,"x-note":"kept"}`,
			extra: Extensions{"minLength": json.Number("1.5"), "x-note": "kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSchema([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.extra, s.Extra)

			out, err := json.Marshal(s)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}

	t.Run("fields still decode", func(t *testing.T) {
		s, err := ParseSchema([]byte(`{"type":"integer","minimum":0,"exclusiveMinimum":true}`))
		require.NoError(t, err)
		require.NotNil(t, s.Minimum)
		assert.Equal(t, 0.0, *s.Minimum)
		assert.Nil(t, s.ExclusiveMinimum)
	})

	t.Run("nested in a document", func(t *testing.T) {
		input := `{"openapi":"3.0.3","info":{"title":"T","version":"1"},` +
			`"components":{"schemas":{"Age":{"type":"integer","minimum":0,"exclusiveMinimum":true,"default":null}}}}`
		doc, err := Parse([]byte(input))
		require.NoError(t, err)

		out, err := Marshal(doc, FormatJSON)
		require.NoError(t, err)
		assert.JSONEq(t, input, string(out))
	})
}
