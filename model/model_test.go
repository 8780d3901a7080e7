package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/source"
	"github.com/vitalvas/apisync/typemap"
)

func str(t string) openapi.SchemaType { return openapi.TypeString(t) }

func ptr[T any](v T) *T { return &v }

const itemSchema = `{"type":"object","properties":{"id":{"type":"string","format":"uuid"},"tags":{"type":"array","items":{"type":"string"}}},"required":["id"]}`

func TestItemScenario(t *testing.T) {
	s, err := openapi.ParseSchema([]byte(itemSchema))
	require.NoError(t, err)

	d := FromSchema("Item", s, nil)
	require.Equal(t, Product, d.Kind)
	require.Len(t, d.Fields, 2)

	id, tags := d.Fields[0], d.Fields[1]
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.Required)
	assert.Equal(t, typemap.KindUUID, id.Type.Kind)

	assert.Equal(t, "tags", tags.Name)
	assert.False(t, tags.Required)
	assert.Equal(t, "List<Text>", tags.Type.String())

	// back to a schema through the Go declaration shape
	decl := &source.Decl{Name: "Item", Kind: source.KindProduct}
	for _, f := range d.Fields {
		decl.Fields = append(decl.Fields, source.Field{
			Name:     TypeName(f.Name),
			WireName: f.Name,
			Type:     GoType(f.Type),
			Optional: !f.Required,
		})
	}

	back, ok := ToSchema(decl, nil)
	require.True(t, ok)
	assert.Equal(t, s.Required, back.Required)
	assert.True(t, openapi.Equal(s.Properties["tags"], back.Properties["tags"]),
		openapi.Diff(s.Properties["tags"], back.Properties["tags"]))
	assert.True(t, openapi.Equal(s, back), openapi.Diff(s, back))
}

func TestFromSchemaEnum(t *testing.T) {
	tests := []struct {
		name   string
		schema *openapi.Schema
		want   []Case
	}{
		{
			"string enum",
			&openapi.Schema{Type: str("string"), Enum: []any{"available", "sold-out", "On Hold"}},
			[]Case{{"available", "available"}, {"sold_out", "sold-out"}, {"on_hold", "On Hold"}},
		},
		{
			"untyped string enum",
			&openapi.Schema{Enum: []any{"a.b", "c/d"}},
			[]Case{{"a_b", "a.b"}, {"c_d", "c/d"}},
		},
		{
			"nullable enum skips null",
			&openapi.Schema{Type: openapi.TypeArray("string", "null"), Enum: []any{"x", nil}},
			[]Case{{"x", "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := FromSchema("Status", tt.schema, nil)
			assert.Equal(t, Enum, d.Kind)
			assert.Equal(t, tt.want, d.Cases)
		})
	}

	t.Run("integer enum is not a closed enumeration", func(t *testing.T) {
		d := FromSchema("Level", &openapi.Schema{Type: str("integer"), Enum: []any{1.0, 2.0}}, nil)
		assert.Equal(t, Alias, d.Kind)
	})

	t.Run("enum with composition is not an enumeration", func(t *testing.T) {
		d := FromSchema("X", &openapi.Schema{Type: str("string"), Enum: []any{"a"}, OneOf: []*openapi.Schema{{Type: str("string")}}}, nil)
		assert.Equal(t, Union, d.Kind)
	})
}

func TestFromSchemaProduct(t *testing.T) {
	t.Run("validation carried through", func(t *testing.T) {
		s := &openapi.Schema{
			Type:        str("object"),
			Description: "A pet.",
			Properties: map[string]*openapi.Schema{
				"name": {Type: str("string"), MinLength: ptr(1), MaxLength: ptr(64), Pattern: "^[a-z]+$", Description: "Pet name."},
				"age":  {Type: str("integer"), Minimum: ptr(0.0), Maximum: ptr(40.0)},
				"note": {Type: openapi.TypeArray("string", "null")},
			},
			Required: []string{"name"},
		}

		d := FromSchema("Pet", s, nil)
		require.Equal(t, Product, d.Kind)
		assert.Equal(t, "A pet.", d.Doc)
		require.Len(t, d.Fields, 3)

		age, name, note := d.Fields[0], d.Fields[1], d.Fields[2]
		assert.Equal(t, 0.0, *age.Validation.Minimum)
		assert.Equal(t, 40.0, *age.Validation.Maximum)
		assert.False(t, age.Required)

		assert.True(t, name.Required)
		assert.Equal(t, "Pet name.", name.Doc)
		assert.Equal(t, 1, *name.Validation.MinLength)
		assert.Equal(t, 64, *name.Validation.MaxLength)
		assert.Equal(t, "^[a-z]+$", name.Validation.Pattern)

		assert.True(t, note.Nullable)
		assert.Equal(t, typemap.KindText, note.Type.Kind)
	})

	t.Run("no properties gives zero fields", func(t *testing.T) {
		d := FromSchema("Empty", &openapi.Schema{Type: str("object")}, nil)
		assert.Equal(t, Product, d.Kind)
		assert.Empty(t, d.Fields)

		d = FromSchema("Nothing", &openapi.Schema{}, nil)
		assert.Equal(t, Product, d.Kind)
		assert.Empty(t, d.Fields)

		d = FromSchema("Nil", nil, nil)
		assert.Equal(t, Product, d.Kind)
	})

	t.Run("self reference stays a reference", func(t *testing.T) {
		s := &openapi.Schema{
			Type: str("object"),
			Properties: map[string]*openapi.Schema{
				"parent":   openapi.RefSchema("Node"),
				"children": {Type: str("array"), Items: openapi.RefSchema("Node")},
			},
		}
		d := FromSchema("Node", s, nil)
		require.Len(t, d.Fields, 2)
		assert.Equal(t, "List<Ref(Node)>", d.Fields[0].Type.String())
		assert.Equal(t, "Ref(Node)", d.Fields[1].Type.String())
	})
}

func TestFromSchemaAlias(t *testing.T) {
	tests := []struct {
		name   string
		schema *openapi.Schema
		want   string
	}{
		{"string", &openapi.Schema{Type: str("string"), Format: "email"}, "Text"},
		{"array", &openapi.Schema{Type: str("array"), Items: openapi.RefSchema("Pet")}, "List<Ref(Pet)>"},
		{"map", &openapi.Schema{Type: str("object"), AdditionalProperties: &openapi.Schema{Type: str("integer")}}, "Map<Text,Int32>"},
		{"reference", openapi.RefSchema("Pet"), "Ref(Pet)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := FromSchema("A", tt.schema, nil)
			assert.Equal(t, Alias, d.Kind)
			assert.Equal(t, tt.want, d.Target.String())
		})
	}

	t.Run("format kept", func(t *testing.T) {
		d := FromSchema("Email", &openapi.Schema{Type: str("string"), Format: "email", MaxLength: ptr(255)}, nil)
		assert.Equal(t, "email", d.Validation.Format)
		assert.Equal(t, 255, *d.Validation.MaxLength)
	})
}

func fieldNames(fs []Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

func TestFlatten(t *testing.T) {
	a := &openapi.Schema{
		Properties: map[string]*openapi.Schema{"id": {Type: str("string")}, "name": {Type: str("string")}},
		Required:   []string{"id", "ghost"},
	}
	b := &openapi.Schema{
		Properties: map[string]*openapi.Schema{"name": {Type: str("integer")}, "age": {Type: str("integer")}},
		Required:   []string{"age"},
	}
	c := &openapi.Schema{
		Properties: map[string]*openapi.Schema{"name": {Type: str("boolean")}, "tag": {Type: str("string")}},
		Required:   []string{"name", "id"},
	}

	t.Run("later entries win and required is restricted", func(t *testing.T) {
		flat := Flatten([]*openapi.Schema{a, b}, nil)
		assert.Equal(t, "integer", flat.Properties["name"].Type.Primary())
		assert.ElementsMatch(t, []string{"id", "age"}, flat.Required)
		assert.NotContains(t, flat.Required, "ghost")
	})

	t.Run("associative", func(t *testing.T) {
		stepwise := Flatten([]*openapi.Schema{Flatten([]*openapi.Schema{a, b}, nil), c}, nil)
		direct := Flatten([]*openapi.Schema{a, b, c}, nil)

		assert.True(t, openapi.Equal(stepwise.Properties, direct.Properties), openapi.Diff(stepwise.Properties, direct.Properties))
		assert.ElementsMatch(t, stepwise.Required, direct.Required)
		assert.Equal(t, "boolean", direct.Properties["name"].Type.Primary())
		assert.Equal(t, []string{"id", "age", "name"}, direct.Required)
	})

	t.Run("references resolve through components", func(t *testing.T) {
		components := &openapi.Components{Schemas: map[string]*openapi.Schema{
			"Base": {Properties: map[string]*openapi.Schema{"id": {Type: str("string")}}, Required: []string{"id"}},
			"Loop": {AllOf: []*openapi.Schema{openapi.RefSchema("Loop")}, Properties: map[string]*openapi.Schema{"x": {Type: str("string")}}},
		}}

		flat := Flatten([]*openapi.Schema{openapi.RefSchema("Base"), b}, components)
		assert.Equal(t, []string{"age", "id", "name"}, fieldNames(fields(flat, nil)))
		assert.Contains(t, flat.Required, "id")

		loop := Flatten([]*openapi.Schema{openapi.RefSchema("Loop")}, components)
		assert.Contains(t, loop.Properties, "x")
	})

	t.Run("missing reference is skipped", func(t *testing.T) {
		flat := Flatten([]*openapi.Schema{openapi.RefSchema("Missing"), b}, nil)
		assert.Len(t, flat.Properties, 2)
	})

	t.Run("inputs untouched", func(t *testing.T) {
		before := openapi.CloneSchema(a)
		Flatten([]*openapi.Schema{a, b, c}, nil)
		assert.True(t, openapi.Equal(before, a))
	})
}

func TestFromSchemaAllOf(t *testing.T) {
	components := &openapi.Components{Schemas: map[string]*openapi.Schema{
		"Base": {Type: str("object"), Properties: map[string]*openapi.Schema{"id": {Type: str("string"), Format: "uuid"}}, Required: []string{"id"}},
	}}
	s := &openapi.Schema{
		Description: "A dog.",
		AllOf: []*openapi.Schema{
			openapi.RefSchema("Base"),
			{Properties: map[string]*openapi.Schema{"bark": {Type: str("boolean")}}},
		},
		Properties: map[string]*openapi.Schema{"name": {Type: str("string")}},
		Required:   []string{"name"},
	}

	d := FromSchema("Dog", s, components)
	assert.Equal(t, Product, d.Kind)
	assert.Equal(t, "A dog.", d.Doc)
	assert.Equal(t, []string{"bark", "id", "name"}, fieldNames(d.Fields))
	assert.False(t, d.Fields[0].Required)
	assert.True(t, d.Fields[1].Required)
	assert.True(t, d.Fields[2].Required)
}

func TestFromSchemaUnion(t *testing.T) {
	t.Run("positional branches", func(t *testing.T) {
		s := &openapi.Schema{OneOf: []*openapi.Schema{{Type: str("string")}, openapi.RefSchema("Pet"), {Type: str("integer")}}}
		d := FromSchema("Value", s, nil)

		assert.Equal(t, Union, d.Kind)
		assert.Equal(t, OneOf, d.Composition)
		assert.Nil(t, d.Discriminator)
		assert.Equal(t, []Branch{
			{Name: "option1", Type: typemap.Scalar(typemap.KindText)},
			{Name: "option2", Type: typemap.Ref("Pet")},
			{Name: "option3", Type: typemap.Scalar(typemap.KindInt32)},
		}, d.Branches)
	})

	t.Run("anyOf", func(t *testing.T) {
		d := FromSchema("Value", &openapi.Schema{AnyOf: []*openapi.Schema{{Type: str("string")}}}, nil)
		assert.Equal(t, AnyOf, d.Composition)
	})

	t.Run("composition wins over type", func(t *testing.T) {
		d := FromSchema("Value", &openapi.Schema{Type: str("object"), OneOf: []*openapi.Schema{{Type: str("string")}}}, nil)
		assert.Equal(t, Union, d.Kind)
	})

	t.Run("discriminated", func(t *testing.T) {
		s := &openapi.Schema{
			OneOf: []*openapi.Schema{openapi.RefSchema("Cat"), openapi.RefSchema("Dog")},
			Discriminator: &openapi.Discriminator{
				PropertyName: "kind",
				Mapping:      map[string]string{"kitty": "#/components/schemas/Cat"},
			},
		}
		d := FromSchema("Pet", s, nil)

		require.NotNil(t, d.Discriminator)
		assert.Equal(t, "kind", d.Discriminator.Property)
		assert.Equal(t, map[string]string{"kitty": "Cat"}, d.Discriminator.Mapping)
		assert.Equal(t, "Cat", d.Branches[0].Name)
		assert.Equal(t, "Dog", d.Branches[1].Name)

		for value, want := range map[string]int{"kitty": 0, "Cat": 0, "Dog": 1} {
			i, ok := d.Discriminator.BranchFor(value, d.Branches)
			assert.True(t, ok, value)
			assert.Equal(t, want, i, value)
		}

		_, ok := d.Discriminator.BranchFor("bird", d.Branches)
		assert.False(t, ok)
	})
}

func TestFromSchemaUnresolvedReference(t *testing.T) {
	components := &openapi.Components{Schemas: map[string]*openapi.Schema{
		"Tag": {Type: str("string")},
	}}

	t.Run("fields", func(t *testing.T) {
		s := &openapi.Schema{
			Type: str("object"),
			Properties: map[string]*openapi.Schema{
				"owner": openapi.RefSchema("Missing"),
				"tags":  {Type: str("array"), Items: openapi.RefSchema("Tag")},
				"extra": {Type: str("object"), AdditionalProperties: openapi.RefSchema("Gone")},
				"pair":  {Type: str("array"), PrefixItems: []*openapi.Schema{openapi.RefSchema("Tag"), openapi.RefSchema("Gone")}},
			},
		}

		d := FromSchema("Pet", s, components)
		require.Equal(t, []string{"extra", "owner", "pair", "tags"}, fieldNames(d.Fields))
		assert.Equal(t, "Map<Text,Opaque>", d.Fields[0].Type.String())
		assert.Equal(t, typemap.Opaque, d.Fields[1].Type)
		assert.Equal(t, "Tuple<Ref(Tag),Opaque>", d.Fields[2].Type.String())
		assert.Equal(t, "List<Ref(Tag)>", d.Fields[3].Type.String())
	})

	t.Run("union branch", func(t *testing.T) {
		s := &openapi.Schema{OneOf: []*openapi.Schema{openapi.RefSchema("Tag"), openapi.RefSchema("Missing")}}
		d := FromSchema("Value", s, components)
		assert.Equal(t, []Branch{
			{Name: "option1", Type: typemap.Ref("Tag")},
			{Name: "option2", Type: typemap.Opaque},
		}, d.Branches)
	})

	t.Run("alias", func(t *testing.T) {
		d := FromSchema("Owners", &openapi.Schema{Type: str("array"), Items: openapi.RefSchema("Missing")}, components)
		assert.Equal(t, Alias, d.Kind)
		assert.Equal(t, "List<Opaque>", d.Target.String())
	})

	t.Run("no resolver keeps references", func(t *testing.T) {
		assert.Equal(t, typemap.Ref("Missing"), ResolveType(openapi.RefSchema("Missing"), nil))
	})
}

func TestCaseName(t *testing.T) {
	assert.Equal(t, "sold_out", CaseName("sold-out"))
	assert.Equal(t, "in_stock", CaseName("IN STOCK"))
	assert.Equal(t, "v1_2", CaseName("v1.2"))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "Pet", TypeName("Pet"))
	assert.Equal(t, "HTTPServer", TypeName("HTTPServer"))
	assert.Equal(t, "PetOwner", TypeName("pet_owner"))
	assert.Equal(t, "PetOwner", TypeName("pet-owner"))
	assert.Equal(t, "Pet", TypeName("pet"))
}

func TestGoType(t *testing.T) {
	tests := []struct {
		in   typemap.TypeRef
		want string
	}{
		{typemap.Opaque, "any"},
		{typemap.Ref("Pet"), "Pet"},
		{typemap.List(typemap.Scalar(typemap.KindUUID)), "[]uuid.UUID"},
		{typemap.Map(typemap.Ref("pet_owner")), "map[string]PetOwner"},
		{typemap.Tuple(typemap.Scalar(typemap.KindText), typemap.Scalar(typemap.KindBool)), "[2]any"},
		{typemap.Scalar(typemap.KindTimestamp), "time.Time"},
		{typemap.Scalar(typemap.KindFloat32), "float32"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, GoType(tt.in))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "product", Product.String())
	assert.Equal(t, "alias", Alias.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
