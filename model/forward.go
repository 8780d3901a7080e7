package model

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/typemap"
)

// FromSchema derives the declaration for the schema registered under name.
// The first matching rule decides the kind:
//
//   - a string schema with enum values and no composition: Enum
//   - allOf: Product over the flattened properties
//   - oneOf or anyOf: Union, discriminated when a discriminator is present
//   - a reference, scalar, array or map schema: Alias
//   - anything else: Product, possibly with no fields
//
// Alias departs from the rule that every other named schema is a product:
// a named array, map or scalar keeps its shape as a Go defined type
// instead of becoming a struct with no fields.
//
// r resolves references and may be nil. When it is set, a reference to a
// schema r does not know becomes Opaque and is logged.
func FromSchema(name string, s *openapi.Schema, r openapi.SchemaResolver) Declaration {
	if s == nil {
		return Declaration{Name: name, Kind: Product}
	}

	d := Declaration{Name: name, Doc: s.Description}

	switch {
	case isStringEnum(s):
		d.Kind = Enum
		d.Cases = enumCases(s.Enum)

	case len(s.AllOf) > 0:
		owner := &openapi.Schema{Properties: s.Properties, Required: s.Required}
		d.Kind = Product
		d.Fields = fields(Flatten(append(slices.Clone(s.AllOf), owner), r), r)

	case len(s.OneOf) > 0 || len(s.AnyOf) > 0:
		d.Kind = Union
		d.Composition, d.Branches, d.Discriminator = union(s, r)

	case isAlias(s):
		d.Kind = Alias
		d.Target = ResolveType(s, r)
		d.Validation = validationOf(s)

	default:
		d.Kind = Product
		d.Fields = fields(s, r)
	}

	return d
}

func isStringEnum(s *openapi.Schema) bool {
	if len(s.Enum) == 0 || s.HasComposition() {
		return false
	}
	switch s.Type.Primary() {
	case "string":
		return true
	case "":
		for _, v := range s.Enum {
			if _, ok := v.(string); !ok && v != nil {
				return false
			}
		}
		return true
	}
	return false
}

func enumCases(values []any) []Case {
	cases := make([]Case, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		value := fmt.Sprint(v)
		cases = append(cases, Case{Name: CaseName(value), Value: value})
	}
	return cases
}

func isAlias(s *openapi.Schema) bool {
	if s.Ref != "" || s.DynamicRef != "" {
		return true
	}
	if len(s.Properties) > 0 {
		return false
	}
	switch s.Type.Primary() {
	case "string", "integer", "number", "boolean", "array":
		return true
	case "object":
		return typemap.Resolve(s).Kind == typemap.KindMap
	}
	return false
}

// Flatten merges the listed schemas into one object schema. Properties
// are united with later entries overriding earlier ones; the required set
// unites each entry's own required names that the same entry declares.
// References are looked up through r and nested allOf lists are expanded
// in place. A reference cycle stops at the first repeated name.
//
// Flatten is associative on the property union: flattening [A, B] and
// then [result, C] yields the same fields as flattening [A, B, C].
func Flatten(schemas []*openapi.Schema, r openapi.SchemaResolver) *openapi.Schema {
	out := &openapi.Schema{
		Type:       openapi.TypeString("object"),
		Properties: make(map[string]*openapi.Schema),
	}
	flattenInto(out, schemas, r, make(map[string]bool))

	if len(out.Properties) == 0 {
		out.Properties = nil
	}
	return out
}

func flattenInto(out *openapi.Schema, schemas []*openapi.Schema, r openapi.SchemaResolver, visiting map[string]bool) {
	for _, sub := range schemas {
		if sub == nil || sub.Boolean != nil {
			continue
		}

		if sub.Ref != "" {
			name := openapi.RefName(sub.Ref)
			if visiting[name] {
				continue
			}

			var target *openapi.Schema
			var ok bool
			if r != nil {
				target, ok = r.LookupSchema(name)
			}
			if !ok {
				slog.Warn("unresolved reference in allOf", "ref", sub.Ref)
				continue
			}

			visiting[name] = true
			flattenInto(out, []*openapi.Schema{target}, r, visiting)
			delete(visiting, name)
			continue
		}

		if len(sub.AllOf) > 0 {
			flattenInto(out, sub.AllOf, r, visiting)
		}

		for _, name := range slices.Sorted(maps.Keys(sub.Properties)) {
			out.Properties[name] = sub.Properties[name]
		}
		for _, name := range sub.Required {
			if _, declared := sub.Properties[name]; declared && !slices.Contains(out.Required, name) {
				out.Required = append(out.Required, name)
			}
		}
	}
}

// ResolveType is typemap.Resolve with every reference, including those
// nested in lists, maps and tuples, checked against r. An unknown target
// resolves to Opaque. A nil r checks nothing.
func ResolveType(s *openapi.Schema, r openapi.SchemaResolver) typemap.TypeRef {
	t := typemap.Resolve(s)
	if r == nil {
		return t
	}
	return known(t, r)
}

func known(t typemap.TypeRef, r openapi.SchemaResolver) typemap.TypeRef {
	switch t.Kind {
	case typemap.KindRef:
		if _, ok := r.LookupSchema(t.Name); !ok {
			slog.Warn("unresolved reference; using an opaque type", "ref", t.Name)
			return typemap.Opaque
		}
	case typemap.KindList:
		return typemap.List(known(*t.Elem, r))
	case typemap.KindMap:
		return typemap.Map(known(*t.Elem, r))
	case typemap.KindTuple:
		elems := make([]typemap.TypeRef, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = known(e, r)
		}
		return typemap.Tuple(elems...)
	}
	return t
}

func fields(s *openapi.Schema, r openapi.SchemaResolver) []Field {
	names := slices.Sorted(maps.Keys(s.Properties))
	out := make([]Field, 0, len(names))
	for _, name := range names {
		prop := s.Properties[name]
		f := Field{
			Name:     name,
			Type:     ResolveType(prop, r),
			Required: s.IsRequired(name),
		}
		if prop != nil {
			f.Nullable = prop.Type.Nullable()
			f.Doc = prop.Description
			f.Validation = validationOf(prop)
		}
		out = append(out, f)
	}
	return out
}

func validationOf(s *openapi.Schema) Validation {
	return Validation{
		Minimum:   s.Minimum,
		Maximum:   s.Maximum,
		MinLength: s.MinLength,
		MaxLength: s.MaxLength,
		Pattern:   s.Pattern,
		Format:    s.Format,
	}
}

func union(s *openapi.Schema, r openapi.SchemaResolver) (Composition, []Branch, *Discriminator) {
	subs, comp := s.OneOf, OneOf
	if len(subs) == 0 {
		subs, comp = s.AnyOf, AnyOf
	}

	branches := make([]Branch, len(subs))
	for i, sub := range subs {
		branches[i] = Branch{
			Name: fmt.Sprintf("option%d", i+1),
			Type: ResolveType(sub, r),
		}
	}

	if s.Discriminator == nil {
		return comp, branches, nil
	}

	for i, b := range branches {
		if b.Type.Kind == typemap.KindRef {
			branches[i].Name = b.Type.Name
		}
	}

	disc := &Discriminator{Property: s.Discriminator.PropertyName}
	if len(s.Discriminator.Mapping) > 0 {
		disc.Mapping = make(map[string]string, len(s.Discriminator.Mapping))
		for value, target := range s.Discriminator.Mapping {
			disc.Mapping[value] = openapi.RefName(target)
		}
	}
	return comp, branches, disc
}
