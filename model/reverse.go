package model

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/source"
)

// TypeResolver finds type declarations by name, for inlining embedded
// structs. *source.File implements it.
type TypeResolver interface {
	Type(name string) (*source.Decl, bool)
}

// ToSchema converts a declaration read from source into a schema. Products
// become object schemas, enumerations string schemas with an enum list,
// unions oneOf (or anyOf) schemas of their payload types and aliases the
// schema of their underlying type. Any other declaration is not a model;
// ok is false and nothing is logged.
//
// types resolves embedded structs so their fields are inlined; it may be
// nil, in which case embedded types are referenced through allOf.
func ToSchema(d *source.Decl, types TypeResolver) (*openapi.Schema, bool) {
	if d == nil {
		return nil, false
	}

	var s *openapi.Schema
	switch d.Kind {
	case source.KindProduct:
		s = productSchema(d, types)
	case source.KindEnum:
		s = enumSchema(d)
	case source.KindUnion:
		s = unionSchema(d)
	case source.KindAlias:
		s = TypeSchema(d.Underlying)
	default:
		return nil, false
	}

	if d.Doc != "" {
		s.Description = d.Doc
	}
	return s, true
}

func productSchema(d *source.Decl, types TypeResolver) *openapi.Schema {
	s := &openapi.Schema{
		Type:       openapi.TypeString("object"),
		Properties: make(map[string]*openapi.Schema),
	}
	collectFields(s, d, types, false, map[string]bool{d.Name: true})

	if len(s.Properties) == 0 {
		s.Properties = nil
	}
	return s
}

// collectFields adds d's fields to s. Fields of embedded structs are
// inlined; when the embedding is through a pointer they are all optional.
func collectFields(s *openapi.Schema, d *source.Decl, types TypeResolver, allOptional bool, seen map[string]bool) {
	for _, f := range d.Fields {
		if f.Embedded {
			name := strings.TrimLeft(f.Type, "*")
			var embedded *source.Decl
			var ok bool
			if types != nil && !strings.Contains(name, ".") && !seen[name] {
				embedded, ok = types.Type(name)
			}
			if !ok || embedded.Kind != source.KindProduct {
				s.AllOf = append(s.AllOf, openapi.RefSchema(f.Name))
				continue
			}

			seen[name] = true
			collectFields(s, embedded, types, allOptional || strings.HasPrefix(f.Type, "*"), seen)
			delete(seen, name)
			continue
		}

		prop := TypeSchema(f.Type)
		applyAttributes(prop, f.Attributes)
		if f.Doc != "" {
			prop.Description = f.Doc
		}
		s.Properties[f.WireName] = prop

		if !f.Optional && !allOptional && !slices.Contains(s.Required, f.WireName) {
			s.Required = append(s.Required, f.WireName)
		}
	}
}

func enumSchema(d *source.Decl) *openapi.Schema {
	s := TypeSchema(d.Underlying)
	if d.Underlying == "string" {
		s.Enum = make([]any, len(d.Cases))
		for i, c := range d.Cases {
			s.Enum[i] = c.Value
		}
		return s
	}

	values := make([]any, 0, len(d.Cases))
	for _, c := range d.Cases {
		n, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			// iota or an expression: the values are not known statically
			return s
		}
		values = append(values, n)
	}
	s.Enum = values
	return s
}

func unionSchema(d *source.Decl) *openapi.Schema {
	s := &openapi.Schema{}

	branches := make([]*openapi.Schema, 0, len(d.Cases))
	for _, c := range d.Cases {
		if len(c.Payload) == 0 {
			continue
		}
		if len(c.Payload) > 1 {
			slog.Warn("union case has more than one payload; using the first",
				"type", d.Name, "case", c.Name, "payloads", len(c.Payload))
		}
		branches = append(branches, TypeSchema(c.Payload[0]))
	}

	if d.Directives.Has("anyOf") {
		s.AnyOf = branches
	} else {
		s.OneOf = branches
	}

	if attr, ok := d.Directives.Get("discriminator"); ok && attr.Arg() != "" {
		s.Discriminator = &openapi.Discriminator{PropertyName: attr.Arg()}
		for _, m := range d.Directives.All("mapping") {
			for _, arg := range m.Args {
				value, target, ok := strings.Cut(arg, "=")
				if !ok {
					continue
				}
				if s.Discriminator.Mapping == nil {
					s.Discriminator.Mapping = make(map[string]string)
				}
				s.Discriminator.Mapping[value] = openapi.SchemaRef(TypeName(target))
			}
		}
	}

	return s
}

// TypeSchema maps a Go type expression to a schema. Builtin scalars,
// time.Time, uuid.UUID, byte slices and the empty interface have fixed
// schemas; slices, arrays and string-keyed maps recurse; every other name
// becomes a reference to the component of the same bare name.
func TypeSchema(expr string) *openapi.Schema {
	expr = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(expr), "*"))

	if s, ok := primitiveSchema(expr); ok {
		return s
	}

	switch {
	case strings.HasPrefix(expr, "[]"):
		return &openapi.Schema{Type: openapi.TypeString("array"), Items: TypeSchema(expr[2:])}

	case strings.HasPrefix(expr, "["):
		end := strings.IndexByte(expr, ']')
		if end < 0 {
			return &openapi.Schema{}
		}
		s := &openapi.Schema{Type: openapi.TypeString("array"), Items: TypeSchema(expr[end+1:])}
		if n, err := strconv.Atoi(expr[1:end]); err == nil {
			s.MinItems, s.MaxItems = &n, &n
		}
		return s

	case strings.HasPrefix(expr, "map["):
		end := strings.IndexByte(expr, ']')
		if end < 0 || strings.TrimSpace(expr[4:end]) != "string" {
			return &openapi.Schema{Type: openapi.TypeString("object")}
		}
		return &openapi.Schema{Type: openapi.TypeString("object"), AdditionalProperties: TypeSchema(expr[end+1:])}
	}

	name := expr
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return openapi.RefSchema(name)
}

func primitiveSchema(expr string) (*openapi.Schema, bool) {
	str := openapi.TypeString
	switch expr {
	case "string":
		return &openapi.Schema{Type: str("string")}, true
	case "bool":
		return &openapi.Schema{Type: str("boolean")}, true
	case "int", "int8", "int16", "uint", "uint8", "uint16", "uint32", "uint64":
		return &openapi.Schema{Type: str("integer")}, true
	case "int32":
		return &openapi.Schema{Type: str("integer"), Format: "int32"}, true
	case "int64":
		return &openapi.Schema{Type: str("integer"), Format: "int64"}, true
	case "float32":
		return &openapi.Schema{Type: str("number"), Format: "float"}, true
	case "float64":
		return &openapi.Schema{Type: str("number"), Format: "double"}, true
	case "time.Time":
		return &openapi.Schema{Type: str("string"), Format: "date-time"}, true
	case "uuid.UUID":
		return &openapi.Schema{Type: str("string"), Format: "uuid"}, true
	case "[]byte":
		return &openapi.Schema{Type: str("string"), Format: "byte"}, true
	case "any", "interface{}", "json.RawMessage":
		return &openapi.Schema{}, true
	}
	return nil, false
}
