package emit

import (
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/vitalvas/apisync/model"
	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/typemap"
)

type typeDecl struct {
	Name    string
	Kind    string
	Comment []string

	// Underlying is the type of enums and aliases.
	Underlying string
	Fields     []field
	Consts     []constant
	Branches   []branch
	// Property and Mapping are set for discriminated unions; Mapping is a
	// Go map literal.
	Property string
	Mapping  string
}

type field struct {
	Name    string
	Type    string
	Tag     string
	Comment []string
}

type constant struct {
	Name  string
	Value string
}

type branch struct {
	Field string
	Type  string
	// Name is matched against discriminator values.
	Name string
}

// goTypes maps component schema names to the Go types declared for them.
type goTypes struct {
	doc   *openapi.Document
	names map[string]string
}

// declareTypes claims a Go type for every component schema, in schema
// name order.
func declareTypes(doc *openapi.Document, taken names) *goTypes {
	t := &goTypes{doc: doc, names: make(map[string]string)}
	if doc == nil || doc.Components == nil {
		return t
	}

	for _, name := range slices.Sorted(maps.Keys(doc.Components.Schemas)) {
		goName := model.TypeName(name)
		if claimed := taken.claim(goName); claimed != goName {
			slog.Warn("schema names map to the same Go type; renaming", "schema", name, "type", claimed)
			goName = claimed
		}
		t.names[name] = goName
	}
	return t
}

// name returns the Go type declared for a schema.
func (t *goTypes) name(schema string) string {
	if goName, ok := t.names[schema]; ok {
		return goName
	}
	return model.TypeName(schema)
}

func (t *goTypes) expr(ref typemap.TypeRef) string {
	return model.GoTypeNamed(ref, t.name)
}

// of renders the Go type of an inline schema. References to schemas the
// document does not hold become any.
func (t *goTypes) of(s *openapi.Schema) string {
	var r openapi.SchemaResolver
	if t.doc != nil {
		r = t.doc
	}
	return t.expr(model.ResolveType(s, r))
}

// models renders every component schema, in name order.
func models(doc *openapi.Document, types *goTypes) []*typeDecl {
	if doc == nil || doc.Components == nil {
		return nil
	}

	var out []*typeDecl
	for _, name := range slices.Sorted(maps.Keys(doc.Components.Schemas)) {
		d := model.FromSchema(name, doc.Components.Schemas[name], doc)
		out = append(out, typeDeclOf(d, types.name(name), types))
	}
	return out
}

func typeDeclOf(d model.Declaration, name string, types *goTypes) *typeDecl {
	t := &typeDecl{Name: name}

	switch d.Kind {
	case model.Enum:
		t.Kind = "enum"
		t.Underlying = "string"
		t.Comment = comment(d.Doc, nil)
		consts := newNames()
		for _, c := range d.Cases {
			suffix := strcase.ToCamel(c.Name)
			if suffix == "" {
				suffix = "Empty"
			}
			t.Consts = append(t.Consts, constant{
				Name:  consts.claim(name + suffix),
				Value: strconv.Quote(c.Value),
			})
		}

	case model.Union:
		t.Kind = "union"
		t.Comment = comment(d.Doc, unionDirectives(d))
		t.Branches = branches(d, types)
		if d.Discriminator != nil {
			t.Property = d.Discriminator.Property
			t.Mapping = mappingLiteral(d.Discriminator.Mapping)
		}

	case model.Alias:
		t.Kind = "alias"
		t.Underlying = types.expr(d.Target)
		t.Comment = comment(d.Doc, nil)

	default:
		t.Kind = "struct"
		t.Comment = comment(d.Doc, nil)
		fields := newNames()
		for _, f := range d.Fields {
			t.Fields = append(t.Fields, fieldOf(f, fields, types))
		}
	}

	return t
}

// fieldOf renders a product field. Optional scalars and references become
// pointers, and every optional field is omitted when empty.
func fieldOf(f model.Field, taken names, types *goTypes) field {
	typ := types.expr(f.Type)
	optional := !f.Required
	if (optional || f.Nullable) && !nillable(f.Type) {
		typ = "*" + typ
	}

	jsonTag := f.Name
	if optional {
		jsonTag += ",omitempty"
	}
	var attrs []string
	pattern := ""
	for _, a := range f.Validation.Attributes() {
		if a.Name == "pattern" {
			pattern = a.Arg()
			continue
		}
		attrs = append(attrs, a.Name+"="+a.Arg())
	}

	tags := []string{`json:` + strconv.Quote(jsonTag)}
	if len(attrs) > 0 {
		tags = append(tags, `openapi:`+strconv.Quote(strings.Join(attrs, ",")))
	}
	if pattern != "" {
		tags = append(tags, `pattern:`+strconv.Quote(pattern))
	}

	return field{
		Name:    taken.claim(exported(f.Name)),
		Type:    typ,
		Tag:     tagLiteral(strings.Join(tags, " ")),
		Comment: comment(f.Doc, nil),
	}
}

// nillable reports whether the Go rendering of t already has a nil value.
func nillable(t typemap.TypeRef) bool {
	switch t.Kind {
	case typemap.KindList, typemap.KindMap, typemap.KindOpaque:
		return true
	}
	return false
}

// tagLiteral quotes a struct tag, as a raw string unless it contains a
// backquote.
func tagLiteral(tag string) string {
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

func unionDirectives(d model.Declaration) []string {
	out := []string{string(d.Composition)}
	if d.Discriminator == nil {
		return out
	}
	out = append(out, "discriminator "+d.Discriminator.Property)
	if len(d.Discriminator.Mapping) > 0 {
		var pairs []string
		for _, value := range slices.Sorted(maps.Keys(d.Discriminator.Mapping)) {
			pairs = append(pairs, value+"="+d.Discriminator.Mapping[value])
		}
		out = append(out, "mapping "+strings.Join(pairs, " "))
	}
	return out
}

// branches renders one pointer field per union branch. Referenced types
// name their field after the Go type and their branch after the schema,
// the name discriminator values match. Anything else is named after its
// position.
func branches(d model.Declaration, types *goTypes) []branch {
	taken := newNames()
	out := make([]branch, 0, len(d.Branches))
	for i, b := range d.Branches {
		field, name := "Option"+strconv.Itoa(i+1), b.Name
		if b.Type.Kind == typemap.KindRef {
			field, name = types.name(b.Type.Name), b.Type.Name
		}
		out = append(out, branch{
			Field: taken.claim(field),
			Type:  types.expr(b.Type),
			Name:  name,
		})
	}
	return out
}

func mappingLiteral(mapping map[string]string) string {
	if len(mapping) == 0 {
		return "nil"
	}
	var b strings.Builder
	b.WriteString("map[string]string{")
	for i, value := range slices.Sorted(maps.Keys(mapping)) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(value))
		b.WriteString(": ")
		b.WriteString(strconv.Quote(mapping[value]))
	}
	b.WriteString("}")
	return b.String()
}
