// Package source reads Go source into a generic declaration tree.
//
// Every top-level declaration becomes a Decl carrying its kind, fields or
// cases, leading documentation, directive comments and the byte spans it
// occupies in the original text. Model extraction and declaration merging
// work on this tree only.
//
// # Directives
//
// Lines of the form
//
//	//openapi:name arg1 arg2
//
// inside a doc comment become Attributes on the declaration, field or
// method they document. Like other Go directives they are not part of the
// documentation text.
//
// # Field Attributes
//
// Struct fields carry validation metadata in an openapi tag:
//
//	Name string `json:"name" openapi:"minLength=1,maxLength=64"`
//
// Each key becomes an Attribute. A pattern containing a comma goes into a
// separate pattern tag.
package source

import (
	"slices"
	"strings"
)

// Kind classifies a top-level declaration.
type Kind int

const (
	// KindProduct is a struct type.
	KindProduct Kind = iota
	// KindEnum is a named scalar type with a const block of its values.
	KindEnum
	// KindUnion is a struct marked with an openapi:oneOf or openapi:anyOf
	// directive; each field is one branch.
	KindUnion
	// KindAlias is a named type over a non-struct type.
	KindAlias
	// KindInterface is an interface type.
	KindInterface
	// KindFunc is a function without receiver.
	KindFunc
	// KindMethod is a method.
	KindMethod
	// KindConst is a const block.
	KindConst
	// KindVar is a var block.
	KindVar
)

var kindNames = [...]string{
	KindProduct:   "product",
	KindEnum:      "enum",
	KindUnion:     "union",
	KindAlias:     "alias",
	KindInterface: "interface",
	KindFunc:      "func",
	KindMethod:    "method",
	KindConst:     "const",
	KindVar:       "var",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsType reports whether declarations of this kind are type declarations.
func (k Kind) IsType() bool {
	switch k {
	case KindProduct, KindEnum, KindUnion, KindAlias, KindInterface:
		return true
	}
	return false
}

// Attribute is a name with an ordered argument list.
type Attribute struct {
	Name string
	Args []string
}

// Arg returns the first argument, or "" when there is none.
func (a Attribute) Arg() string {
	if len(a.Args) == 0 {
		return ""
	}
	return a.Args[0]
}

// Option returns the value of the first key=value argument named key.
func (a Attribute) Option(key string) (string, bool) {
	for _, arg := range a.Args {
		if k, v, ok := strings.Cut(arg, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// Attributes is an ordered attribute list.
type Attributes []Attribute

// Get returns the first attribute named name. Names compare without case.
func (as Attributes) Get(name string) (Attribute, bool) {
	for _, a := range as {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Attribute{}, false
}

// Has reports whether an attribute named name exists.
func (as Attributes) Has(name string) bool {
	_, ok := as.Get(name)
	return ok
}

// All returns every attribute named name in order.
func (as Attributes) All(name string) []Attribute {
	var out []Attribute
	for _, a := range as {
		if strings.EqualFold(a.Name, name) {
			out = append(out, a)
		}
	}
	return out
}

// Span is a half-open byte range [Start, End) in the source text.
type Span struct {
	Start int
	End   int
}

// Len returns the length of the span.
func (s Span) Len() int { return s.End - s.Start }

// Field is one struct field.
type Field struct {
	// Name is the Go identifier; WireName is the serialized key.
	Name     string
	WireName string
	// Type is the field's type expression as written, e.g. "*[]Tag".
	Type string
	// Optional is set for pointer fields and for omitempty/omitzero.
	Optional bool
	Embedded bool
	Doc      string
	// Attributes holds the openapi and pattern tag entries.
	Attributes Attributes
	// Directives holds openapi directives from the field's doc comment.
	Directives Attributes
}

// Case is one value of an enumeration or one branch of a union.
type Case struct {
	// Name is the Go identifier.
	Name string
	// Value is the wire value; for string constants it is unquoted.
	Value string
	// Payload lists the payload type expressions. Enumeration cases have
	// none; union branches usually have exactly one.
	Payload []string
	Doc     string
}

// Param is one function parameter.
type Param struct {
	Name string
	Type string
}

// Method is a function signature with its documentation.
type Method struct {
	Name       string
	Doc        string
	Directives Attributes
	Params     []Param
	Results    []string
}

// Decl is one top-level declaration.
type Decl struct {
	// Key identifies the declaration within a file. Types are keyed
	// "type:Name", const and var blocks "const:Name" and "var:Name",
	// functions "func:Name" and methods "method:Recv.Name". A const block
	// is named after the type of its first constant.
	Key  string
	Name string
	Kind Kind

	Doc        string
	Directives Attributes

	// Underlying is the type expression of an enum or alias.
	Underlying string
	Fields     []Field
	Cases      []Case
	// Methods lists interface methods.
	Methods []Method
	// Receiver and Signature are set for functions and methods.
	Receiver  string
	Signature *Method

	// Full covers the doc comment, the declaration and a trailing comment
	// on its last line. Content covers the declaration alone: from the
	// keyword (or, for a spec inside a group, the spec name) to its end.
	Full    Span
	Content Span
	// Grouped marks a type spec that sits inside a parenthesized group.
	// Its Content then excludes the "type" keyword.
	Grouped bool
	// DocSpan covers the doc comment; empty when there is none.
	DocSpan Span
}

// Import is one import spec.
type Import struct {
	Name string
	Path string
}

// File is a parsed source file.
type File struct {
	Src     []byte
	Package string
	Imports []Import
	Decls   []*Decl

	// ImportInsert is the byte offset where a new import line may be
	// inserted, and ImportGrouped reports whether that offset is inside a
	// parenthesized import block.
	ImportInsert  int
	ImportGrouped bool
	HasImports    bool
}

// Text returns the source bytes covered by sp.
func (f *File) Text(sp Span) string {
	return string(f.Src[sp.Start:sp.End])
}

// Lookup returns the declaration with the given key.
func (f *File) Lookup(key string) (*Decl, bool) {
	for _, d := range f.Decls {
		if d.Key == key {
			return d, true
		}
	}
	return nil, false
}

// Type returns the type declaration named name.
func (f *File) Type(name string) (*Decl, bool) {
	return f.Lookup("type:" + name)
}

// MethodsOf returns the methods declared on receiver type recv, in order.
func (f *File) MethodsOf(recv string) []*Decl {
	var out []*Decl
	for _, d := range f.Decls {
		if d.Kind == KindMethod && d.Receiver == recv {
			out = append(out, d)
		}
	}
	return out
}

// HasImport reports whether path is imported.
func (f *File) HasImport(path string) bool {
	return slices.ContainsFunc(f.Imports, func(i Import) bool { return i.Path == path })
}
