// Package typemap resolves a schema to the abstract type a declaration
// field or parameter should carry.
//
// Resolve is total: every schema maps to some TypeRef, falling back to
// Opaque when no rule applies. References are never followed, so
// self-referential schemas resolve to a named Ref instead of expanding.
package typemap

import (
	"strings"

	"github.com/vitalvas/apisync/openapi"
)

// Kind enumerates the abstract types a schema can map to.
type Kind int

const (
	KindOpaque Kind = iota
	KindRef
	KindList
	KindTuple
	KindMap
	KindText
	KindTimestamp
	KindUUID
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
)

var kindNames = [...]string{
	KindOpaque:    "Opaque",
	KindRef:       "Ref",
	KindList:      "List",
	KindTuple:     "Tuple",
	KindMap:       "Map",
	KindText:      "Text",
	KindTimestamp: "Timestamp",
	KindUUID:      "Uuid",
	KindInt32:     "Int32",
	KindInt64:     "Int64",
	KindFloat32:   "Float32",
	KindFloat64:   "Float64",
	KindBool:      "Bool",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(?)"
	}
	return kindNames[k]
}

// TypeRef is an abstract type. Name is set for KindRef, Elem for KindList
// and KindMap (the value type; map keys are always text), and Elems for
// KindTuple.
type TypeRef struct {
	Kind  Kind
	Name  string
	Elem  *TypeRef
	Elems []TypeRef
}

// Opaque is the fallback type.
var Opaque = TypeRef{Kind: KindOpaque}

// Ref returns a named reference.
func Ref(name string) TypeRef { return TypeRef{Kind: KindRef, Name: name} }

// List returns a list of elem.
func List(elem TypeRef) TypeRef { return TypeRef{Kind: KindList, Elem: &elem} }

// Map returns a text-keyed map of elem.
func Map(elem TypeRef) TypeRef { return TypeRef{Kind: KindMap, Elem: &elem} }

// Tuple returns a fixed-length positional tuple.
func Tuple(elems ...TypeRef) TypeRef { return TypeRef{Kind: KindTuple, Elems: elems} }

// Scalar returns a TypeRef with no parameters.
func Scalar(k Kind) TypeRef { return TypeRef{Kind: k} }

// IsScalar reports whether t is a leaf type other than a reference.
func (t TypeRef) IsScalar() bool {
	switch t.Kind {
	case KindText, KindTimestamp, KindUUID, KindInt32, KindInt64, KindFloat32, KindFloat64, KindBool:
		return true
	}
	return false
}

// Equal reports structural equality.
func (t TypeRef) Equal(o TypeRef) bool {
	if t.Kind != o.Kind || t.Name != o.Name || len(t.Elems) != len(o.Elems) {
		return false
	}
	if (t.Elem == nil) != (o.Elem == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*o.Elem) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

// String renders t in a compact notation such as List<Ref(Pet)>.
func (t TypeRef) String() string {
	switch t.Kind {
	case KindRef:
		return "Ref(" + t.Name + ")"
	case KindList:
		return "List<" + t.Elem.String() + ">"
	case KindMap:
		return "Map<Text," + t.Elem.String() + ">"
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "Tuple<" + strings.Join(parts, ",") + ">"
	default:
		return t.Kind.String()
	}
}

// Resolve maps a schema to a TypeRef. The first matching rule wins:
//
//  1. $ref or $dynamicRef: Ref(last path segment)
//  2. array: Tuple of prefixItems, else List of items (or
//     unevaluatedItems) when that schema has a ref or type, else List(Opaque)
//  3. object: Map(Text, value) when additionalProperties (or
//     unevaluatedProperties) has a ref or type, else Opaque
//  4. string: Timestamp for date-time, Uuid for uuid, else Text
//  5. integer: Int64 for int64, else Int32
//  6. number: Float32 for float, else Float64
//  7. boolean: Bool
//  8. anything else, including inline composition: Opaque
//
// A nullable type list such as ["string", "null"] resolves by its
// non-null member.
func Resolve(s *openapi.Schema) TypeRef {
	if s == nil || s.Boolean != nil {
		return Opaque
	}

	if s.Ref != "" {
		return Ref(openapi.RefName(s.Ref))
	}
	if s.DynamicRef != "" {
		return Ref(openapi.RefName(s.DynamicRef))
	}

	switch s.Type.Primary() {
	case "array":
		if len(s.PrefixItems) > 0 {
			elems := make([]TypeRef, len(s.PrefixItems))
			for i, item := range s.PrefixItems {
				elems[i] = Resolve(item)
			}
			return Tuple(elems...)
		}
		if item := firstTyped(s.Items, s.UnevaluatedItems); item != nil {
			return List(Resolve(item))
		}
		return List(Opaque)

	case "object":
		if value := firstTyped(s.AdditionalProperties, s.UnevaluatedProperties); value != nil {
			return Map(Resolve(value))
		}
		return Opaque

	case "string":
		switch s.Format {
		case "date-time":
			return Scalar(KindTimestamp)
		case "uuid":
			return Scalar(KindUUID)
		}
		return Scalar(KindText)

	case "integer":
		if s.Format == "int64" {
			return Scalar(KindInt64)
		}
		return Scalar(KindInt32)

	case "number":
		if s.Format == "float" {
			return Scalar(KindFloat32)
		}
		return Scalar(KindFloat64)

	case "boolean":
		return Scalar(KindBool)
	}

	return Opaque
}

// firstTyped returns the first candidate that carries its own reference
// or type.
func firstTyped(candidates ...*openapi.Schema) *openapi.Schema {
	for _, c := range candidates {
		if c == nil || c.Boolean != nil {
			continue
		}
		if c.Ref != "" || c.DynamicRef != "" || !c.Type.IsEmpty() {
			return c
		}
	}
	return nil
}
