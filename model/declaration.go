// Package model converts between schemas and named declarations.
//
// FromSchema turns a named schema into a Declaration: a product type, a
// closed enumeration, a tagged union or a named alias. ToSchema goes the
// other way, reading a declaration parsed from Go source. Both are pure and
// never modify their inputs.
package model

import (
	"strings"

	"github.com/vitalvas/apisync/typemap"
)

// Kind classifies a declaration.
type Kind int

const (
	Product Kind = iota
	Enum
	Union
	// Alias is a named schema over a scalar, array or map type.
	Alias
)

func (k Kind) String() string {
	switch k {
	case Product:
		return "product"
	case Enum:
		return "enum"
	case Union:
		return "union"
	case Alias:
		return "alias"
	default:
		return "unknown"
	}
}

// Composition names the keyword a union was declared with.
type Composition string

const (
	OneOf Composition = "oneOf"
	AnyOf Composition = "anyOf"
)

// Declaration is a named type shape derived from a schema.
type Declaration struct {
	Name string
	Kind Kind
	Doc  string

	// Fields is set for Product, in wire-name order.
	Fields []Field
	// Cases is set for Enum.
	Cases []Case
	// Branches, Composition and Discriminator are set for Union.
	Branches      []Branch
	Composition   Composition
	Discriminator *Discriminator
	// Target and Validation are set for Alias.
	Target     typemap.TypeRef
	Validation Validation
}

// Field is one property of a product type.
type Field struct {
	// Name is the wire name.
	Name       string
	Type       typemap.TypeRef
	Required   bool
	Nullable   bool
	Doc        string
	Validation Validation
}

// Validation carries constraint metadata. It is never evaluated.
type Validation struct {
	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string
}

// IsZero reports whether no constraint is set.
func (v Validation) IsZero() bool {
	return v.Minimum == nil && v.Maximum == nil && v.MinLength == nil &&
		v.MaxLength == nil && v.Pattern == "" && v.Format == ""
}

// Case is one enumeration value.
type Case struct {
	// Name is derived from Value: separators become underscores and the
	// result is lower-cased. Value is kept verbatim for the wire.
	Name  string
	Value string
}

// Branch is one alternative of a union.
type Branch struct {
	Name string
	Type typemap.TypeRef
}

// Discriminator selects a union branch by a property value.
type Discriminator struct {
	Property string
	// Mapping maps property values to bare type names.
	Mapping map[string]string
}

// BranchFor returns the index of the branch selected by value: the
// explicit mapping is consulted first, then value is compared with each
// branch type's bare name.
func (d *Discriminator) BranchFor(value string, branches []Branch) (int, bool) {
	target := value
	if name, ok := d.Mapping[value]; ok {
		target = name
	}
	for i, b := range branches {
		if b.Type.Kind == typemap.KindRef && b.Type.Name == target {
			return i, true
		}
	}
	return -1, false
}

// CaseName derives a case identifier from a wire value.
func CaseName(value string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '.', '/', ':':
			return '_'
		}
		return r
	}, value)
	return strings.ToLower(name)
}
