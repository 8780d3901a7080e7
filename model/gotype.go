package model

import (
	"go/token"
	"strconv"

	"github.com/iancoleman/strcase"

	"github.com/vitalvas/apisync/typemap"
)

// TypeName turns a schema name into an exported Go identifier. Names that
// already are exported identifiers are kept as they are.
func TypeName(name string) string {
	if token.IsIdentifier(name) && token.IsExported(name) {
		return name
	}
	ident := strcase.ToCamel(name)
	if ident == "" || !token.IsIdentifier(ident) {
		return "T" + ident
	}
	return ident
}

// GoType renders t as a Go type expression, the inverse of TypeSchema for
// the types it produces.
func GoType(t typemap.TypeRef) string {
	return GoTypeNamed(t, TypeName)
}

// GoTypeNamed is GoType with references named by typeName, for callers
// that had to rename colliding types.
func GoTypeNamed(t typemap.TypeRef, typeName func(schema string) string) string {
	switch t.Kind {
	case typemap.KindRef:
		return typeName(t.Name)
	case typemap.KindList:
		return "[]" + GoTypeNamed(*t.Elem, typeName)
	case typemap.KindMap:
		return "map[string]" + GoTypeNamed(*t.Elem, typeName)
	case typemap.KindTuple:
		return "[" + strconv.Itoa(len(t.Elems)) + "]any"
	case typemap.KindText:
		return "string"
	case typemap.KindTimestamp:
		return "time.Time"
	case typemap.KindUUID:
		return "uuid.UUID"
	case typemap.KindInt32:
		return "int32"
	case typemap.KindInt64:
		return "int64"
	case typemap.KindFloat32:
		return "float32"
	case typemap.KindFloat64:
		return "float64"
	case typemap.KindBool:
		return "bool"
	default:
		return "any"
	}
}
