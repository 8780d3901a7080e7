package openapi

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// compareOptions treats nil and empty collections as equal, since neither
// is written to the wire.
var compareOptions = cmp.Options{
	cmp.AllowUnexported(SchemaType{}),
	cmpopts.EquateEmpty(),
}

// Equal reports whether a and b are structurally equal. It accepts any
// pair of model values (documents, schemas, operations).
func Equal(a, b any) bool {
	return cmp.Equal(a, b, compareOptions)
}

// Diff returns a human-readable report of the differences between a and
// b, or "" when they are equal.
func Diff(a, b any) string {
	return cmp.Diff(a, b, compareOptions)
}

// CloneSchema returns a deep copy of s. Transformations build on a clone
// rather than modifying a schema that belongs to a document.
func CloneSchema(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	out := new(Schema)
	cloneInto(s, out)
	return out
}

// CloneDocument returns a deep copy of doc.
func CloneDocument(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	out := new(Document)
	cloneInto(doc, out)
	return out
}

func cloneInto(src, dst any) {
	data, err := json.Marshal(src)
	if err != nil {
		panic("openapi: clone: " + err.Error())
	}
	if err := json.Unmarshal(data, dst); err != nil {
		panic("openapi: clone: " + err.Error())
	}
}
