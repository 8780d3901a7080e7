// Package openapi holds the document model shared by every stage of the
// toolchain: the Document, its Components, operations and parameters, and
// the recursive Schema node.
//
// The package targets the OpenAPI Specification v3.1 with JSON Schema
// Draft 2020-12 schemas.
//
// See: https://spec.openapis.org/oas/v3.1.0
// See: https://json-schema.org/draft/2020-12/json-schema-core
// See: https://json-schema.org/draft/2020-12/json-schema-validation
//
// # Reading and Writing Documents
//
// Parse accepts JSON or YAML and Marshal writes either:
//
//	doc, err := openapi.Parse(data)
//	out, err := openapi.Marshal(doc, openapi.FormatYAML)
//
// Go field names never appear on the wire. Keywords that collide with Go
// identifiers or carry a sigil ($ref, $id, $self, default, enum, if, then,
// else) are mapped through struct tags, so the key table is fixed.
//
// Keys the model has no field for are kept in the Extra bag of the object
// they were found on and written back in sorted order after the known
// fields. This covers "x-" extensions as well as keywords from other
// revisions of the format (for example the 3.0 "nullable" flag):
//
//	s.Extra["x-go-type"] // "Name"
//
// A schema written as the literal true or false decodes with Boolean set.
//
// # Loading
//
// Loader reads a document from a file path or an http(s) URL:
//
//	doc, err := (&openapi.Loader{}).Load(ctx, "https://example.com/openapi.yaml")
//
// Lint runs the kin-openapi validator over raw bytes. It is advisory only;
// nothing in this module depends on its verdict.
//
// # References
//
// References are resolved by their last path segment only. RefName returns
// that segment and SchemaResolver looks it up; Components and Document both
// implement it. ResolveSchema follows a chain of references and reports
// ErrUnresolvedReference for a missing target or a cycle.
//
// # Equality
//
// Equal and Diff compare any two model values structurally, treating nil
// and empty collections alike. CloneSchema and CloneDocument return deep
// copies so transformations never modify a schema owned by a document.
//
// # Parameter Defaults
//
// EffectiveStyle and EffectiveExplode apply the location defaults: form
// style with explode for query and cookie parameters, simple style without
// explode everywhere else.
package openapi
