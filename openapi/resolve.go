package openapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedReference is returned when a $ref names a schema that is
// absent from the components table.
var ErrUnresolvedReference = errors.New("openapi: unresolved reference")

// SchemaRefPrefix is the reference prefix for component schemas.
const SchemaRefPrefix = "#/components/schemas/"

// SchemaResolver looks schemas up by bare name.
type SchemaResolver interface {
	LookupSchema(name string) (*Schema, bool)
}

// RefName returns the last path segment of a reference, with JSON Pointer
// escapes undone. References are matched by this name only; the rest of
// the URI is ignored.
func RefName(ref string) string {
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		ref = ref[i+1:]
	} else if i := strings.LastIndexByte(ref, '#'); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(ref)
}

// SchemaRef returns the local reference to the named component schema.
func SchemaRef(name string) string {
	return SchemaRefPrefix + strings.NewReplacer("~", "~0", "/", "~1").Replace(name)
}

// RefSchema returns a schema holding only a reference to name.
func RefSchema(name string) *Schema {
	return &Schema{Ref: SchemaRef(name)}
}

// LookupSchema implements SchemaResolver. It is safe on a nil receiver.
func (c *Components) LookupSchema(name string) (*Schema, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.Schemas[name]
	return s, ok && s != nil
}

// LookupSchema implements SchemaResolver over the document's components.
func (d *Document) LookupSchema(name string) (*Schema, bool) {
	if d == nil {
		return nil, false
	}
	return d.Components.LookupSchema(name)
}

// ResolveSchema follows a chain of references starting at s and returns
// the first schema that is not a pure reference. A cycle of references
// or a missing target yields ErrUnresolvedReference.
func ResolveSchema(r SchemaResolver, s *Schema) (*Schema, error) {
	seen := make(map[string]struct{})
	for s != nil && s.Ref != "" {
		name := RefName(s.Ref)
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %s (cycle)", ErrUnresolvedReference, s.Ref)
		}
		seen[name] = struct{}{}

		var target *Schema
		var ok bool
		if r != nil {
			target, ok = r.LookupSchema(name)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedReference, s.Ref)
		}
		s = target
	}
	return s, nil
}

// ResolveParameter follows a reference into components.parameters. It
// returns nil for a missing target or a reference cycle.
func (d *Document) ResolveParameter(p *Parameter) *Parameter {
	return resolveComponent(d.components().Parameters, p, func(p *Parameter) string { return p.Ref })
}

// ResolveRequestBody follows a reference into components.requestBodies.
func (d *Document) ResolveRequestBody(b *RequestBody) *RequestBody {
	return resolveComponent(d.components().RequestBodies, b, func(b *RequestBody) string { return b.Ref })
}

// ResolveResponse follows a reference into components.responses.
func (d *Document) ResolveResponse(r *Response) *Response {
	return resolveComponent(d.components().Responses, r, func(r *Response) string { return r.Ref })
}

func (d *Document) components() *Components {
	if d == nil || d.Components == nil {
		return &Components{}
	}
	return d.Components
}

func resolveComponent[T any](table map[string]*T, v *T, ref func(*T) string) *T {
	seen := make(map[string]struct{})
	for v != nil && ref(v) != "" {
		name := RefName(ref(v))
		if _, ok := seen[name]; ok {
			return nil
		}
		seen[name] = struct{}{}
		v = table[name]
	}
	return v
}

// Parameter serialization styles.
//
// See: https://spec.openapis.org/oas/v3.1.0#style-values
const (
	StyleSimple         = "simple"
	StyleLabel          = "label"
	StyleMatrix         = "matrix"
	StyleForm           = "form"
	StyleSpaceDelimited = "spaceDelimited"
	StylePipeDelimited  = "pipeDelimited"
	StyleDeepObject     = "deepObject"
)

// Parameter locations.
const (
	InPath   = "path"
	InQuery  = "query"
	InHeader = "header"
	InCookie = "cookie"
)

// DefaultStyle returns the style used for a parameter at location in when
// none is given: form for query and cookie, simple otherwise.
func DefaultStyle(in string) string {
	switch in {
	case InQuery, InCookie:
		return StyleForm
	default:
		return StyleSimple
	}
}

// EffectiveStyle returns the declared style or the location default.
func (p *Parameter) EffectiveStyle() string {
	if p.Style != "" {
		return p.Style
	}
	return DefaultStyle(p.In)
}

// EffectiveExplode returns the declared explode flag, defaulting to true
// for form style and false for every other style.
func (p *Parameter) EffectiveExplode() bool {
	if p.Explode != nil {
		return *p.Explode
	}
	return p.EffectiveStyle() == StyleForm
}
