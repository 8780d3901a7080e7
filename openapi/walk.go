package openapi

import (
	"maps"
	"slices"
)

// Walk calls fn for s and for every schema nested in it, parents before
// children. When fn returns false the children of that schema are skipped.
// References are not followed.
func Walk(s *Schema, fn func(*Schema) bool) {
	if s == nil || !fn(s) {
		return
	}

	for _, child := range []*Schema{
		s.Items, s.Contains, s.UnevaluatedItems,
		s.AdditionalProperties, s.UnevaluatedProperties, s.PropertyNames,
		s.Not, s.If, s.Then, s.Else, s.ContentSchema,
	} {
		Walk(child, fn)
	}
	for _, list := range [][]*Schema{s.PrefixItems, s.AllOf, s.OneOf, s.AnyOf} {
		for _, child := range list {
			Walk(child, fn)
		}
	}
	for _, m := range []map[string]*Schema{s.Properties, s.PatternProperties, s.DependentSchemas, s.Defs} {
		for _, key := range slices.Sorted(maps.Keys(m)) {
			Walk(m[key], fn)
		}
	}
}

// WalkDocument calls Walk for every schema reachable from doc: component
// schemas, parameters, request bodies, responses and headers of every path,
// webhook and callback. A schema shared by several places is visited once.
func WalkDocument(doc *Document, fn func(*Schema) bool) {
	if doc == nil {
		return
	}

	w := &docWalker{fn: fn, seen: make(map[*Schema]bool)}
	for _, name := range slices.Sorted(maps.Keys(doc.Paths)) {
		w.pathItem(doc.Paths[name])
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Webhooks)) {
		w.pathItem(doc.Webhooks[name])
	}

	c := doc.Components
	if c == nil {
		return
	}
	for _, name := range slices.Sorted(maps.Keys(c.Schemas)) {
		w.schema(c.Schemas[name])
	}
	for _, name := range slices.Sorted(maps.Keys(c.Parameters)) {
		w.parameter(c.Parameters[name])
	}
	for _, name := range slices.Sorted(maps.Keys(c.RequestBodies)) {
		w.content(c.RequestBodies[name].Content)
	}
	for _, name := range slices.Sorted(maps.Keys(c.Responses)) {
		w.response(c.Responses[name])
	}
	for _, name := range slices.Sorted(maps.Keys(c.Headers)) {
		w.header(c.Headers[name])
	}
	for _, name := range slices.Sorted(maps.Keys(c.Callbacks)) {
		w.callback(c.Callbacks[name])
	}
	for _, name := range slices.Sorted(maps.Keys(c.PathItems)) {
		w.pathItem(c.PathItems[name])
	}
}

type docWalker struct {
	fn   func(*Schema) bool
	seen map[*Schema]bool
}

func (w *docWalker) schema(s *Schema) {
	Walk(s, func(s *Schema) bool {
		if w.seen[s] {
			return false
		}
		w.seen[s] = true
		return w.fn(s)
	})
}

func (w *docWalker) pathItem(p *PathItem) {
	if p == nil {
		return
	}
	for _, param := range p.Parameters {
		w.parameter(param)
	}
	for _, op := range p.Operations() {
		w.operation(op)
	}
}

func (w *docWalker) operation(op *Operation) {
	for _, param := range op.Parameters {
		w.parameter(param)
	}
	if op.RequestBody != nil {
		w.content(op.RequestBody.Content)
	}
	for _, key := range slices.Sorted(maps.Keys(op.Responses)) {
		w.response(op.Responses[key])
	}
	for _, key := range slices.Sorted(maps.Keys(op.Callbacks)) {
		w.callback(op.Callbacks[key])
	}
}

func (w *docWalker) callback(cb *Callback) {
	if cb == nil {
		return
	}
	for _, expr := range slices.Sorted(maps.Keys(*cb)) {
		w.pathItem((*cb)[expr])
	}
}

func (w *docWalker) parameter(p *Parameter) {
	if p == nil {
		return
	}
	w.schema(p.Schema)
	w.content(p.Content)
}

func (w *docWalker) response(r *Response) {
	if r == nil {
		return
	}
	w.content(r.Content)
	for _, name := range slices.Sorted(maps.Keys(r.Headers)) {
		w.header(r.Headers[name])
	}
}

func (w *docWalker) header(h *Header) {
	if h == nil {
		return
	}
	w.schema(h.Schema)
	w.content(h.Content)
}

func (w *docWalker) content(c map[string]*MediaType) {
	for _, ct := range slices.Sorted(maps.Keys(c)) {
		if mt := c[ct]; mt != nil {
			w.schema(mt.Schema)
		}
	}
}

// Method names an HTTP method together with its operation on a path item.
type Method struct {
	Name      string
	Operation *Operation
}

// Methods returns the operations of the path item paired with their
// upper-case HTTP method, in a fixed order.
func (p *PathItem) Methods() []Method {
	if p == nil {
		return nil
	}
	var out []Method
	for _, m := range []Method{
		{"GET", p.Get}, {"PUT", p.Put}, {"POST", p.Post}, {"DELETE", p.Delete},
		{"OPTIONS", p.Options}, {"HEAD", p.Head}, {"PATCH", p.Patch}, {"TRACE", p.Trace},
	} {
		if m.Operation != nil {
			out = append(out, m)
		}
	}
	return out
}

// Operations returns the non-nil operations of the path item in the order
// of Methods.
func (p *PathItem) Operations() []*Operation {
	methods := p.Methods()
	out := make([]*Operation, len(methods))
	for i, m := range methods {
		out[i] = m.Operation
	}
	return out
}
