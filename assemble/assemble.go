// Package assemble merges the results of extracting several source units
// into one OpenAPI document.
//
// Each Unit carries the models, routes, webhooks, callbacks and security
// schemes found in one source file. The Assembler adds them in order:
//
//   - identical schemas registered by several units are kept once;
//   - a different schema under a name already taken is renamed, prefixed
//     with its unit's name (or numbered), and every reference inside that
//     unit is rewritten to the new name;
//   - a route or webhook declared twice keeps the first declaration;
//   - callbacks are attached to the operation whose operationId they name
//     and also published under components.callbacks.
//
// Every such decision is logged and listed in the Report. References to
// schemas that exist nowhere are reported as unresolved, not rejected.
package assemble

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/vitalvas/apisync/openapi"
)

// DefaultVersion is the OpenAPI version written when none is set.
const DefaultVersion = "3.1.0"

// Unit collects what was found in one source unit.
type Unit struct {
	// Name identifies the unit, typically its file name without extension.
	// It prefixes schemas renamed on collision.
	Name string

	Schemas         map[string]*openapi.Schema
	SecuritySchemes map[string]*openapi.SecurityScheme
	Security        []openapi.SecurityRequirement

	routes    []route
	webhooks  []route
	callbacks []callbackRoute
}

type route struct {
	method string
	path   string
	op     *OperationBuilder
}

type callbackRoute struct {
	operationID string
	name        string
	expression  string
	route
}

// NewUnit returns an empty unit.
func NewUnit(name string) *Unit {
	return &Unit{Name: name}
}

// AddSchema registers a model schema under name.
func (u *Unit) AddSchema(name string, s *openapi.Schema) *Unit {
	if u.Schemas == nil {
		u.Schemas = make(map[string]*openapi.Schema)
	}
	u.Schemas[name] = s
	return u
}

// AddSecurityScheme registers a security scheme and requires it for every
// operation of the document.
func (u *Unit) AddSecurityScheme(name string, scheme *openapi.SecurityScheme) *Unit {
	if u.SecuritySchemes == nil {
		u.SecuritySchemes = make(map[string]*openapi.SecurityScheme)
	}
	u.SecuritySchemes[name] = scheme
	u.Security = append(u.Security, openapi.SecurityRequirement{name: {}})
	return u
}

// Route returns a builder for the operation served at method and path. The
// path may use {name} and {name:macro} variables.
func (u *Unit) Route(method, path string) *OperationBuilder {
	b := NewOperation()
	u.routes = append(u.routes, route{method: method, path: path, op: b})
	return b
}

// Webhook returns a builder for the webhook operation name sends with
// method.
func (u *Unit) Webhook(name, method string) *OperationBuilder {
	b := NewOperation()
	u.webhooks = append(u.webhooks, route{method: method, path: name, op: b})
	return b
}

// Callback returns a builder for the request the API sends to expression
// with method, as the callback name of operation operationID.
func (u *Unit) Callback(operationID, name, expression, method string) *OperationBuilder {
	b := NewOperation()
	u.callbacks = append(u.callbacks, callbackRoute{
		operationID: operationID,
		name:        name,
		expression:  expression,
		route:       route{method: method, path: expression, op: b},
	})
	return b
}

// Rename records a schema renamed because its name was taken.
type Rename struct {
	Unit string
	From string
	To   string
}

// Report lists the decisions the assembler made.
type Report struct {
	Renamed []Rename
	// Deduplicated names schemas registered identically by several units.
	Deduplicated []string
	// Conflicts lists routes, webhooks and security schemes declared more
	// than once; the first declaration was kept.
	Conflicts []string
	// Unresolved lists references whose target schema is absent.
	Unresolved []string
	// Orphans lists callbacks whose operationId matches no operation.
	Orphans []string
}

// Empty reports whether nothing worth mentioning happened.
func (r *Report) Empty() bool {
	return len(r.Renamed) == 0 && len(r.Deduplicated) == 0 && len(r.Conflicts) == 0 &&
		len(r.Unresolved) == 0 && len(r.Orphans) == 0
}

// Assembler builds a document from units.
type Assembler struct {
	info     openapi.Info
	version  string
	servers  []openapi.Server
	tags     []openapi.Tag
	security []openapi.SecurityRequirement
	units    []*Unit
}

// New returns an assembler for a document with the given info.
func New(info openapi.Info) *Assembler {
	return &Assembler{info: info, version: DefaultVersion}
}

// SetOpenAPI sets the version written to the openapi field.
func (a *Assembler) SetOpenAPI(version string) *Assembler {
	if version != "" {
		a.version = version
	}
	return a
}

// AddServer adds a server to the document.
func (a *Assembler) AddServer(server openapi.Server) *Assembler {
	a.servers = append(a.servers, server)
	return a
}

// AddTag adds a tag with optional description. Tags used by operations
// are collected automatically.
func (a *Assembler) AddTag(tag openapi.Tag) *Assembler {
	a.tags = append(a.tags, tag)
	return a
}

// SetSecurity sets document-level security requirements in addition to
// those implied by the units' security schemes.
func (a *Assembler) SetSecurity(reqs ...openapi.SecurityRequirement) *Assembler {
	a.security = reqs
	return a
}

// Add appends units. Earlier units win conflicts.
func (a *Assembler) Add(units ...*Unit) *Assembler {
	a.units = append(a.units, units...)
	return a
}

// Build assembles the document. Units are not modified and may be built
// again.
func (a *Assembler) Build() (*openapi.Document, *Report) {
	doc := &openapi.Document{
		OpenAPI: a.version,
		Info:    a.info,
		Servers: a.servers,
	}
	report := &Report{}
	comp := &openapi.Components{}

	renames := make([]map[string]string, len(a.units))
	for i, u := range a.units {
		renames[i] = a.addSchemas(comp, u, report)
		a.addRoutes(doc, u, renames[i], report)
		a.addSecurity(doc, comp, u, report)
	}
	// callbacks may name operations of later units
	for i, u := range a.units {
		a.addCallbacks(doc, comp, u, renames[i], report)
	}
	doc.Security = appendRequirements(doc.Security, a.security...)

	if len(comp.Schemas) > 0 || len(comp.SecuritySchemes) > 0 || len(comp.Callbacks) > 0 {
		doc.Components = comp
	}
	doc.Tags = a.mergeTags(doc.Paths, doc.Webhooks)

	openapi.WalkDocument(doc, func(s *openapi.Schema) bool {
		if !strings.HasPrefix(s.Ref, "#/") {
			return true
		}
		name := openapi.RefName(s.Ref)
		if _, ok := doc.LookupSchema(name); !ok && !slices.Contains(report.Unresolved, s.Ref) {
			slog.Warn("unresolved reference", "ref", s.Ref)
			report.Unresolved = append(report.Unresolved, s.Ref)
		}
		return true
	})

	return doc, report
}

// addSchemas copies the unit's schemas into comp and returns the names
// that had to change.
func (a *Assembler) addSchemas(comp *openapi.Components, u *Unit, report *Report) map[string]string {
	if comp.Schemas == nil {
		comp.Schemas = make(map[string]*openapi.Schema)
	}

	renames := make(map[string]string)
	var added []string

	// names are reserved with a nil entry until the unit's schemas are
	// copied, so renamed schemas never take a name the unit still needs
	for _, name := range slices.Sorted(maps.Keys(u.Schemas)) {
		existing, taken := comp.Schemas[name]
		switch {
		case !taken:
			comp.Schemas[name] = nil
		case existing != nil && openapi.Equal(existing, u.Schemas[name]):
			slog.Debug("identical schema registered twice", "schema", name, "unit", u.Name)
			report.Deduplicated = append(report.Deduplicated, name)
			continue
		default:
			to := freeName(comp, u.Name, name)
			slog.Warn("schema name taken; renaming", "schema", name, "unit", u.Name, "to", to)
			report.Renamed = append(report.Renamed, Rename{Unit: u.Name, From: name, To: to})
			renames[name] = to
			comp.Schemas[to] = nil
		}
		added = append(added, name)
	}

	for _, name := range added {
		s := openapi.CloneSchema(u.Schemas[name])
		rewriteRefs(s, renames)
		if to, ok := renames[name]; ok {
			name = to
		}
		comp.Schemas[name] = s
	}
	return renames
}

// freeName picks a name for a schema whose name is taken: the unit name
// as a prefix first, then numeric suffixes.
func freeName(comp *openapi.Components, unit, name string) string {
	if prefix := strcase.ToCamel(unit); prefix != "" {
		candidate := prefix + name
		if _, taken := comp.Schemas[candidate]; !taken {
			return candidate
		}
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if _, taken := comp.Schemas[candidate]; !taken {
			return candidate
		}
	}
}

// rewriteRefs points references to renamed schemas at their new names.
func rewriteRefs(s *openapi.Schema, renames map[string]string) {
	if len(renames) == 0 {
		return
	}
	openapi.Walk(s, func(s *openapi.Schema) bool {
		if s.Ref == "" {
			return true
		}
		if to, ok := renames[openapi.RefName(s.Ref)]; ok {
			s.Ref = openapi.SchemaRef(to)
		}
		return true
	})
}

// rewriteOperation returns op with references to renamed schemas
// rewritten. op is copied first when anything is renamed.
func rewriteOperation(op *openapi.Operation, renames map[string]string) *openapi.Operation {
	if len(renames) == 0 {
		return op
	}
	doc := openapi.CloneDocument(&openapi.Document{Paths: map[string]*openapi.PathItem{"/": {Get: op}}})
	openapi.WalkDocument(doc, func(s *openapi.Schema) bool {
		if to, ok := renames[openapi.RefName(s.Ref)]; ok && s.Ref != "" {
			s.Ref = openapi.SchemaRef(to)
		}
		return true
	})
	return doc.Paths["/"].Get
}

func (a *Assembler) addRoutes(doc *openapi.Document, u *Unit, renames map[string]string, report *Report) {
	for _, r := range u.routes {
		path, params := ParsePath(r.path)
		op := rewriteOperation(r.op.Build(params), renames)

		if doc.Paths == nil {
			doc.Paths = make(map[string]*openapi.PathItem)
		}
		if !place(doc.Paths, path, r.method, op) {
			conflict := strings.ToUpper(r.method) + " " + path
			slog.Warn("route declared twice; keeping the first", "route", conflict, "unit", u.Name)
			report.Conflicts = append(report.Conflicts, conflict)
		}
	}

	for _, r := range u.webhooks {
		op := rewriteOperation(r.op.Build(nil), renames)

		if doc.Webhooks == nil {
			doc.Webhooks = make(map[string]*openapi.PathItem)
		}
		if !place(doc.Webhooks, r.path, r.method, op) {
			conflict := "webhook " + r.path + " " + strings.ToUpper(r.method)
			slog.Warn("webhook declared twice; keeping the first", "webhook", r.path, "method", r.method, "unit", u.Name)
			report.Conflicts = append(report.Conflicts, conflict)
		}
	}
}

// place stores op in items[key] under method, creating the path item as
// needed. It reports false when the slot is taken or the method unknown.
func place(items map[string]*openapi.PathItem, key, method string, op *openapi.Operation) bool {
	item, ok := items[key]
	if !ok {
		item = &openapi.PathItem{}
	}
	if !assignOperation(item, method, op) {
		return false
	}
	items[key] = item
	return true
}

func (a *Assembler) addSecurity(doc *openapi.Document, comp *openapi.Components, u *Unit, report *Report) {
	for _, name := range slices.Sorted(maps.Keys(u.SecuritySchemes)) {
		scheme := u.SecuritySchemes[name]
		if existing, ok := comp.SecuritySchemes[name]; ok {
			if !openapi.Equal(existing, scheme) {
				slog.Warn("security scheme declared twice; keeping the first", "scheme", name, "unit", u.Name)
				report.Conflicts = append(report.Conflicts, "securityScheme "+name)
			}
			continue
		}
		if comp.SecuritySchemes == nil {
			comp.SecuritySchemes = make(map[string]*openapi.SecurityScheme)
		}
		comp.SecuritySchemes[name] = scheme
	}
	doc.Security = appendRequirements(doc.Security, u.Security...)
}

// appendRequirements appends the requirements not already present.
func appendRequirements(list []openapi.SecurityRequirement, reqs ...openapi.SecurityRequirement) []openapi.SecurityRequirement {
	for _, req := range reqs {
		if !slices.ContainsFunc(list, func(r openapi.SecurityRequirement) bool { return openapi.Equal(r, req) }) {
			list = append(list, req)
		}
	}
	return list
}

func (a *Assembler) addCallbacks(doc *openapi.Document, comp *openapi.Components, u *Unit, renames map[string]string, report *Report) {
	// callbacks of one unit are grouped by operation and name first, since
	// a callback may hold several expressions and methods
	type key struct{ operationID, name string }
	var order []key
	grouped := make(map[key]openapi.Callback)

	for _, c := range u.callbacks {
		k := key{c.operationID, c.name}
		cb, ok := grouped[k]
		if !ok {
			cb = make(openapi.Callback)
			grouped[k] = cb
			order = append(order, k)
		}
		if !place(cb, c.expression, c.method, rewriteOperation(c.op.Build(nil), renames)) {
			conflict := fmt.Sprintf("callback %s.%s %s %s", c.operationID, c.name, strings.ToUpper(c.method), c.expression)
			slog.Warn("callback declared twice; keeping the first", "callback", conflict)
			report.Conflicts = append(report.Conflicts, conflict)
		}
	}

	for _, k := range order {
		cb := grouped[k]

		if op := findOperation(doc, k.operationID); op != nil {
			if op.Callbacks == nil {
				op.Callbacks = make(map[string]*openapi.Callback)
			}
			attached := cloneCallback(cb)
			op.Callbacks[k.name] = &attached
		} else {
			slog.Warn("callback names an unknown operation", "operationId", k.operationID, "callback", k.name)
			report.Orphans = append(report.Orphans, k.operationID+"."+k.name)
		}

		if comp.Callbacks == nil {
			comp.Callbacks = make(map[string]*openapi.Callback)
		}
		name := k.name
		if _, taken := comp.Callbacks[name]; taken {
			name = k.operationID + strcase.ToCamel(k.name)
		}
		comp.Callbacks[name] = &cb
	}
}

func cloneCallback(cb openapi.Callback) openapi.Callback {
	doc := openapi.CloneDocument(&openapi.Document{Webhooks: cb})
	return doc.Webhooks
}

// findOperation returns the path operation with the given operationId.
func findOperation(doc *openapi.Document, operationID string) *openapi.Operation {
	for _, path := range slices.Sorted(maps.Keys(doc.Paths)) {
		for _, op := range doc.Paths[path].Operations() {
			if op.OperationID == operationID {
				return op
			}
		}
	}
	return nil
}

// mergeTags combines tags collected from operations with the assembler's
// own tags. The assembler's tags take precedence (their description and
// externalDocs are kept) and are included even when unused. The result is
// sorted by name.
func (a *Assembler) mergeTags(pathMaps ...map[string]*openapi.PathItem) []openapi.Tag {
	userTags := make(map[string]openapi.Tag, len(a.tags))
	for _, tag := range a.tags {
		userTags[tag.Name] = tag
	}

	seen := make(map[string]bool)
	var tags []openapi.Tag

	for _, paths := range pathMaps {
		for _, pathItem := range paths {
			for _, op := range pathItem.Operations() {
				for _, tagName := range op.Tags {
					if seen[tagName] {
						continue
					}
					seen[tagName] = true
					if userTag, ok := userTags[tagName]; ok {
						tags = append(tags, userTag)
					} else {
						tags = append(tags, openapi.Tag{Name: tagName})
					}
				}
			}
		}
	}

	for _, tag := range a.tags {
		if !seen[tag.Name] {
			seen[tag.Name] = true
			tags = append(tags, tag)
		}
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})

	return tags
}
