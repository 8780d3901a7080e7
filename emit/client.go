package emit

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/vitalvas/apisync/assemble"
	"github.com/vitalvas/apisync/extract"
	"github.com/vitalvas/apisync/openapi"
)

type client struct {
	Name        string
	Comment     []string
	Credentials []credential
	Methods     []*method

	// methodFor names the method of each operation.
	methodFor map[*openapi.Operation]string
	types     *goTypes
}

// credential is one <Scheme>Token field and how it is sent.
type credential struct {
	Field   string
	Comment []string
	// Kind is bearer, basic, header, query or cookie.
	Kind string
	// Name is the header, query or cookie name.
	Name string
}

type method struct {
	Name    string
	Comment []string
	Params  string
	Result  string

	HTTPMethod string
	Path       string
	PathParams []encoded
	Query      []encoded
	Headers    []encoded
	Cookies    []encoded

	// Body is the body parameter, empty without a request body.
	Body         string
	BodyOptional bool
	ContentType  string
}

// encoded is a params.Encode call: a params.Param literal and the Go
// variable it encodes.
type encoded struct {
	Param string
	Var   string
}

// locals are the identifiers generated method bodies declare or import.
var locals = []string{
	"ctx", "c", "req", "err", "out", "path", "payload", "query",
	"bytes", "context", "fmt", "http", "io", "json", "params", "strings", "time", "union", "url", "uuid",
}

var bodyParams = map[string]string{
	"application/json":                  extract.BodyParam,
	"application/x-www-form-urlencoded": extract.FormParam,
	"multipart/form-data":               extract.MultipartParam,
}

var inConsts = map[string]string{
	openapi.InPath:   "params.InPath",
	openapi.InQuery:  "params.InQuery",
	openapi.InHeader: "params.InHeader",
	openapi.InCookie: "params.InCookie",
}

// newClient renders the client struct with one method per operation.
// It returns nil for a document without operations or security schemes.
func newClient(doc *openapi.Document, name string, taken names, types *goTypes) *client {
	if doc == nil {
		return nil
	}
	var schemes map[string]*openapi.SecurityScheme
	if doc.Components != nil {
		schemes = doc.Components.SecuritySchemes
	}
	if len(doc.Paths) == 0 && len(schemes) == 0 {
		return nil
	}

	c := &client{Name: taken.claim(name), methodFor: make(map[*openapi.Operation]string), types: types}
	var directives []string
	if c.Name != extract.DefaultClient {
		directives = append(directives, "client")
	}
	c.Comment = comment(c.Name+" calls the "+title(doc)+" API.", directives)

	members := newNames()
	members.claim("BaseURL")
	members.claim("HTTPClient")

	for _, schemeName := range slices.Sorted(maps.Keys(schemes)) {
		c.Credentials = append(c.Credentials, credentialOf(schemeName, schemes[schemeName], members))
	}

	for _, path := range slices.Sorted(maps.Keys(doc.Paths)) {
		item := doc.Paths[path]
		if item == nil {
			continue
		}
		for _, m := range item.Methods() {
			c.Methods = append(c.Methods, c.method(doc, path, item, m, members))
		}
	}

	return c
}

func title(doc *openapi.Document) string {
	if doc.Info.Title == "" {
		return "remote"
	}
	return doc.Info.Title
}

func credentialOf(name string, s *openapi.SecurityScheme, members names) credential {
	cr := credential{Field: members.claim(strcase.ToCamel(name) + "Token"), Kind: "bearer"}
	if s == nil {
		return cr
	}

	args := []string{"type=" + s.Type}
	add := func(key, value string) {
		if value != "" {
			args = append(args, key+"="+value)
		}
	}
	add("scheme", s.Scheme)
	add("bearerFormat", s.BearerFormat)
	add("name", s.Name)
	add("in", s.In)
	add("openIdConnectUrl", s.OpenIDConnectURL)
	if s.Flows != nil && s.Flows.Implicit != nil {
		add("authorizationUrl", s.Flows.Implicit.AuthorizationURL)
	}
	cr.Comment = comment("", []string{"security " + strings.Join(args, " ")})

	switch {
	case s.Type == "http" && strings.EqualFold(s.Scheme, "basic"):
		cr.Kind = "basic"
	case s.Type == "apiKey":
		cr.Kind, cr.Name = s.In, s.Name
		if cr.Kind == "" {
			cr.Kind = openapi.InHeader
		}
	}
	return cr
}

func (c *client) method(doc *openapi.Document, path string, item *openapi.PathItem, m openapi.Method, members names) *method {
	op := m.Operation

	goName := exported(op.OperationID)
	if op.OperationID == "" {
		goName = exported(strings.ToLower(m.Name) + " " + path)
	}
	goName = members.claim(goName)
	c.methodFor[op] = goName

	md := &method{Name: goName, HTTPMethod: m.Name, Path: path}

	vars := assemble.PathVariables(path)
	scope := newNames()
	for _, l := range locals {
		scope.claim(l)
	}
	for _, p := range bodyParams {
		scope.claim(p)
	}

	signature := []string{"ctx context.Context"}
	directives := []string{"route " + m.Name + " " + path}
	directives = append(directives, operationDirectives(op, goName)...)

	for _, p := range operationParameters(doc, item, op) {
		goVar := scope.claim(unexported(p.Name))
		typ, directive := parameterOf(c.types, p, goVar, vars)
		signature = append(signature, goVar+" "+typ)
		if directive != "" {
			directives = append(directives, directive)
		}

		call := encoded{Param: paramLiteral(p), Var: goVar}
		switch p.In {
		case openapi.InPath:
			md.PathParams = append(md.PathParams, call)
		case openapi.InHeader:
			md.Headers = append(md.Headers, call)
		case openapi.InCookie:
			md.Cookies = append(md.Cookies, call)
		default:
			md.Query = append(md.Query, call)
		}
	}

	if body := doc.ResolveRequestBody(op.RequestBody); body != nil && len(body.Content) > 0 {
		contentType := preferredContent(body.Content)
		typ := c.types.of(body.Content[contentType].Schema)
		if !body.Required && !extract.OptionalType(typ) {
			typ = "*" + typ
			md.BodyOptional = true
		}
		md.Body = bodyParams[contentType]
		if md.Body == "" {
			md.Body = extract.BodyParam
		}
		md.ContentType = contentType
		signature = append(signature, md.Body+" "+typ)
	}

	status, resp := successResponse(doc, op)
	if status != "" && status != "200" {
		directives = append(directives, "response "+status)
	}
	text := operationDoc(op)
	if resp != nil {
		if len(resp.Content) > 0 {
			md.Result = c.types.of(resp.Content[preferredContent(resp.Content)].Schema)
		}
		if links := linkLines(resp.Links); links != "" {
			text = strings.TrimSpace(text + "\n" + links)
		}
	}

	md.Params = strings.Join(signature, ", ")
	md.Comment = comment(text, directives)
	return md
}

// operationParameters resolves the path item's and the operation's
// parameters. Operation parameters override path item parameters with the
// same name and location.
func operationParameters(doc *openapi.Document, item *openapi.PathItem, op *openapi.Operation) []*openapi.Parameter {
	var out []*openapi.Parameter
	add := func(list []*openapi.Parameter) {
		for _, p := range list {
			resolved := doc.ResolveParameter(p)
			if resolved == nil {
				slog.Warn("unresolved parameter reference; skipped", "ref", p.Ref)
				continue
			}
			i := slices.IndexFunc(out, func(q *openapi.Parameter) bool {
				return q.Name == resolved.Name && q.In == resolved.In
			})
			if i >= 0 {
				out[i] = resolved
				continue
			}
			out = append(out, resolved)
		}
	}
	add(item.Parameters)
	add(op.Parameters)
	return out
}

// parameterOf returns the Go type of p and the param directive that
// makes extract read it back, empty when none is needed.
func parameterOf(types *goTypes, p *openapi.Parameter, goVar string, vars []string) (string, string) {
	inPath := p.In == openapi.InPath
	required := p.Required || inPath

	typ := types.of(p.Schema)
	if !required && !extract.OptionalType(typ) {
		typ = "*" + typ
	}

	args := []string{goVar}
	if goVar != p.Name {
		args = append(args, "name="+p.Name)
	}
	inferred := openapi.InQuery
	if slices.Contains(vars, p.Name) {
		inferred = openapi.InPath
	}
	if p.In != inferred {
		args = append(args, "in="+p.In)
	}
	if p.Style != "" {
		args = append(args, "style="+p.Style)
	}
	if p.Explode != nil {
		args = append(args, "explode="+strconv.FormatBool(*p.Explode))
	}
	if required && !inPath && extract.OptionalType(typ) {
		args = append(args, "required")
	}

	if len(args) == 1 {
		return typ, ""
	}
	return typ, "param " + strings.Join(args, " ")
}

func paramLiteral(p *openapi.Parameter) string {
	in, ok := inConsts[p.In]
	if !ok {
		in = strconv.Quote(p.In)
	}
	lit := fmt.Sprintf("params.Param{Name: %q, In: %s", p.Name, in)
	if p.Style != "" {
		lit += fmt.Sprintf(", Style: %q", p.Style)
	}
	if p.Explode != nil {
		lit += fmt.Sprintf(", Explode: params.Bool(%t)", *p.Explode)
	}
	return lit + "}"
}

// preferredContent picks the media type a method sends or reads: JSON,
// then form and multipart bodies, then the first JSON-like type, then the
// first in name order.
func preferredContent(content map[string]*openapi.MediaType) string {
	for _, ct := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if _, ok := content[ct]; ok {
			return ct
		}
	}
	keys := slices.Sorted(maps.Keys(content))
	for _, ct := range keys {
		if strings.Contains(ct, "json") {
			return ct
		}
	}
	return keys[0]
}

// successResponse returns the first 2xx response in status order.
func successResponse(doc *openapi.Document, op *openapi.Operation) (string, *openapi.Response) {
	for _, status := range slices.Sorted(maps.Keys(op.Responses)) {
		code, err := strconv.Atoi(status)
		if err != nil || code < 200 || code > 299 {
			continue
		}
		return status, doc.ResolveResponse(op.Responses[status])
	}
	return "", nil
}

func linkLines(links map[string]*openapi.Link) string {
	var lines []string
	for _, name := range slices.Sorted(maps.Keys(links)) {
		if l := links[name]; l != nil && l.OperationID != "" {
			lines = append(lines, "@link "+name+" -> "+l.OperationID)
		}
	}
	return strings.Join(lines, "\n")
}
