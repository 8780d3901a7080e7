package extract

import (
	"go/token"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/vitalvas/apisync/assemble"
	"github.com/vitalvas/apisync/model"
	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/source"
)

// DefaultAuthorizationURL is the authorization URL of oauth2 schemes
// guessed from a token field name.
const DefaultAuthorizationURL = "https://example.com/oauth/authorize"

// verbs maps method name prefixes to HTTP methods for client methods
// without a route directive.
var verbs = []struct {
	prefix string
	method string
}{
	{"get", "GET"},
	{"post", "POST"},
	{"put", "PUT"},
	{"delete", "DELETE"},
	{"patch", "PATCH"},
}

// Parameter names with a fixed meaning.
const (
	BodyParam      = "body"
	FormParam      = "form"
	MultipartParam = "multipart"
)

var bodyContent = map[string]string{
	BodyParam:      "application/json",
	FormParam:      "application/x-www-form-urlencoded",
	MultipartParam: "multipart/form-data",
}

func clientUnit(u *assemble.Unit, f *source.File, d *source.Decl) {
	for _, field := range d.Fields {
		prefix, ok := strings.CutSuffix(field.Name, "Token")
		if !ok || prefix == "" || field.Embedded {
			continue
		}
		name := strcase.ToLowerCamel(prefix)
		u.AddSecurityScheme(name, securityScheme(prefix, field.Directives))
	}

	for _, m := range f.MethodsOf(d.Name) {
		if !token.IsExported(m.Name) || m.Directives.Has("ignore") {
			continue
		}
		route(u, m.Signature)
	}
}

// securityScheme reads the scheme of a token field from its security
// directive or, without one, guesses it from the field name: bearer
// tokens, API keys sent in X-API-Key, and oauth2 implicit flows for
// anything else.
func securityScheme(prefix string, directives source.Attributes) *openapi.SecurityScheme {
	if attr, ok := directives.Get("security"); ok {
		s := &openapi.SecurityScheme{}
		set := func(key string, dst *string) {
			if v, ok := attr.Option(key); ok {
				*dst = v
			}
		}
		set("type", &s.Type)
		set("scheme", &s.Scheme)
		set("bearerFormat", &s.BearerFormat)
		set("name", &s.Name)
		set("in", &s.In)
		set("openIdConnectUrl", &s.OpenIDConnectURL)
		if s.Type == "oauth2" {
			flow := &openapi.OAuthFlow{AuthorizationURL: DefaultAuthorizationURL, Scopes: map[string]string{}}
			set("authorizationUrl", &flow.AuthorizationURL)
			s.Flows = &openapi.OAuthFlows{Implicit: flow}
		}
		if s.Type != "" {
			return s
		}
	}

	lower := strings.ToLower(prefix)
	switch {
	case strings.Contains(lower, "bearer"):
		return &openapi.SecurityScheme{Type: "http", Scheme: "bearer"}
	case strings.Contains(lower, "api") || strings.Contains(lower, "key"):
		return &openapi.SecurityScheme{Type: "apiKey", Name: "X-API-Key", In: openapi.InHeader}
	default:
		return &openapi.SecurityScheme{
			Type: "oauth2",
			Flows: &openapi.OAuthFlows{Implicit: &openapi.OAuthFlow{
				AuthorizationURL: DefaultAuthorizationURL,
				Scopes:           map[string]string{},
			}},
		}
	}
}

// routeOf returns the HTTP method and path template of a client method.
func routeOf(m *source.Method) (string, string, bool) {
	if attr, ok := m.Directives.Get("route"); ok && len(attr.Args) >= 2 && assemble.IsMethod(attr.Args[0]) {
		return strings.ToUpper(attr.Args[0]), attr.Args[1], true
	}
	lower := strings.ToLower(m.Name)
	for _, v := range verbs {
		if strings.HasPrefix(lower, v.prefix) {
			return v.method, "/" + m.Name, true
		}
	}
	return "", "", false
}

func route(u *assemble.Unit, m *source.Method) {
	method, path, ok := routeOf(m)
	if !ok {
		return
	}

	b := u.Route(method, path)
	operation(b, m, m.Name)

	pathVars := assemble.PathVariables(path)
	for _, p := range m.Params {
		if isContext(p.Type) {
			continue
		}
		if ct, ok := bodyContent[p.Name]; ok {
			b.RequestContent(ct, model.TypeSchema(p.Type))
			if strings.HasPrefix(p.Type, "*") {
				b.RequestRequired(false)
			}
			continue
		}
		b.Parameter(parameter(p, m.Directives, pathVars))
	}

	status := 200
	if attr, ok := m.Directives.Get("response"); ok {
		if code, err := strconv.Atoi(attr.Arg()); err == nil {
			status = code
		}
	}
	result := payloadResult(m.Results)
	if result == "" {
		b.Response(status, nil)
	} else {
		b.Response(status, model.TypeSchema(result))
	}

	for name, target := range links(m.Doc) {
		b.ResponseLink(status, name, &openapi.Link{OperationID: target})
	}
}

// operation sets the metadata a client method, webhook or callback method
// shares. id is the operation ID used without an operationId directive.
func operation(b *assemble.OperationBuilder, m *source.Method, id string) {
	b.OperationID(id)
	if attr, ok := m.Directives.Get("operationId"); ok && attr.Arg() != "" {
		b.OperationID(attr.Arg())
	}

	summary, description := splitDoc(stripLinks(m.Doc))
	b.Summary(summary).Description(description)

	for _, attr := range m.Directives.All("tags") {
		b.Tags(attr.Args...)
	}
	if m.Directives.Has("deprecated") {
		b.Deprecated()
	}
	if attr, ok := m.Directives.Get("security"); ok {
		if attr.Arg() == "none" {
			b.Security()
		} else {
			reqs := make([]openapi.SecurityRequirement, 0, len(attr.Args))
			for _, name := range attr.Args {
				reqs = append(reqs, openapi.SecurityRequirement{name: {}})
			}
			b.Security(reqs...)
		}
	}
}

// parameter describes one Go parameter of a client method. Its location is
// path when the route names it, query otherwise, unless a param directive
// says differently.
func parameter(p source.Param, directives source.Attributes, pathVars []string) *openapi.Parameter {
	param := &openapi.Parameter{
		Name:   p.Name,
		In:     openapi.InQuery,
		Schema: model.TypeSchema(p.Type),
	}

	var attr source.Attribute
	for _, a := range directives.All("param") {
		if a.Arg() == p.Name {
			attr = a
			break
		}
	}
	if name, ok := attr.Option("name"); ok {
		param.Name = name
	}

	if in, ok := attr.Option("in"); ok {
		param.In = in
	} else if slices.Contains(pathVars, param.Name) {
		param.In = openapi.InPath
	}

	if style, ok := attr.Option("style"); ok {
		param.Style = style
	}
	if explode, ok := attr.Option("explode"); ok {
		if v, err := strconv.ParseBool(explode); err == nil {
			param.Explode = &v
		} else {
			slog.Debug("invalid explode flag", "param", p.Name, "value", explode)
		}
	}

	param.Required = param.In == openapi.InPath ||
		slices.Contains(attr.Args, "required") ||
		!OptionalType(p.Type)
	return param
}

// OptionalType reports whether a Go type has a natural absent value: nil
// pointers, slices, maps and interfaces.
func OptionalType(expr string) bool {
	return expr == "any" || expr == "interface{}" ||
		strings.HasPrefix(expr, "*") || strings.HasPrefix(expr, "[]") || strings.HasPrefix(expr, "map[")
}

func isContext(expr string) bool {
	return expr == "context.Context"
}

// payloadResult returns the first result that is not an error.
func payloadResult(results []string) string {
	for _, r := range results {
		if r != "error" {
			return r
		}
	}
	return ""
}

// links reads "@link name -> operationId" lines.
func links(doc string) map[string]string {
	out := make(map[string]string)
	for line := range strings.SplitSeq(doc, "\n") {
		name, target, ok := parseLink(line)
		if ok {
			out[name] = target
		}
	}
	return out
}

func parseLink(line string) (string, string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "@link")
	if !ok {
		return "", "", false
	}
	name, target, ok := strings.Cut(rest, "->")
	name, target = strings.TrimSpace(name), strings.TrimSpace(target)
	if !ok || name == "" || target == "" {
		return "", "", false
	}
	return name, target, true
}

// stripLinks removes link lines from a doc comment.
func stripLinks(doc string) string {
	var lines []string
	for line := range strings.SplitSeq(doc, "\n") {
		if _, _, ok := parseLink(line); !ok {
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// splitDoc returns the first paragraph of doc on one line as the summary
// and the remaining paragraphs as the description.
func splitDoc(doc string) (string, string) {
	first, rest, _ := strings.Cut(doc, "\n\n")
	return strings.Join(strings.Fields(first), " "), strings.TrimSpace(rest)
}
