package assemble

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/vitalvas/apisync/openapi"
)

// macroTypeMap maps path variable macros ({id:uuid}) to an OpenAPI type
// and format.
var macroTypeMap = map[string][2]string{
	"uuid":     {"string", "uuid"},
	"int":      {"integer", ""},
	"int64":    {"integer", "int64"},
	"float":    {"number", ""},
	"slug":     {"string", ""},
	"alpha":    {"string", ""},
	"alphanum": {"string", ""},
	"date":     {"string", "date"},
	"hex":      {"string", ""},
	"domain":   {"string", "hostname"},
}

// pathVarRegexp matches route variables in the form {name} or {name:macro}.
var pathVarRegexp = regexp.MustCompile(`\{([^}]+)\}`)

// ParsePath extracts the variables of a route template, converts it to
// OpenAPI form and returns one required path parameter per variable.
// Variables without a known macro are strings.
func ParsePath(tpl string) (string, []*openapi.Parameter) {
	var params []*openapi.Parameter

	path := pathVarRegexp.ReplaceAllStringFunc(tpl, func(match string) string {
		varName, macroName, _ := strings.Cut(match[1:len(match)-1], ":")

		param := &openapi.Parameter{
			Name:     varName,
			In:       openapi.InPath,
			Required: true,
			Schema:   &openapi.Schema{Type: openapi.TypeString("string")},
		}
		if typeInfo, ok := macroTypeMap[macroName]; ok {
			param.Schema = &openapi.Schema{Type: openapi.TypeString(typeInfo[0]), Format: typeInfo[1]}
		}

		params = append(params, param)
		return "{" + varName + "}"
	})

	return path, params
}

// PathVariables returns the variable names of an OpenAPI path template in
// order.
func PathVariables(path string) []string {
	var out []string
	for _, m := range pathVarRegexp.FindAllStringSubmatch(path, -1) {
		name, _, _ := strings.Cut(m[1], ":")
		out = append(out, name)
	}
	return out
}

// slot returns the operation field of the path item for method, or nil
// for a method OpenAPI has no field for.
func slot(pathItem *openapi.PathItem, method string) **openapi.Operation {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return &pathItem.Get
	case http.MethodPost:
		return &pathItem.Post
	case http.MethodPut:
		return &pathItem.Put
	case http.MethodDelete:
		return &pathItem.Delete
	case http.MethodPatch:
		return &pathItem.Patch
	case http.MethodHead:
		return &pathItem.Head
	case http.MethodOptions:
		return &pathItem.Options
	case http.MethodTrace:
		return &pathItem.Trace
	}
	return nil
}

// IsMethod reports whether method names an operation of a path item.
func IsMethod(method string) bool {
	return slot(&openapi.PathItem{}, method) != nil
}

// assignOperation stores op under method unless the path item already has
// an operation there. It reports whether op was stored.
func assignOperation(pathItem *openapi.PathItem, method string, op *openapi.Operation) bool {
	field := slot(pathItem, method)
	if field == nil || *field != nil {
		return false
	}
	*field = op
	return true
}
