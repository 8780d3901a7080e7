// Package emit renders an OpenAPI document as Go source that package
// extract reads back: component schemas become model types, operations
// become methods of a client struct, webhooks become an interface and
// the callbacks of each operation become one interface per operation.
//
// The output is formatted with goimports, so imports the generated code
// does not use are dropped.
package emit

import (
	"bytes"
	"embed"
	"fmt"
	"go/token"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
	"golang.org/x/tools/imports"

	"github.com/vitalvas/apisync/extract"
	"github.com/vitalvas/apisync/openapi"
)

//go:embed templates/*
var templatesFS embed.FS

var fileTemplate = template.Must(
	template.New("file.go.tmpl").Funcs(template.FuncMap{
		"quote": strconv.Quote,
	}).ParseFS(templatesFS, "templates/file.go.tmpl"),
)

// DefaultPackage is the package clause of generated files when Options
// leave it unset.
const DefaultPackage = "api"

// Options controls code generation.
type Options struct {
	// Package is the package name. DefaultPackage when empty.
	Package string
	// Client names the client struct. extract.DefaultClient when empty.
	Client string
	// Webhooks names the webhooks interface. extract.WebhooksInterface
	// when empty.
	Webhooks string
}

func (o Options) withDefaults() Options {
	if o.Package == "" {
		o.Package = DefaultPackage
	}
	if o.Client == "" {
		o.Client = extract.DefaultClient
	}
	if o.Webhooks == "" {
		o.Webhooks = extract.WebhooksInterface
	}
	return o
}

type file struct {
	Package   string
	Types     []*typeDecl
	Client    *client
	Webhooks  *iface
	Callbacks []*iface
}

// Document renders doc as a Go source file.
func Document(doc *openapi.Document, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("emit: invalid package name %q", opts.Package)
	}

	names := newNames()
	types := declareTypes(doc, names)
	f := &file{Package: opts.Package}
	f.Types = models(doc, types)
	f.Client = newClient(doc, opts.Client, names, types)
	f.Webhooks = webhooks(doc, opts.Webhooks, names, types)
	f.Callbacks = callbacks(doc, f.Client, names)

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("emit: execute template: %w", err)
	}

	out, err := imports.Process(opts.Package+".go", buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: format: %w", err)
	}
	return out, nil
}

// names hands out identifiers unique within one scope.
type names map[string]struct{}

func newNames() names { return make(names) }

// claim returns name, or name with the lowest numeric suffix from 2 that
// is still free, and reserves it.
func (n names) claim(name string) string {
	out := name
	for i := 2; ; i++ {
		if _, taken := n[out]; !taken {
			break
		}
		out = name + strconv.Itoa(i)
	}
	n[out] = struct{}{}
	return out
}

// exported turns a wire name into an exported identifier.
func exported(name string) string {
	if token.IsIdentifier(name) && token.IsExported(name) {
		return name
	}
	id := strcase.ToCamel(name)
	if id == "" || !token.IsIdentifier(id) {
		return "X" + id
	}
	return id
}

// unexported turns a wire name into a parameter identifier. Keywords get
// a suffix.
func unexported(name string) string {
	id := strcase.ToLowerCamel(name)
	if token.IsKeyword(id) {
		return id + "Param"
	}
	if id == "" || !token.IsIdentifier(id) {
		return "p" + strcase.ToCamel(name)
	}
	return id
}

// comment renders doc text and directives as comment lines. Directives
// are separated from the text by an empty comment line.
func comment(doc string, directives []string) []string {
	var out []string
	doc = strings.TrimSpace(doc)
	if doc != "" {
		for line := range strings.SplitSeq(doc, "\n") {
			line = strings.TrimRight(line, " \t")
			if line == "" {
				out = append(out, "//")
				continue
			}
			out = append(out, "// "+line)
		}
	}
	if len(out) > 0 && len(directives) > 0 {
		out = append(out, "//")
	}
	for _, d := range directives {
		out = append(out, "//openapi:"+d)
	}
	return out
}

// operationDoc joins an operation's summary and description.
func operationDoc(op *openapi.Operation) string {
	summary := strings.TrimSpace(op.Summary)
	description := strings.TrimSpace(op.Description)
	switch {
	case summary == "":
		return description
	case description == "":
		return summary
	}
	return summary + "\n\n" + description
}

// operationDirectives renders the metadata directives extract reads back
// for every kind of operation. id is the operation ID extract derives on
// its own, which needs no directive.
func operationDirectives(op *openapi.Operation, id string) []string {
	var out []string
	if op.OperationID != "" && op.OperationID != id {
		out = append(out, "operationId "+op.OperationID)
	}
	if len(op.Tags) > 0 {
		out = append(out, "tags "+strings.Join(op.Tags, " "))
	}
	if op.Deprecated {
		out = append(out, "deprecated")
	}
	if op.Security != nil {
		if len(op.Security) == 0 {
			out = append(out, "security none")
		} else {
			var schemes []string
			for _, req := range op.Security {
				for _, name := range slices.Sorted(maps.Keys(req)) {
					if !slices.Contains(schemes, name) {
						schemes = append(schemes, name)
					}
				}
			}
			out = append(out, "security "+strings.Join(schemes, " "))
		}
	}
	return out
}
