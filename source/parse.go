package source

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
)

// ParseError reports source text that is not valid Go.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source: parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads one Go source file. Declarations are returned in source
// order; a type whose const block is present in the same file becomes an
// enumeration carrying that block's values as cases.
func Parse(filename string, src []byte) (*File, error) {
	fset := token.NewFileSet()
	af, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}

	p := &fileParser{
		src: src,
		tf:  fset.File(af.Pos()),
	}

	file := &File{
		Src:     src,
		Package: af.Name.Name,
	}

	for _, imp := range af.Imports {
		path, _ := strconv.Unquote(imp.Path.Value)
		entry := Import{Path: path}
		if imp.Name != nil {
			entry.Name = imp.Name.Name
		}
		file.Imports = append(file.Imports, entry)
	}

	file.ImportInsert = p.offset(af.Name.End())
	for _, decl := range af.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			file.Decls = append(file.Decls, p.funcDecl(d))

		case *ast.GenDecl:
			switch d.Tok {
			case token.IMPORT:
				file.HasImports = true
				file.ImportGrouped = d.Lparen.IsValid()
				if file.ImportGrouped {
					file.ImportInsert = p.offset(d.Rparen)
				} else {
					file.ImportInsert = p.offset(d.End())
				}
			case token.TYPE:
				for _, spec := range d.Specs {
					file.Decls = append(file.Decls, p.typeSpec(d, spec.(*ast.TypeSpec)))
				}
			case token.CONST, token.VAR:
				file.Decls = append(file.Decls, p.valueDecl(d))
			}
		}
	}

	promoteEnums(file)
	return file, nil
}

type fileParser struct {
	src []byte
	tf  *token.File
}

func (p *fileParser) offset(pos token.Pos) int {
	return p.tf.Offset(pos)
}

func (p *fileParser) text(n ast.Node) string {
	return string(p.src[p.offset(n.Pos()):p.offset(n.End())])
}

// spans returns the declaration span and the full span with its doc comment
// and any comment trailing the last line.
func (p *fileParser) spans(doc *ast.CommentGroup, from, to token.Pos) (full, content, docSpan Span) {
	content = Span{Start: p.offset(from), End: p.offset(to)}
	full = content
	if doc != nil {
		docSpan = Span{Start: p.offset(doc.Pos()), End: p.offset(doc.End())}
		full.Start = docSpan.Start
	}
	full.End = p.trailingComment(content.End)
	return full, content, docSpan
}

// trailingComment extends end over a line comment that follows it on the
// same line.
func (p *fileParser) trailingComment(end int) int {
	i := end
	for i < len(p.src) && (p.src[i] == ' ' || p.src[i] == '\t') {
		i++
	}
	if i+1 < len(p.src) && p.src[i] == '/' && p.src[i+1] == '/' {
		for i < len(p.src) && p.src[i] != '\n' {
			i++
		}
		return i
	}
	return end
}

func (p *fileParser) typeSpec(gd *ast.GenDecl, ts *ast.TypeSpec) *Decl {
	d := &Decl{
		Key:     "type:" + ts.Name.Name,
		Name:    ts.Name.Name,
		Grouped: gd.Lparen.IsValid(),
	}

	doc := gd.Doc
	from, to := gd.Pos(), gd.End()
	if d.Grouped {
		doc, from, to = ts.Doc, ts.Pos(), ts.End()
	}
	d.Full, d.Content, d.DocSpan = p.spans(doc, from, to)
	d.Doc = docText(doc)
	d.Directives = directives(doc)

	switch t := ts.Type.(type) {
	case *ast.StructType:
		if d.Directives.Has("oneOf") || d.Directives.Has("anyOf") {
			d.Kind = KindUnion
			d.Cases = p.branches(t)
		} else {
			d.Kind = KindProduct
			d.Fields = p.fields(t)
		}

	case *ast.InterfaceType:
		d.Kind = KindInterface
		for _, m := range t.Methods.List {
			ft, ok := m.Type.(*ast.FuncType)
			if !ok || len(m.Names) == 0 {
				continue
			}
			method := p.signature(ft)
			method.Name = m.Names[0].Name
			method.Doc = docText(m.Doc)
			method.Directives = directives(m.Doc)
			d.Methods = append(d.Methods, *method)
		}

	default:
		d.Kind = KindAlias
		d.Underlying = p.text(ts.Type)
	}

	return d
}

func (p *fileParser) fields(st *ast.StructType) []Field {
	var out []Field
	for _, f := range st.Fields.List {
		typ := p.text(f.Type)

		var tag reflect.StructTag
		if f.Tag != nil {
			if unquoted, err := strconv.Unquote(f.Tag.Value); err == nil {
				tag = reflect.StructTag(unquoted)
			}
		}

		wire, opts, skip := jsonTag(tag)
		if skip {
			continue
		}

		base := Field{
			Type:       typ,
			Optional:   strings.HasPrefix(typ, "*") || opts.omit,
			Doc:        docText(f.Doc),
			Attributes: tagAttributes(tag),
			Directives: directives(f.Doc),
		}
		if base.Doc == "" {
			base.Doc = docText(f.Comment)
		}

		if len(f.Names) == 0 {
			base.Name = baseIdent(typ)
			base.Embedded = wire == ""
			base.WireName = wire
			if base.WireName == "" {
				base.WireName = base.Name
			}
			out = append(out, base)
			continue
		}

		for _, name := range f.Names {
			if !name.IsExported() {
				continue
			}
			field := base
			field.Name = name.Name
			field.WireName = wire
			if field.WireName == "" {
				field.WireName = name.Name
			}
			out = append(out, field)
		}
	}
	return out
}

func (p *fileParser) branches(st *ast.StructType) []Case {
	var out []Case
	for _, f := range st.Fields.List {
		typ := f.Type
		if star, ok := typ.(*ast.StarExpr); ok {
			typ = star.X
		}

		var payload []string
		if inner, ok := typ.(*ast.StructType); ok {
			for _, field := range inner.Fields.List {
				n := max(len(field.Names), 1)
				for range n {
					payload = append(payload, p.text(field.Type))
				}
			}
		} else {
			payload = []string{p.text(typ)}
		}

		var tag reflect.StructTag
		if f.Tag != nil {
			if unquoted, err := strconv.Unquote(f.Tag.Value); err == nil {
				tag = reflect.StructTag(unquoted)
			}
		}
		wire, _, _ := jsonTag(tag)

		for _, name := range f.Names {
			c := Case{Name: name.Name, Value: wire, Payload: payload, Doc: docText(f.Doc)}
			if c.Value == "" {
				c.Value = name.Name
			}
			out = append(out, c)
		}
	}
	return out
}

func (p *fileParser) signature(ft *ast.FuncType) *Method {
	m := &Method{}
	if ft.Params != nil {
		for _, f := range ft.Params.List {
			typ := p.text(f.Type)
			if len(f.Names) == 0 {
				m.Params = append(m.Params, Param{Type: typ})
				continue
			}
			for _, name := range f.Names {
				m.Params = append(m.Params, Param{Name: name.Name, Type: typ})
			}
		}
	}
	if ft.Results != nil {
		for _, f := range ft.Results.List {
			typ := p.text(f.Type)
			for range max(len(f.Names), 1) {
				m.Results = append(m.Results, typ)
			}
		}
	}
	return m
}

func (p *fileParser) funcDecl(fd *ast.FuncDecl) *Decl {
	d := &Decl{
		Name:       fd.Name.Name,
		Kind:       KindFunc,
		Key:        "func:" + fd.Name.Name,
		Doc:        docText(fd.Doc),
		Directives: directives(fd.Doc),
	}
	d.Full, d.Content, d.DocSpan = p.spans(fd.Doc, fd.Pos(), fd.End())

	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		d.Kind = KindMethod
		d.Receiver = baseIdent(p.text(fd.Recv.List[0].Type))
		d.Key = "method:" + d.Receiver + "." + d.Name
	}

	d.Signature = p.signature(fd.Type)
	d.Signature.Name = d.Name
	d.Signature.Doc = d.Doc
	d.Signature.Directives = d.Directives
	return d
}

func (p *fileParser) valueDecl(gd *ast.GenDecl) *Decl {
	d := &Decl{
		Kind:       KindConst,
		Doc:        docText(gd.Doc),
		Directives: directives(gd.Doc),
	}
	prefix := "const:"
	if gd.Tok == token.VAR {
		d.Kind = KindVar
		prefix = "var:"
	}
	d.Full, d.Content, d.DocSpan = p.spans(gd.Doc, gd.Pos(), gd.End())

	var current string
	var typed bool
	for i, spec := range gd.Specs {
		vs := spec.(*ast.ValueSpec)
		if vs.Type != nil {
			current = baseIdent(p.text(vs.Type))
		} else if len(vs.Values) > 0 {
			current = ""
		}

		if i == 0 {
			d.Name = current
			typed = current != ""
			if !typed && len(vs.Names) > 0 {
				d.Name = vs.Names[0].Name
			}
		}

		if typed && current != d.Name {
			continue
		}
		for j, name := range vs.Names {
			c := Case{Name: name.Name, Doc: docText(vs.Doc)}
			if j < len(vs.Values) {
				c.Value = literal(p.text(vs.Values[j]))
			}
			d.Cases = append(d.Cases, c)
		}
	}

	d.Key = prefix + d.Name
	return d
}

// promoteEnums turns a named scalar type into an enumeration when the file
// holds a const block typed with it.
func promoteEnums(f *File) {
	for _, d := range f.Decls {
		if d.Kind != KindAlias || !isScalarType(d.Underlying) {
			continue
		}
		block, ok := f.Lookup("const:" + d.Name)
		if !ok || len(block.Cases) == 0 {
			continue
		}
		d.Kind = KindEnum
		d.Cases = block.Cases
	}
}

func isScalarType(expr string) bool {
	switch expr {
	case "string", "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "float32", "float64":
		return true
	}
	return false
}

type jsonOptions struct {
	omit bool
}

// jsonTag returns the wire name and options of a json struct tag, and
// whether the field is excluded from encoding.
func jsonTag(tag reflect.StructTag) (string, jsonOptions, bool) {
	value, ok := tag.Lookup("json")
	if !ok {
		return "", jsonOptions{}, false
	}
	if value == "-" {
		return "", jsonOptions{}, true
	}

	name, rest, _ := strings.Cut(value, ",")
	var opts jsonOptions
	for opt := range strings.SplitSeq(rest, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			opts.omit = true
		}
	}
	return name, opts, false
}

// tagAttributes reads the openapi tag as a comma-separated key=value list
// and the pattern tag as a single pattern attribute.
func tagAttributes(tag reflect.StructTag) Attributes {
	var out Attributes
	if value := tag.Get("openapi"); value != "" {
		for part := range strings.SplitSeq(value, ",") {
			key, arg, hasArg := strings.Cut(part, "=")
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			attr := Attribute{Name: key}
			if hasArg {
				attr.Args = []string{strings.TrimSpace(arg)}
			}
			out = append(out, attr)
		}
	}
	if pattern, ok := tag.Lookup("pattern"); ok {
		out = append(out, Attribute{Name: "pattern", Args: []string{pattern}})
	}
	return out
}

func directives(cg *ast.CommentGroup) Attributes {
	if cg == nil {
		return nil
	}
	var out Attributes
	for _, c := range cg.List {
		text, ok := strings.CutPrefix(c.Text, "//openapi:")
		if !ok {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		out = append(out, Attribute{Name: fields[0], Args: fields[1:]})
	}
	return out
}

func docText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}

// baseIdent strips pointers, type arguments and the package qualifier.
func baseIdent(expr string) string {
	expr = strings.TrimLeft(expr, "*")
	if i := strings.IndexByte(expr, '['); i > 0 {
		expr = expr[:i]
	}
	if i := strings.LastIndexByte(expr, '.'); i >= 0 {
		expr = expr[i+1:]
	}
	return expr
}

func literal(text string) string {
	if unquoted, err := strconv.Unquote(text); err == nil {
		return unquoted
	}
	return text
}
