package merge

import (
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/apisync/source"
)

const directivePrefix = "//openapi:"

// lineIndent returns the whitespace between the start of the line holding
// pos and pos, or "" when other text precedes pos on that line.
func lineIndent(src []byte, pos int) string {
	start := pos
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	indent := string(src[start:pos])
	if strings.Trim(indent, " \t") != "" {
		return ""
	}
	return indent
}

// reindent swaps the from prefix for to on every line after the first.
func reindent(text, from, to string) string {
	if from == to {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}
		lines[i] = to + strings.TrimPrefix(lines[i], from)
	}
	return strings.Join(lines, "\n")
}

func isType(d *source.Decl) bool {
	return strings.HasPrefix(d.Key, "type:")
}

// contentFor renders the generated declaration's content for the place
// the destination declaration occupies, moving a type spec in or out of a
// parenthesized type block as needed.
func contentFor(gen *source.File, g *source.Decl, dest *source.File, d *source.Decl) string {
	text := gen.Text(g.Content)
	if !isType(g) || !isType(d) {
		return text
	}

	genIndent := lineIndent(gen.Src, g.Content.Start)
	destIndent := lineIndent(dest.Src, d.Content.Start)

	switch {
	case g.Grouped && d.Grouped:
		return reindent(text, genIndent, destIndent)
	case g.Grouped:
		return "type " + reindent(text, genIndent, "")
	case d.Grouped:
		spec := strings.TrimLeft(strings.TrimPrefix(text, "type"), " \t")
		return reindent(spec, "", destIndent)
	}
	return text
}

// standalone renders a generated declaration as top-level text with its
// doc comment.
func standalone(gen *source.File, g *source.Decl) string {
	if !g.Grouped {
		return gen.Text(g.Full)
	}

	indent := lineIndent(gen.Src, g.Content.Start)
	var b strings.Builder
	if g.DocSpan.Len() > 0 {
		b.WriteString(reindent(gen.Text(g.DocSpan), indent, ""))
		b.WriteString("\n")
	}
	b.WriteString("type ")
	b.WriteString(reindent(gen.Text(g.Content), indent, ""))
	return b.String()
}

// docLines returns the trimmed lines of a declaration's doc comment.
func docLines(f *source.File, d *source.Decl) []string {
	if d.DocSpan.Len() == 0 {
		return nil
	}
	lines := strings.Split(f.Text(d.DocSpan), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func directiveLines(f *source.File, d *source.Decl) []string {
	var out []string
	for _, line := range docLines(f, d) {
		if strings.HasPrefix(line, directivePrefix) {
			out = append(out, line)
		}
	}
	return out
}

// docEdit brings the directive lines of the destination doc in line with
// the generated ones. Free text in the destination doc is kept; the
// directives follow it after an empty comment line.
func docEdit(gen *source.File, g *source.Decl, dest *source.File, d *source.Decl) (edit, bool) {
	want := directiveLines(gen, g)
	if slices.Equal(want, directiveLines(dest, d)) {
		return edit{}, false
	}

	var lines []string
	for _, line := range docLines(dest, d) {
		if !strings.HasPrefix(line, directivePrefix) {
			lines = append(lines, line)
		}
	}
	for len(lines) > 0 && lines[len(lines)-1] == "//" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && len(want) > 0 {
		lines = append(lines, "//")
	}
	lines = append(lines, want...)

	if d.DocSpan.Len() == 0 {
		indent := lineIndent(dest.Src, d.Content.Start)
		text := strings.Join(lines, "\n"+indent) + "\n" + indent
		return edit{start: d.Content.Start, end: d.Content.Start, text: text}, true
	}

	if len(lines) == 0 {
		return edit{start: d.DocSpan.Start, end: d.Content.Start}, true
	}

	indent := lineIndent(dest.Src, d.DocSpan.Start)
	return edit{start: d.DocSpan.Start, end: d.DocSpan.End, text: strings.Join(lines, "\n"+indent)}, true
}

// importEdits adds the generated file's imports that dest lacks.
func importEdits(gen, dest *source.File, res *Result) []edit {
	var missing []source.Import
	for _, imp := range gen.Imports {
		if !dest.HasImport(imp.Path) {
			missing = append(missing, imp)
			res.Imports = append(res.Imports, imp.Path)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	specs := make([]string, len(missing))
	for i, imp := range missing {
		specs[i] = strconv.Quote(imp.Path)
		if imp.Name != "" {
			specs[i] = imp.Name + " " + specs[i]
		}
	}

	var text string
	switch {
	case dest.HasImports && dest.ImportGrouped:
		if pos := dest.ImportInsert; pos > 0 && dest.Src[pos-1] != '\n' {
			text = "\n"
		}
		for _, spec := range specs {
			text += "\t" + spec + "\n"
		}
	case dest.HasImports:
		for _, spec := range specs {
			text += "\nimport " + spec
		}
	case len(specs) == 1:
		text = "\n\nimport " + specs[0]
	default:
		text = "\n\nimport (\n"
		for _, spec := range specs {
			text += "\t" + spec + "\n"
		}
		text += ")"
	}

	return []edit{{start: dest.ImportInsert, end: dest.ImportInsert, text: text}}
}
