// Package merge updates an existing Go source file with freshly generated
// declarations without touching anything else in it.
//
// Declarations are matched by kind-scoped key (type:Pet, const:Status,
// method:Client.GetPet). A destination declaration with a generated
// counterpart has its content replaced while its doc comment, blank lines
// and trailing comment stay where they are; only the //openapi: directive
// lines of its doc are brought in line with the generated ones. Every
// other destination byte is copied verbatim. Generated declarations with
// no counterpart are appended after one blank line, and imports they need
// are added to the import block.
//
// Merging the same generated file into its own output changes nothing.
package merge

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/vitalvas/apisync/source"
)

// ErrAmbiguousMerge is returned when the generated file declares the same
// key twice and Options.FailOnDuplicate is set.
var ErrAmbiguousMerge = errors.New("merge: duplicate generated declaration")

// Options controls a merge.
type Options struct {
	// FailOnDuplicate turns duplicate generated declarations into an error
	// instead of keeping the last one.
	FailOnDuplicate bool
}

// Result is the merged text and what happened to each generated key.
type Result struct {
	Output []byte

	// Replaced lists keys whose destination content changed, Unchanged
	// keys whose content was already identical, Appended keys added at
	// the end and Duplicates keys declared more than once in the
	// generated file.
	Replaced   []string
	Unchanged  []string
	Appended   []string
	Duplicates []string
	// Imports lists import paths added to the destination.
	Imports []string
}

// Bytes parses both files and merges generated into dest.
func Bytes(generated, dest []byte, opts Options) (*Result, error) {
	gen, err := source.Parse("generated.go", generated)
	if err != nil {
		return nil, err
	}
	dst, err := source.Parse("dest.go", dest)
	if err != nil {
		return nil, err
	}
	return Merge(gen, dst, opts)
}

// Merge merges the declarations of gen into dest. Neither file is
// modified.
func Merge(gen, dest *source.File, opts Options) (*Result, error) {
	res := &Result{}

	index := make(map[string]*source.Decl, len(gen.Decls))
	var order []string
	for _, d := range gen.Decls {
		if unkeyed(d) {
			continue
		}
		if _, dup := index[d.Key]; dup {
			if opts.FailOnDuplicate {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguousMerge, d.Key)
			}
			slog.Warn("duplicate generated declaration; keeping the last", "key", d.Key)
			res.Duplicates = append(res.Duplicates, d.Key)
		} else {
			order = append(order, d.Key)
		}
		index[d.Key] = d
	}

	var edits []edit
	edits = append(edits, importEdits(gen, dest, res)...)

	visited := make(map[string]bool, len(index))
	for _, d := range dest.Decls {
		g, ok := index[d.Key]
		if !ok || unkeyed(d) {
			continue
		}
		visited[d.Key] = true

		if e, ok := docEdit(gen, g, dest, d); ok {
			edits = append(edits, e)
		}

		old := dest.Text(d.Content)
		text := contentFor(gen, g, dest, d)
		if old == text {
			res.Unchanged = append(res.Unchanged, d.Key)
			continue
		}
		edits = append(edits, edit{start: d.Content.Start, end: d.Content.End, text: text})
		res.Replaced = append(res.Replaced, d.Key)
	}

	out := apply(dest.Src, edits)

	var appended []string
	for _, key := range order {
		if !visited[key] {
			appended = append(appended, standalone(gen, index[key]))
			res.Appended = append(res.Appended, key)
		}
	}
	for _, d := range gen.Decls {
		if unkeyed(d) && !containsContent(dest, gen.Text(d.Content)) {
			appended = append(appended, standalone(gen, d))
			res.Appended = append(res.Appended, d.Key)
		}
	}

	if len(appended) > 0 {
		var b strings.Builder
		b.WriteString(strings.TrimRight(string(out), " \t\r\n"))
		for _, text := range appended {
			b.WriteString("\n\n")
			b.WriteString(text)
		}
		b.WriteString("\n")
		out = []byte(b.String())
	}

	res.Output = out
	return res, nil
}

// unkeyed reports declarations that cannot be matched by name: blank
// identifiers and init functions.
func unkeyed(d *source.Decl) bool {
	return d.Name == "_" || d.Key == "func:init"
}

func containsContent(f *source.File, text string) bool {
	return slices.ContainsFunc(f.Decls, func(d *source.Decl) bool {
		return f.Text(d.Content) == text
	})
}

type edit struct {
	start, end int
	text       string
}

// apply replaces the spans of src named by edits. Edits must not overlap.
func apply(src []byte, edits []edit) []byte {
	slices.SortStableFunc(edits, func(a, b edit) int { return a.start - b.start })

	var b strings.Builder
	last := 0
	for _, e := range edits {
		b.Write(src[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.Write(src[last:])
	return []byte(b.String())
}
