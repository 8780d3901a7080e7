package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vitalvas/apisync/assemble"
	"github.com/vitalvas/apisync/emit"
	"github.com/vitalvas/apisync/extract"
	"github.com/vitalvas/apisync/merge"
	"github.com/vitalvas/apisync/openapi"
	"github.com/vitalvas/apisync/source"
)

func toOpenAPI(ctx context.Context, e *env, args []string) error {
	fset := e.flags("to-openapi")
	input := fset.String("i", "", "comma-separated Go files or directories")
	output := fset.String("o", "", "output file (stdout when empty)")
	format := fset.String("format", string(e.cfg.Document.OutputFormat()), "output format: json|yaml")
	if err := parse(fset, args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("%w: -i is required", errUsage)
	}
	switch openapi.Format(*format) {
	case openapi.FormatJSON, openapi.FormatYAML:
	default:
		return fmt.Errorf("%w: invalid -format %q", errUsage, *format)
	}

	files, err := goFiles(strings.Split(*input, ","))
	if err != nil {
		return err
	}

	units, err := extractUnits(ctx, files, extract.Options{Client: e.cfg.Emit.Client})
	if err != nil {
		return err
	}

	doc, report := assemble.New(e.cfg.Document.Info()).
		SetOpenAPI(e.cfg.Document.OpenAPI).
		Add(units...).
		Build()
	logReport(report)

	data, err := openapi.Marshal(doc, openapi.Format(*format))
	if err != nil {
		return err
	}
	return e.write(*output, data)
}

// goFiles expands directories into the non-test Go files they hold
// directly. Files are returned in argument order, directory entries in
// name order, each path once.
func goFiles(inputs []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		key := filepath.Clean(path)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, path)
	}

	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}

		info, err := os.Stat(in)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(in)
			continue
		}

		entries, err := os.ReadDir(in)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
				continue
			}
			add(filepath.Join(in, name))
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no Go files in %v", errUsage, inputs)
	}
	return out, nil
}

// extractUnits parses and extracts files in parallel. Units keep the order
// of files, so the first declaration of a route still wins.
func extractUnits(ctx context.Context, files []string, opts extract.Options) ([]*assemble.Unit, error) {
	units := make([]*assemble.Unit, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			f, err := source.Parse(path, src)
			if err != nil {
				return err
			}

			units[i] = extract.File(f, unitName(path), opts)
			slog.Debug("extracted unit", "file", path, "schemas", len(units[i].Schemas))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}

func unitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func logReport(r *assemble.Report) {
	if r == nil || r.Empty() {
		return
	}
	for _, rn := range r.Renamed {
		slog.Info("schema renamed", "unit", rn.Unit, "from", rn.From, "to", rn.To)
	}
	slog.Info("assembled document",
		"renamed", len(r.Renamed),
		"deduplicated", len(r.Deduplicated),
		"conflicts", len(r.Conflicts),
		"unresolved", len(r.Unresolved),
		"orphans", len(r.Orphans),
	)
}

func fromOpenAPI(ctx context.Context, e *env, args []string) error {
	fset := e.flags("from-openapi")
	input := fset.String("i", "", "document path or http(s) URL")
	output := fset.String("o", "", "output file (stdout when empty)")
	pkg := fset.String("package", e.cfg.Emit.Package, "package name of the generated file")
	mergeInto := fset.Bool("merge", false, "merge into the existing -o file instead of overwriting it")
	if err := parse(fset, args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("%w: -i is required", errUsage)
	}
	if *mergeInto && *output == "" {
		return fmt.Errorf("%w: -merge needs -o", errUsage)
	}

	doc, err := load(ctx, e, *input)
	if err != nil {
		return err
	}

	opts := e.cfg.Emit.Options()
	opts.Package = *pkg
	generated, err := emit.Document(doc, opts)
	if err != nil {
		return err
	}

	if *mergeInto {
		dest, err := os.ReadFile(*output)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Info("merge target does not exist; writing generated file", "path", *output)
		case err != nil:
			return err
		default:
			res, err := merge.Bytes(generated, dest, merge.Options{FailOnDuplicate: e.cfg.Merge.FailOnDuplicate})
			if err != nil {
				return err
			}
			logMerge(res)
			generated = res.Output
		}
	}

	return e.write(*output, generated)
}

func load(ctx context.Context, e *env, location string) (*openapi.Document, error) {
	if e.cfg.Load.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Load.Timeout)
		defer cancel()
	}
	return (&openapi.Loader{}).Load(ctx, location)
}

func mergeFiles(_ context.Context, e *env, args []string) error {
	fset := e.flags("merge")
	generatedPath := fset.String("generated", "", "generated Go file")
	destPath := fset.String("dest", "", "hand-edited Go file")
	output := fset.String("o", "", "output file (stdout when empty)")
	if err := parse(fset, args); err != nil {
		return err
	}
	if *generatedPath == "" || *destPath == "" {
		return fmt.Errorf("%w: -generated and -dest are required", errUsage)
	}

	generated, err := os.ReadFile(*generatedPath)
	if err != nil {
		return err
	}
	dest, err := os.ReadFile(*destPath)
	if err != nil {
		return err
	}

	res, err := merge.Bytes(generated, dest, merge.Options{FailOnDuplicate: e.cfg.Merge.FailOnDuplicate})
	if err != nil {
		return err
	}
	logMerge(res)
	return e.write(*output, res.Output)
}

func logMerge(res *merge.Result) {
	for _, key := range res.Duplicates {
		slog.Warn("generated file declares a key twice; the last one was merged", "key", key)
	}
	slog.Info("merged declarations",
		"replaced", len(res.Replaced),
		"unchanged", len(res.Unchanged),
		"appended", len(res.Appended),
		"imports", len(res.Imports),
	)
}

func check(ctx context.Context, e *env, args []string) error {
	fset := e.flags("check")
	input := fset.String("i", "", "document path or http(s) URL")
	strict := fset.Bool("strict", false, "fail when the lint reports problems")
	if err := parse(fset, args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("%w: -i is required", errUsage)
	}

	if e.cfg.Load.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Load.Timeout)
		defer cancel()
	}

	data, err := (&openapi.Loader{}).Read(ctx, *input)
	if err != nil {
		return err
	}
	doc, err := openapi.Parse(data)
	if err != nil {
		return err
	}

	if err := openapi.Lint(ctx, data); err != nil {
		if *strict {
			return err
		}
		slog.Warn("lint reported problems", "location", *input, "error", err)
		fmt.Fprintf(e.stdout, "%s: parsed, lint: %v\n", *input, err)
		return nil
	}

	operations := 0
	for _, item := range doc.Paths {
		operations += len(item.Operations())
	}
	fmt.Fprintf(e.stdout, "%s: ok (%d paths, %d operations)\n", *input, len(doc.Paths), operations)
	return nil
}
