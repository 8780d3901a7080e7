// Command apisync keeps Go API declarations and OpenAPI documents in sync.
//
//	apisync [-config file] to-openapi -i api.go,models/ [-o openapi.yaml] [-format json|yaml]
//	apisync [-config file] from-openapi -i openapi.yaml [-o api.go] [-package api] [-merge]
//	apisync [-config file] merge -generated gen.go -dest api.go [-o out.go]
//	apisync [-config file] check -i https://example.com/openapi.json [-strict]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/vitalvas/apisync/config"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks errors caused by the command line rather than the input.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{"to-openapi", "extract an OpenAPI document from Go source", toOpenAPI},
	{"from-openapi", "generate Go source from an OpenAPI document", fromOpenAPI},
	{"merge", "merge generated declarations into a hand-edited file", mergeFiles},
	{"check", "parse and lint an OpenAPI document", check},
}

// env is what every command shares.
type env struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("apisync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "apisync: %v\n", err)
		return exitUsage
	}
	slog.SetDefault(cfg.Log.Logger(stderr))

	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	name := fs.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}

		err := c.run(ctx, &env{cfg: cfg, stdout: stdout, stderr: stderr}, fs.Args()[1:])
		switch {
		case err == nil:
			return exitOK
		case errors.Is(err, flag.ErrHelp):
			return exitOK
		case errors.Is(err, errUsage):
			fmt.Fprintf(stderr, "apisync %s: %v\n", name, err)
			return exitUsage
		default:
			fmt.Fprintf(stderr, "apisync %s: %v\n", name, err)
			return exitError
		}
	}

	fmt.Fprintf(stderr, "apisync: unknown command %q\n", name)
	fs.Usage()
	return exitUsage
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: apisync [-config file] <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "commands:")
	for _, c := range commands {
		fmt.Fprintf(out, "  %-14s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "global flags:")
	fs.PrintDefaults()
}

// flags returns a flag set for one command whose parse errors are usage
// errors.
func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("apisync "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

// write sends data to the file at path, or to stdout when path is empty.
func (e *env) write(path string, data []byte) error {
	if path == "" {
		_, err := e.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	slog.Info("wrote output", "path", path, "bytes", len(data))
	return nil
}
