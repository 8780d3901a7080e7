// Package config loads the settings of the apisync command. Values come
// from built-in defaults, then an optional YAML file, then environment
// variables prefixed with APISYNC_: APISYNC_EMIT_PACKAGE sets
// emit.package and APISYNC_MERGE_FAIL_ON_DUPLICATE sets
// merge.fail_on_duplicate.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"

	"github.com/vitalvas/apisync/assemble"
	"github.com/vitalvas/apisync/emit"
	"github.com/vitalvas/apisync/extract"
	"github.com/vitalvas/apisync/openapi"
)

// EnvPrefix starts every environment variable read by Load.
const EnvPrefix = "APISYNC_"

var (
	// ErrInvalidValue is returned when a setting has a value outside its
	// allowed set.
	ErrInvalidValue = errors.New("config: invalid value")
)

type Config struct {
	Log      LogConfig      `koanf:"log"`
	Emit     EmitConfig     `koanf:"emit"`
	Document DocumentConfig `koanf:"document"`
	Merge    MergeConfig    `koanf:"merge"`
	Load     LoadConfig     `koanf:"load"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`
	// Format is text or json.
	Format string `koanf:"format"`
}

// EmitConfig names what from-openapi generates.
type EmitConfig struct {
	Package  string `koanf:"package"`
	Client   string `koanf:"client"`
	Webhooks string `koanf:"webhooks"`
}

// DocumentConfig is the metadata of documents written by to-openapi.
type DocumentConfig struct {
	Title   string `koanf:"title"`
	Version string `koanf:"version"`
	OpenAPI string `koanf:"openapi"`
	// Format is json or yaml.
	Format string `koanf:"format"`
}

type MergeConfig struct {
	FailOnDuplicate bool `koanf:"fail_on_duplicate"`
}

type LoadConfig struct {
	// Timeout bounds reading a document from a URL.
	Timeout time.Duration `koanf:"timeout"`
}

func defaults() map[string]any {
	return map[string]any{
		"log.level":               "info",
		"log.format":              "text",
		"emit.package":            emit.DefaultPackage,
		"emit.client":             extract.DefaultClient,
		"emit.webhooks":           extract.WebhooksInterface,
		"document.title":          "API",
		"document.version":        "0.0.0",
		"document.openapi":        assemble.DefaultVersion,
		"document.format":         string(openapi.FormatYAML),
		"merge.fail_on_duplicate": false,
		"load.timeout":            "30s",
	}
}

// Default returns the built-in settings.
func Default() *Config {
	cfg, err := load(nil, nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the file at path, when path is not empty, over the defaults
// and applies environment overrides last.
func Load(path string) (*Config, error) {
	var provider koanf.Provider
	if path != "" {
		provider = file.Provider(path)
	}
	return load(provider, env.Provider(EnvPrefix, ".", envKey))
}

// Parse is Load over YAML content instead of a file. The environment is
// not consulted.
func Parse(content []byte) (*Config, error) {
	return load(rawbytes.Provider(content), nil)
}

func load(fileProvider, envProvider koanf.Provider) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	if fileProvider != nil {
		if err := k.Load(fileProvider, yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}
	if envProvider != nil {
		if err := k.Load(envProvider, nil); err != nil {
			return nil, fmt.Errorf("config: read environment: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("configuration loaded", "keys", len(k.Keys()))
	return cfg, nil
}

// envKey maps APISYNC_MERGE_FAIL_ON_DUPLICATE to merge.fail_on_duplicate:
// the first underscore separates the section from the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidValue, c.Log.Format)
	}
	if _, err := c.Document.format(); err != nil {
		return err
	}
	if c.Load.Timeout < 0 {
		return fmt.Errorf("%w: load.timeout %s", ErrInvalidValue, c.Load.Timeout)
	}
	return nil
}

func (c LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Level)
	}
	return level, nil
}

// Logger returns a logger writing to w in the configured format, at the
// configured level.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c DocumentConfig) format() (openapi.Format, error) {
	switch f := openapi.Format(strings.ToLower(c.Format)); f {
	case openapi.FormatJSON, openapi.FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: document.format %q", ErrInvalidValue, c.Format)
}

// OutputFormat returns the document encoding; yaml when unset or invalid.
func (c DocumentConfig) OutputFormat() openapi.Format {
	f, err := c.format()
	if err != nil {
		return openapi.FormatYAML
	}
	return f
}

// Info returns the document metadata.
func (c DocumentConfig) Info() openapi.Info {
	return openapi.Info{Title: c.Title, Version: c.Version}
}

// Options returns the code generation options.
func (c EmitConfig) Options() emit.Options {
	return emit.Options{Package: c.Package, Client: c.Client, Webhooks: c.Webhooks}
}
