package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/apisync/openapi"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "api", cfg.Emit.Package)
	assert.Equal(t, "Client", cfg.Emit.Client)
	assert.Equal(t, "Webhooks", cfg.Emit.Webhooks)
	assert.Equal(t, "3.1.0", cfg.Document.OpenAPI)
	assert.Equal(t, openapi.FormatYAML, cfg.Document.OutputFormat())
	assert.False(t, cfg.Merge.FailOnDuplicate)
	assert.Equal(t, 30*time.Second, cfg.Load.Timeout)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apisync.yaml")
	content := []byte(`
log:
  level: debug
  format: json
emit:
  package: petstore
document:
  title: Petstore
  format: json
load:
  timeout: 5s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Run("file", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, "petstore", cfg.Emit.Package)
		assert.Equal(t, "Client", cfg.Emit.Client)
		assert.Equal(t, openapi.Info{Title: "Petstore", Version: "0.0.0"}, cfg.Document.Info())
		assert.Equal(t, openapi.FormatJSON, cfg.Document.OutputFormat())
		assert.Equal(t, 5*time.Second, cfg.Load.Timeout)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("APISYNC_EMIT_PACKAGE", "client")
		t.Setenv("APISYNC_MERGE_FAIL_ON_DUPLICATE", "true")
		t.Setenv("APISYNC_DOCUMENT_VERSION", "2.0.0")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "client", cfg.Emit.Package)
		assert.True(t, cfg.Merge.FailOnDuplicate)
		assert.Equal(t, "2.0.0", cfg.Document.Version)
		assert.Equal(t, "Petstore", cfg.Document.Title)
	})

	t.Run("no file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "api", cfg.Emit.Package)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
		{"document format", "document:\n  format: toml\n"},
		{"negative timeout", "load:\n  timeout: -1s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}

	_, err := Parse([]byte("log: [unterminated"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"APISYNC_EMIT_PACKAGE":            "emit.package",
		"APISYNC_MERGE_FAIL_ON_DUPLICATE": "merge.fail_on_duplicate",
		"APISYNC_LOAD_TIMEOUT":            "load.timeout",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, envKey(in))
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	LogConfig{Level: "warn", Format: "json"}.Logger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	LogConfig{Level: "warn", Format: "json"}.Logger(&buf).Warn("shown", "key", "value")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)

	buf.Reset()
	logger := LogConfig{Level: "debug", Format: "text"}.Logger(&buf)
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
	logger.Debug("text line")
	assert.Contains(t, buf.String(), "msg=\"text line\"")
}

func TestEmitOptions(t *testing.T) {
	opts := EmitConfig{Package: "petstore", Client: "API", Webhooks: "Hooks"}.Options()
	assert.Equal(t, "petstore", opts.Package)
	assert.Equal(t, "API", opts.Client)
	assert.Equal(t, "Hooks", opts.Webhooks)
}
