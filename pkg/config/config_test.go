package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/anytype-mcp/pkg/anytype"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultSpecPath, cfg.SpecPath)
	assert.Equal(t, anytype.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "anytype", cfg.Group)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "anytype-mcp.toml")
	content := `
spec_path = "custom.yaml"
base_url = "http://localhost:31010"
api_key = "file-key"
timeout_seconds = 60

[headers]
"X-Extra" = "yes"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "custom.yaml", cfg.SpecPath)
	assert.Equal(t, "http://localhost:31010", cfg.BaseURL)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, "yes", cfg.Headers["X-Extra"])
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "anytype-mcp.toml")
	require.NoError(t, os.WriteFile(file, []byte(`api_key = "file-key"`), 0o600))

	t.Setenv("ANYTYPE_API_KEY", "env-key")
	t.Setenv("ANYTYPE_BASE_URL", "http://localhost:31011")
	t.Setenv("ANYTYPE_SPEC_PATH", "env.yaml")
	t.Setenv("ANYTYPE_TIMEOUT_SECONDS", "15")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "http://localhost:31011", cfg.BaseURL)
	assert.Equal(t, "env.yaml", cfg.SpecPath)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestLoadHeadersFromEnvJSON(t *testing.T) {
	t.Setenv("OPENAPI_MCP_HEADERS", `{"Authorization":"Bearer env-token","Anytype-Version":"2025-05-20"}`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Bearer env-token", cfg.Headers["Authorization"])
	assert.Equal(t, "2025-05-20", cfg.Headers["Anytype-Version"])
}

func TestLoadMalformedHeaderJSONIgnored(t *testing.T) {
	t.Setenv("OPENAPI_MCP_HEADERS", `not json`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Headers)
}

func TestLoadInvalidTimeoutIgnored(t *testing.T) {
	t.Setenv("ANYTYPE_TIMEOUT_SECONDS", "zero")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
