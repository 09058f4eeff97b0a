// Package config resolves server configuration from defaults, an optional
// TOML file, and environment variables, in that precedence order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ubermorgenland/anytype-mcp/pkg/anytype"
)

// DefaultSpecPath is where the bundled OpenAPI document lives relative to
// the working directory.
const DefaultSpecPath = "openapi.yaml"

// DefaultConfigFile is looked up when no --config flag is given.
const DefaultConfigFile = "anytype-mcp.toml"

// Config is the resolved server configuration.
type Config struct {
	SpecPath string            `toml:"spec_path"`
	BaseURL  string            `toml:"base_url"`
	APIKey   string            `toml:"api_key"`
	Timeout  time.Duration     `toml:"-"`
	TimeoutS int               `toml:"timeout_seconds"`
	Group    string            `toml:"group"`
	Headers  map[string]string `toml:"headers"`
	Debug    bool              `toml:"debug"`
}

// Load resolves the configuration. file may be empty, in which case the
// default config file is used if present and skipped silently otherwise; an
// explicitly named file that cannot be read is an error.
func Load(file string) (*Config, error) {
	cfg := &Config{
		SpecPath: DefaultSpecPath,
		BaseURL:  anytype.DefaultBaseURL,
		TimeoutS: 30,
		Group:    "anytype",
		Headers:  map[string]string{},
	}

	explicit := file != ""
	if file == "" {
		file = DefaultConfigFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", file, err)
		}
	case explicit:
		return nil, fmt.Errorf("reading config file %s: %w", file, err)
	}

	applyEnv(cfg)

	if cfg.TimeoutS <= 0 {
		cfg.TimeoutS = 30
	}
	cfg.Timeout = time.Duration(cfg.TimeoutS) * time.Second
	return cfg, nil
}

// applyEnv layers environment variables over file and default values.
// OPENAPI_MCP_HEADERS carries a JSON object of extra request headers, the
// same convention MCP client configs use to pass credentials through.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ANYTYPE_SPEC_PATH"); v != "" {
		cfg.SpecPath = v
	}
	if v := os.Getenv("ANYTYPE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ANYTYPE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ANYTYPE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutS = n
		}
	}
	if v := os.Getenv("OPENAPI_MCP_HEADERS"); v != "" {
		var headers map[string]string
		if err := json.Unmarshal([]byte(v), &headers); err == nil {
			for name, value := range headers {
				cfg.Headers[name] = value
			}
		}
	}
}
