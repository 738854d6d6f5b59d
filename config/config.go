// Package config loads gateway configuration from an optional YAML file
// with environment-variable overrides. The resulting Config is immutable
// after startup: it is constructed once in main and passed by pointer into
// constructors, never written again.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
)

// Defaults.
const (
	DefaultAddr     = ":3000"
	DefaultWorkRoot = "/tmp/convd"
	DefaultMaxBody  = 10 << 20 // 10 MiB
)

// Config holds all gateway settings.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// APIKey is the shared secret for /convert. Empty disables auth.
	APIKey string `yaml:"apiKey"`

	// WorkRoot is the directory under which per-request workspaces are
	// created. Injectable so tests can point it at a scratch root.
	WorkRoot string `yaml:"workRoot"`

	// MaxBody is the request body ceiling in bytes.
	MaxBody int64 `yaml:"maxBody"`

	// EngineBin is the rendering engine binary. Empty means discover.
	EngineBin string `yaml:"engineBin"`

	// EngineTimeout bounds one engine invocation. Zero disables the bound.
	EngineTimeout time.Duration `yaml:"engineTimeout"`

	// AuditDB is the path of the SQLite conversion trail. Empty disables
	// the trail.
	AuditDB string `yaml:"auditDB"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Addr:     DefaultAddr,
		WorkRoot: DefaultWorkRoot,
		MaxBody:  DefaultMaxBody,
		LogLevel: "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then CONVD_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CONVD_ADDR"); v != "" {
		c.Addr = v
	}
	if v, ok := os.LookupEnv("CONVD_API_KEY"); ok {
		c.APIKey = v
	}
	if v := os.Getenv("CONVD_WORK_ROOT"); v != "" {
		c.WorkRoot = v
	}
	if v := os.Getenv("CONVD_MAX_BODY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: CONVD_MAX_BODY=%q", ErrConfigParse, v)
		}
		c.MaxBody = n
	}
	if v := os.Getenv("CONVD_ENGINE_BIN"); v != "" {
		c.EngineBin = v
	}
	if v := os.Getenv("CONVD_ENGINE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: CONVD_ENGINE_TIMEOUT=%q", ErrConfigParse, v)
		}
		c.EngineTimeout = d
	}
	if v := os.Getenv("CONVD_AUDIT_DB"); v != "" {
		c.AuditDB = v
	}
	if v := os.Getenv("CONVD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// AuthEnabled reports whether a shared secret is configured.
func (c *Config) AuthEnabled() bool { return c.APIKey != "" }
