package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"ambientmcp/internal/logging"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "ambient-mcp" // application name used for config directory

const (
	// DefaultBackendURL is the in-cluster backend service address.
	DefaultBackendURL = "http://vteam-backend.ambient-code.svc.cluster.local:8080/api"
	DefaultTimeout    = 30 * time.Second
)

// Environment variables read at startup.
const (
	EnvBackendURL  = "BACKEND_API_URL"
	EnvHealthURL   = "BACKEND_HEALTH_URL"
	EnvBotToken    = "BOT_TOKEN"
	EnvTimeout     = "AMBIENT_MCP_TIMEOUT"
	EnvMetricsAddr = "AMBIENT_MCP_METRICS_ADDR"
	EnvLogLevel    = "LOG_LEVEL"
	EnvLogFile     = "AMBIENT_MCP_LOG_FILE"
)

// apiPathSuffix is the API sub-path stripped from the base URL when the health
// address has to be derived.
const apiPathSuffix = "/api"

// Config holds runtime configuration for the MCP server.
// The bearer token is not part of Config; it comes from the environment or
// the OS keyring.
type Config struct {
	// BaseURL is the backend API address, including any API sub-path.
	BaseURL string `yaml:"base_url"`
	// HealthURL is the root address that serves /health. Empty means derive
	// it from BaseURL.
	HealthURL   string        `yaml:"health_url,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
	LogLevel    string        `yaml:"log_level,omitempty"`
	LogFile     string        `yaml:"log_file,omitempty"`
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() string {
	configPath := filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")

	logging.Debug("Determined config path", "path", configPath)
	return configPath
}

// DefaultConfig returns a Config with in-cluster defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBackendURL,
		Timeout:  DefaultTimeout,
		LogLevel: "info",
	}
}

// Load builds the effective configuration: defaults, then the config file at
// path (or the standard location when path is empty), then environment
// overrides. A missing file at the standard location is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	} else {
		logging.Debug("No config file found, using defaults", "path", path)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvHealthURL); v != "" {
		c.HealthURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logging.Warn("Ignoring invalid timeout override", "env", EnvTimeout, "value", v, "error", err)
		} else {
			c.Timeout = d
		}
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
}

// Validate checks that addresses are absolute http(s) URLs and the timeout is positive.
func (c *Config) Validate() error {
	if err := validateURL("base_url", c.BaseURL); err != nil {
		return err
	}
	if c.HealthURL != "" {
		if err := validateURL("health_url", c.HealthURL); err != nil {
			return err
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

func validateURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: missing host", field)
	}
	return nil
}

// ResolveHealthURL returns the root address that serves /health. An explicit
// healthURL wins. Otherwise a trailing "/api" path segment is removed from
// baseURL; any other path is kept unchanged.
func ResolveHealthURL(baseURL, healthURL string) (string, error) {
	if healthURL != "" {
		return strings.TrimRight(healthURL, "/"), nil
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	p := strings.TrimRight(u.Path, "/")
	if strings.HasSuffix(p, apiPathSuffix) {
		p = path.Dir(p)
		if p == "/" {
			p = ""
		}
	}
	u.Path = p
	u.RawPath = ""
	return strings.TrimRight(u.String(), "/"), nil
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
