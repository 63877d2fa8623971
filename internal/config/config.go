// Package config loads client settings. Precedence, lowest first: built-in
// defaults, the YAML config file, CAPTIONCRAFT_* environment variables.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and the file exists.
const DefaultFile = "captioncraft.yaml"

// Environment variable names.
const (
	EnvAPIURL       = "CAPTIONCRAFT_API_URL"
	EnvPort         = "CAPTIONCRAFT_PORT"
	EnvLogLevel     = "CAPTIONCRAFT_LOG_LEVEL"
	EnvProbeTimeout = "CAPTIONCRAFT_PROBE_TIMEOUT"
)

// Config holds the client settings.
type Config struct {
	APIURL        string        `yaml:"api_url"`
	Port          int           `yaml:"port"`
	LogLevel      string        `yaml:"log_level"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	ThumbnailSize int           `yaml:"thumbnail_size"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		APIURL:        "http://localhost:8000",
		Port:          3000,
		LogLevel:      "info",
		ProbeTimeout:  10 * time.Second,
		ThumbnailSize: 300,
	}
}

// Load reads path (or DefaultFile when path is empty and the file exists),
// then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file is fine
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvProbeTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProbeTimeout, err)
		}
		c.ProbeTimeout = d
	}
	return nil
}

// Validate checks the settings for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.ThumbnailSize < 16 {
		return fmt.Errorf("thumbnail_size must be at least 16, got %d", c.ThumbnailSize)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}
