// Package config loads the clicktrace YAML configuration: the collector
// service settings and the tracking settings handed to capture.Tracker.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vincentbai/clicktrace-agent/internal/capture"
	"github.com/vincentbai/clicktrace-agent/internal/dom"
)

// Environment overrides, applied after the file.
const (
	EnvAddress  = "CLICKTRACE_ADDRESS"
	EnvDatabase = "CLICKTRACE_DATABASE"
)

const DefaultAddress = "127.0.0.1:8123"

// Config is the top-level configuration.
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Tracking  capture.Config  `yaml:"tracking"`
}

// CollectorConfig controls the capture collector service.
type CollectorConfig struct {
	Address      string        `yaml:"address"`
	DatabasePath string        `yaml:"database_path"`
	PathField    string        `yaml:"path_field"`   // defaults to tracking.id
	ClientField  string        `yaml:"client_field"` // defaults to "client"
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Load reads a YAML configuration file. An empty path yields the defaults.
// Environment overrides apply either way.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAddress); v != "" {
		c.Collector.Address = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Collector.DatabasePath = v
	}
}

func (c *Config) applyDefaults() error {
	c.Tracking = c.Tracking.WithDefaults()

	if c.Collector.Address == "" {
		c.Collector.Address = DefaultAddress
	}
	if c.Collector.DatabasePath == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		c.Collector.DatabasePath = filepath.Join(dir, "captures.db")
	}
	if c.Collector.PathField == "" {
		c.Collector.PathField = c.Tracking.ID
	}
	if c.Collector.ClientField == "" {
		c.Collector.ClientField = capture.ClientField
	}
	if c.Collector.ReadTimeout <= 0 {
		c.Collector.ReadTimeout = 5 * time.Second
	}
	if c.Collector.WriteTimeout <= 0 {
		c.Collector.WriteTimeout = 5 * time.Second
	}
	return nil
}

// Validate checks selectors and the reporting URL. A missing URL is valid:
// it disables reporting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := dom.Compile(c.Tracking.AssignTo...); err != nil {
		errs = append(errs, fmt.Errorf("tracking.assign_to: %w", err))
	}
	if _, err := dom.Compile(c.Tracking.Exclusion()); err != nil {
		errs = append(errs, fmt.Errorf("tracking.exclude: %w", err))
	}
	if c.Tracking.URL != "" {
		if _, err := url.Parse(c.Tracking.URL); err != nil {
			errs = append(errs, fmt.Errorf("tracking.url: %w", err))
		}
	}
	if c.Collector.PathField == c.Collector.ClientField {
		errs = append(errs, fmt.Errorf("collector: path_field and client_field are both %q", c.Collector.PathField))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DefaultDataDir is the platform-specific application directory.
func DefaultDataDir() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "ClickTrace"), nil
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "ClickTrace"), nil
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "ClickTrace"), nil
	}
}
