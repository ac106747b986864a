// Package config reads the project configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/githubnext/pipelint/pkg/constants"
)

// ErrConfigNotFound is returned by Find when no configuration file exists in
// the directory or any of its parents
var ErrConfigNotFound = errors.New("no " + constants.ConfigFileName + " found")

// Config is the content of a .pipelint.yaml file
type Config struct {
	// Schema is the schema file to validate against. Relative paths are
	// resolved against the directory holding the config file.
	Schema string `yaml:"schema,omitempty"`
	// Policy is the union comparison policy: generic or alternate
	Policy string `yaml:"policy,omitempty"`
	// Files are glob patterns selecting the documents to validate
	Files          []string `yaml:"files,omitempty"`
	ContextLines   int      `yaml:"context_lines,omitempty"`
	MaxConcurrency int      `yaml:"max_concurrency,omitempty"`

	// Dir is the directory the config was loaded from
	Dir string `yaml:"-"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		ContextLines:   constants.DefaultContextLines,
		MaxConcurrency: constants.DefaultMaxConcurrency,
	}
}

// Find returns the path of the nearest configuration file at or above dir
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(dir, constants.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}
		dir = parent
	}
}

// Load reads the nearest configuration file at or above dir. Defaults are
// returned together with ErrConfigNotFound when there is none.
func Load(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return Default(), err
	}
	return LoadFile(path)
}

// LoadFile reads a configuration file and fills unset values with defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.ContextLines < 0 {
		return nil, fmt.Errorf("invalid %s: context_lines must not be negative", path)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = constants.DefaultMaxConcurrency
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// SchemaPath returns the configured schema path resolved against the config
// directory, or "" when none is configured
func (c *Config) SchemaPath() string {
	if c.Schema == "" || filepath.IsAbs(c.Schema) || c.Dir == "" {
		return c.Schema
	}
	return filepath.Join(c.Dir, c.Schema)
}

// Patterns returns the file globs resolved against the config directory
func (c *Config) Patterns() []string {
	patterns := make([]string, 0, len(c.Files))
	for _, p := range c.Files {
		if !filepath.IsAbs(p) && c.Dir != "" {
			p = filepath.Join(c.Dir, p)
		}
		patterns = append(patterns, p)
	}
	return patterns
}
