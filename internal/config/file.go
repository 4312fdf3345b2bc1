package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of ~/.entrascan/config.yaml. Only
// settings worth persisting between runs are included; credentials
// stay in the environment.
type fileConfig struct {
	Provider    string   `yaml:"provider,omitempty"`
	TenantID    string   `yaml:"tenant_id,omitempty"`
	Level       int      `yaml:"level,omitempty"`
	RulesDir    string   `yaml:"rules_dir,omitempty"`
	SkipModules []string `yaml:"skip_modules,omitempty"`
	Concurrency int      `yaml:"concurrency,omitempty"`
	Timeout     string   `yaml:"timeout,omitempty"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".entrascan", "config.yaml"), nil
}

// LoadFile applies settings from a YAML config file onto c. A missing
// file is not an error so the default path can always be tried; flag
// values already set on c win over file values.
func LoadFile(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	defaults := New()
	if fc.Provider != "" && c.Target.Provider == defaults.Target.Provider {
		c.Target.Provider = fc.Provider
	}
	if fc.TenantID != "" && c.Target.TenantID == "" {
		c.Target.TenantID = fc.TenantID
	}
	if fc.Level != 0 && c.Rules.Level == defaults.Rules.Level {
		c.Rules.Level = fc.Level
	}
	if fc.RulesDir != "" && c.Rules.Dir == "" {
		c.Rules.Dir = fc.RulesDir
	}
	if len(fc.SkipModules) > 0 && len(c.Target.SkipModules) == 0 {
		c.Target.SkipModules = fc.SkipModules
	}
	if fc.Concurrency != 0 && c.Runtime.Concurrency == defaults.Runtime.Concurrency {
		c.Runtime.Concurrency = fc.Concurrency
	}
	if fc.Timeout != "" && c.Runtime.Timeout == defaults.Runtime.Timeout {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse config %s: timeout: %w", path, err)
		}
		c.Runtime.Timeout = d
	}
	return nil
}

// SaveFile writes the persistable subset of c to a YAML config file,
// creating the directory when needed.
func SaveFile(c *Config, path string) error {
	fc := fileConfig{
		Provider:    c.Target.Provider,
		TenantID:    c.Target.TenantID,
		Level:       c.Rules.Level,
		RulesDir:    c.Rules.Dir,
		SkipModules: c.Target.SkipModules,
		Concurrency: c.Runtime.Concurrency,
		Timeout:     c.Runtime.Timeout.String(),
	}
	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
