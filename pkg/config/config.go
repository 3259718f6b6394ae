// Package config manages the persistent retina configuration: a TOML file
// in the .retina/ directory, layered under environment variables and flags
// via viper.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

const (
	configFile = "config.toml"

	// EnvDir overrides the .retina/ directory location.
	EnvDir = "RETINA_DIR"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Dir resolves the .retina/ directory: the override argument when non-empty,
// then the RETINA_DIR environment variable, then ~/.retina.
func Dir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if env := os.Getenv(EnvDir); env != "" {
		return env, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	return filepath.Join(home, ".retina"), nil
}

// Configer loads and saves the config file for one resolved directory.
type Configer struct {
	targetPath string
}

// NewConfiger resolves the config file location. The directory does not need
// to exist yet; SaveConfig creates it on first write.
func NewConfiger(override string) (*Configer, error) {
	dir, err := Dir(override)
	if err != nil {
		return nil, err
	}

	return &Configer{
		targetPath: filepath.Join(dir, configFile),
	}, nil
}

// GetTarget returns the resolved config file path.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml. If the file does not
// exist, returns NewDefaultConfig() so callers always receive a
// fully-populated Config. Fields explicitly set in the file override the
// defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	cfg := NewDefaultConfig()

	data, err := os.ReadFile(c.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration to config.toml, creating the .retina/
// directory if needed.
func (c *Configer) SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(c.targetPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Get returns the value of a dotted config key.
func Get(cfg *Config, key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}

	return info.get(cfg), nil
}

// Set assigns the value of a dotted config key.
func Set(cfg *Config, key, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	return info.set(cfg, value)
}

// ValidConfigKeys returns the sorted list of all supported configuration key names.
func ValidConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}
