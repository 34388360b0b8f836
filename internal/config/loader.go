package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gitsift/gitsift/internal/classify"
)

// DefaultServeAddr is the listen address used when serve.addr is unset.
const DefaultServeAddr = ":8717"

// Load reads and parses a gitsift configuration from the given YAML file
// path, then applies defaults to unset values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./gitsift.yaml, ~/.gitsift/config.yaml.
// When no file exists, a default config is returned rather than an error;
// gitsift runs fine unconfigured.
func LoadDefault() (*Config, error) {
	candidates := []string{"gitsift.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".gitsift", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills unset values with the built-in defaults.
func applyDefaults(cfg *Config) {
	if cfg.Pipeline.MaxLineLength == 0 {
		cfg.Pipeline.MaxLineLength = classify.DefaultMaxLineLength
	}
	if cfg.Pipeline.Sentinel == "" {
		cfg.Pipeline.Sentinel = classify.DefaultSentinel
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = DefaultServeAddr
	}
}
