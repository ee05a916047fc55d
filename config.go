package vmr

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding, with the TTL as a duration
// string ("24h", "90m").
type fileConfig struct {
	BaseURL  string `yaml:"base_url"`
	CacheDir string `yaml:"cache_dir"`
	CacheTTL string `yaml:"cache_ttl"`
}

// LoadConfig reads a Config from a YAML file.
// A missing file is not an error; it yields a zero Config, which NewClient
// fills with defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.BaseURL = fc.BaseURL
	cfg.CacheDir = fc.CacheDir
	if fc.CacheTTL != "" {
		ttl, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return Config{}, fmt.Errorf("parsing config %s: invalid cache_ttl %q: %w", path, fc.CacheTTL, err)
		}
		cfg.CacheTTL = ttl
	}

	return cfg, nil
}
