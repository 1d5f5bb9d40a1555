package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a team definition from a YAML file, expands ${VAR}/${VAR:-def}
// references against the process environment (after loading any .env/.env.local
// via LoadEnvFiles), applies defaults, and validates the result.
func Load(path string) (*TeamConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadFromString(string(data))
}

// LoadFromString parses team YAML already in memory, useful for embedded
// definitions and tests.
func LoadFromString(yamlContent string) (*TeamConfig, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("config: load env files: %w", err)
	}

	expanded := expandEnvVars(yamlContent)

	var cfg TeamConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid team definition: %w", err)
	}

	return &cfg, nil
}
