package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config configures a niwa CLI invocation.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
	Agent AgentConfig `yaml:"agent"`
}

// StoreConfig locates the on-disk store.
type StoreConfig struct {
	// Dir is the store directory, by default .niwa/ adjacent to the
	// working directory (§6 Persisted state layout).
	Dir string `yaml:"dir"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AgentConfig supplies the default agent identifier used when --agent is
// absent (§6 Environment: a single environment variable).
type AgentConfig struct {
	Default string `yaml:"default"`
}

// DefaultStoreDir is the conventional store directory name.
const DefaultStoreDir = ".niwa"

// Load reads configuration from defaults, then an optional YAML file named
// by NIWA_CONFIG_PATH, then environment variable overrides — the same
// layering order the server this CLI descended from used.
func Load() (Config, error) {
	cfg := Config{
		Store: StoreConfig{Dir: DefaultStoreDir},
		Log:   LogConfig{Level: "info"},
		Agent: AgentConfig{Default: ""},
	}

	if path := os.Getenv("NIWA_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dir := os.Getenv("NIWA_STORE_DIR"); dir != "" {
		cfg.Store.Dir = dir
	}
	if level := os.Getenv("NIWA_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	// NIWA_AGENT is the single environment variable §6 calls for: the
	// default agent identifier used whenever --agent is omitted.
	if agent := os.Getenv("NIWA_AGENT"); agent != "" {
		cfg.Agent.Default = agent
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
