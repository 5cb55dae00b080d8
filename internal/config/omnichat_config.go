// Package config loads omnichat configuration from a YAML file in the data
// directory, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all omnichat configuration.
type Config struct {
	// Gemini settings
	Gemini GeminiConfig `yaml:"gemini"`

	// Where chats, the profile, and logs live. Defaults to ~/.omnichat.
	DataDir string `yaml:"data_dir"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GeminiConfig configures the generation gateway.
type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	TextModel   string `yaml:"text_model"`
	VisionModel string `yaml:"vision_model"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Debug      bool   `yaml:"debug"`
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
}

// Load reads <data dir>/config.yaml if present and applies environment
// overrides. A missing file is not an error; env-only setups are common.
func Load() (*Config, error) {
	cfg := &Config{}

	// The data dir env override is resolved first so the config file itself
	// can be relocated with it.
	dataDir := os.Getenv("OMNICHAT_DATA_DIR")
	if dataDir == "" {
		var err error
		dataDir, err = defaultDataDir()
		if err != nil {
			return nil, err
		}
	}
	cfg.DataDir = dataDir

	path := filepath.Join(cfg.DataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("OMNICHAT_MODEL"); v != "" {
		c.Gemini.TextModel = v
	}
	if v := os.Getenv("OMNICHAT_VISION_MODEL"); v != "" {
		c.Gemini.VisionModel = v
	}
	if v := os.Getenv("OMNICHAT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("OMNICHAT_DEBUG"); v == "1" || v == "true" {
		c.Logging.Debug = true
	}
}

// StorePath returns the SQLite database location under the data directory.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "omnichat.db")
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".omnichat"), nil
}
