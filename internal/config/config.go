// Package config handles configuration loading and management for stagehand.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for stagehand.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Classify  ClassifyConfig  `mapstructure:"classify"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Handlers  HandlersConfig  `mapstructure:"handlers"`
	History   HistoryConfig   `mapstructure:"history"`
	Events    EventsConfig    `mapstructure:"events"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ClassifyConfig holds request classifier settings.
// The confidence threshold and weighted trigger patterns are tunable
// parameters, not hard-coded values.
type ClassifyConfig struct {
	// Threshold is the score a capability must reach to be required.
	Threshold float64 `mapstructure:"threshold"`
	// RulesFile is an optional YAML file replacing the built-in patterns.
	RulesFile string `mapstructure:"rules_file"`
}

// RegistryConfig holds capability registry settings.
type RegistryConfig struct {
	// File is an optional YAML file replacing the built-in capability table.
	File string `mapstructure:"file"`
}

// HandlersConfig holds stage handler settings.
type HandlersConfig struct {
	// Mode selects the handler backend: "stub" or "claude".
	Mode string `mapstructure:"mode"`
	// Model is the Claude model to use in claude mode.
	Model string `mapstructure:"model"`
	// UseBedrock routes claude mode through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
	// MaxTokens caps the response size per stage.
	MaxTokens int64 `mapstructure:"max_tokens"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	// Enabled toggles run history recording.
	Enabled bool `mapstructure:"enabled"`
	// DBPath overrides the history database location.
	DBPath string `mapstructure:"db_path"`
}

// EventsConfig holds progress event settings.
type EventsConfig struct {
	// BufferSize is the event channel buffer size.
	BufferSize int `mapstructure:"buffer_size"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (STAGEHAND_*, ANTHROPIC_API_KEY)
// 2. Project config (.stagehand.yaml in current directory or parent)
// 3. User config (~/.config/stagehand/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("STAGEHAND")
	v.AutomaticEnv()

	// Map specific environment variables
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")

	// Classifier defaults
	v.SetDefault("classify.threshold", 1.0)
	v.SetDefault("classify.rules_file", "")

	// Registry defaults
	v.SetDefault("registry.file", "")

	// Handler defaults
	v.SetDefault("handlers.mode", "stub")
	v.SetDefault("handlers.model", "")
	v.SetDefault("handlers.use_bedrock", false)
	v.SetDefault("handlers.max_tokens", 4096)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "")

	// Event defaults
	v.SetDefault("events.buffer_size", 64)
}

// getUserConfigDir returns the XDG config directory for stagehand.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stagehand")
	}

	// Fall back to ~/.config/stagehand
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "stagehand")
	}
	return filepath.Join(home, ".config", "stagehand")
}

// findProjectConfig searches for .stagehand.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".stagehand.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Classify: ClassifyConfig{Threshold: 1.0},
		Handlers: HandlersConfig{Mode: "stub", MaxTokens: 4096},
		History:  HistoryConfig{Enabled: true},
		Events:   EventsConfig{BufferSize: 64},
	}
}
