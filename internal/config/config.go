// Package config handles configuration loading and management for
// stagehand. It supports XDG config paths, project-level overrides,
// and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for stagehand.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	SelfHeal  SelfHealConfig  `mapstructure:"self_heal"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	// UseAWSBedrock routes model calls through AWS Bedrock instead of
	// the direct API.
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// StorageConfig holds session persistence settings.
type StorageConfig struct {
	// DataDir is where session documents and the monitoring database
	// live. Empty means the XDG data path.
	DataDir string `mapstructure:"data_dir"`
}

// WorkerConfig selects the worker backend for task execution.
type WorkerConfig struct {
	// Command, when set, runs tasks through a subprocess worker instead
	// of the Anthropic API. Useful for local agent CLIs.
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// Invoke bounds a single worker invocation.
	Invoke time.Duration `mapstructure:"invoke"`
}

// SelfHealConfig holds corrective retry settings.
type SelfHealConfig struct {
	// MaxAttempts caps self-heal retries per task.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// MonitorConfig holds monitoring settings.
type MonitorConfig struct {
	// Enabled toggles event recording to the SQLite log.
	Enabled bool `mapstructure:"enabled"`
	// RetentionDays bounds how long recorded events are kept.
	RetentionDays int `mapstructure:"retention_days"`
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

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("STAGEHAND")
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("storage.data_dir", "STAGEHAND_DATA_DIR")
	v.BindEnv("worker.command", "STAGEHAND_WORKER_COMMAND")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

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

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("storage.data_dir", cfg.Storage.DataDir)
	v.Set("worker.command", cfg.Worker.Command)
	v.Set("worker.args", cfg.Worker.Args)
	v.Set("timeouts.invoke", cfg.Timeouts.Invoke.String())
	v.Set("self_heal.max_attempts", cfg.SelfHeal.MaxAttempts)
	v.Set("monitor.enabled", cfg.Monitor.Enabled)
	v.Set("monitor.retention_days", cfg.Monitor.RetentionDays)

	return v.WriteConfig()
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
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("storage.data_dir", "")

	v.SetDefault("worker.command", "")

	v.SetDefault("timeouts.invoke", "15m")

	v.SetDefault("self_heal.max_attempts", 3)

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.retention_days", 30)
}

// getUserConfigDir returns the XDG config directory for stagehand.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stagehand")
	}

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

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Timeouts: TimeoutsConfig{
			Invoke: 15 * time.Minute,
		},
		SelfHeal: SelfHealConfig{
			MaxAttempts: 3,
		},
		Monitor: MonitorConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}
