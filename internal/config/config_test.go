package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfigFile(t, `
anthropic:
  api_key: sk-ant-test-key-12345678
  model: claude-sonnet-4-20250514
storage:
  data_dir: /tmp/stagehand-test
worker:
  command: my-agent
  args: ["--fast"]
timeouts:
  invoke: 5m
self_heal:
  max_attempts: 5
monitor:
  enabled: false
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-test-key-12345678" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if cfg.Storage.DataDir != "/tmp/stagehand-test" {
		t.Errorf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Worker.Command != "my-agent" {
		t.Errorf("worker command = %q", cfg.Worker.Command)
	}
	if cfg.Timeouts.Invoke != 5*time.Minute {
		t.Errorf("invoke timeout = %s, want 5m", cfg.Timeouts.Invoke)
	}
	if cfg.SelfHeal.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.SelfHeal.MaxAttempts)
	}
	if cfg.Monitor.Enabled {
		t.Error("monitor should be disabled")
	}
}

func TestLoadFromPathDefaults(t *testing.T) {
	path := writeConfigFile(t, "anthropic:\n  api_key: sk-ant-abc\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Timeouts.Invoke != 15*time.Minute {
		t.Errorf("invoke timeout = %s, want default 15m", cfg.Timeouts.Invoke)
	}
	if cfg.SelfHeal.MaxAttempts != 3 {
		t.Errorf("max attempts = %d, want default 3", cfg.SelfHeal.MaxAttempts)
	}
	if !cfg.Monitor.Enabled {
		t.Error("monitor should default to enabled")
	}
	if cfg.Monitor.RetentionDays != 30 {
		t.Errorf("retention = %d, want 30", cfg.Monitor.RetentionDays)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	t.Setenv("STAGEHAND_TEST_KEY", "sk-ant-from-env-1234")

	path := writeConfigFile(t, "anthropic:\n  api_key: ${STAGEHAND_TEST_KEY}\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-from-env-1234" {
		t.Errorf("api key = %q, want expanded env value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Timeouts.Invoke != 15*time.Minute {
		t.Errorf("invoke timeout = %s", cfg.Timeouts.Invoke)
	}
	if cfg.SelfHeal.MaxAttempts != 3 {
		t.Errorf("max attempts = %d", cfg.SelfHeal.MaxAttempts)
	}
	if !cfg.Monitor.Enabled {
		t.Error("monitor should default to enabled")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-saved-key-12345678"
	cfg.Anthropic.Model = "claude-sonnet-4-20250514"
	cfg.Worker.Command = "my-agent"
	cfg.Timeouts.Invoke = 20 * time.Minute
	cfg.SelfHeal.MaxAttempts = 4

	if err := Save(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := os.Stat(GetUserConfigPath()); err != nil {
		t.Fatalf("saved config not at user path: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Anthropic.APIKey != cfg.Anthropic.APIKey {
		t.Errorf("api key = %q", loaded.Anthropic.APIKey)
	}
	if loaded.Anthropic.Model != cfg.Anthropic.Model {
		t.Errorf("model = %q", loaded.Anthropic.Model)
	}
	if loaded.Worker.Command != cfg.Worker.Command {
		t.Errorf("worker command = %q", loaded.Worker.Command)
	}
	if loaded.Timeouts.Invoke != 20*time.Minute {
		t.Errorf("invoke timeout = %s", loaded.Timeouts.Invoke)
	}
	if loaded.SelfHeal.MaxAttempts != 4 {
		t.Errorf("max attempts = %d", loaded.SelfHeal.MaxAttempts)
	}
}
