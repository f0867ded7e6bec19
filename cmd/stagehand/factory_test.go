package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stagehand-dev/stagehand/internal/config"
)

func TestLoadPlanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `
task_description: add request caching
synopsis: cache layer plus tests
tasks:
  - id: T1
    designated_agent: builder
    description: implement the cache
    files_to_modify: [cache.go]
  - id: T2
    designated_agent: reviewer
    description: review the cache
    dependencies: [T1]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	plan, err := loadPlanFile(path)
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}

	if plan.Synopsis != "cache layer plus tests" {
		t.Errorf("synopsis = %q", plan.Synopsis)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(plan.Tasks))
	}
	if plan.Tasks[1].Dependencies[0] != "T1" {
		t.Errorf("T2 dependencies = %v", plan.Tasks[1].Dependencies)
	}
}

func TestLoadPlanFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte("tasks: [unterminated"), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	if _, err := loadPlanFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadPlanFileMissing(t *testing.T) {
	if _, err := loadPlanFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolveDataDirPrecedence(t *testing.T) {
	cfg := config.Default()

	origFlag := flagDataDir
	defer func() { flagDataDir = origFlag }()

	flagDataDir = "/from/flag"
	cfg.Storage.DataDir = "/from/config"
	if got := resolveDataDir(cfg); got != "/from/flag" {
		t.Errorf("data dir = %q, want flag to win", got)
	}

	flagDataDir = ""
	if got := resolveDataDir(cfg); got != "/from/config" {
		t.Errorf("data dir = %q, want config value", got)
	}

	cfg.Storage.DataDir = ""
	if got := resolveDataDir(cfg); got == "" {
		t.Error("expected non-empty default data dir")
	}
}
