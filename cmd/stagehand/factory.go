package main

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"gopkg.in/yaml.v3"

	"github.com/stagehand-dev/stagehand/internal/agent"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/monitor"
	"github.com/stagehand-dev/stagehand/internal/store"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

// resolveDataDir applies the flag > config > XDG default precedence.
func resolveDataDir(cfg *config.Config) string {
	if flagDataDir != "" {
		return flagDataDir
	}
	if cfg.Storage.DataDir != "" {
		return cfg.Storage.DataDir
	}
	return store.DefaultRoot()
}

// openStore loads configuration and opens the session store.
func openStore() (*store.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return store.New(resolveDataDir(cfg)), cfg, nil
}

// buildSession constructs the worker backend: a subprocess worker when
// one is configured, the Anthropic API otherwise. The invoke timeout
// applies to both.
func buildSession(cfg *config.Config) (agent.Session, error) {
	var session agent.Session

	if cfg.Worker.Command != "" {
		session = agent.NewCommandSession(cfg.Worker.Command, cfg.Worker.Args...)
	} else {
		apiKey, err := config.GetAPIKey(cfg)
		if err != nil && !cfg.Anthropic.UseAWSBedrock {
			return nil, err
		}
		session, err = agent.NewClaudeSession(agent.ClaudeConfig{
			Model:         anthropic.Model(cfg.Anthropic.Model),
			APIKey:        apiKey,
			UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
		if err != nil {
			return nil, err
		}
	}

	return agent.WithTimeout(session, cfg.Timeouts.Invoke), nil
}

// buildRecorder opens the monitoring event log, or a no-op recorder
// when monitoring is disabled. The caller must call close when done.
func buildRecorder(cfg *config.Config) (monitor.Recorder, func(), error) {
	if !cfg.Monitor.Enabled {
		return monitor.NopRecorder{}, func() {}, nil
	}

	db, err := monitor.Open(monitor.DefaultPath(resolveDataDir(cfg)))
	if err != nil {
		return nil, nil, fmt.Errorf("open monitor database: %w", err)
	}
	return db, func() { db.Close() }, nil
}

// loadPlanFile parses a YAML plan document from disk.
func loadPlanFile(path string) (*models.PlanDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	var plan models.PlanDocument
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan file %s: %w", path, err)
	}
	return &plan, nil
}
