package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// CommandSession runs a worker as a subprocess, the way a local agent
// CLI is driven. The prompt is written to stdin; the worker prints a
// single JSON InvokeResult on stdout. Task metadata is passed through
// the environment so wrapper scripts can dispatch on it.
type CommandSession struct {
	// Program is the worker executable.
	Program string
	// Args are fixed arguments passed before the task ID.
	Args []string
	// Dir is the working directory for the worker. Empty means the
	// current directory.
	Dir string
}

// NewCommandSession creates a subprocess-backed worker session.
func NewCommandSession(program string, args ...string) *CommandSession {
	return &CommandSession{Program: program, Args: args}
}

// Invoke runs the worker process for one task. Context cancellation
// kills the process; a non-zero exit or unparseable output is an
// invocation error.
func (c *CommandSession) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	agentSessionID := req.AgentSessionID
	if agentSessionID == "" {
		agentSessionID = uuid.New().String()
	}

	args := append(append([]string(nil), c.Args...), req.TaskID)
	cmd := exec.CommandContext(ctx, c.Program, args...)
	cmd.Dir = c.Dir
	cmd.Stdin = strings.NewReader(req.Prompt)
	cmd.Env = append(cmd.Environ(),
		"STAGEHAND_AGENT_TYPE="+req.AgentType,
		"STAGEHAND_TASK_ID="+req.TaskID,
		"STAGEHAND_SESSION_ID="+req.OrchestrationSessionID,
		"STAGEHAND_AGENT_SESSION_ID="+agentSessionID,
	)

	return c.run(ctx, cmd, agentSessionID)
}

// Resume re-runs the worker against an earlier conversation. The prior
// identity is exported so wrapper scripts can reload their transcript
// (claude-style CLIs take it as a --resume flag).
func (c *CommandSession) Resume(ctx context.Context, priorAgentSessionID, prompt string) (*InvokeResult, error) {
	cmd := exec.CommandContext(ctx, c.Program, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Env = append(cmd.Environ(),
		"STAGEHAND_AGENT_SESSION_ID="+priorAgentSessionID,
		"STAGEHAND_RESUME_AGENT_SESSION_ID="+priorAgentSessionID,
	)

	return c.run(ctx, cmd, priorAgentSessionID)
}

// run executes a prepared worker command and decodes its report.
func (c *CommandSession) run(ctx context.Context, cmd *exec.Cmd, agentSessionID string) (*InvokeResult, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("worker %s canceled: %w", c.Program, ctx.Err())
		}
		return nil, fmt.Errorf("worker %s: %w (stderr: %s)", c.Program, err, strings.TrimSpace(stderr.String()))
	}

	var result InvokeResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("decode worker %s output: %w", c.Program, err)
	}
	if result.AgentSessionID == "" {
		result.AgentSessionID = agentSessionID
	}
	return &result, nil
}

var _ Resumer = (*CommandSession)(nil)
