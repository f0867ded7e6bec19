package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
)

// filesMarker is the line prefix workers use to report touched paths.
const filesMarker = "FILES:"

// ClaudeConfig contains configuration for creating a ClaudeSession.
type ClaudeConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// MaxTokens bounds the response size. Defaults to 4096.
	MaxTokens int64
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of
	// the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// ClaudeSession implements Session against the Anthropic API. Each
// invocation is a single-turn conversation; the returned
// AgentSessionID identifies it for later resumption context.
type ClaudeSession struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaudeSession creates a Claude-backed worker session.
func NewClaudeSession(cfg ClaudeConfig) (*ClaudeSession, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &ClaudeSession{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Invoke dispatches the task prompt to the model and parses the
// worker report from the response text.
func (c *ClaudeSession) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	agentSessionID := req.AgentSessionID
	if agentSessionID == "" {
		agentSessionID = uuid.New().String()
	}

	system := fmt.Sprintf(
		"You are the %q worker in a software development workflow. "+
			"Complete the task described by the user. End your reply with a line "+
			"%q followed by a comma-separated list of file paths you modified "+
			"(or an empty list).",
		req.AgentType, filesMarker)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic message for task %s: %w", req.TaskID, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	summary, files := parseWorkerReport(text.String())
	return &InvokeResult{
		Success:        true,
		AgentSessionID: agentSessionID,
		FilesModified:  files,
		Summary:        summary,
	}, nil
}

// parseWorkerReport splits the trailing FILES: line off the response
// text. The remainder is the summary.
func parseWorkerReport(text string) (summary string, files []string) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, filesMarker) {
			continue
		}
		for _, f := range strings.Split(strings.TrimPrefix(line, filesMarker), ",") {
			if f = strings.TrimSpace(f); f != "" {
				files = append(files, f)
			}
		}
		lines = append(lines[:i], lines[i+1:]...)
		break
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), files
}
