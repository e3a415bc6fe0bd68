package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/stagehand-dev/stagehand/internal/engine"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

// ClaudeConfig contains configuration for the Claude-backed invoker.
type ClaudeConfig struct {
	// Model is the Claude model to use. Empty selects a default.
	Model string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens caps the response size per stage. Zero selects a default.
	MaxTokens int64
}

// ClaudeInvoker performs capability work by prompting Claude once per
// stage. Expected model-level refusals come back as failed stage results;
// only transport construction fails with an error.
type ClaudeInvoker struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClaudeInvoker creates a Claude-backed invoker.
func NewClaudeInvoker(cfg ClaudeConfig) (*ClaudeInvoker, error) {
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

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &ClaudeInvoker{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// ForRequest binds the invoker to one request's text and returns the
// coordinator-facing invoke function.
func (inv *ClaudeInvoker) ForRequest(request string) engine.InvokeFunc {
	return func(ctx context.Context, stage models.Stage, view *engine.ContextView) (*models.StageResult, error) {
		return inv.invoke(ctx, request, stage, view)
	}
}

func (inv *ClaudeInvoker) invoke(ctx context.Context, request string, stage models.Stage, view *engine.ContextView) (*models.StageResult, error) {
	resp, err := inv.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     inv.model,
		MaxTokens: inv.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: stageSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildStagePrompt(request, stage, view))),
		},
	})
	if err != nil {
		// Transport and API errors are unexpected faults from the
		// coordinator's perspective.
		return nil, fmt.Errorf("stage %s: %w", stage.Capability, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	output := strings.TrimSpace(text.String())
	if output == "" {
		return &models.StageResult{
			Status:  models.StageFailed,
			Failure: models.FailureStage,
			Error:   "handler produced no output",
		}, nil
	}

	return &models.StageResult{
		Status: models.StageSuccess,
		Artifact: map[string]any{
			"capability": stage.Capability,
			"output":     output,
			"model":      string(inv.model),
		},
	}, nil
}

const stageSystemPrompt = `You are a specialized capability handler inside a ` +
	`request-to-plan orchestration engine. Perform only the work of the ` +
	`capability you are given. Upstream stage outputs are provided as ` +
	`context; do not redo their work. Respond with the produced artifact ` +
	`description only.`

// buildStagePrompt assembles the stage prompt from the request, the
// capability, and the declared upstream artifacts.
func buildStagePrompt(request string, stage models.Stage, view *engine.ContextView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feature request: %s\n", request)
	fmt.Fprintf(&b, "Capability: %s\n", stage.Capability)

	for _, dep := range view.Capabilities() {
		r, ok := view.Get(dep)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\nUpstream %s artifact:\n", dep)
		for k, v := range r.Artifact {
			fmt.Fprintf(&b, "  %s: %v\n", k, v)
		}
	}

	return b.String()
}
