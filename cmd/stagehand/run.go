package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/classify"
	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/engine"
	"github.com/stagehand-dev/stagehand/internal/handlers"
	"github.com/stagehand-dev/stagehand/internal/plan"
	"github.com/stagehand-dev/stagehand/internal/registry"
	"github.com/stagehand-dev/stagehand/internal/state"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

var (
	runCapabilities []string
	runThreshold    float64
	runDryRun       bool
	runNoHistory    bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Classify a request, build an execution plan, and run it",
	Long: `Run a feature request through the full pipeline:

  1. Classify the request against weighted trigger patterns to find
     the required capabilities (skipped with --capability).
  2. Build the execution plan: prerequisites are auto-included and
     stages are ordered by the dependency partial order, with layer
     rank breaking ties.
  3. Invoke each stage's handler sequentially. A stage only sees the
     outputs of the capabilities it declared as dependencies. The run
     halts on the first failure; completed results are preserved.

Handlers run in stub mode by default; set handlers.mode to "claude" in
the config to perform real generation work.

Use --capability to bypass the classifier with an explicit capability
list, and --dry-run to print the plan without executing it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func init() {
	runCmd.Flags().StringArrayVar(&runCapabilities, "capability", nil, "Explicit capability id (repeatable); bypasses the classifier")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0, "Override the classifier confidence threshold")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the execution plan without running it")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Skip recording this run in the history database")
}

func runRequest(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runThreshold > 0 {
		cfg.Classify.Threshold = runThreshold
	}

	reg, err := registry.Load(cfg.Registry.File)
	if err != nil {
		return fmt.Errorf("load capability registry: %w", err)
	}

	// Determine the required capability set.
	required := runCapabilities
	if len(required) == 0 {
		classifier, err := newClassifier(cfg, reg)
		if err != nil {
			return err
		}

		result := classifier.Classify(request)
		printClassification(result)

		if result.Unmatched && len(result.Matches) == 0 {
			printStatus("✗", "no capability could be confidently selected", color.FgRed)
			exitCode = exitUnmatched
			return nil
		}
		required = result.Required()
	}

	builder := plan.NewBuilder(reg)
	p, err := builder.Build(request, required)
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	printPlan(p)
	if runDryRun {
		return nil
	}

	invoke, err := newInvoker(cfg, request)
	if err != nil {
		return err
	}

	var history *state.DB
	if cfg.History.Enabled && !runNoHistory {
		history, err = openHistory(cfg)
		if err != nil {
			// History is diagnostics only; degrade rather than refuse to run.
			printStatus("⚠", fmt.Sprintf("history disabled: %v", err), color.FgYellow)
		} else {
			defer history.Close()
		}
	}

	emitter := engine.NewEmitter(cfg.Events.BufferSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range emitter.Events() {
			printEvent(event)
		}
	}()

	coord := engine.NewCoordinator(engine.CoordinatorConfig{
		Emitter: emitter,
		History: history,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := coord.Execute(ctx, p, invoke)
	emitter.Close()
	<-done
	if err != nil {
		return fmt.Errorf("execute plan: %w", err)
	}

	printRunResult(result)

	switch result.Status {
	case models.RunCompleted:
		exitCode = exitCompleted
	default:
		exitCode = exitFailed
	}
	return nil
}

// newClassifier builds the classifier from config: built-in rules unless a
// rules file is configured.
func newClassifier(cfg *config.Config, reg *registry.Registry) (*classify.Classifier, error) {
	rules := classify.DefaultRules()
	if cfg.Classify.RulesFile != "" {
		loaded, err := classify.LoadRules(cfg.Classify.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load classifier rules: %w", err)
		}
		rules = loaded
	}

	classifier, err := classify.New(reg, rules, cfg.Classify.Threshold)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return classifier, nil
}

// newInvoker selects the handler backend per config.
func newInvoker(cfg *config.Config, request string) (engine.InvokeFunc, error) {
	switch cfg.Handlers.Mode {
	case "", "stub":
		return handlers.Stub(), nil
	case "claude":
		inv, err := handlers.NewClaudeInvoker(handlers.ClaudeConfig{
			Model:         cfg.Handlers.Model,
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Handlers.UseBedrock,
			AWSRegion:     cfg.Handlers.AWSRegion,
			AWSProfile:    cfg.Handlers.AWSProfile,
			MaxTokens:     cfg.Handlers.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create claude handler: %w", err)
		}
		return inv.ForRequest(request), nil
	default:
		return nil, fmt.Errorf("unknown handler mode %q", cfg.Handlers.Mode)
	}
}

// openHistory opens and migrates the history database.
func openHistory(cfg *config.Config) (*state.DB, error) {
	path := cfg.History.DBPath
	if path == "" {
		path = state.DefaultDBPath()
	}
	db, err := state.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func printClassification(result classify.Result) {
	if result.Unmatched {
		printStatus("⚠", fmt.Sprintf("no capability reached threshold %.2f; best-effort fallback in use", result.Threshold), color.FgYellow)
	}
	for _, m := range result.Matches {
		fmt.Printf("  %-26s score %.2f\n", m.Capability, m.Score)
	}
}

func printPlan(p *models.ExecutionPlan) {
	fmt.Printf("plan %s: %s\n", p.RequestID, strings.Join(p.Capabilities(), " → "))
	for _, s := range p.Stages {
		if len(s.DependsOn) > 0 {
			fmt.Printf("  %d. %-26s reads: %s\n", s.Index+1, s.Capability, strings.Join(s.DependsOn, ", "))
		} else {
			fmt.Printf("  %d. %s\n", s.Index+1, s.Capability)
		}
	}
}

func printEvent(event engine.Event) {
	switch event.Type {
	case engine.EventStageStarted:
		fmt.Printf("→ %s\n", event.Capability)
	case engine.EventStageCompleted:
		printStatus("✓", fmt.Sprintf("%s (%s)", event.Capability, event.Duration.Round(time.Millisecond)), color.FgGreen)
	case engine.EventStageFailed:
		printStatus("✗", fmt.Sprintf("%s: %s", event.Capability, event.Message), color.FgRed)
	case engine.EventStageSkipped:
		printStatus("-", fmt.Sprintf("%s skipped", event.Capability), color.FgYellow)
	}
}

func printRunResult(result *models.RunResult) {
	fmt.Println()
	for _, sr := range result.Stages {
		switch sr.Status {
		case models.StageSuccess:
			printStatus("✓", sr.Capability, color.FgGreen)
		case models.StageFailed:
			printStatus("✗", fmt.Sprintf("%s: %s", sr.Capability, sr.Error), color.FgRed)
		case models.StageSkipped:
			printStatus("-", fmt.Sprintf("%s (skipped)", sr.Capability), color.FgYellow)
		}
	}

	switch result.Status {
	case models.RunCompleted:
		printStatus("✓", fmt.Sprintf("run %s completed in %s", result.RunID,
			result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond)), color.FgGreen)
	case models.RunCanceled:
		printStatus("⚠", fmt.Sprintf("run %s canceled", result.RunID), color.FgYellow)
	default:
		printStatus("✗", fmt.Sprintf("run %s failed at stage %d", result.RunID, result.FailedStage+1), color.FgRed)
	}
}
