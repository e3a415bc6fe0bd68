package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/registry"
)

var classifyThreshold float64

var classifyCmd = &cobra.Command{
	Use:   "classify <request>",
	Short: "Show how a request would be classified, with evidence",
	Long: `Classify a request without building or executing a plan.

Prints every capability that scored, the patterns that triggered it, and
whether the score reached the confidence threshold. Useful for tuning
rules files and thresholds.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().Float64Var(&classifyThreshold, "threshold", 0, "Override the classifier confidence threshold")
}

func runClassify(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if classifyThreshold > 0 {
		cfg.Classify.Threshold = classifyThreshold
	}

	reg, err := registry.Load(cfg.Registry.File)
	if err != nil {
		return fmt.Errorf("load capability registry: %w", err)
	}

	classifier, err := newClassifier(cfg, reg)
	if err != nil {
		return err
	}

	result := classifier.Classify(request)

	fmt.Printf("threshold: %.2f\n", result.Threshold)
	if result.Unmatched {
		printStatus("⚠", "unmatched: no capability reached the threshold", color.FgYellow)
	}
	if len(result.Matches) == 0 {
		fmt.Println("no capability scored")
		exitCode = exitUnmatched
		return nil
	}

	for _, m := range result.Matches {
		symbol, attr := "✓", color.FgGreen
		if m.Score < result.Threshold {
			symbol, attr = "⚠", color.FgYellow
		}
		printStatus(symbol, fmt.Sprintf("%-26s score %.2f", m.Capability, m.Score), attr)
		for _, ev := range m.Evidence {
			fmt.Printf("    %-8s %-30q +%.2f\n", ev.Kind, ev.Expr, ev.Weight)
		}
	}
	return nil
}
