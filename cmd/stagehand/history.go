package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/state"
)

var (
	historyLimit int
	historyRunID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent orchestration runs",
	Long: `List recent runs from the history database, newest first.

Use --run to show one run's per-stage results.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Show stage results for one run ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := cfg.History.DBPath
	if path == "" {
		path = state.DefaultDBPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("no history recorded yet")
		return nil
	}

	db, err := state.Open(path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate history database: %w", err)
	}

	if historyRunID != "" {
		return showRun(db, historyRunID)
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no history recorded yet")
		return nil
	}

	fmt.Printf("%-10s %-10s %-20s %s\n", "RUN", "STATUS", "STARTED", "REQUEST")
	for _, r := range runs {
		request := r.Request
		if len(request) > 60 {
			request = request[:57] + "..."
		}
		fmt.Printf("%-10s %-10s %-20s %s\n", r.ID, r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), request)
	}
	return nil
}

func showRun(db *state.DB, runID string) error {
	run, err := db.GetRun(runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	fmt.Printf("run %s (%s): %s\n", run.ID, run.Status, run.Request)

	results, err := db.StageResults(runID)
	if err != nil {
		return fmt.Errorf("stage results: %w", err)
	}
	for i, sr := range results {
		line := fmt.Sprintf("%d. %-26s %s", i+1, sr.Capability, sr.Status)
		if sr.Error != "" {
			line += fmt.Sprintf(" (%s: %s)", sr.Failure, sr.Error)
		}
		fmt.Println("  " + line)
	}
	return nil
}
