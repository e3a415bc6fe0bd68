package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Exit codes for the run command.
const (
	exitCompleted = 0
	exitFailed    = 1
	exitUnmatched = 2
)

// exitCode is set by subcommands that report outcomes through the exit
// status rather than an error.
var exitCode = exitCompleted

var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "Request-to-plan orchestration engine",
	Long: `Stagehand turns a free-form feature request into an ordered
execution plan over specialized capability handlers and drives their
sequential invocation.

A request is classified against weighted trigger patterns to find the
required capabilities, prerequisites are auto-included, stages are
ordered by the dependency partial order, and each handler receives
exactly the upstream outputs it declared.

Exit codes for 'run': 0 completed, 1 failed (partial results printed),
2 unmatched (no capability could be confidently selected).`,
}

// Execute runs the root command and exits with the outcome code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitFailed)
	}
	os.Exit(exitCode)
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// printStatus prints a colored status symbol followed by a message.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
