package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/config"
	"github.com/stagehand-dev/stagehand/internal/registry"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List registered capabilities and their dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		reg, err := registry.Load(cfg.Registry.File)
		if err != nil {
			return fmt.Errorf("load capability registry: %w", err)
		}

		fmt.Printf("%-26s %-26s %5s  %s\n", "ID", "LABEL", "LAYER", "DEPENDS ON")
		for _, c := range reg.All() {
			deps := "-"
			if len(c.DependsOn) > 0 {
				deps = strings.Join(c.DependsOn, ", ")
			}
			fmt.Printf("%-26s %-26s %5d  %s\n", c.ID, c.Label, c.Layer, deps)
		}
		return nil
	},
}
