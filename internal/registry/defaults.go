package registry

import "github.com/stagehand-dev/stagehand/pkg/models"

// DefaultCapabilities is the built-in capability table.
// Layers run inward-out: data modeling is the foundation, persistence and
// workflow build on it, surfaces sit on top.
func DefaultCapabilities() []models.Capability {
	return []models.Capability{
		{
			ID:    "data-modeling",
			Label: "Data Modeling",
			Layer: 0,
		},
		{
			ID:        "persistence-integration",
			Label:     "Persistence Integration",
			Layer:     1,
			DependsOn: []string{"data-modeling"},
		},
		{
			ID:        "workflow-orchestration",
			Label:     "Workflow Orchestration",
			Layer:     1,
			DependsOn: []string{"data-modeling"},
		},
		{
			ID:        "http-surface",
			Label:     "HTTP Surface",
			Layer:     2,
			DependsOn: []string{"data-modeling"},
		},
		{
			ID:        "notification-integration",
			Label:     "Notification Integration",
			Layer:     2,
			DependsOn: []string{"workflow-orchestration"},
		},
		{
			ID:        "ui-surface",
			Label:     "UI Surface",
			Layer:     3,
			DependsOn: []string{"http-surface"},
		},
	}
}

// Default builds a Registry from the built-in capability table.
// The built-in table is known-good, so failure here is a programming error.
func Default() *Registry {
	r, err := New(DefaultCapabilities())
	if err != nil {
		panic("registry: built-in capability table is invalid: " + err.Error())
	}
	return r
}
