// Package handlers provides stage invokers: the boundary between the
// coordinator and the actual capability handlers. Handlers receive one
// stage and the read-only view of its declared dependencies; they may not
// invoke the coordinator themselves.
package handlers

import (
	"context"
	"fmt"

	"github.com/stagehand-dev/stagehand/internal/engine"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

// Stub returns an invoker that synthesizes a deterministic artifact for
// each stage without doing real generation work. Useful for dry runs,
// offline operation, and tests.
func Stub() engine.InvokeFunc {
	return func(ctx context.Context, stage models.Stage, view *engine.ContextView) (*models.StageResult, error) {
		artifact := map[string]any{
			"capability": stage.Capability,
			"summary":    fmt.Sprintf("stub output for %s", stage.Capability),
		}
		if deps := view.Capabilities(); len(deps) > 0 {
			upstream := make([]string, 0, len(deps))
			for _, id := range deps {
				if _, ok := view.Get(id); ok {
					upstream = append(upstream, id)
				}
			}
			artifact["consumed"] = upstream
		}

		return &models.StageResult{
			Status:   models.StageSuccess,
			Artifact: artifact,
		}, nil
	}
}
