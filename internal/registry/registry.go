// Package registry provides the static table of known capability handlers.
// The table is validated once at startup and read-only for the process
// lifetime, so no locking is needed on the hot path.
package registry

import (
	"errors"
	"fmt"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// ErrCycleDetected indicates a circular dependency among registered capabilities.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrNotFound indicates a capability ID is not registered.
var ErrNotFound = errors.New("capability not found")

// Registry is an immutable table of capabilities keyed by ID.
// Construction fails if the dependency graph is malformed; downstream
// components trust that validation and never re-check it.
type Registry struct {
	// byID maps capability ID to the capability.
	byID map[string]models.Capability
	// order preserves registration order for All.
	order []string
}

// New builds a Registry from the given capabilities.
// It returns an error if an ID is duplicated, a dependency references an
// unknown capability, a dependency ranks above its dependent, or the
// dependency graph contains a cycle.
func New(caps []models.Capability) (*Registry, error) {
	r := &Registry{
		byID: make(map[string]models.Capability, len(caps)),
	}

	for _, c := range caps {
		if c.ID == "" {
			return nil, fmt.Errorf("capability with empty id (label %q)", c.Label)
		}
		if _, exists := r.byID[c.ID]; exists {
			return nil, fmt.Errorf("duplicate capability id %s", c.ID)
		}
		r.byID[c.ID] = c
		r.order = append(r.order, c.ID)
	}

	// Dependencies must resolve and never rank above their dependents.
	for _, c := range caps {
		for _, depID := range c.DependsOn {
			dep, exists := r.byID[depID]
			if !exists {
				return nil, fmt.Errorf("capability %s depends on unknown capability %s", c.ID, depID)
			}
			if dep.Layer > c.Layer {
				return nil, fmt.Errorf("capability %s (layer %d) depends on %s (layer %d): dependency ranks higher",
					c.ID, c.Layer, depID, dep.Layer)
			}
		}
	}

	if r.hasCycle() {
		return nil, ErrCycleDetected
	}

	return r, nil
}

// hasCycle reports whether the dependency graph contains a cycle.
// Uses depth-first search with coloring to detect back edges.
func (r *Registry) hasCycle() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(r.byID))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1 // Mark as in progress.

		for _, depID := range r.byID[id].DependsOn {
			switch colors[depID] {
			case 1:
				// Found a back edge - cycle detected.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
			// color == 2 means already processed, skip.
		}

		colors[id] = 2 // Mark as done.
		return false
	}

	for _, id := range r.order {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Lookup returns the capability for the given ID.
// Returns ErrNotFound if the ID is not registered.
func (r *Registry) Lookup(id string) (models.Capability, error) {
	c, ok := r.byID[id]
	if !ok {
		return models.Capability{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Has returns true if the given capability ID is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns every registered capability in registration order.
// The returned slice is a copy; callers may not mutate the registry.
func (r *Registry) All() []models.Capability {
	out := make([]models.Capability, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Size returns the number of registered capabilities.
func (r *Registry) Size() int {
	return len(r.byID)
}
