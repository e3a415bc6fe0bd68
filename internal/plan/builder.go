// Package plan builds totally ordered execution plans from a required
// capability set, respecting the registry's dependency partial order.
package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/stagehand-dev/stagehand/internal/registry"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

// ErrUnknownCapability indicates a required capability is not registered.
var ErrUnknownCapability = errors.New("unknown capability")

// ErrEmptyRequirement indicates no capabilities were required.
var ErrEmptyRequirement = errors.New("no capabilities required")

// Builder produces execution plans over a validated registry.
// The registry's graph is known acyclic and rank-consistent, so plan
// construction always terminates.
type Builder struct {
	reg *registry.Registry

	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// NewBuilder creates a Builder over the given registry.
func NewBuilder(reg *registry.Registry) *Builder {
	return &Builder{
		reg:      reg,
		debugLog: func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebugLog sets the debug logging function.
func (b *Builder) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		b.debugLog = fn
	}
}

// Build produces the execution plan for the required capability IDs.
//
// Dependencies of required capabilities are always auto-included, even when
// the classifier did not flag them: a plan missing a prerequisite would be
// incoherent. Stage order is a stable topological sort: no stage precedes
// anything it depends on; otherwise-unconstrained stages order by ascending
// layer rank, then by capability ID. The result is byte-identical for a
// given required set regardless of input ordering.
func (b *Builder) Build(request string, required []string) (*models.ExecutionPlan, error) {
	if len(required) == 0 {
		return nil, ErrEmptyRequirement
	}

	// Transitive closure over the required set. Duplicates collapse.
	include := make(map[string]bool)
	queue := make([]string, 0, len(required))
	for _, id := range required {
		if !b.reg.Has(id) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, id)
		}
		if !include[id] {
			include[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		c, err := b.reg.Lookup(id)
		if err != nil {
			// The registry validated every dependency at startup, so a
			// miss here is a registry defect.
			return nil, fmt.Errorf("unsatisfiable dependency: %w", err)
		}
		for _, depID := range c.DependsOn {
			if !include[depID] {
				b.debugLog("[plan.Build] auto-including %s (prerequisite of %s)", depID, id)
				include[depID] = true
				queue = append(queue, depID)
			}
		}
	}

	ordered, err := b.sortStages(include)
	if err != nil {
		return nil, err
	}
	b.debugLog("[plan.Build] ordered %d stages: %v", len(ordered), ordered)

	p := &models.ExecutionPlan{
		RequestID: uuid.New().String()[:8],
		Request:   request,
		Stages:    make([]models.Stage, 0, len(ordered)),
	}

	// Resolve each stage's declared dependencies to earlier stage indices.
	indexOf := make(map[string]int, len(ordered))
	for i, id := range ordered {
		c, _ := b.reg.Lookup(id)
		stage := models.Stage{
			Index:      i,
			Capability: id,
			DependsOn:  append([]string(nil), c.DependsOn...),
		}
		for _, depID := range c.DependsOn {
			stage.Reads = append(stage.Reads, indexOf[depID])
		}
		indexOf[id] = i
		p.Stages = append(p.Stages, stage)
	}

	return p, nil
}

// sortStages runs Kahn's algorithm over the included capabilities.
// The ready set is drained in (layer asc, id asc) order, which makes the
// output deterministic for any input ordering of the same set.
func (b *Builder) sortStages(include map[string]bool) ([]string, error) {
	indegree := make(map[string]int, len(include))
	dependents := make(map[string][]string, len(include))
	for id := range include {
		c, _ := b.reg.Lookup(id)
		for _, depID := range c.DependsOn {
			if include[depID] {
				indegree[id]++
				dependents[depID] = append(dependents[depID], id)
			}
		}
	}

	var ready []string
	for id := range include {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var ordered []string
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			li, lj := b.layerOf(ready[i]), b.layerOf(ready[j])
			if li != lj {
				return li < lj
			}
			return ready[i] < ready[j]
		})

		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, id)

		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	// The registry rejects cycles at startup, so every capability drains.
	if len(ordered) != len(include) {
		return nil, fmt.Errorf("dependency cycle among required capabilities")
	}
	return ordered, nil
}

func (b *Builder) layerOf(id string) int {
	c, _ := b.reg.Lookup(id)
	return c.Layer
}
