package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// ContextStore accumulates stage results over one request's execution.
// It is append-only with a single writer (the coordinator) and is
// discarded when the run finishes, so no state leaks across requests.
type ContextStore struct {
	mu      sync.RWMutex
	results map[string]models.StageResult
}

// NewContextStore creates an empty store for one request.
func NewContextStore() *ContextStore {
	return &ContextStore{
		results: make(map[string]models.StageResult),
	}
}

// Record stores the result for a capability.
// Returns an error if the capability already has a recorded result;
// each capability is written at most once per request.
func (s *ContextStore) Record(capability string, result models.StageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[capability]; exists {
		return fmt.Errorf("result already recorded for capability %s", capability)
	}
	s.results[capability] = result
	return nil
}

// Len returns the number of recorded results.
func (s *ContextStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// View returns a read-only snapshot restricted to the given capabilities.
// Capabilities without a recorded result are simply absent from the view.
func (s *ContextStore) View(capabilities []string) *ContextView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := &ContextView{results: make(map[string]models.StageResult, len(capabilities))}
	for _, id := range capabilities {
		if r, ok := s.results[id]; ok {
			v.results[id] = copyResult(r)
		}
	}
	return v
}

// copyResult clones a result so a view cannot observe later mutation of
// artifact payloads.
func copyResult(r models.StageResult) models.StageResult {
	if r.Artifact != nil {
		artifact := make(map[string]any, len(r.Artifact))
		for k, v := range r.Artifact {
			artifact[k] = v
		}
		r.Artifact = artifact
	}
	return r
}

// ContextView is the read-only projection a stage receives before
// invocation. It contains exactly the results of the capabilities the
// stage declared as dependencies; sibling and downstream outputs are
// never visible.
type ContextView struct {
	results map[string]models.StageResult
}

// Get returns the result for a capability, if present in the view.
func (v *ContextView) Get(capability string) (models.StageResult, bool) {
	r, ok := v.results[capability]
	return r, ok
}

// Capabilities returns the capability IDs present in the view, sorted.
func (v *ContextView) Capabilities() []string {
	ids := make([]string, 0, len(v.results))
	for id := range v.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of results in the view.
func (v *ContextView) Len() int {
	return len(v.results)
}
