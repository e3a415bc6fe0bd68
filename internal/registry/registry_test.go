package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

func TestNewSimple(t *testing.T) {
	r, err := New([]models.Capability{
		{ID: "a", Label: "A", Layer: 0},
		{ID: "b", Label: "B", Layer: 1, DependsOn: []string{"a"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != 2 {
		t.Errorf("expected size 2, got %d", r.Size())
	}
}

func TestNewDuplicateID(t *testing.T) {
	_, err := New([]models.Capability{
		{ID: "a", Layer: 0},
		{ID: "a", Layer: 1},
	})
	if err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestNewUnknownDependency(t *testing.T) {
	_, err := New([]models.Capability{
		{ID: "a", Layer: 0, DependsOn: []string{"missing"}},
	})
	if err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}

func TestNewCycleDetection(t *testing.T) {
	// a -> b -> c -> a
	_, err := New([]models.Capability{
		{ID: "a", Layer: 0, DependsOn: []string{"c"}},
		{ID: "b", Layer: 0, DependsOn: []string{"a"}},
		{ID: "c", Layer: 0, DependsOn: []string{"b"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestNewSelfCycle(t *testing.T) {
	_, err := New([]models.Capability{
		{ID: "a", Layer: 0, DependsOn: []string{"a"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
}

func TestNewRankInconsistency(t *testing.T) {
	// A dependency may never rank above its dependent.
	_, err := New([]models.Capability{
		{ID: "low", Layer: 0, DependsOn: []string{"high"}},
		{ID: "high", Layer: 3},
	})
	if err == nil {
		t.Fatal("expected error for dependency ranking above dependent")
	}
}

func TestNewEqualRankDependencyAllowed(t *testing.T) {
	_, err := New([]models.Capability{
		{ID: "a", Layer: 1},
		{ID: "b", Layer: 1, DependsOn: []string{"a"}},
	})
	if err != nil {
		t.Fatalf("equal-rank dependency should be allowed: %v", err)
	}
}

func TestLookup(t *testing.T) {
	r := Default()

	c, err := r.Lookup("data-modeling")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Layer != 0 {
		t.Errorf("data-modeling layer = %d, want 0", c.Layer)
	}

	_, err = r.Lookup("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAllPreservesRegistrationOrder(t *testing.T) {
	caps := []models.Capability{
		{ID: "z", Layer: 0},
		{ID: "a", Layer: 0},
		{ID: "m", Layer: 0},
	}
	r, err := New(caps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := r.All()
	for i, c := range all {
		if c.ID != caps[i].ID {
			t.Errorf("All()[%d] = %s, want %s", i, c.ID, caps[i].ID)
		}
	}
}

func TestDefaultTableIsValid(t *testing.T) {
	r := Default()
	if r.Size() == 0 {
		t.Fatal("default registry is empty")
	}

	// Every declared dependency resolves.
	for _, c := range r.All() {
		for _, dep := range c.DependsOn {
			if !r.Has(dep) {
				t.Errorf("capability %s depends on unregistered %s", c.ID, dep)
			}
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "caps.yaml")
	content := `capabilities:
  - id: base
    label: Base
    layer: 0
  - id: upper
    label: Upper
    layer: 1
    depends_on: [base]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if r.Size() != 2 {
		t.Errorf("expected 2 capabilities, got %d", r.Size())
	}

	c, err := r.Lookup("upper")
	if err != nil {
		t.Fatalf("lookup upper: %v", err)
	}
	if !c.HasDependency("base") {
		t.Error("upper should depend on base")
	}
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "caps.yaml")
	// Cycle between the two capabilities.
	content := `capabilities:
  - id: a
    layer: 0
    depends_on: [b]
  - id: b
    layer: 0
    depends_on: [a]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for cyclic capability file")
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	r, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Has("data-modeling") {
		t.Error("default registry missing data-modeling")
	}
}
