package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c", "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("parent directories were not created")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestRunRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	started := time.Now()
	run := &Run{
		ID:        "run1",
		Request:   "create an order entity",
		Status:    models.RunRunning,
		StartedAt: started,
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := db.GetRun("run1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("run not found")
	}
	if got.Request != run.Request {
		t.Errorf("Request = %q, want %q", got.Request, run.Request)
	}
	if got.Status != models.RunRunning {
		t.Errorf("Status = %s, want running", got.Status)
	}
	if got.CompletedAt != nil {
		t.Error("CompletedAt should be nil before finish")
	}

	completed := started.Add(2 * time.Second)
	if err := db.FinishRun("run1", models.RunCompleted, completed); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err = db.GetRun("run1")
	if err != nil {
		t.Fatalf("GetRun after finish failed: %v", err)
	}
	if got.Status != models.RunCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt should be set after finish")
	}
}

func TestGetRunMissing(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetRun("missing")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing run")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := setupTestDB(t)

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		err := db.CreateRun(&Run{
			ID:        id,
			Request:   "r",
			Status:    models.RunCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("CreateRun %s: %v", id, err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("order = [%s %s], want [new mid]", runs[0].ID, runs[1].ID)
	}
}

func TestStageResultsRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	if err := db.CreateRun(&Run{ID: "run1", Request: "r", Status: models.RunRunning, StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	results := []models.StageResult{
		{
			Capability: "data-modeling",
			Status:     models.StageSuccess,
			Artifact:   map[string]any{"entities": []any{"Order"}},
			Duration:   120 * time.Millisecond,
		},
		{
			Capability: "workflow-orchestration",
			Status:     models.StageFailed,
			Failure:    models.FailureStage,
			Error:      "invalid transition",
		},
		{
			Capability: "notification-integration",
			Status:     models.StageSkipped,
		},
	}
	for i, sr := range results {
		if err := db.RecordStageResult("run1", i, sr); err != nil {
			t.Fatalf("RecordStageResult %d: %v", i, err)
		}
	}

	got, err := db.StageResults("run1")
	if err != nil {
		t.Fatalf("StageResults failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0].Capability != "data-modeling" || got[0].Status != models.StageSuccess {
		t.Errorf("first result = %+v", got[0])
	}
	if got[0].Artifact == nil {
		t.Error("artifact payload was not persisted")
	}
	if got[0].Duration != 120*time.Millisecond {
		t.Errorf("duration = %s, want 120ms", got[0].Duration)
	}
	if got[1].Failure != models.FailureStage || got[1].Error != "invalid transition" {
		t.Errorf("second result = %+v", got[1])
	}
	if got[2].Status != models.StageSkipped {
		t.Errorf("third result status = %s, want skipped", got[2].Status)
	}
}
