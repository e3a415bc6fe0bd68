package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// Run represents one orchestration run's history record.
type Run struct {
	ID          string           `json:"id"`
	Request     string           `json:"request"`
	Status      models.RunStatus `json:"status"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at"`
}

// CreateRun inserts a new run record.
func (db *DB) CreateRun(r *Run) error {
	_, err := db.Exec(`
		INSERT INTO runs (id, request, status, started_at)
		VALUES (?, ?, ?, ?)
	`, r.ID, r.Request, string(r.Status), formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun marks a run terminal with the given status.
func (db *DB) FinishRun(id string, status models.RunStatus, completedAt time.Time) error {
	_, err := db.Exec(`
		UPDATE runs SET status = ?, completed_at = ? WHERE id = ?
	`, string(status), formatTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil if the run does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, request, status, started_at, completed_at
		FROM runs WHERE id = ?
	`, id)

	var r Run
	var startedAt string
	var completedAt sql.NullString
	err := row.Scan(&r.ID, &r.Request, &r.Status, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	r.StartedAt, _ = parseTime(startedAt)
	r.CompletedAt = parseNullableTime(completedAt)
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, request, status, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var r Run
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Request, &r.Status, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = parseTime(startedAt)
		r.CompletedAt = parseNullableTime(completedAt)
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// RecordStageResult persists one stage's result for a run.
// The artifact payload is stored as JSON.
func (db *DB) RecordStageResult(runID string, stageIndex int, sr models.StageResult) error {
	var artifact any
	if sr.Artifact != nil {
		data, err := json.Marshal(sr.Artifact)
		if err != nil {
			return fmt.Errorf("marshal artifact: %w", err)
		}
		artifact = string(data)
	}

	_, err := db.Exec(`
		INSERT INTO stage_results (run_id, stage_index, capability, status, failure, error, duration_ms, artifact)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, stageIndex, sr.Capability, string(sr.Status), string(sr.Failure), sr.Error,
		sr.Duration.Milliseconds(), artifact)
	if err != nil {
		return fmt.Errorf("record stage result: %w", err)
	}
	return nil
}

// StageResults returns a run's stage results in plan order.
func (db *DB) StageResults(runID string) ([]models.StageResult, error) {
	rows, err := db.Query(`
		SELECT capability, status, failure, error, duration_ms, artifact
		FROM stage_results WHERE run_id = ? ORDER BY stage_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("stage results: %w", err)
	}
	defer rows.Close()

	var results []models.StageResult
	for rows.Next() {
		var sr models.StageResult
		var failure, errMsg sql.NullString
		var durationMs int64
		var artifact sql.NullString
		if err := rows.Scan(&sr.Capability, &sr.Status, &failure, &errMsg, &durationMs, &artifact); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		sr.Failure = models.FailureKind(failure.String)
		sr.Error = errMsg.String
		sr.Duration = time.Duration(durationMs) * time.Millisecond
		if artifact.Valid && artifact.String != "" {
			if err := json.Unmarshal([]byte(artifact.String), &sr.Artifact); err != nil {
				return nil, fmt.Errorf("unmarshal artifact: %w", err)
			}
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}
