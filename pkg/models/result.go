package models

import "time"

// StageStatus represents the outcome of executing one stage.
type StageStatus string

const (
	// StageSuccess indicates the stage's handler completed its work.
	StageSuccess StageStatus = "success"
	// StageFailed indicates the stage's handler reported a failure.
	StageFailed StageStatus = "failed"
	// StageSkipped indicates the stage was never invoked because an
	// earlier stage failed or the run was canceled.
	StageSkipped StageStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s StageStatus) Valid() bool {
	switch s {
	case StageSuccess, StageFailed, StageSkipped:
		return true
	default:
		return false
	}
}

// FailureKind distinguishes how a stage failed.
type FailureKind string

const (
	// FailureStage is a business-level failure reported by the handler,
	// recoverable by resubmission.
	FailureStage FailureKind = "stage_failure"
	// FailureHandlerFault is an unexpected fault inside the handler
	// invocation. Treated like a stage failure but tagged distinctly
	// for observability.
	FailureHandlerFault FailureKind = "handler_fault"
)

// StageResult is the output of executing one stage. Results are written
// once by the coordinator and never mutated afterwards.
type StageResult struct {
	// Capability is the ID of the capability that produced this result.
	Capability string `json:"capability"`
	// Status is the outcome of the stage.
	Status StageStatus `json:"status"`
	// Artifact is the opaque structured payload the handler produced.
	Artifact map[string]any `json:"artifact,omitempty"`
	// Error holds failure detail when Status is StageFailed.
	Error string `json:"error,omitempty"`
	// Failure classifies the failure when Status is StageFailed.
	Failure FailureKind `json:"failure,omitempty"`
	// StartedAt is when the stage invocation began.
	StartedAt time.Time `json:"started_at,omitempty"`
	// Duration is how long the stage invocation took.
	Duration time.Duration `json:"duration,omitempty"`
}

// RunStatus represents the overall outcome of one request's execution.
type RunStatus string

const (
	// RunPending indicates the run has not started.
	RunPending RunStatus = "pending"
	// RunRunning indicates stages are executing.
	RunRunning RunStatus = "running"
	// RunCompleted indicates every stage succeeded.
	RunCompleted RunStatus = "completed"
	// RunFailed indicates a stage failed and the run halted.
	RunFailed RunStatus = "failed"
	// RunCanceled indicates the run halted between stages after a
	// cancellation signal.
	RunCanceled RunStatus = "canceled"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunFailed, RunCanceled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the run can no longer change state.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCanceled
}

// RunResult aggregates one request's execution: every stage result in plan
// order plus the overall status.
type RunResult struct {
	// RunID identifies this execution.
	RunID string `json:"run_id"`
	// Status is the overall outcome.
	Status RunStatus `json:"status"`
	// Stages holds one result per plan stage, in plan order. Stages after
	// a failure are present with StageSkipped status.
	Stages []StageResult `json:"stages"`
	// FailedStage is the plan index of the failed stage, or -1.
	FailedStage int `json:"failed_stage"`
	// StartedAt is when execution began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when execution reached a terminal state.
	CompletedAt time.Time `json:"completed_at"`
}

// Completed returns the results of stages that succeeded, in plan order.
func (r *RunResult) Completed() []StageResult {
	var out []StageResult
	for _, sr := range r.Stages {
		if sr.Status == StageSuccess {
			out = append(out, sr)
		}
	}
	return out
}
