// Package engine drives sequential stage execution per an execution plan,
// accumulating context between stages.
package engine

import (
	"time"
)

// EventType represents the type of coordinator event.
type EventType string

const (
	// EventRunStarted indicates a run has started executing its plan.
	EventRunStarted EventType = "run_started"
	// EventStageStarted indicates a stage invocation has begun.
	EventStageStarted EventType = "stage_started"
	// EventStageCompleted indicates a stage completed successfully.
	EventStageCompleted EventType = "stage_completed"
	// EventStageFailed indicates a stage failed.
	EventStageFailed EventType = "stage_failed"
	// EventStageSkipped indicates a stage was never invoked.
	EventStageSkipped EventType = "stage_skipped"
	// EventRunCompleted indicates every stage succeeded.
	EventRunCompleted EventType = "run_completed"
	// EventRunFailed indicates the run halted on a stage failure.
	EventRunFailed EventType = "run_failed"
	// EventRunCanceled indicates the run halted between stages after
	// a cancellation signal.
	EventRunCanceled EventType = "run_canceled"
)

// Event represents a coordinator event. Events are used by the CLI to
// report progress as stages execute.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run the event belongs to.
	RunID string
	// Capability is the ID of the related capability, if applicable.
	Capability string
	// StageIndex is the plan index of the related stage, if applicable.
	StageIndex int
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Duration is the elapsed time for completion events.
	Duration time.Duration
}
