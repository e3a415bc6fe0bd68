package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stagehand-dev/stagehand/internal/state"
	"github.com/stagehand-dev/stagehand/pkg/models"
)

// InvokeFunc is the boundary to the actual capability handlers.
// Given a stage and the read-only view of its declared dependencies, it
// performs the capability's work and returns a result. Business-level
// failures must come back as a failed StageResult, not an error; a
// returned error or a panic is classified as a handler fault.
type InvokeFunc func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error)

// CoordinatorConfig contains configuration options for the Coordinator.
type CoordinatorConfig struct {
	// Emitter receives progress events. If nil, events are not emitted.
	Emitter *Emitter
	// History persists run records. If nil, history is disabled.
	History *state.DB
}

// Coordinator drives sequential invocation of handlers per an execution
// plan. Stages run strictly one at a time in plan order; a later stage's
// input may depend on an earlier stage's freshly produced artifact, so
// there is no intra-run parallelism. Each Execute call owns its own
// context store, so independent requests may run concurrently on the
// same Coordinator.
type Coordinator struct {
	emitter *Emitter
	history *state.DB
}

// NewCoordinator creates a new Coordinator with the given configuration.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	return &Coordinator{
		emitter: cfg.Emitter,
		history: cfg.History,
	}
}

// Execute runs the plan's stages in order, accumulating results.
//
// On the first stage failure the remaining stages are skipped and the
// partial results are returned: completed results are always preserved so
// the caller can resume or diagnose without re-running finished stages.
// Cancellation is honored between stages only; an in-flight invocation is
// non-preemptible and runs to completion.
func (c *Coordinator) Execute(ctx context.Context, plan *models.ExecutionPlan, invoke InvokeFunc) (*models.RunResult, error) {
	if plan == nil || len(plan.Stages) == 0 {
		return nil, fmt.Errorf("empty execution plan")
	}
	if invoke == nil {
		return nil, fmt.Errorf("nil stage invoker")
	}

	result := &models.RunResult{
		RunID:       uuid.New().String()[:8],
		Status:      models.RunRunning,
		FailedStage: -1,
		StartedAt:   time.Now(),
	}
	store := NewContextStore()

	c.recordRunStart(result, plan)
	c.emit(Event{Type: EventRunStarted, RunID: result.RunID,
		Message: fmt.Sprintf("%d stages planned", len(plan.Stages))})

	halted := false
	for _, stage := range plan.Stages {
		if halted {
			c.skipStage(result, stage)
			continue
		}

		// Cancellation arrives between stages; the current invocation
		// is never preempted.
		if ctx.Err() != nil {
			result.Status = models.RunCanceled
			halted = true
			c.skipStage(result, stage)
			continue
		}

		c.emit(Event{Type: EventStageStarted, RunID: result.RunID,
			Capability: stage.Capability, StageIndex: stage.Index})

		view := store.View(stage.DependsOn)
		sr := c.invokeStage(ctx, stage, view, invoke)
		result.Stages = append(result.Stages, sr)
		c.recordStage(result.RunID, stage.Index, sr)

		if sr.Status != models.StageSuccess {
			result.Status = models.RunFailed
			result.FailedStage = stage.Index
			halted = true
			c.emit(Event{Type: EventStageFailed, RunID: result.RunID,
				Capability: stage.Capability, StageIndex: stage.Index,
				Message: sr.Error, Duration: sr.Duration})
			continue
		}

		if err := store.Record(stage.Capability, sr); err != nil {
			// Plans never repeat a capability, so this is a defect.
			log.Printf("[engine] context store write failed: %v", err)
		}
		c.emit(Event{Type: EventStageCompleted, RunID: result.RunID,
			Capability: stage.Capability, StageIndex: stage.Index,
			Duration: sr.Duration})
	}

	if !halted {
		result.Status = models.RunCompleted
	}
	result.CompletedAt = time.Now()

	c.recordRunFinish(result)
	switch result.Status {
	case models.RunCompleted:
		c.emit(Event{Type: EventRunCompleted, RunID: result.RunID})
	case models.RunCanceled:
		c.emit(Event{Type: EventRunCanceled, RunID: result.RunID})
	default:
		c.emit(Event{Type: EventRunFailed, RunID: result.RunID,
			StageIndex: result.FailedStage})
	}

	return result, nil
}

// invokeStage calls the handler for one stage, normalizing its outcome.
// Panics and invoker errors become handler-fault results rather than
// propagating: from the coordinator's view they behave like any other
// stage failure, tagged distinctly for observability.
func (c *Coordinator) invokeStage(ctx context.Context, stage models.Stage, view *ContextView, invoke InvokeFunc) (sr models.StageResult) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			sr = models.StageResult{
				Capability: stage.Capability,
				Status:     models.StageFailed,
				Failure:    models.FailureHandlerFault,
				Error:      fmt.Sprintf("handler panic: %v", r),
				StartedAt:  started,
				Duration:   time.Since(started),
			}
		}
	}()

	// Invocations are non-preemptible: partial application of a
	// handler's work is unsafe, so the stage runs on a context that
	// outlives a caller cancellation.
	res, err := invoke(context.WithoutCancel(ctx), stage, view)
	duration := time.Since(started)

	if err != nil {
		return models.StageResult{
			Capability: stage.Capability,
			Status:     models.StageFailed,
			Failure:    models.FailureHandlerFault,
			Error:      err.Error(),
			StartedAt:  started,
			Duration:   duration,
		}
	}
	if res == nil {
		return models.StageResult{
			Capability: stage.Capability,
			Status:     models.StageFailed,
			Failure:    models.FailureHandlerFault,
			Error:      "handler returned no result",
			StartedAt:  started,
			Duration:   duration,
		}
	}

	sr = *res
	sr.Capability = stage.Capability
	sr.StartedAt = started
	sr.Duration = duration
	if sr.Status == "" {
		sr.Status = models.StageSuccess
	}
	if sr.Status == models.StageFailed && sr.Failure == "" {
		sr.Failure = models.FailureStage
	}
	return sr
}

// skipStage appends a skipped result for a stage that will not run.
func (c *Coordinator) skipStage(result *models.RunResult, stage models.Stage) {
	sr := models.StageResult{
		Capability: stage.Capability,
		Status:     models.StageSkipped,
	}
	result.Stages = append(result.Stages, sr)
	c.recordStage(result.RunID, stage.Index, sr)
	c.emit(Event{Type: EventStageSkipped, RunID: result.RunID,
		Capability: stage.Capability, StageIndex: stage.Index})
}

func (c *Coordinator) emit(event Event) {
	if c.emitter != nil {
		c.emitter.Emit(event)
	}
}

// History failures are logged, never fatal: run history is diagnostics,
// not part of the execution contract.

func (c *Coordinator) recordRunStart(result *models.RunResult, plan *models.ExecutionPlan) {
	if c.history == nil {
		return
	}
	err := c.history.CreateRun(&state.Run{
		ID:        result.RunID,
		Request:   plan.Request,
		Status:    models.RunRunning,
		StartedAt: result.StartedAt,
	})
	if err != nil {
		log.Printf("[engine] record run start: %v", err)
	}
}

func (c *Coordinator) recordStage(runID string, stageIndex int, sr models.StageResult) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordStageResult(runID, stageIndex, sr); err != nil {
		log.Printf("[engine] record stage result: %v", err)
	}
}

func (c *Coordinator) recordRunFinish(result *models.RunResult) {
	if c.history == nil {
		return
	}
	if err := c.history.FinishRun(result.RunID, result.Status, result.CompletedAt); err != nil {
		log.Printf("[engine] record run finish: %v", err)
	}
}
