package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stagehand-dev/stagehand/pkg/models"
)

// threeStagePlan builds a linear a -> b -> c plan.
func threeStagePlan() *models.ExecutionPlan {
	return &models.ExecutionPlan{
		RequestID: "test",
		Request:   "three stages",
		Stages: []models.Stage{
			{Index: 0, Capability: "a"},
			{Index: 1, Capability: "b", DependsOn: []string{"a"}, Reads: []int{0}},
			{Index: 2, Capability: "c", DependsOn: []string{"b"}, Reads: []int{1}},
		},
	}
}

func succeed(stage models.Stage) *models.StageResult {
	return &models.StageResult{
		Status:   models.StageSuccess,
		Artifact: map[string]any{"from": stage.Capability},
	}
}

func TestExecuteAllStagesSucceed(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})

	var invoked []string
	result, err := coord.Execute(context.Background(), threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			invoked = append(invoked, stage.Capability)
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != models.RunCompleted {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if len(invoked) != 3 {
		t.Errorf("invoked %d stages, want 3", len(invoked))
	}
	if len(result.Stages) != 3 {
		t.Errorf("got %d stage results, want 3", len(result.Stages))
	}
	if result.FailedStage != -1 {
		t.Errorf("FailedStage = %d, want -1", result.FailedStage)
	}
}

func TestExecuteHaltsOnFirstFailure(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})

	var invoked []string
	result, err := coord.Execute(context.Background(), threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			invoked = append(invoked, stage.Capability)
			if stage.Capability == "b" {
				return &models.StageResult{
					Status: models.StageFailed,
					Error:  "invalid input",
				}, nil
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != models.RunFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if result.FailedStage != 1 {
		t.Errorf("FailedStage = %d, want 1", result.FailedStage)
	}

	// Stage c must never have been invoked.
	for _, id := range invoked {
		if id == "c" {
			t.Error("stage c was invoked after b failed")
		}
	}

	// Aggregate: one success, one failure, one skipped.
	if got := result.Stages[0].Status; got != models.StageSuccess {
		t.Errorf("stage a status = %s, want success", got)
	}
	if got := result.Stages[1].Status; got != models.StageFailed {
		t.Errorf("stage b status = %s, want failed", got)
	}
	if got := result.Stages[2].Status; got != models.StageSkipped {
		t.Errorf("stage c status = %s, want skipped", got)
	}

	// Business failure keeps the stage-failure classification.
	if result.Stages[1].Failure != models.FailureStage {
		t.Errorf("failure kind = %s, want %s", result.Stages[1].Failure, models.FailureStage)
	}
}

func TestExecuteContextIsolation(t *testing.T) {
	// b depends on a; c depends on b only. Stage c must not observe a's
	// output even though a executed earlier in the same plan.
	coord := NewCoordinator(CoordinatorConfig{})

	_, err := coord.Execute(context.Background(), threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			switch stage.Capability {
			case "b":
				if _, ok := view.Get("a"); !ok {
					t.Error("stage b is missing declared dependency a")
				}
			case "c":
				if _, ok := view.Get("a"); ok {
					t.Error("stage c observes a, which it did not declare")
				}
				if _, ok := view.Get("b"); !ok {
					t.Error("stage c is missing declared dependency b")
				}
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecutePropagatesArtifactsForward(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})

	result, err := coord.Execute(context.Background(), threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			if stage.Capability == "b" {
				r, ok := view.Get("a")
				if !ok {
					return nil, errors.New("missing upstream artifact")
				}
				return &models.StageResult{
					Status:   models.StageSuccess,
					Artifact: map[string]any{"upstream": r.Artifact["from"]},
				}, nil
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := result.Stages[1].Artifact["upstream"]; got != "a" {
		t.Errorf("stage b upstream = %v, want a", got)
	}
}

func TestExecuteInvokerErrorIsHandlerFault(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})

	result, err := coord.Execute(context.Background(), threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			if stage.Capability == "b" {
				return nil, fmt.Errorf("environment exploded")
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Stages[1].Failure != models.FailureHandlerFault {
		t.Errorf("failure kind = %s, want %s", result.Stages[1].Failure, models.FailureHandlerFault)
	}
	if result.Status != models.RunFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
}

func TestExecuteRecoversHandlerPanic(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})

	result, err := coord.Execute(context.Background(), threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			if stage.Capability == "b" {
				panic("handler bug")
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sr := result.Stages[1]
	if sr.Status != models.StageFailed {
		t.Errorf("status = %s, want failed", sr.Status)
	}
	if sr.Failure != models.FailureHandlerFault {
		t.Errorf("failure kind = %s, want %s", sr.Failure, models.FailureHandlerFault)
	}
	if result.Stages[2].Status != models.StageSkipped {
		t.Error("stage c should be skipped after the panic")
	}
}

func TestExecuteCancellationBetweenStages(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	var invoked []string
	result, err := coord.Execute(ctx, threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			invoked = append(invoked, stage.Capability)
			if stage.Capability == "a" {
				// Cancellation arrives while a is in flight; a still
				// finishes, and b never starts.
				cancel()
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(invoked) != 1 || invoked[0] != "a" {
		t.Errorf("invoked = %v, want [a]", invoked)
	}
	if result.Status != models.RunCanceled {
		t.Errorf("status = %s, want canceled", result.Status)
	}
	if result.Stages[0].Status != models.StageSuccess {
		t.Errorf("stage a status = %s, want success", result.Stages[0].Status)
	}
	for _, sr := range result.Stages[1:] {
		if sr.Status != models.StageSkipped {
			t.Errorf("stage %s status = %s, want skipped", sr.Capability, sr.Status)
		}
	}
}

func TestExecuteInFlightStageSeesLiveContext(t *testing.T) {
	// The invocation context must survive a caller cancellation so a
	// non-preemptible handler can finish cleanly.
	coord := NewCoordinator(CoordinatorConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := coord.Execute(ctx, threeStagePlan(),
		func(invCtx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			cancel()
			if invCtx.Err() != nil {
				t.Error("invocation context was canceled mid-flight")
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecuteEmitsEvents(t *testing.T) {
	emitter := NewEmitter(32)
	coord := NewCoordinator(CoordinatorConfig{Emitter: emitter})

	_, err := coord.Execute(context.Background(), threeStagePlan(),
		func(ctx context.Context, stage models.Stage, view *ContextView) (*models.StageResult, error) {
			if stage.Capability == "b" {
				return &models.StageResult{Status: models.StageFailed, Error: "nope"}, nil
			}
			return succeed(stage), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	emitter.Close()

	counts := map[EventType]int{}
	for event := range emitter.Events() {
		counts[event.Type]++
	}

	want := map[EventType]int{
		EventRunStarted:     1,
		EventStageStarted:   2,
		EventStageCompleted: 1,
		EventStageFailed:    1,
		EventStageSkipped:   1,
		EventRunFailed:      1,
	}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("%s events = %d, want %d", typ, counts[typ], n)
		}
	}
}

func TestExecuteRejectsEmptyPlan(t *testing.T) {
	coord := NewCoordinator(CoordinatorConfig{})

	if _, err := coord.Execute(context.Background(), &models.ExecutionPlan{}, nil); err == nil {
		t.Fatal("expected error for empty plan")
	}
}
