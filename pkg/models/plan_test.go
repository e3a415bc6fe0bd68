package models

import (
	"reflect"
	"testing"
)

func testPlan() *ExecutionPlan {
	return &ExecutionPlan{
		RequestID: "r1",
		Stages: []Stage{
			{Index: 0, Capability: "data-modeling"},
			{Index: 1, Capability: "workflow-orchestration", DependsOn: []string{"data-modeling"}, Reads: []int{0}},
		},
	}
}

func TestPlanCapabilities(t *testing.T) {
	p := testPlan()
	want := []string{"data-modeling", "workflow-orchestration"}
	if got := p.Capabilities(); !reflect.DeepEqual(got, want) {
		t.Errorf("Capabilities() = %v, want %v", got, want)
	}
}

func TestPlanStageFor(t *testing.T) {
	p := testPlan()

	s := p.StageFor("workflow-orchestration")
	if s == nil {
		t.Fatal("expected stage")
	}
	if s.Index != 1 {
		t.Errorf("Index = %d, want 1", s.Index)
	}

	if p.StageFor("missing") != nil {
		t.Error("expected nil for missing capability")
	}
}

func TestCapabilityHasDependency(t *testing.T) {
	c := Capability{ID: "b", DependsOn: []string{"a"}}
	if !c.HasDependency("a") {
		t.Error("expected dependency on a")
	}
	if c.HasDependency("c") {
		t.Error("unexpected dependency on c")
	}
}
