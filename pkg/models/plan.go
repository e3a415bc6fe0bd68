package models

// Stage is one scheduled invocation of a single capability within a plan.
type Stage struct {
	// Index is the position of this stage in the plan.
	Index int `json:"index"`
	// Capability is the ID of the capability this stage invokes.
	Capability string `json:"capability"`
	// DependsOn lists the capability IDs whose results this stage may read.
	DependsOn []string `json:"depends_on,omitempty"`
	// Reads lists the plan indices of the stages that produced DependsOn.
	// Every entry is strictly less than Index.
	Reads []int `json:"reads,omitempty"`
}

// ExecutionPlan is the totally ordered sequence of stages for one request.
// Plans are built once per request and never mutated.
type ExecutionPlan struct {
	// RequestID identifies the request this plan was built for.
	RequestID string `json:"request_id"`
	// Request is the original request text, kept for diagnostics.
	Request string `json:"request,omitempty"`
	// Stages is the ordered stage sequence. Every stage's dependencies
	// appear at strictly earlier indices; no capability appears twice.
	Stages []Stage `json:"stages"`
}

// Capabilities returns the capability IDs of the plan's stages in order.
func (p *ExecutionPlan) Capabilities() []string {
	ids := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		ids[i] = s.Capability
	}
	return ids
}

// StageFor returns the stage for the given capability ID, or nil if the
// capability is not part of the plan.
func (p *ExecutionPlan) StageFor(capability string) *Stage {
	for i := range p.Stages {
		if p.Stages[i].Capability == capability {
			return &p.Stages[i]
		}
	}
	return nil
}
