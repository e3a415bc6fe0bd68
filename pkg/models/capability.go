package models

// Capability identifies a class of work a handler can perform,
// such as data modeling or persistence wiring.
type Capability struct {
	// ID is the unique identifier for this capability (e.g., "data-modeling").
	ID string `json:"id" yaml:"id"`
	// Label is the human-readable name of the capability.
	Label string `json:"label" yaml:"label"`
	// Layer is the rank expressing how foundational the capability is.
	// Lower layers are more inward; a capability never ranks below
	// anything it depends on.
	Layer int `json:"layer" yaml:"layer"`
	// DependsOn lists capability IDs that must complete before this one
	// in any valid plan.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// HasDependency returns true if the capability declares a dependency on id.
func (c Capability) HasDependency(id string) bool {
	for _, dep := range c.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}
