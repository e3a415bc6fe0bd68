// Package classify maps a free-form feature request to the set of
// capabilities required to act on it, using weighted trigger patterns
// with an explicit confidence threshold.
package classify

import (
	"fmt"
	"sort"

	"github.com/stagehand-dev/stagehand/internal/registry"
)

// DefaultThreshold is the score a capability must reach to be required.
// It is a tunable parameter; callers override it via configuration.
const DefaultThreshold = 1.0

// Evidence records one pattern that triggered for a capability.
type Evidence struct {
	// Expr is the pattern expression that matched.
	Expr string `json:"expr"`
	// Kind is the pattern kind.
	Kind PatternKind `json:"kind"`
	// Weight is the score the match contributed.
	Weight float64 `json:"weight"`
}

// Match is one capability's classification outcome.
type Match struct {
	// Capability is the matched capability ID.
	Capability string `json:"capability"`
	// Score is the sum of matched pattern weights.
	Score float64 `json:"score"`
	// Evidence lists the patterns that triggered, in rule order.
	Evidence []Evidence `json:"evidence"`
}

// Result is the classification of one request.
// Matches are ordered by descending score, ties broken by ascending
// layer rank so foundational capabilities surface first.
type Result struct {
	// Matches holds the capabilities whose score reached the threshold.
	// When Unmatched is true, Matches holds at most one best-effort entry.
	Matches []Match `json:"matches"`
	// Unmatched is true when no capability reached the threshold.
	Unmatched bool `json:"unmatched"`
	// Threshold is the threshold the classification was evaluated against.
	Threshold float64 `json:"threshold"`
}

// Required returns the matched capability IDs in confidence order.
func (r *Result) Required() []string {
	ids := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		ids[i] = m.Capability
	}
	return ids
}

// Classifier scores request text against per-capability trigger patterns.
// All state is fixed at construction, so Classify is a pure function:
// identical text always yields an identical Result.
type Classifier struct {
	reg       *registry.Registry
	rules     []Rule
	compiled  map[string][]compiledPattern
	threshold float64
}

// New builds a Classifier over the given registry and rules.
// It returns an error if a rule names an unregistered capability or a
// pattern fails to compile.
func New(reg *registry.Registry, rules []Rule, threshold float64) (*Classifier, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	compiled := make(map[string][]compiledPattern, len(rules))
	for _, rule := range rules {
		if !reg.Has(rule.Capability) {
			return nil, fmt.Errorf("rule references unknown capability %s", rule.Capability)
		}
		for _, p := range rule.Patterns {
			cp, err := p.compile()
			if err != nil {
				return nil, fmt.Errorf("capability %s: %w", rule.Capability, err)
			}
			compiled[rule.Capability] = append(compiled[rule.Capability], cp)
		}
	}

	return &Classifier{
		reg:       reg,
		rules:     rules,
		compiled:  compiled,
		threshold: threshold,
	}, nil
}

// Threshold returns the confidence threshold in effect.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Classify scores the request text and returns the required capability set.
// When no capability reaches the threshold the single highest positive
// scorer is surfaced as a best-effort fallback with Unmatched set; when
// nothing scores at all, Matches is empty.
func (c *Classifier) Classify(text string) Result {
	var scored []Match
	for _, rule := range c.rules {
		var m Match
		m.Capability = rule.Capability
		for _, cp := range c.compiled[rule.Capability] {
			if cp.re.MatchString(text) {
				m.Score += cp.Weight
				m.Evidence = append(m.Evidence, Evidence{
					Expr:   cp.Expr,
					Kind:   cp.Kind,
					Weight: cp.Weight,
				})
			}
		}
		if m.Score > 0 {
			scored = append(scored, m)
		}
	}

	c.sortMatches(scored)

	result := Result{Threshold: c.threshold}
	for _, m := range scored {
		if m.Score >= c.threshold {
			result.Matches = append(result.Matches, m)
		}
	}

	if len(result.Matches) == 0 {
		result.Unmatched = true
		// Best-effort fallback: surface the top scorer rather than
		// failing outright.
		if len(scored) > 0 {
			result.Matches = scored[:1]
		}
	}

	return result
}

// sortMatches orders matches by descending score; ties go to the lower
// layer rank, then the lexicographically smaller ID.
func (c *Classifier) sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		li, lj := c.layerOf(matches[i].Capability), c.layerOf(matches[j].Capability)
		if li != lj {
			return li < lj
		}
		return matches[i].Capability < matches[j].Capability
	})
}

// layerOf returns the layer rank for a capability ID.
// Rules are validated against the registry at construction, so lookups
// here cannot miss.
func (c *Classifier) layerOf(id string) int {
	capability, err := c.reg.Lookup(id)
	if err != nil {
		return 0
	}
	return capability.Layer
}
