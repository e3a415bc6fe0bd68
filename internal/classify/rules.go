package classify

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PatternKind identifies how a trigger pattern matches request text.
type PatternKind string

const (
	// PatternKeyword matches a single word at word boundaries, case-insensitive.
	PatternKeyword PatternKind = "keyword"
	// PatternPhrase matches a literal substring, case-insensitive.
	PatternPhrase PatternKind = "phrase"
	// PatternRegexp matches a regular expression, used for structural cues
	// such as "CRUD verb present" or "entity name mentioned".
	PatternRegexp PatternKind = "regexp"
)

// Pattern is one weighted trigger for a capability.
type Pattern struct {
	// Kind is how the pattern matches.
	Kind PatternKind `yaml:"kind"`
	// Expr is the keyword, phrase, or regular expression.
	Expr string `yaml:"expr"`
	// Weight is the score contributed when the pattern matches.
	Weight float64 `yaml:"weight"`
}

// Rule binds a capability to its trigger patterns.
type Rule struct {
	// Capability is the capability ID the patterns vote for.
	Capability string `yaml:"capability"`
	// Patterns are the weighted triggers for this capability.
	Patterns []Pattern `yaml:"patterns"`
}

// compiledPattern is a Pattern with its matcher prepared.
type compiledPattern struct {
	Pattern
	re *regexp.Regexp
}

// compile prepares a pattern for matching.
// Keywords become word-boundary regexps; phrases and regexps match
// case-insensitively unless the expression overrides it.
func (p Pattern) compile() (compiledPattern, error) {
	cp := compiledPattern{Pattern: p}

	var expr string
	switch p.Kind {
	case PatternKeyword:
		expr = `(?i)\b` + regexp.QuoteMeta(p.Expr) + `\b`
	case PatternPhrase:
		expr = `(?i)` + regexp.QuoteMeta(p.Expr)
	case PatternRegexp:
		expr = p.Expr
	default:
		return cp, fmt.Errorf("unknown pattern kind %q", p.Kind)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return cp, fmt.Errorf("compile pattern %q: %w", p.Expr, err)
	}
	cp.re = re
	return cp, nil
}

// ruleFile is the YAML shape of a rules override file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads classifier rules from a YAML file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}
	return file.Rules, nil
}

// crudVerb matches common CRUD verbs, a structural cue for data modeling work.
const crudVerb = `(?i)\b(create|add|update|edit|delete|remove|list|read)\b`

// entityMention matches a capitalized name followed by an entity-ish noun,
// e.g. "Order entity" or "Invoice model".
const entityMention = `\b[A-Z][A-Za-z]*\s(?i:entity|model|record|object)\b`

// DefaultRules returns the built-in trigger patterns for the default
// capability table. Weights are tuned so that a single strong keyword
// crosses the default threshold of 1.0 on its own.
func DefaultRules() []Rule {
	return []Rule{
		{
			Capability: "data-modeling",
			Patterns: []Pattern{
				{Kind: PatternKeyword, Expr: "entity", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "model", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "schema", Weight: 0.8},
				{Kind: PatternKeyword, Expr: "field", Weight: 0.6},
				{Kind: PatternKeyword, Expr: "attribute", Weight: 0.6},
				{Kind: PatternKeyword, Expr: "relationship", Weight: 0.6},
				{Kind: PatternRegexp, Expr: entityMention, Weight: 0.8},
				{Kind: PatternRegexp, Expr: crudVerb, Weight: 0.4},
			},
		},
		{
			Capability: "persistence-integration",
			Patterns: []Pattern{
				{Kind: PatternKeyword, Expr: "database", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "persist", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "persistence", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "repository", Weight: 0.8},
				{Kind: PatternKeyword, Expr: "sql", Weight: 0.8},
				{Kind: PatternKeyword, Expr: "migration", Weight: 0.7},
				{Kind: PatternKeyword, Expr: "storage", Weight: 0.7},
				{Kind: PatternPhrase, Expr: "save to", Weight: 0.6},
			},
		},
		{
			Capability: "workflow-orchestration",
			Patterns: []Pattern{
				{Kind: PatternKeyword, Expr: "workflow", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "orchestration", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "approval", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "transition", Weight: 0.6},
				{Kind: PatternKeyword, Expr: "process", Weight: 0.5},
				{Kind: PatternPhrase, Expr: "state machine", Weight: 1.0},
				{Kind: PatternPhrase, Expr: "business rule", Weight: 0.7},
			},
		},
		{
			Capability: "http-surface",
			Patterns: []Pattern{
				{Kind: PatternKeyword, Expr: "api", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "endpoint", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "rest", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "http", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "controller", Weight: 0.7},
				{Kind: PatternKeyword, Expr: "route", Weight: 0.6},
				{Kind: PatternKeyword, Expr: "webhook", Weight: 0.6},
			},
		},
		{
			Capability: "notification-integration",
			Patterns: []Pattern{
				{Kind: PatternKeyword, Expr: "notification", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "notify", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "email", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "sms", Weight: 0.8},
				{Kind: PatternKeyword, Expr: "alert", Weight: 0.7},
				{Kind: PatternKeyword, Expr: "reminder", Weight: 0.7},
				{Kind: PatternPhrase, Expr: "send email", Weight: 1.0},
			},
		},
		{
			Capability: "ui-surface",
			Patterns: []Pattern{
				{Kind: PatternKeyword, Expr: "ui", Weight: 1.0},
				{Kind: PatternKeyword, Expr: "frontend", Weight: 0.9},
				{Kind: PatternKeyword, Expr: "screen", Weight: 0.8},
				{Kind: PatternKeyword, Expr: "page", Weight: 0.7},
				{Kind: PatternKeyword, Expr: "form", Weight: 0.7},
				{Kind: PatternKeyword, Expr: "dashboard", Weight: 0.7},
				{Kind: PatternKeyword, Expr: "component", Weight: 0.5},
			},
		},
	}
}
