// Package rules classifies raw activities against an ordered rule list.
//
// Rules are configured as Definitions, whose descriptionRegex may be a single
// pattern or a list. Expand flattens the list form into one Rule per pattern
// and assigns each Rule its post-expansion index as a stable ID; only expanded
// Rules can be matched.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Metadata tokens substituted from the raw activity.
const (
	FileToken   = "<file>"
	AmountToken = "<amount>"
)

// ErrUnexpandedRule means a Rule that did not come out of Expand reached the matcher.
var ErrUnexpandedRule = errors.New("rule was not expanded before matching")

// Patterns is the configured descriptionRegex: one pattern, or a list meaning
// one rule per pattern.
type Patterns struct {
	List   []string
	IsList bool
}

// Single returns Patterns holding one pattern.
func Single(pattern string) Patterns { return Patterns{List: []string{pattern}} }

// Many returns the list form.
func Many(patterns ...string) Patterns { return Patterns{List: patterns, IsList: true} }

func (p *Patterns) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return errors.New("descriptionRegex must be a string or a list of strings, got null")
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = Single(single)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("descriptionRegex must be a string or a list of strings")
	}
	*p = Many(list...)
	return nil
}

func (p Patterns) MarshalJSON() ([]byte, error) {
	if !p.IsList && len(p.List) == 1 {
		return json.Marshal(p.List[0])
	}
	return json.Marshal(p.List)
}

func (p *Patterns) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return fmt.Errorf("line %d: descriptionRegex must be a string or a list of strings, got null", node.Line)
		}
		*p = Single(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("line %d: descriptionRegex: %w", node.Line, err)
		}
		*p = Many(list...)
		return nil
	default:
		return fmt.Errorf("line %d: descriptionRegex must be a string or a list of strings", node.Line)
	}
}

func (p Patterns) MarshalYAML() (any, error) {
	if !p.IsList && len(p.List) == 1 {
		return p.List[0], nil
	}
	return p.List, nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

type sourceKind int

const (
	sourceUnset sourceKind = iota
	sourceLiteral
	sourceGroup
)

// Source says where a metadata value comes from: a literal string (or one of
// the <file>/<amount> tokens) or a capture-group index of the rule's regex.
type Source struct {
	kind    sourceKind
	literal string
	group   int
}

// Literal returns a string Source. FileToken and AmountToken are substituted.
func Literal(s string) Source { return Source{kind: sourceLiteral, literal: s} }

// Group returns a capture-group Source; 0 is the whole match.
func Group(i int) Source { return Source{kind: sourceGroup, group: i} }

// Valid reports whether s was set. A zero Source, such as a YAML null, is not.
func (s Source) Valid() bool { return s.kind != sourceUnset }

func (s Source) String() string {
	if s.kind == sourceGroup {
		return fmt.Sprintf("$%d", s.group)
	}
	return s.literal
}

func (s *Source) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return errors.New("metadata value must be a string or a capture-group index, got null")
	}
	var lit string
	if err := json.Unmarshal(data, &lit); err == nil {
		*s = Literal(lit)
		return nil
	}
	var group int
	if err := json.Unmarshal(data, &group); err != nil {
		return fmt.Errorf("metadata value must be a string or a capture-group index, got %s", data)
	}
	*s = Group(group)
	return nil
}

func (s Source) MarshalJSON() ([]byte, error) {
	if s.kind == sourceGroup {
		return json.Marshal(s.group)
	}
	return json.Marshal(s.literal)
}

func (s *Source) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: metadata value must be a string or a capture-group index", node.Line)
	}
	if node.Tag == "!!null" {
		return fmt.Errorf("line %d: metadata value must be a string or a capture-group index, got null", node.Line)
	}
	if node.Tag == "!!int" {
		var group int
		if err := node.Decode(&group); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*s = Group(group)
		return nil
	}
	*s = Literal(node.Value)
	return nil
}

func (s Source) MarshalYAML() (any, error) {
	if s.kind == sourceGroup {
		return s.group, nil
	}
	return s.literal, nil
}

// Result is what a matching rule produces.
type Result struct {
	Type       string            `json:"type" yaml:"type"`
	Categories []string          `json:"categories,omitempty" yaml:"categories,omitempty"`
	Metadata   map[string]Source `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Definition is a rule as written in configuration.
type Definition struct {
	Title            string   `json:"title" yaml:"title"`
	DescriptionRegex Patterns `json:"descriptionRegex" yaml:"descriptionRegex"`
	Result           Result   `json:"result" yaml:"result"`

	// Origin is the config file the definition was read from.
	Origin string `json:"-" yaml:"-"`
}

// Rule is an expanded, matchable rule.
type Rule struct {
	ID      int
	Title   string
	Pattern string
	Result  Result
	Origin  string

	re *regexp.Regexp
}

// DefaultID identifies the fallback rule.
const DefaultID = -1

// Default is applied when no configured rule matches.
var Default = Rule{
	ID:      DefaultID,
	Title:   "Other",
	Pattern: ".*",
	Result:  Result{Type: "Other", Metadata: map[string]Source{}},
	re:      regexp.MustCompile(".*"),
}

// Expand flattens definitions into rules, one per pattern, keeping the
// definitions' relative order. IDs are the post-expansion indexes.
func Expand(defs []Definition) ([]Rule, error) {
	var rules []Rule
	for i, def := range defs {
		for _, pattern := range def.DescriptionRegex.List {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d %q: compiling %q: %w", i, def.Title, pattern, err)
			}
			rules = append(rules, Rule{
				ID:      len(rules),
				Title:   def.Title,
				Pattern: pattern,
				Result:  def.Result,
				Origin:  def.Origin,
				re:      re,
			})
		}
	}
	return rules, nil
}

// match returns the submatch index pairs of the rule's regex in desc, or nil.
func (r *Rule) match(desc string) ([]int, error) {
	if r.re == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnexpandedRule, r.Title)
	}
	return r.re.FindStringSubmatchIndex(desc), nil
}
