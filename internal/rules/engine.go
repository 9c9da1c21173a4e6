package rules

import (
	"fmt"
	"strings"

	"github.com/rolledback/FinanceCsvAnalysis/internal/audit"
	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

// Engine applies an ordered rule list, first match wins.
type Engine struct {
	rules []Rule
	sink  audit.Sink
	used  map[int]bool
}

// NewEngine creates an Engine over expanded rules. A nil sink discards findings.
func NewEngine(rules []Rule, sink audit.Sink) *Engine {
	if sink == nil {
		sink = audit.Discard
	}
	return &Engine{rules: rules, sink: sink, used: make(map[int]bool)}
}

// Classify turns raw into an Activity using the first rule whose regex matches
// the description. Later matching rules are audited as conflicts and ignored.
// The only error is ErrUnexpandedRule.
func (e *Engine) Classify(raw model.RawActivity) (model.Activity, error) {
	var (
		winner *Rule
		loc    []int
		result model.Activity
	)
	for i := range e.rules {
		r := &e.rules[i]
		m, err := r.match(raw.Description)
		if err != nil {
			return model.Activity{}, err
		}
		if m == nil {
			continue
		}
		if winner != nil {
			e.sink.Record(audit.Finding{
				Kind:    audit.KindConflict,
				Rule:    r.Title,
				Subject: raw.String(),
				Details: fmt.Sprintf("rule %d would have applied but rule %d %q already did", r.ID, winner.ID, winner.Title),
			})
			continue
		}
		winner, loc = r, m
		result = winner.apply(raw, loc)
		e.used[winner.ID] = true
		e.sink.Record(audit.Finding{
			Kind:    audit.KindApplied,
			Rule:    winner.Title,
			Subject: raw.String(),
			Details: describe(winner, result),
		})
	}

	if winner == nil {
		result = Default.apply(raw, Default.re.FindStringSubmatchIndex(raw.Description))
		e.sink.Record(audit.Finding{
			Kind:    audit.KindDefault,
			Rule:    Default.Title,
			Subject: raw.String(),
			Details: describe(&Default, result),
		})
	}
	return result, nil
}

// ClassifyAll classifies every raw activity, preserving count and order.
// step, if non-nil, is called after each activity.
func (e *Engine) ClassifyAll(raws []model.RawActivity, step func()) ([]model.Activity, error) {
	activities := make([]model.Activity, 0, len(raws))
	for i, raw := range raws {
		a, err := e.Classify(raw)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
		activities = append(activities, a)
		if step != nil {
			step()
		}
	}
	return activities, nil
}

// Unused returns the rules that have not won a classification yet.
func (e *Engine) Unused() []Rule {
	var unused []Rule
	for _, r := range e.rules {
		if !e.used[r.ID] {
			unused = append(unused, r)
		}
	}
	return unused
}

// ReportUnused records one finding per unused rule.
func (e *Engine) ReportUnused() {
	for _, r := range e.Unused() {
		e.sink.Record(audit.Finding{
			Kind:    audit.KindUnused,
			Rule:    r.Title,
			Subject: r.Pattern,
			Details: fmt.Sprintf("rule %d from %s never applied", r.ID, r.Origin),
		})
	}
}

func (r *Rule) apply(raw model.RawActivity, loc []int) model.Activity {
	meta := make(model.Metadata, len(r.Result.Metadata))
	for key, src := range r.Result.Metadata {
		meta[key] = resolve(src, raw, loc)
	}

	categories := r.Result.Categories
	if categories == nil {
		categories = []string{}
	}

	return model.Activity{
		Type:        r.Result.Type,
		Description: raw.Description,
		Amount:      raw.Amount,
		Date:        model.ParseDate(raw.Date),
		File:        raw.File,
		Categories:  categories,
		Metadata:    meta,
	}
}

func resolve(src Source, raw model.RawActivity, loc []int) model.Value {
	switch src.kind {
	case sourceUnset:
		return model.Absent()
	case sourceLiteral:
		switch src.literal {
		case FileToken:
			return model.String(raw.File)
		case AmountToken:
			return model.NullNumber(raw.Amount)
		default:
			return model.String(src.literal)
		}
	}

	i := src.group
	if i < 0 || 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return model.Absent()
	}
	return model.String(raw.Description[loc[2*i]:loc[2*i+1]])
}

func describe(r *Rule, a model.Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "rule=%d type=%s", r.ID, a.Type)
	if len(a.Categories) > 0 {
		fmt.Fprintf(&b, " categories=%s", strings.Join(a.Categories, ";"))
	}
	for _, k := range a.Metadata.Keys() {
		fmt.Fprintf(&b, " %s=%s", k, a.Metadata[k])
	}
	return b.String()
}
