package reconcile

import (
	"fmt"

	"github.com/rolledback/FinanceCsvAnalysis/internal/audit"
	"github.com/rolledback/FinanceCsvAnalysis/internal/model"
)

// Pair is one source/destination match, as indexes into the list the action saw.
type Pair struct {
	Source      int
	Destination int
}

// Reconcile applies actions in order and returns the surviving activities.
// Each action sees the list left by the previous one. Survivors keep their
// relative order; the input slice is not modified. A nil sink discards findings.
func Reconcile(actions []Action, activities []model.Activity, sink audit.Sink) []model.Activity {
	if sink == nil {
		sink = audit.Discard
	}
	for _, action := range actions {
		switch action.Kind {
		case KindCancelOut:
			if action.CancelOut == nil {
				continue
			}
			pairs := action.CancelOut.Pairs(activities, sink)
			activities = survivors(activities, pairs)
		}
	}
	return activities
}

// Pairs greedily matches sources to destinations. Sources are walked in list
// order and each takes the first unclaimed destination with an equal key; no
// activity is used in more than one pair.
func (c *CancelOut) Pairs(activities []model.Activity, sink audit.Sink) []Pair {
	if sink == nil {
		sink = audit.Discard
	}
	var sources, destinations []int
	for i, a := range activities {
		if a.Type == c.Criteria.AType {
			sources = append(sources, i)
		}
		if a.Type == c.Criteria.BType {
			destinations = append(destinations, i)
		}
	}

	claimed := make(map[int]bool)
	var pairs []Pair
	for _, s := range sources {
		if claimed[s] {
			continue
		}
		key := c.key(activities[s])
		if key.IsAbsent() {
			sink.Record(audit.Finding{
				Kind:    audit.KindUnpaired,
				Rule:    c.Title,
				Subject: activities[s].String(),
				Details: fmt.Sprintf("no %s to match on", c.Criteria.MatchOn),
			})
			continue
		}

		d, found := -1, false
		for _, cand := range destinations {
			if cand == s || claimed[cand] {
				continue
			}
			if key.Matches(c.key(activities[cand])) {
				d, found = cand, true
				break
			}
		}

		if !found {
			sink.Record(audit.Finding{
				Kind:    audit.KindUnpaired,
				Rule:    c.Title,
				Subject: activities[s].String(),
				Details: fmt.Sprintf("no %s with %s=%s", c.Criteria.BType, c.Criteria.MatchOn, key),
			})
			continue
		}

		claimed[s], claimed[d] = true, true
		pairs = append(pairs, Pair{Source: s, Destination: d})
		sink.Record(audit.Finding{
			Kind:    audit.KindPaired,
			Rule:    c.Title,
			Subject: activities[s].String(),
			Details: fmt.Sprintf("cancelled with %s on %s=%s", activities[d], c.Criteria.MatchOn, key),
		})
	}
	return pairs
}

func (c *CancelOut) key(a model.Activity) model.Value {
	if c.Criteria.MatchOn == MatchAmount {
		return a.AbsAmount()
	}
	v, ok := a.Metadata[c.Criteria.MatchOn]
	if !ok {
		return model.Absent()
	}
	return v
}

func survivors(activities []model.Activity, pairs []Pair) []model.Activity {
	if len(pairs) == 0 {
		return activities
	}
	removed := make(map[int]bool, 2*len(pairs))
	for _, p := range pairs {
		removed[p.Source] = true
		removed[p.Destination] = true
	}
	kept := make([]model.Activity, 0, len(activities)-len(removed))
	for i, a := range activities {
		if !removed[i] {
			kept = append(kept, a)
		}
	}
	return kept
}
