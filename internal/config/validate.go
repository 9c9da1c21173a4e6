package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rolledback/FinanceCsvAnalysis/internal/reconcile"
)

// ValidationError describes a single problem in a config file.
type ValidationError struct {
	Origin      string // file the entry came from
	Entry       string // e.g. "rules[2]"
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Origin, e.Entry, e.Description)
}

// Validate checks every rule, action and source in f and reports all
// problems found. Indexes are positions in the merged lists.
func Validate(f *File) []ValidationError {
	var errs []ValidationError

	for i, r := range f.Rules {
		entry := fmt.Sprintf("rules[%d]", i)
		if r.Title == "" {
			errs = append(errs, ValidationError{r.Origin, entry, "title is required"})
		}
		if len(r.DescriptionRegex.List) == 0 {
			errs = append(errs, ValidationError{r.Origin, entry, "descriptionRegex must name at least one pattern"})
		}
		for j, p := range r.DescriptionRegex.List {
			if p == "" {
				errs = append(errs, ValidationError{r.Origin, entry, fmt.Sprintf("descriptionRegex[%d] is empty", j)})
			}
		}
		if r.Result.Type == "" {
			errs = append(errs, ValidationError{r.Origin, entry, "result.type is required"})
		}
		for _, k := range slices.Sorted(maps.Keys(r.Result.Metadata)) {
			if !r.Result.Metadata[k].Valid() {
				errs = append(errs, ValidationError{r.Origin, entry, fmt.Sprintf("result.metadata.%s has no value", k)})
			}
		}
	}

	for i, a := range f.Actions {
		entry := fmt.Sprintf("actions[%d]", i)
		switch a.Kind {
		case reconcile.KindCancelOut:
			c := a.CancelOut
			if c == nil {
				errs = append(errs, ValidationError{a.Origin, entry, "CancelOut action has no body"})
				continue
			}
			if c.Title == "" {
				errs = append(errs, ValidationError{a.Origin, entry, "title is required"})
			}
			if c.Criteria.AType == "" || c.Criteria.BType == "" {
				errs = append(errs, ValidationError{a.Origin, entry, "criteria.aType and criteria.bType are required"})
			}
			if c.Criteria.MatchOn == "" {
				errs = append(errs, ValidationError{a.Origin, entry, "criteria.matchOn is required"})
			}
		default:
			errs = append(errs, ValidationError{a.Origin, entry, fmt.Sprintf("unknown action type %q", a.Kind)})
		}
	}

	for i, s := range f.Sources {
		if err := s.Validate(); err != nil {
			errs = append(errs, ValidationError{s.Origin, fmt.Sprintf("sources[%d]", i), err.Error()})
		}
	}

	return errs
}
