// Package reconcile removes activities that cancel each other out, such as the
// two legs of a transfer between accounts.
package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnknownAction is returned when a configured action has an unsupported type.
var ErrUnknownAction = errors.New("unknown action type")

// Kind tags an Action.
type Kind string

const KindCancelOut Kind = "CancelOut"

// MatchAmount as matchOn keys pairs on the absolute amount.
const MatchAmount = "<amount>"

// Criteria selects the two sides of a cancel-out and the key they pair on.
type Criteria struct {
	AType   string `json:"aType" yaml:"aType"`
	BType   string `json:"bType" yaml:"bType"`
	MatchOn string `json:"matchOn" yaml:"matchOn"`
}

// CancelOut pairs activities of type AType with activities of type BType
// whose keys match, removing both.
type CancelOut struct {
	Title    string   `json:"title" yaml:"title"`
	Criteria Criteria `json:"criteria" yaml:"criteria"`
}

// Action is a configured post-classification step. Exactly one variant
// pointer, selected by Kind, is set.
type Action struct {
	Kind      Kind
	CancelOut *CancelOut

	// Origin is the config file the action was read from.
	Origin string
}

// NewCancelOut wraps c as an Action.
func NewCancelOut(c CancelOut) Action {
	return Action{Kind: KindCancelOut, CancelOut: &c}
}

// Title returns the title of whichever variant is set.
func (a Action) Title() string {
	switch a.Kind {
	case KindCancelOut:
		if a.CancelOut != nil {
			return a.CancelOut.Title
		}
	}
	return ""
}

type actionHeader struct {
	Type Kind `json:"type" yaml:"type"`
}

type cancelOutDoc struct {
	Type Kind `json:"type" yaml:"type"`
	CancelOut `yaml:",inline"`
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var h actionHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	switch h.Type {
	case KindCancelOut:
		var c CancelOut
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("action %s: %w", h.Type, err)
		}
		*a = NewCancelOut(c)
		return nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownAction, h.Type)
	}
}

func (a Action) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindCancelOut:
		if a.CancelOut == nil {
			return nil, fmt.Errorf("action %s has no body", a.Kind)
		}
		return json.Marshal(struct {
			Type Kind `json:"type"`
			CancelOut
		}{a.Kind, *a.CancelOut})
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, a.Kind)
	}
}

func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var h actionHeader
	if err := node.Decode(&h); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	switch h.Type {
	case KindCancelOut:
		var doc cancelOutDoc
		if err := node.Decode(&doc); err != nil {
			return fmt.Errorf("line %d: action %s: %w", node.Line, h.Type, err)
		}
		*a = NewCancelOut(doc.CancelOut)
		return nil
	default:
		return fmt.Errorf("line %d: %w %q", node.Line, ErrUnknownAction, h.Type)
	}
}

func (a Action) MarshalYAML() (any, error) {
	switch a.Kind {
	case KindCancelOut:
		if a.CancelOut == nil {
			return nil, fmt.Errorf("action %s has no body", a.Kind)
		}
		return cancelOutDoc{Type: a.Kind, CancelOut: *a.CancelOut}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, a.Kind)
	}
}
