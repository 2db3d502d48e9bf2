package models

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// StepType identifies the kind of action a step performs.
type StepType string

const (
	StepTypeCode        StepType = "CODE"
	StepTypePiece       StepType = "PIECE"
	StepTypeLoopOnItems StepType = "LOOP_ON_ITEMS"
	StepTypeRouter      StepType = "ROUTER"
)

// PropertyExecutionType tells the runtime how a piece property value is produced.
type PropertyExecutionType string

const (
	PropertyExecutionTypeManual  PropertyExecutionType = "MANUAL"
	PropertyExecutionTypeDynamic PropertyExecutionType = "DYNAMIC"
)

var (
	ErrStepSettingsMismatch = errors.New("step settings do not match step type")
	ErrInvalidStepType      = errors.New("invalid step type")
)

// Step is an action node. Exactly one of Code, Piece, Loop or Router is set,
// matching Type. Children (loops) and Branch.Steps (routers) are the
// structural references owned by the mutation engine.
type Step struct {
	Name        string          `json:"name"               validate:"required,step_name,ne=trigger"`
	DisplayName string          `json:"display_name"       validate:"required"`
	Type        StepType        `json:"type"               validate:"required,oneof=CODE PIECE LOOP_ON_ITEMS ROUTER"`
	Valid       bool            `json:"valid"`
	Skip        bool            `json:"skip"`
	Code        *CodeSettings   `json:"code,omitempty"`
	Piece       *PieceSettings  `json:"piece,omitempty"`
	Loop        *LoopSettings   `json:"loop,omitempty"`
	Router      *RouterSettings `json:"router,omitempty"`
	Children    []string        `json:"children,omitempty"`
}

type SourceCode struct {
	Code        string `json:"code"`
	PackageJSON string `json:"package_json"`
}

type CodeSettings struct {
	SourceCode SourceCode     `json:"source_code"`
	Input      map[string]any `json:"input"`
}

type PropertySettings struct {
	Type   PropertyExecutionType `json:"type"             validate:"omitempty,oneof=MANUAL DYNAMIC"`
	Schema map[string]any        `json:"schema,omitempty"`
}

// PieceSettings reference a connector from the piece catalog. Names and versions
// are opaque to the engine.
type PieceSettings struct {
	PieceName        string                      `json:"piece_name"                  validate:"required"`
	PieceVersion     string                      `json:"piece_version"               validate:"required"`
	ActionName       string                      `json:"action_name,omitempty"`
	TriggerName      string                      `json:"trigger_name,omitempty"`
	Input            map[string]any              `json:"input"`
	PropertySettings map[string]PropertySettings `json:"property_settings,omitempty" validate:"omitempty,dive"`
}

type LoopSettings struct {
	Items string `json:"items"`
}

// IsContainer reports whether the step can own child steps.
func (s *Step) IsContainer() bool {
	return s.Type == StepTypeLoopOnItems || s.Type == StepTypeRouter
}

// ChildRefs returns the names directly owned by the step: a loop's children or
// every router branch's steps in branch order.
func (s *Step) ChildRefs() []string {
	switch s.Type {
	case StepTypeLoopOnItems:
		return slices.Clone(s.Children)
	case StepTypeRouter:
		if s.Router == nil {
			return nil
		}

		refs := make([]string, 0)
		for _, branch := range s.Router.Branches {
			refs = append(refs, branch.Steps...)
		}

		return refs
	case StepTypeCode, StepTypePiece:
		return nil
	}

	return nil
}

// HasChildren reports whether the step owns at least one child.
func (s *Step) HasChildren() bool {
	return len(s.ChildRefs()) > 0
}

// Validate checks that exactly the settings matching the step type are set.
func (s *Step) Validate() error {
	var ok bool

	switch s.Type {
	case StepTypeCode:
		ok = s.Code != nil && s.Piece == nil && s.Loop == nil && s.Router == nil
	case StepTypePiece:
		ok = s.Piece != nil && s.Code == nil && s.Loop == nil && s.Router == nil
	case StepTypeLoopOnItems:
		ok = s.Loop != nil && s.Code == nil && s.Piece == nil && s.Router == nil
	case StepTypeRouter:
		ok = s.Router != nil && s.Code == nil && s.Piece == nil && s.Loop == nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStepType, s.Type)
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrStepSettingsMismatch, s.Type)
	}

	if s.Type != StepTypeLoopOnItems && len(s.Children) > 0 {
		return fmt.Errorf("%w: only loops own children", ErrStepSettingsMismatch)
	}

	if s.Router != nil {
		return s.Router.ValidateLayout()
	}

	return nil
}

// WithoutStructure returns a copy of the step stripped of every structural
// reference, as the engine expects for incoming payloads.
func (s Step) WithoutStructure() Step {
	clone := *s.Clone()
	clone.Children = nil

	if clone.Router != nil {
		for i := range clone.Router.Branches {
			clone.Router.Branches[i].Steps = make([]string, 0)
		}
	}

	return clone
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	clone := *s
	clone.Children = slices.Clone(s.Children)

	if s.Code != nil {
		clone.Code = &CodeSettings{
			SourceCode: s.Code.SourceCode,
			Input:      CloneMap(s.Code.Input),
		}
	}

	if s.Piece != nil {
		clone.Piece = s.Piece.Clone()
	}

	if s.Loop != nil {
		loop := *s.Loop
		clone.Loop = &loop
	}

	if s.Router != nil {
		clone.Router = s.Router.Clone()
	}

	return &clone
}

// Clone returns a deep copy of the piece settings.
func (p *PieceSettings) Clone() *PieceSettings {
	clone := *p
	clone.Input = CloneMap(p.Input)

	if p.PropertySettings != nil {
		clone.PropertySettings = make(map[string]PropertySettings, len(p.PropertySettings))
		for name, settings := range p.PropertySettings {
			clone.PropertySettings[name] = PropertySettings{
				Type:   settings.Type,
				Schema: CloneMap(settings.Schema),
			}
		}
	}

	return &clone
}

// CloneMap deep copies a JSON-shaped map.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	clone := maps.Clone(m)
	for key, value := range clone {
		clone[key] = CloneValue(value)
	}

	return clone
}

// CloneValue deep copies a JSON-shaped value (maps, slices and scalars).
func CloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CloneMap(v)
	case []any:
		clone := make([]any, len(v))
		for i, item := range v {
			clone[i] = CloneValue(item)
		}

		return clone
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}
