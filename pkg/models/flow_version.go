// Package models defines the flow version data model: the trigger, the step
// arena, router branches, notes and the operations that edit them.
package models

import (
	"slices"
	"time"
)

// FlowVersionState represents the lifecycle state of a flow version.
type FlowVersionState string

const (
	FlowVersionStateDraft  FlowVersionState = "DRAFT"  // Editable
	FlowVersionStateLocked FlowVersionState = "LOCKED" // Read-only, executable
)

// DefaultFlowVersionName is the display name given to new, unnamed flow versions.
const DefaultFlowVersionName = "Untitled"

// FlowVersion is one editable snapshot of a flow. Steps are stored flat, keyed
// by their unique name; the tree is expressed by the name lists held on the
// trigger, loops and router branches.
type FlowVersion struct {
	ID          string           `json:"id"           validate:"required"`
	FlowID      string           `json:"flow_id"      validate:"required"`
	DisplayName string           `json:"display_name" validate:"required"`
	State       FlowVersionState `json:"state"        validate:"required,oneof=DRAFT LOCKED"`
	Trigger     Trigger          `json:"trigger"`
	Steps       map[string]*Step `json:"steps"`
	Notes       []Note           `json:"notes"`
	Valid       bool             `json:"valid"`
	Revision    int64            `json:"revision"` // Optimistic lock counter, owned by persistence
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewFlowVersion creates an empty draft: an EMPTY trigger and no steps.
func NewFlowVersion(id, flowID, displayName string) *FlowVersion {
	if displayName == "" {
		displayName = DefaultFlowVersionName
	}

	return &FlowVersion{
		ID:          id,
		FlowID:      flowID,
		DisplayName: displayName,
		State:       FlowVersionStateDraft,
		Trigger:     NewEmptyTrigger(),
		Steps:       make(map[string]*Step),
		Notes:       make([]Note, 0),
		Valid:       false,
	}
}

// IsLocked reports whether the version rejects every mutation.
func (f *FlowVersion) IsLocked() bool {
	return f.State == FlowVersionStateLocked
}

// Step returns the step with the given name.
func (f *FlowVersion) Step(name string) (*Step, bool) {
	step, ok := f.Steps[name]

	return step, ok
}

// HasName reports whether name is taken by the trigger or by a step.
func (f *FlowVersion) HasName(name string) bool {
	if name == TriggerName {
		return true
	}

	_, ok := f.Steps[name]

	return ok
}

// StepNames returns the names of every step, sorted.
func (f *FlowVersion) StepNames() []string {
	names := make([]string, 0, len(f.Steps))
	for name := range f.Steps {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// NoteIndex returns the position of the note with the given id, or -1.
func (f *FlowVersion) NoteIndex(id string) int {
	return slices.IndexFunc(f.Notes, func(n Note) bool {
		return n.ID == id
	})
}

// Clone returns a deep copy that shares no mutable state with f.
func (f *FlowVersion) Clone() *FlowVersion {
	clone := *f
	clone.Trigger = f.Trigger.Clone()

	clone.Steps = make(map[string]*Step, len(f.Steps))
	for name, step := range f.Steps {
		clone.Steps[name] = step.Clone()
	}

	clone.Notes = make([]Note, len(f.Notes))
	copy(clone.Notes, f.Notes)

	return &clone
}
