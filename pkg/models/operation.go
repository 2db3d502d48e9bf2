package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OperationType names an edit that can be applied to a flow version.
type OperationType string

const (
	OperationAddAction       OperationType = "ADD_ACTION"
	OperationUpdateAction    OperationType = "UPDATE_ACTION"
	OperationUpdateTrigger   OperationType = "UPDATE_TRIGGER"
	OperationDeleteAction    OperationType = "DELETE_ACTION"
	OperationMoveAction      OperationType = "MOVE_ACTION"
	OperationDuplicateAction OperationType = "DUPLICATE_ACTION"
	OperationAddBranch       OperationType = "ADD_BRANCH"
	OperationDeleteBranch    OperationType = "DELETE_BRANCH"
	OperationMoveBranch      OperationType = "MOVE_BRANCH"
	OperationDuplicateBranch OperationType = "DUPLICATE_BRANCH"
	OperationSetSkipAction   OperationType = "SET_SKIP_ACTION"
	OperationAddNote         OperationType = "ADD_NOTE"
	OperationUpdateNote      OperationType = "UPDATE_NOTE"
	OperationDeleteNote      OperationType = "DELETE_NOTE"
	OperationImportFlow      OperationType = "IMPORT_FLOW"
	OperationLockFlow        OperationType = "LOCK_FLOW"
	OperationChangeName      OperationType = "CHANGE_NAME"
)

// StepLocation places a step relative to the parent named in a request.
type StepLocation string

const (
	StepLocationAfter             StepLocation = "AFTER"
	StepLocationInsideLoop        StepLocation = "INSIDE_LOOP"
	StepLocationInsideBranch      StepLocation = "INSIDE_BRANCH"
	StepLocationInsideTrueBranch  StepLocation = "INSIDE_TRUE_BRANCH"
	StepLocationInsideFalseBranch StepLocation = "INSIDE_FALSE_BRANCH"
)

var ErrUnknownOperation = errors.New("unknown operation type")

// Operation is implemented by every request accepted by the mutation engine.
type Operation interface {
	GetType() OperationType
}

type AddActionRequest struct {
	ParentStep                   string       `json:"parent_step"                                validate:"required"`
	StepLocationRelativeToParent StepLocation `json:"step_location_relative_to_parent,omitempty" validate:"omitempty,oneof=AFTER INSIDE_LOOP INSIDE_BRANCH INSIDE_TRUE_BRANCH INSIDE_FALSE_BRANCH"`
	BranchIndex                  int          `json:"branch_index,omitempty"                     validate:"min=0"`
	Action                       Step         `json:"action"`
}

type UpdateActionRequest struct {
	Action Step `json:"action"`
}

type UpdateTriggerRequest struct {
	Trigger Trigger `json:"trigger"`
}

type DeleteActionRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
}

type MoveActionRequest struct {
	Name                            string       `json:"name"                                           validate:"required"`
	NewParentStep                   string       `json:"new_parent_step"                                validate:"required"`
	StepLocationRelativeToNewParent StepLocation `json:"step_location_relative_to_new_parent,omitempty" validate:"omitempty,oneof=AFTER INSIDE_LOOP INSIDE_BRANCH INSIDE_TRUE_BRANCH INSIDE_FALSE_BRANCH"`
	BranchIndex                     int          `json:"branch_index,omitempty"                         validate:"min=0"`
}

type DuplicateActionRequest struct {
	StepName string `json:"step_name" validate:"required"`
}

type AddBranchRequest struct {
	StepName    string        `json:"step_name"             validate:"required"`
	BranchIndex int           `json:"branch_index"          validate:"min=0"`
	BranchName  string        `json:"branch_name,omitempty"`
	Conditions  [][]Condition `json:"conditions,omitempty"  validate:"omitempty,dive,dive"`
}

type DeleteBranchRequest struct {
	StepName    string `json:"step_name"    validate:"required"`
	BranchIndex int    `json:"branch_index" validate:"min=0"`
}

// MoveBranchRequest indices are not validated: out-of-range moves are no-ops.
type MoveBranchRequest struct {
	StepName          string `json:"step_name"           validate:"required"`
	SourceBranchIndex int    `json:"source_branch_index"`
	TargetBranchIndex int    `json:"target_branch_index"`
}

type DuplicateBranchRequest struct {
	StepName    string `json:"step_name"    validate:"required"`
	BranchIndex int    `json:"branch_index" validate:"min=0"`
}

type SetSkipActionRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
	Skip  bool     `json:"skip"`
}

type AddNoteRequest struct {
	Note Note `json:"note"`
}

// UpdateNoteRequest replaces the editable fields of the note with the same id.
// CreatedAt and OwnerID of the stored note are kept.
type UpdateNoteRequest struct {
	Note Note `json:"note"`
}

type DeleteNoteRequest struct {
	ID string `json:"id" validate:"required"`
}

// ImportFlowRequest replaces the whole flow with an exported nested shape.
type ImportFlowRequest struct {
	DisplayName string  `json:"display_name" validate:"required"`
	Trigger     Trigger `json:"trigger"`
	Steps       []Step  `json:"steps"        validate:"dive"`
	Notes       []Note  `json:"notes"        validate:"dive"`
}

type LockFlowRequest struct{}

type ChangeNameRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
}

func (AddActionRequest) GetType() OperationType       { return OperationAddAction }
func (UpdateActionRequest) GetType() OperationType    { return OperationUpdateAction }
func (UpdateTriggerRequest) GetType() OperationType   { return OperationUpdateTrigger }
func (DeleteActionRequest) GetType() OperationType    { return OperationDeleteAction }
func (MoveActionRequest) GetType() OperationType      { return OperationMoveAction }
func (DuplicateActionRequest) GetType() OperationType { return OperationDuplicateAction }
func (AddBranchRequest) GetType() OperationType       { return OperationAddBranch }
func (DeleteBranchRequest) GetType() OperationType    { return OperationDeleteBranch }
func (MoveBranchRequest) GetType() OperationType      { return OperationMoveBranch }
func (DuplicateBranchRequest) GetType() OperationType { return OperationDuplicateBranch }
func (SetSkipActionRequest) GetType() OperationType   { return OperationSetSkipAction }
func (AddNoteRequest) GetType() OperationType         { return OperationAddNote }
func (UpdateNoteRequest) GetType() OperationType      { return OperationUpdateNote }
func (DeleteNoteRequest) GetType() OperationType      { return OperationDeleteNote }
func (ImportFlowRequest) GetType() OperationType      { return OperationImportFlow }
func (LockFlowRequest) GetType() OperationType        { return OperationLockFlow }
func (ChangeNameRequest) GetType() OperationType      { return OperationChangeName }

// OperationEnvelope is the wire shape of an operation: its type and the raw
// request payload.
type OperationEnvelope struct {
	Type    OperationType   `json:"type"    validate:"required"`
	Request json.RawMessage `json:"request"`
}

var operationDecoders = map[OperationType]func(json.RawMessage) (Operation, error){
	OperationAddAction:       decodeRequest[AddActionRequest],
	OperationUpdateAction:    decodeRequest[UpdateActionRequest],
	OperationUpdateTrigger:   decodeRequest[UpdateTriggerRequest],
	OperationDeleteAction:    decodeRequest[DeleteActionRequest],
	OperationMoveAction:      decodeRequest[MoveActionRequest],
	OperationDuplicateAction: decodeRequest[DuplicateActionRequest],
	OperationAddBranch:       decodeRequest[AddBranchRequest],
	OperationDeleteBranch:    decodeRequest[DeleteBranchRequest],
	OperationMoveBranch:      decodeRequest[MoveBranchRequest],
	OperationDuplicateBranch: decodeRequest[DuplicateBranchRequest],
	OperationSetSkipAction:   decodeRequest[SetSkipActionRequest],
	OperationAddNote:         decodeRequest[AddNoteRequest],
	OperationUpdateNote:      decodeRequest[UpdateNoteRequest],
	OperationDeleteNote:      decodeRequest[DeleteNoteRequest],
	OperationImportFlow:      decodeRequest[ImportFlowRequest],
	OperationLockFlow:        decodeRequest[LockFlowRequest],
	OperationChangeName:      decodeRequest[ChangeNameRequest],
}

func decodeRequest[T Operation](raw json.RawMessage) (Operation, error) {
	var request T

	if len(raw) == 0 || string(raw) == "null" {
		return request, nil
	}

	if err := json.Unmarshal(raw, &request); err != nil {
		return nil, err
	}

	return request, nil
}

// Decode returns the typed request carried by the envelope.
func (e OperationEnvelope) Decode() (Operation, error) {
	decode, ok := operationDecoders[e.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, e.Type)
	}

	op, err := decode(e.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s request: %w", e.Type, err)
	}

	return op, nil
}

// DecodeOperation parses an enveloped operation from JSON.
func DecodeOperation(data []byte) (Operation, error) {
	var envelope OperationEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode operation: %w", err)
	}

	return envelope.Decode()
}

// NewOperationEnvelope wraps op for the wire.
func NewOperationEnvelope(op Operation) (OperationEnvelope, error) {
	raw, err := json.Marshal(op)
	if err != nil {
		return OperationEnvelope{}, fmt.Errorf("failed to encode %s request: %w", op.GetType(), err)
	}

	return OperationEnvelope{Type: op.GetType(), Request: raw}, nil
}

// EncodeOperation serializes op as an enveloped JSON document.
func EncodeOperation(op Operation) ([]byte, error) {
	envelope, err := NewOperationEnvelope(op)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope)
}
