// Package flowops implements the mutation engine of flow versions.
//
// Apply is a pure function: it never modifies the flow it is given, and either
// returns a new flow version with the operation fully applied or an
// *OperationError describing why nothing changed.
package flowops

import (
	"fmt"

	"github.com/dukex/flowops/pkg/models"
)

// Apply returns the result of applying op to flow.
func Apply(flow *models.FlowVersion, op models.Operation) (*models.FlowVersion, error) {
	if op == nil {
		return nil, requestError("", "", fmt.Errorf("operation is nil"))
	}

	if flow == nil {
		return nil, requestError(op.GetType(), "", fmt.Errorf("flow version is nil"))
	}

	if flow.IsLocked() {
		return nil, newError(op.GetType(), ErrLockedFlow, flow.ID, "flow version is read-only")
	}

	if err := models.Validator().Struct(op); err != nil {
		return nil, requestError(op.GetType(), "", err)
	}

	next := flow.Clone()
	if err := apply(next, op); err != nil {
		return nil, err
	}

	canonicalize(next)
	UpdateValidity(next)

	return next, nil
}

// ApplyAll applies ops in order and stops at the first failure.
func ApplyAll(flow *models.FlowVersion, ops ...models.Operation) (*models.FlowVersion, error) {
	current := flow

	for i, op := range ops {
		next, err := Apply(current, op)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}

		current = next
	}

	return current, nil
}

func apply(flow *models.FlowVersion, op models.Operation) error {
	switch req := op.(type) {
	case models.AddActionRequest:
		return addAction(flow, req)
	case models.UpdateActionRequest:
		return updateAction(flow, req)
	case models.UpdateTriggerRequest:
		return updateTrigger(flow, req)
	case models.DeleteActionRequest:
		return deleteAction(flow, req)
	case models.MoveActionRequest:
		return moveAction(flow, req)
	case models.DuplicateActionRequest:
		return duplicateAction(flow, req)
	case models.AddBranchRequest:
		return addBranch(flow, req)
	case models.DeleteBranchRequest:
		return deleteBranch(flow, req)
	case models.MoveBranchRequest:
		return moveBranch(flow, req)
	case models.DuplicateBranchRequest:
		return duplicateBranch(flow, req)
	case models.SetSkipActionRequest:
		return setSkipAction(flow, req)
	case models.AddNoteRequest:
		return addNote(flow, req)
	case models.UpdateNoteRequest:
		return updateNote(flow, req)
	case models.DeleteNoteRequest:
		return deleteNote(flow, req)
	case models.ImportFlowRequest:
		return importFlow(flow, req)
	case models.LockFlowRequest:
		flow.State = models.FlowVersionStateLocked

		return nil
	case models.ChangeNameRequest:
		flow.DisplayName = req.DisplayName

		return nil
	}

	return requestError(op.GetType(), "", fmt.Errorf("unsupported operation %T", op))
}

// canonicalize keeps empty chains in one shape so equal trees compare equal:
// trigger and branch chains are never nil, step children are nil when empty.
func canonicalize(flow *models.FlowVersion) {
	if flow.Trigger.Steps == nil {
		flow.Trigger.Steps = make([]string, 0)
	}

	if flow.Notes == nil {
		flow.Notes = make([]models.Note, 0)
	}

	for _, step := range flow.Steps {
		if len(step.Children) == 0 {
			step.Children = nil
		}

		if step.Router == nil {
			continue
		}

		for i := range step.Router.Branches {
			branch := &step.Router.Branches[i]
			if branch.Steps == nil {
				branch.Steps = make([]string, 0)
			}

			if len(branch.Conditions) == 0 {
				branch.Conditions = nil
			}
		}
	}
}
