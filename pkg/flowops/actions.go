package flowops

import (
	"slices"

	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/models"
)

// prepareStep strips structure from an incoming step and fills the settings a
// container needs to exist.
func prepareStep(step models.Step) models.Step {
	prepared := step.WithoutStructure()

	switch prepared.Type {
	case models.StepTypeRouter:
		if prepared.Router == nil || len(prepared.Router.Branches) == 0 {
			executionType := models.RouterExecuteFirstMatch
			if prepared.Router != nil && prepared.Router.ExecutionType != "" {
				executionType = prepared.Router.ExecutionType
			}

			prepared.Router = models.NewRouterSettings()
			prepared.Router.ExecutionType = executionType
		}
	case models.StepTypeLoopOnItems:
		if prepared.Loop == nil {
			prepared.Loop = &models.LoopSettings{}
		}
	case models.StepTypeCode, models.StepTypePiece:
	}

	return prepared
}

func addAction(flow *models.FlowVersion, req models.AddActionRequest) error {
	op := req.GetType()
	action := prepareStep(req.Action)

	if flow.HasName(action.Name) {
		return structuralError(op, action.Name, "step name is already in use")
	}

	if err := action.Validate(); err != nil {
		return requestError(op, action.Name, err)
	}

	dest, err := resolveTarget(flow, op, req.ParentStep, req.StepLocationRelativeToParent, req.BranchIndex)
	if err != nil {
		return err
	}

	if err := insertInto(flow, dest.slot, dest.index, action.Name); err != nil {
		return structuralError(op, action.Name, "%v", err)
	}

	flow.Steps[action.Name] = &action

	return nil
}

func updateAction(flow *models.FlowVersion, req models.UpdateActionRequest) error {
	op := req.GetType()
	name := req.Action.Name

	existing, ok := flow.Steps[name]
	if !ok {
		return referenceError(op, name, "step does not exist")
	}

	updated := req.Action.WithoutStructure()

	if updated.Type != existing.Type && existing.HasChildren() {
		return structuralError(op, name, "cannot change the type of a step that owns children")
	}

	switch updated.Type {
	case models.StepTypeLoopOnItems:
		if updated.Loop == nil {
			updated.Loop = &models.LoopSettings{}
		}

		if existing.Type == models.StepTypeLoopOnItems {
			updated.Children = slices.Clone(existing.Children)
		}
	case models.StepTypeRouter:
		if err := mergeRouter(op, existing, &updated); err != nil {
			return err
		}
	case models.StepTypeCode, models.StepTypePiece:
	}

	if err := updated.Validate(); err != nil {
		return requestError(op, name, err)
	}

	flow.Steps[name] = &updated

	return nil
}

// mergeRouter carries the branch chains of the existing router over to the
// updated settings, branch by branch.
func mergeRouter(op models.OperationType, existing *models.Step, updated *models.Step) error {
	if existing.Type != models.StepTypeRouter || existing.Router == nil {
		if updated.Router == nil || len(updated.Router.Branches) == 0 {
			updated.Router = models.NewRouterSettings()
		}

		return nil
	}

	if updated.Router == nil || len(updated.Router.Branches) == 0 {
		executionType := existing.Router.ExecutionType
		if updated.Router != nil && updated.Router.ExecutionType != "" {
			executionType = updated.Router.ExecutionType
		}

		updated.Router = existing.Router.Clone()
		updated.Router.ExecutionType = executionType

		return nil
	}

	if len(updated.Router.Branches) != len(existing.Router.Branches) {
		return structuralError(op, existing.Name,
			"branch count changed from %d to %d, use branch operations instead",
			len(existing.Router.Branches), len(updated.Router.Branches))
	}

	for i := range updated.Router.Branches {
		updated.Router.Branches[i].Steps = slices.Clone(existing.Router.Branches[i].Steps)
	}

	return nil
}

func updateTrigger(flow *models.FlowVersion, req models.UpdateTriggerRequest) error {
	op := req.GetType()

	trigger := req.Trigger.Clone()
	trigger.Name = models.TriggerName
	trigger.Steps = slices.Clone(flow.Trigger.Steps)

	if err := trigger.Validate(); err != nil {
		return requestError(op, models.TriggerName, err)
	}

	flow.Trigger = trigger

	return nil
}

// checkNames verifies every name refers to a step other than the trigger.
func checkNames(flow *models.FlowVersion, op models.OperationType, names []string) error {
	for _, name := range names {
		if name == models.TriggerName {
			return structuralError(op, name, "the trigger cannot be targeted by this operation")
		}

		if _, ok := flow.Steps[name]; !ok {
			return referenceError(op, name, "step does not exist")
		}
	}

	return nil
}

func deleteAction(flow *models.FlowVersion, req models.DeleteActionRequest) error {
	if err := checkNames(flow, req.GetType(), req.Names); err != nil {
		return err
	}

	for _, name := range req.Names {
		// already gone when nested under an earlier name
		if _, ok := flow.Steps[name]; ok {
			deleteSubtree(flow, name)
		}
	}

	return nil
}

// deleteSubtree detaches name and removes it with every step nested under it.
func deleteSubtree(flow *models.FlowVersion, name string) {
	step, ok := flow.Steps[name]
	if !ok {
		return
	}

	descendants := flowstructure.GetAllChildNames(flow, step)

	detach(flow, name)
	delete(flow.Steps, name)

	for _, descendant := range descendants {
		delete(flow.Steps, descendant)
	}
}

func moveAction(flow *models.FlowVersion, req models.MoveActionRequest) error {
	op := req.GetType()

	if err := checkNames(flow, op, []string{req.Name}); err != nil {
		return err
	}

	if req.NewParentStep == req.Name || flowstructure.IsChildOf(flow, req.Name, req.NewParentStep) {
		return structuralError(op, req.Name, "cannot move a step into itself or its own descendants")
	}

	if _, ok := detach(flow, req.Name); !ok {
		return referenceError(op, req.Name, "step is not attached to the flow")
	}

	dest, err := resolveTarget(flow, op, req.NewParentStep, req.StepLocationRelativeToNewParent, req.BranchIndex)
	if err != nil {
		return err
	}

	if err := insertInto(flow, dest.slot, dest.index, req.Name); err != nil {
		return structuralError(op, req.Name, "%v", err)
	}

	return nil
}

func setSkipAction(flow *models.FlowVersion, req models.SetSkipActionRequest) error {
	if err := checkNames(flow, req.GetType(), req.Names); err != nil {
		return err
	}

	for _, name := range req.Names {
		flow.Steps[name].Skip = req.Skip
	}

	return nil
}
