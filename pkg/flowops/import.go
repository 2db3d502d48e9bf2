package flowops

import (
	"errors"
	"slices"

	"github.com/dukex/flowops/pkg/models"
)

// ImportOperations flattens a nested tree into the ADD_ACTION operations that
// rebuild it from an empty flow. Steps are emitted depth first: a loop's body
// before the loop's successor, a router's branches in order before the
// router's successor, so every parent exists before it is referenced.
func ImportOperations(trigger models.Trigger, steps []models.Step) ([]models.Operation, error) {
	const op = models.OperationImportFlow

	index := make(map[string]*models.Step, len(steps))

	for i := range steps {
		step := &steps[i]

		if step.Name == models.TriggerName {
			return nil, structuralError(op, step.Name, "a step cannot be named after the trigger")
		}

		if _, ok := index[step.Name]; ok {
			return nil, structuralError(op, step.Name, "step name is used more than once")
		}

		index[step.Name] = step
	}

	builder := &importBuilder{
		index:      index,
		referenced: make(map[string]bool, len(steps)),
		ops:        make([]models.Operation, 0, len(steps)),
	}

	if err := builder.chain(trigger.Steps, models.TriggerName, models.StepLocationAfter, 0); err != nil {
		return nil, err
	}

	for i := range steps {
		if !builder.referenced[steps[i].Name] {
			return nil, structuralError(op, steps[i].Name, "step is not referenced by any parent")
		}
	}

	return builder.ops, nil
}

type importBuilder struct {
	index      map[string]*models.Step
	referenced map[string]bool
	ops        []models.Operation
}

func (b *importBuilder) chain(names []string, parent string, location models.StepLocation, branchIndex int) error {
	const op = models.OperationImportFlow

	for _, name := range names {
		step, ok := b.index[name]
		if !ok {
			return referenceError(op, name, "referenced step does not exist")
		}

		if b.referenced[name] {
			return structuralError(op, name, "step is referenced more than once")
		}

		b.referenced[name] = true

		b.ops = append(b.ops, models.AddActionRequest{
			ParentStep:                   parent,
			StepLocationRelativeToParent: location,
			BranchIndex:                  branchIndex,
			Action:                       step.WithoutStructure(),
		})

		switch step.Type {
		case models.StepTypeLoopOnItems:
			if err := b.chain(step.Children, name, models.StepLocationInsideLoop, 0); err != nil {
				return err
			}
		case models.StepTypeRouter:
			if step.Router != nil {
				for i, branch := range step.Router.Branches {
					if err := b.chain(branch.Steps, name, models.StepLocationInsideBranch, i); err != nil {
						return err
					}
				}
			}
		case models.StepTypeCode, models.StepTypePiece:
		}

		parent, location, branchIndex = name, models.StepLocationAfter, 0
	}

	return nil
}

func importFlow(flow *models.FlowVersion, req models.ImportFlowRequest) error {
	op := req.GetType()

	noteIDs := make(map[string]struct{}, len(req.Notes))
	for _, note := range req.Notes {
		if _, seen := noteIDs[note.ID]; seen {
			return structuralError(op, note.ID, "note id is used more than once")
		}

		noteIDs[note.ID] = struct{}{}
	}

	ops, err := ImportOperations(req.Trigger, req.Steps)
	if err != nil {
		return err
	}

	trigger := req.Trigger.Clone()
	trigger.Name = models.TriggerName
	trigger.Steps = make([]string, 0)

	if err := trigger.Validate(); err != nil {
		return requestError(op, models.TriggerName, err)
	}

	flow.Trigger = trigger
	flow.Steps = make(map[string]*models.Step, len(req.Steps))

	for _, replay := range ops {
		if err := apply(flow, replay); err != nil {
			var opErr *OperationError
			if errors.As(err, &opErr) {
				return &OperationError{Op: op, Target: opErr.Target, Message: opErr.Message, Err: opErr.Err}
			}

			return err
		}
	}

	flow.Notes = slices.Clone(req.Notes)
	flow.DisplayName = req.DisplayName

	return nil
}
