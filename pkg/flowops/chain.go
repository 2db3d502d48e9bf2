package flowops

import (
	"fmt"
	"slices"

	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/models"
)

// chainRef returns the slice backing slot so callers can edit it.
func chainRef(flow *models.FlowVersion, slot flowstructure.Slot) (*[]string, bool) {
	switch slot.Kind {
	case flowstructure.SlotMainChain:
		return &flow.Trigger.Steps, true
	case flowstructure.SlotLoop:
		step, ok := flow.Steps[slot.Parent]
		if !ok || step.Type != models.StepTypeLoopOnItems {
			return nil, false
		}

		return &step.Children, true
	case flowstructure.SlotBranch:
		step, ok := flow.Steps[slot.Parent]
		if !ok || step.Router == nil || slot.BranchIndex < 0 || slot.BranchIndex >= len(step.Router.Branches) {
			return nil, false
		}

		return &step.Router.Branches[slot.BranchIndex].Steps, true
	}

	return nil, false
}

// insertInto places names at index of slot, clamping index to the chain bounds.
// The returned error carries no category; callers wrap it in an OperationError.
func insertInto(flow *models.FlowVersion, slot flowstructure.Slot, index int, names ...string) error {
	chain, ok := chainRef(flow, slot)
	if !ok {
		return fmt.Errorf("no chain to insert into under %q", slot.Parent)
	}

	index = max(0, min(index, len(*chain)))
	*chain = slices.Insert(*chain, index, names...)

	return nil
}

// detach removes name from the chain holding it and returns where it was.
func detach(flow *models.FlowVersion, name string) (flowstructure.Location, bool) {
	loc, ok := flowstructure.Locate(flow, name)
	if !ok {
		return flowstructure.Location{}, false
	}

	chain, ok := chainRef(flow, loc.Slot)
	if !ok {
		return flowstructure.Location{}, false
	}

	*chain = slices.Delete(*chain, loc.Index, loc.Index+1)

	return loc, true
}

// target is where a request wants a step placed.
type target struct {
	slot  flowstructure.Slot
	index int
}

// resolveTarget turns a parent name and relative location into a chain slot.
// Inside-container locations point at the head of the container's chain.
func resolveTarget(
	flow *models.FlowVersion,
	op models.OperationType,
	parent string,
	location models.StepLocation,
	branchIndex int,
) (target, error) {
	if location == "" {
		location = models.StepLocationAfter
	}

	if parent == models.TriggerName {
		if location != models.StepLocationAfter {
			return target{}, locationError(op, parent, "the trigger only accepts %s", models.StepLocationAfter)
		}

		return target{slot: flowstructure.MainChain(), index: 0}, nil
	}

	step, ok := flow.Steps[parent]
	if !ok {
		return target{}, referenceError(op, parent, "parent step does not exist")
	}

	switch location {
	case models.StepLocationAfter:
		loc, ok := flowstructure.Locate(flow, parent)
		if !ok {
			return target{}, referenceError(op, parent, "parent step is not attached to the flow")
		}

		return target{slot: loc.Slot, index: loc.Index + 1}, nil
	case models.StepLocationInsideLoop:
		if step.Type != models.StepTypeLoopOnItems {
			return target{}, locationError(op, parent, "%s requires a loop, got %s", location, step.Type)
		}

		return target{slot: flowstructure.Slot{Parent: parent, Kind: flowstructure.SlotLoop}, index: 0}, nil
	case models.StepLocationInsideBranch, models.StepLocationInsideTrueBranch, models.StepLocationInsideFalseBranch:
		if step.Type != models.StepTypeRouter || step.Router == nil {
			return target{}, locationError(op, parent, "%s requires a router, got %s", location, step.Type)
		}

		index := branchIndex
		if location == models.StepLocationInsideTrueBranch {
			index = 0
		} else if location == models.StepLocationInsideFalseBranch {
			index = step.Router.FallbackIndex()
		}

		if index < 0 || index >= len(step.Router.Branches) {
			return target{}, referenceError(op, parent, "branch %d does not exist", index)
		}

		return target{
			slot:  flowstructure.Slot{Parent: parent, Kind: flowstructure.SlotBranch, BranchIndex: index},
			index: 0,
		}, nil
	}

	return target{}, locationError(op, parent, "unknown location %q", location)
}

// nameAllocator hands out the lowest unused step_N names.
type nameAllocator struct {
	flow  *models.FlowVersion
	taken map[string]bool
	next  int
}

func newNameAllocator(flow *models.FlowVersion) *nameAllocator {
	return &nameAllocator{flow: flow, taken: make(map[string]bool), next: 1}
}

func (a *nameAllocator) allocate() string {
	for {
		name := fmt.Sprintf("step_%d", a.next)
		a.next++

		if !a.flow.HasName(name) && !a.taken[name] {
			a.taken[name] = true

			return name
		}
	}
}

// NextStepName returns the lowest step_N name not used in flow.
func NextStepName(flow *models.FlowVersion) string {
	return newNameAllocator(flow).allocate()
}
