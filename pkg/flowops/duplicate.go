package flowops

import (
	"slices"

	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/references"
)

const (
	copyDisplayNameSuffix = " (Copy)"
	copyBranchNameSuffix  = " Copy"
)

// copySubtrees deep-copies the steps rooted at roots under fresh names. The
// copies reference each other by their new names, both structurally and
// inside their settings; references to steps outside the subtrees are kept.
func copySubtrees(flow *models.FlowVersion, roots []string) (map[string]string, []*models.Step) {
	originals := make([]*models.Step, 0)

	for _, root := range roots {
		step, ok := flow.Steps[root]
		if !ok {
			continue
		}

		originals = append(originals, step)
		originals = append(originals, flowstructure.GetAllChildSteps(flow, step)...)
	}

	names := newNameAllocator(flow)

	renames := make(map[string]string, len(originals))
	for _, step := range originals {
		renames[step.Name] = names.allocate()
	}

	copies := make([]*models.Step, len(originals))
	for i, step := range originals {
		clone := references.RewriteStep(step, renames)
		clone.Name = renames[step.Name]
		clone.Children = renameAll(step.Children, renames)

		if clone.Router != nil {
			for b := range clone.Router.Branches {
				clone.Router.Branches[b].Steps = renameAll(step.Router.Branches[b].Steps, renames)
			}
		}

		copies[i] = clone
	}

	return renames, copies
}

func renameAll(names []string, renames map[string]string) []string {
	if names == nil {
		return nil
	}

	out := make([]string, len(names))
	for i, name := range names {
		if renamed, ok := renames[name]; ok {
			out[i] = renamed
		} else {
			out[i] = name
		}
	}

	return out
}

func duplicateAction(flow *models.FlowVersion, req models.DuplicateActionRequest) error {
	op := req.GetType()

	if err := checkNames(flow, op, []string{req.StepName}); err != nil {
		return err
	}

	loc, ok := flowstructure.Locate(flow, req.StepName)
	if !ok {
		return referenceError(op, req.StepName, "step is not attached to the flow")
	}

	renames, copies := copySubtrees(flow, []string{req.StepName})

	top := copies[0]
	top.DisplayName += copyDisplayNameSuffix

	for _, step := range copies {
		flow.Steps[step.Name] = step
	}

	if err := insertInto(flow, loc.Slot, loc.Index+1, renames[req.StepName]); err != nil {
		return structuralError(op, req.StepName, "%v", err)
	}

	return nil
}

func duplicateBranch(flow *models.FlowVersion, req models.DuplicateBranchRequest) error {
	op := req.GetType()

	router, err := routerStep(flow, op, req.StepName)
	if err != nil {
		return err
	}

	if err := checkBranchIndex(op, router, req.BranchIndex); err != nil {
		return err
	}

	if router.Router.IsFallback(req.BranchIndex) {
		return structuralError(op, router.Name, "the fallback branch cannot be duplicated")
	}

	source := router.Router.Branches[req.BranchIndex]
	renames, copies := copySubtrees(flow, source.Steps)

	branch := source.Clone()
	branch.Name += copyBranchNameSuffix
	branch.Conditions = references.RewriteConditions(source.Conditions, renames)
	branch.Steps = renameAll(source.Steps, renames)

	for _, step := range copies {
		flow.Steps[step.Name] = step
	}

	router.Router.Branches = slices.Insert(router.Router.Branches, req.BranchIndex+1, branch)

	return nil
}
