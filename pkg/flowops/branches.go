package flowops

import (
	"slices"

	"github.com/dukex/flowops/pkg/models"
)

func routerStep(flow *models.FlowVersion, op models.OperationType, name string) (*models.Step, error) {
	step, ok := flow.Steps[name]
	if !ok {
		return nil, referenceError(op, name, "step does not exist")
	}

	if step.Type != models.StepTypeRouter || step.Router == nil {
		return nil, referenceError(op, name, "step is a %s and has no branches", step.Type)
	}

	return step, nil
}

func checkBranchIndex(op models.OperationType, router *models.Step, index int) error {
	if index < 0 || index >= len(router.Router.Branches) {
		return referenceError(op, router.Name, "branch %d does not exist", index)
	}

	return nil
}

func addBranch(flow *models.FlowVersion, req models.AddBranchRequest) error {
	op := req.GetType()

	router, err := routerStep(flow, op, req.StepName)
	if err != nil {
		return err
	}

	if req.BranchIndex > router.Router.FallbackIndex() {
		return structuralError(op, router.Name, "branch %d would follow the fallback branch", req.BranchIndex)
	}

	name := req.BranchName
	if name == "" {
		name = models.DefaultBranchName(req.BranchIndex)
	}

	conditions := make([][]models.Condition, len(req.Conditions))
	for i, group := range req.Conditions {
		conditions[i] = slices.Clone(group)
	}

	branch := models.NewConditionBranch(name, conditions)
	router.Router.Branches = slices.Insert(router.Router.Branches, req.BranchIndex, branch)

	return nil
}

func deleteBranch(flow *models.FlowVersion, req models.DeleteBranchRequest) error {
	op := req.GetType()

	router, err := routerStep(flow, op, req.StepName)
	if err != nil {
		return err
	}

	if err := checkBranchIndex(op, router, req.BranchIndex); err != nil {
		return err
	}

	if router.Router.IsFallback(req.BranchIndex) {
		return structuralError(op, router.Name, "the fallback branch cannot be deleted")
	}

	for _, name := range slices.Clone(router.Router.Branches[req.BranchIndex].Steps) {
		deleteSubtree(flow, name)
	}

	router.Router.Branches = slices.Delete(router.Router.Branches, req.BranchIndex, req.BranchIndex+1)

	return nil
}

// moveBranch reorders condition branches. Requests that would touch the
// fallback branch, fall out of bounds or keep the order are ignored.
func moveBranch(flow *models.FlowVersion, req models.MoveBranchRequest) error {
	router, err := routerStep(flow, req.GetType(), req.StepName)
	if err != nil {
		return err
	}

	branches := router.Router.Branches
	source, dest := req.SourceBranchIndex, req.TargetBranchIndex

	if source == dest ||
		source < 0 || source >= len(branches) ||
		dest < 0 || dest >= len(branches) ||
		router.Router.IsFallback(source) || router.Router.IsFallback(dest) {
		return nil
	}

	branch := branches[source]
	branches = slices.Delete(branches, source, source+1)
	router.Router.Branches = slices.Insert(branches, dest, branch)

	return nil
}
