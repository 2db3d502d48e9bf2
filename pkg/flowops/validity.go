package flowops

import "github.com/dukex/flowops/pkg/models"

// ComputeValidity reports whether the flow is ready to publish: the trigger is
// valid and so is every step that is not skipped. Containers count on their own
// flag, and skipping a container does not hide the steps nested in it.
func ComputeValidity(flow *models.FlowVersion) bool {
	if !flow.Trigger.Valid {
		return false
	}

	for _, step := range flow.Steps {
		if !step.Skip && !step.Valid {
			return false
		}
	}

	return true
}

// UpdateValidity stores the computed validity on flow.
func UpdateValidity(flow *models.FlowVersion) {
	flow.Valid = ComputeValidity(flow)
}

// InvalidSteps returns the names of the non-skipped steps that are not valid,
// sorted.
func InvalidSteps(flow *models.FlowVersion) []string {
	invalid := make([]string, 0)

	for _, name := range flow.StepNames() {
		step := flow.Steps[name]
		if !step.Skip && !step.Valid {
			invalid = append(invalid, name)
		}
	}

	return invalid
}
