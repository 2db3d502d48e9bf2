package flowops

import (
	"testing"

	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func step(name string, overrides ...func(*models.Step)) models.Step {
	return *testutil.CreateTestStep(name, overrides...)
}

func addAfter(parent string, action models.Step) models.AddActionRequest {
	return models.AddActionRequest{
		ParentStep:                   parent,
		StepLocationRelativeToParent: models.StepLocationAfter,
		Action:                       action,
	}
}

func addInside(parent string, location models.StepLocation, branchIndex int, action models.Step) models.AddActionRequest {
	return models.AddActionRequest{
		ParentStep:                   parent,
		StepLocationRelativeToParent: location,
		BranchIndex:                  branchIndex,
		Action:                       action,
	}
}

func mustApply(t *testing.T, flow *models.FlowVersion, ops ...models.Operation) *models.FlowVersion {
	t.Helper()

	next, err := ApplyAll(flow, ops...)
	require.NoError(t, err)
	requireInvariants(t, next)

	return next
}

// requireInvariants checks the tree invariants every reachable flow must hold.
func requireInvariants(t *testing.T, flow *models.FlowVersion) {
	t.Helper()

	referenced := make(map[string]int)
	for _, name := range flow.Trigger.Steps {
		referenced[name]++
	}

	for name, s := range flow.Steps {
		require.Equal(t, name, s.Name, "arena key must match step name")
		require.NotEqual(t, models.TriggerName, name)
		require.NoError(t, s.Validate(), "step %s", name)

		for _, child := range s.ChildRefs() {
			referenced[child]++
		}
	}

	for name, count := range referenced {
		require.Equal(t, 1, count, "step %s referenced %d times", name, count)
		require.Contains(t, flow.Steps, name, "dangling reference %s", name)
	}

	for name := range flow.Steps {
		require.Equal(t, 1, referenced[name], "step %s is not attached", name)
	}

	require.Len(t, flowstructure.GetAllSteps(flow), len(flow.Steps))
	require.Equal(t, ComputeValidity(flow), flow.Valid)
}

// requireSameTree checks two flows hold the same trigger, steps and notes.
func requireSameTree(t *testing.T, expected, actual *models.FlowVersion) {
	t.Helper()

	require.Equal(t, expected.DisplayName, actual.DisplayName)
	require.Equal(t, expected.Trigger, actual.Trigger)
	require.Equal(t, expected.Steps, actual.Steps)
	require.Equal(t, expected.Notes, actual.Notes)
	require.Equal(t, expected.Valid, actual.Valid)
}

// nestedFlow builds:
//
//	trigger
//	├── step_1
//	├── step_2 (loop)
//	│   └── step_3
//	├── step_4 (router)
//	│   ├── Branch 1: step_5
//	│   └── Otherwise: step_6
//	└── step_7
func nestedFlow(t *testing.T) *models.FlowVersion {
	t.Helper()

	return mustApply(t, testutil.CreateTestFlowVersion(),
		addAfter(models.TriggerName, step("step_1")),
		addAfter("step_1", step("step_2", testutil.WithLoop("{{step_1.rows}}"))),
		addInside("step_2", models.StepLocationInsideLoop, 0, step("step_3")),
		addAfter("step_2", step("step_4", testutil.WithRouter([]string{}))),
		addInside("step_4", models.StepLocationInsideBranch, 0, step("step_5")),
		addInside("step_4", models.StepLocationInsideBranch, 1, step("step_6")),
		addAfter("step_4", step("step_7")),
	)
}
