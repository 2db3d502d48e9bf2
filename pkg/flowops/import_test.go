package flowops

import (
	"encoding/json"
	"testing"

	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportOperations_Order(t *testing.T) {
	flow := mustApply(t, testutil.CreateTestFlowVersion(),
		addAfter(models.TriggerName, step("step_1", testutil.WithLoop("{{trigger.items}}"))),
		addInside("step_1", models.StepLocationInsideLoop, 0, step("step_2")),
		addAfter("step_1", step("step_3", testutil.WithRouter([]string{}))),
		addInside("step_3", models.StepLocationInsideBranch, 0, step("step_4")),
		addInside("step_3", models.StepLocationInsideBranch, 1, step("step_5")),
		addAfter("step_5", step("step_7")),
		addAfter("step_3", step("step_6")),
	)

	template := Export(flow)

	ops, err := ImportOperations(template.Trigger, template.Steps)
	require.NoError(t, err)

	type placement struct {
		name, parent string
		location     models.StepLocation
		branch       int
	}

	actual := make([]placement, len(ops))
	for i, op := range ops {
		add, ok := op.(models.AddActionRequest)
		require.True(t, ok)
		assert.Empty(t, add.Action.ChildRefs(), "replayed actions carry no structure")

		actual[i] = placement{add.Action.Name, add.ParentStep, add.StepLocationRelativeToParent, add.BranchIndex}
	}

	assert.Equal(t, []placement{
		{"step_1", models.TriggerName, models.StepLocationAfter, 0},
		{"step_2", "step_1", models.StepLocationInsideLoop, 0},
		{"step_3", "step_1", models.StepLocationAfter, 0},
		{"step_4", "step_3", models.StepLocationInsideBranch, 0},
		{"step_5", "step_3", models.StepLocationInsideBranch, 1},
		{"step_7", "step_5", models.StepLocationAfter, 0},
		{"step_6", "step_3", models.StepLocationAfter, 0},
	}, actual)

	rebuilt := mustApply(t, testutil.CreateTestFlowVersion(), ops...)
	assert.Equal(t, flow.Trigger.Steps, rebuilt.Trigger.Steps)
	assert.Equal(t, flow.Steps, rebuilt.Steps)
}

func TestImportOperations_Errors(t *testing.T) {
	trigger := models.NewEmptyTrigger()

	tests := []struct {
		name    string
		chain   []string
		steps   []models.Step
		wantErr error
	}{
		{
			name:    "duplicate names",
			chain:   []string{"step_1"},
			steps:   []models.Step{step("step_1"), step("step_1")},
			wantErr: ErrStructuralViolation,
		},
		{
			name:    "missing reference",
			chain:   []string{"step_1", "step_2"},
			steps:   []models.Step{step("step_1")},
			wantErr: ErrReference,
		},
		{
			name:    "referenced twice",
			chain:   []string{"step_1"},
			steps:   []models.Step{step("step_1", testutil.WithLoop("", "step_1"))},
			wantErr: ErrStructuralViolation,
		},
		{
			name:    "orphan",
			chain:   []string{"step_1"},
			steps:   []models.Step{step("step_1"), step("step_2")},
			wantErr: ErrStructuralViolation,
		},
		{
			name:    "named after the trigger",
			chain:   []string{},
			steps:   []models.Step{step(models.TriggerName)},
			wantErr: ErrStructuralViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger.Steps = tt.chain

			_, err := ImportOperations(trigger, tt.steps)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestImportFlow_RoundTrip(t *testing.T) {
	flow := mustApply(t, nestedFlow(t),
		models.UpdateActionRequest{Action: step("step_6", testutil.WithValid(false))},
		models.SetSkipActionRequest{Names: []string{"step_6"}, Skip: true},
		models.AddBranchRequest{StepName: "step_4", BranchIndex: 1, BranchName: "Second"},
		addInside("step_4", models.StepLocationInsideBranch, 1, step("step_8", testutil.WithPiece("@pieces/piece-http", "send_request", map[string]any{"url": "{{step_5.url}}"}))),
		models.AddNoteRequest{Note: models.Note{ID: "note-1", Content: "check the router"}},
		models.ChangeNameRequest{DisplayName: "Round trip"},
	)

	imported := mustApply(t, testutil.CreateTestFlowVersion(), ImportRequest(flow))

	requireSameTree(t, flow, imported)
}

func TestImportFlow_RoundTripThroughJSON(t *testing.T) {
	flow := nestedFlow(t)

	data, err := json.Marshal(Export(flow))
	require.NoError(t, err)

	var template models.FlowTemplate
	require.NoError(t, json.Unmarshal(data, &template))
	assert.Equal(t, models.TemplateSchemaVersion, template.SchemaVersion)

	imported := mustApply(t, testutil.CreateTestFlowVersion(), template.ImportRequest())

	requireSameTree(t, flow, imported)
}

func TestImportFlow_ReplacesEverything(t *testing.T) {
	target := mustApply(t, nestedFlow(t), models.AddNoteRequest{Note: models.Note{ID: "old"}})

	source := mustApply(t, testutil.CreateTestFlowVersion(),
		addAfter(models.TriggerName, step("step_1", testutil.WithDisplayName("Only step"))),
		models.ChangeNameRequest{DisplayName: "Replacement"},
	)

	imported := mustApply(t, target, ImportRequest(source))

	assert.Equal(t, "Replacement", imported.DisplayName)
	assert.Equal(t, []string{"step_1"}, imported.Trigger.Steps)
	assert.Len(t, imported.Steps, 1)
	assert.Equal(t, "Only step", imported.Steps["step_1"].DisplayName)
	assert.Empty(t, imported.Notes)
	assert.Equal(t, target.ID, imported.ID)
}

func TestImportFlow_RejectsBrokenTree(t *testing.T) {
	flow := nestedFlow(t)

	request := ImportRequest(flow)
	request.Steps = request.Steps[:len(request.Steps)-1]

	_, err := Apply(flow, request)
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, models.OperationImportFlow, opErr.Op)
	assert.True(t, IsReferenceError(err))
}

func TestImportFlow_RejectsBadRouterLayout(t *testing.T) {
	flow := nestedFlow(t)

	request := ImportRequest(flow)
	for i := range request.Steps {
		if request.Steps[i].Name == "step_4" {
			branches := request.Steps[i].Router.Branches
			branches[0], branches[1] = branches[1], branches[0]
		}
	}

	_, err := Apply(flow, request)
	require.ErrorIs(t, err, ErrInvalidRequest)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, models.OperationImportFlow, opErr.Op)
}

func TestImportFlow_RejectsDuplicateNoteIDs(t *testing.T) {
	flow := nestedFlow(t)

	request := ImportRequest(flow)
	request.Notes = []models.Note{{ID: "n1", Content: "first"}, {ID: "n1", Content: "second"}}

	_, err := Apply(flow, request)
	require.ErrorIs(t, err, ErrStructuralViolation)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, models.OperationImportFlow, opErr.Op)
	assert.Equal(t, "n1", opErr.Target)

	request.Notes = request.Notes[:1]
	imported := mustApply(t, flow, request)

	deleted := mustApply(t, imported, models.DeleteNoteRequest{ID: "n1"})
	assert.Equal(t, -1, deleted.NoteIndex("n1"))
}

func TestExport(t *testing.T) {
	flow := nestedFlow(t)

	template := Export(flow)

	names := make([]string, len(template.Steps))
	for i, s := range template.Steps {
		names[i] = s.Name
	}

	assert.Equal(t, []string{"step_1", "step_2", "step_3", "step_4", "step_5", "step_6", "step_7"}, names)
	assert.Equal(t, []string{"step_3"}, template.Steps[1].Children)
	assert.Equal(t, flow.DisplayName, template.DisplayName)

	template.Steps[1].Children[0] = "changed"
	assert.Equal(t, []string{"step_3"}, flow.Steps["step_2"].Children)
}
