package flowops

import (
	"slices"

	"github.com/dukex/flowops/pkg/flowstructure"
	"github.com/dukex/flowops/pkg/models"
)

// Export returns the nested template of flow: the trigger with its main chain
// and every attached step in pre-order, each carrying its own child references.
func Export(flow *models.FlowVersion) models.FlowTemplate {
	attached := flowstructure.GetAllSteps(flow)

	steps := make([]models.Step, len(attached))
	for i, step := range attached {
		steps[i] = *step.Clone()
	}

	notes := slices.Clone(flow.Notes)
	if notes == nil {
		notes = make([]models.Note, 0)
	}

	return models.FlowTemplate{
		SchemaVersion: models.TemplateSchemaVersion,
		DisplayName:   flow.DisplayName,
		Trigger:       flow.Trigger.Clone(),
		Steps:         steps,
		Notes:         notes,
	}
}

// ImportRequest is Export shaped as an IMPORT_FLOW request.
func ImportRequest(flow *models.FlowVersion) models.ImportFlowRequest {
	return Export(flow).ImportRequest()
}
