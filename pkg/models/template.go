package models

// TemplateSchemaVersion is written into every exported template.
const TemplateSchemaVersion = "1"

// FlowTemplate is the nested, portable shape of a flow version: the trigger
// with its main chain and every step carrying its own structural references,
// in pre-order.
type FlowTemplate struct {
	SchemaVersion string  `json:"schema_version"`
	DisplayName   string  `json:"display_name"   validate:"required"`
	Trigger       Trigger `json:"trigger"`
	Steps         []Step  `json:"steps"          validate:"dive"`
	Notes         []Note  `json:"notes"          validate:"dive"`
}

// ImportRequest converts the template into an IMPORT_FLOW request.
func (t FlowTemplate) ImportRequest() ImportFlowRequest {
	return ImportFlowRequest{
		DisplayName: t.DisplayName,
		Trigger:     t.Trigger,
		Steps:       t.Steps,
		Notes:       t.Notes,
	}
}
