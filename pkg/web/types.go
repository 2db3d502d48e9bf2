// Package web provides HTTP request and response types for the flow version API.
package web

import (
	"time"

	"github.com/dukex/flowops/pkg/models"
)

// CreateFlowVersionRequest represents the request body for creating a new draft.
type CreateFlowVersionRequest struct {
	FlowID      string               `json:"flow_id"             validate:"omitempty,max=128"`
	DisplayName string               `json:"display_name"        validate:"omitempty,max=255"`
	Template    *models.FlowTemplate `json:"template,omitempty"`
}

// FlowVersionSummary is the listing shape of a flow version, without its tree.
type FlowVersionSummary struct {
	ID          string                  `json:"id"`
	FlowID      string                  `json:"flow_id"`
	DisplayName string                  `json:"display_name"`
	State       models.FlowVersionState `json:"state"`
	Valid       bool                    `json:"valid"`
	Revision    int64                   `json:"revision"`
	StepCount   int                     `json:"step_count"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// StepPathResponse lists the names a step can reference, trigger first.
type StepPathResponse struct {
	Step string   `json:"step"`
	Path []string `json:"path"`
}

// TransformFlowVersionSummary drops the tree of a flow version for listings.
func TransformFlowVersionSummary(flowVersion *models.FlowVersion) FlowVersionSummary {
	return FlowVersionSummary{
		ID:          flowVersion.ID,
		FlowID:      flowVersion.FlowID,
		DisplayName: flowVersion.DisplayName,
		State:       flowVersion.State,
		Valid:       flowVersion.Valid,
		Revision:    flowVersion.Revision,
		StepCount:   len(flowVersion.Steps),
		CreatedAt:   flowVersion.CreatedAt,
		UpdatedAt:   flowVersion.UpdatedAt,
	}
}
