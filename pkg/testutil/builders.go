// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/flowops/pkg/models"
	"github.com/google/uuid"
)

// CreateTestFlowVersion creates an empty draft flow version with default values
// that can be overridden.
func CreateTestFlowVersion(overrides ...func(*models.FlowVersion)) *models.FlowVersion {
	fv := models.NewFlowVersion(uuid.New().String(), uuid.New().String(), "Test Flow")
	fv.Trigger.Valid = true
	fv.Valid = true

	for _, override := range overrides {
		override(fv)
	}

	return fv
}

// WithSteps stores the steps in the flow's arena. Chains are left untouched.
func WithSteps(steps ...*models.Step) func(*models.FlowVersion) {
	return func(fv *models.FlowVersion) {
		for _, step := range steps {
			fv.Steps[step.Name] = step
		}
	}
}

// WithMainChain sets the names following the trigger.
func WithMainChain(names ...string) func(*models.FlowVersion) {
	return func(fv *models.FlowVersion) {
		fv.Trigger.Steps = names
	}
}

// WithTriggerValid sets the trigger's valid flag.
func WithTriggerValid(valid bool) func(*models.FlowVersion) {
	return func(fv *models.FlowVersion) {
		fv.Trigger.Valid = valid
	}
}

// WithLocked marks the flow version as locked.
func WithLocked() func(*models.FlowVersion) {
	return func(fv *models.FlowVersion) {
		fv.State = models.FlowVersionStateLocked
	}
}

// CreateTestStep creates a valid code step with default values that can be
// overridden.
func CreateTestStep(name string, overrides ...func(*models.Step)) *models.Step {
	step := &models.Step{
		Name:        name,
		DisplayName: "Test Step " + name,
		Type:        models.StepTypeCode,
		Valid:       true,
		Code: &models.CodeSettings{
			SourceCode: models.SourceCode{
				Code:        "export const code = async (inputs) => inputs;",
				PackageJSON: "{}",
			},
			Input: map[string]any{},
		},
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithDisplayName sets the step display name.
func WithDisplayName(displayName string) func(*models.Step) {
	return func(s *models.Step) {
		s.DisplayName = displayName
	}
}

// WithValid sets the step valid flag.
func WithValid(valid bool) func(*models.Step) {
	return func(s *models.Step) {
		s.Valid = valid
	}
}

// WithSkip sets the step skip flag.
func WithSkip(skip bool) func(*models.Step) {
	return func(s *models.Step) {
		s.Skip = skip
	}
}

// WithInput sets the code input of the step.
func WithInput(input map[string]any) func(*models.Step) {
	return func(s *models.Step) {
		s.Code.Input = input
	}
}

// WithPiece turns the step into a piece action.
func WithPiece(pieceName, actionName string, input map[string]any) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.StepTypePiece
		s.Code = nil
		s.Piece = &models.PieceSettings{
			PieceName:    pieceName,
			PieceVersion: "0.1.0",
			ActionName:   actionName,
			Input:        input,
		}
	}
}

// WithLoop turns the step into a loop over items owning children.
func WithLoop(items string, children ...string) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.StepTypeLoopOnItems
		s.Code = nil
		s.Loop = &models.LoopSettings{Items: items}
		s.Children = children
	}
}

// WithRouter turns the step into a router. Each chain becomes a condition
// branch; the fallback branch is appended with no steps.
func WithRouter(chains ...[]string) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.StepTypeRouter
		s.Code = nil
		s.Router = &models.RouterSettings{ExecutionType: models.RouterExecuteFirstMatch}

		for i, chain := range chains {
			branch := models.NewConditionBranch(models.DefaultBranchName(i), nil)
			branch.Steps = chain
			s.Router.Branches = append(s.Router.Branches, branch)
		}

		s.Router.Branches = append(s.Router.Branches, models.NewFallbackBranch())
	}
}

// WithFallbackSteps sets the steps of a router's fallback branch.
func WithFallbackSteps(names ...string) func(*models.Step) {
	return func(s *models.Step) {
		s.Router.Branches[s.Router.FallbackIndex()].Steps = names
	}
}
