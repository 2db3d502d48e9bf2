package web

import (
	"errors"

	"github.com/dukex/flowops/pkg/flowops"
	"github.com/dukex/flowops/pkg/log"
	"github.com/dukex/flowops/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, problemType string, err error) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(err.Error())

	return c.Status(fiber.StatusConflict).JSON(problem)
}

// internalError logs err and answers with a generic problem; the cause stays in the logs.
func internalError(c fiber.Ctx, err error) error {
	log.WithModule("web").ErrorContext(c.Context(), "Request failed",
		"method", c.Method(),
		"path", c.Path(),
		log.Error(err))

	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithDetail("internal server error")

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrFlowVersionNotFound):
		return notFound(c, "flow_version_not_found", "flow version not found")

	case errors.Is(err, services.ErrStepNotFound):
		return notFound(c, "step_not_found", err.Error())

	case flowops.IsLockedFlowError(err):
		return conflict(c, "flow_version_locked", err)

	case services.IsConflictError(err):
		return conflict(c, "conflict", err)

	case services.IsValidationError(err):
		problemType := "validation_error"

		switch {
		case flowops.IsReferenceError(err):
			problemType = "reference_error"
		case flowops.IsStructuralViolation(err):
			problemType = "structural_violation"
		case flowops.IsInvalidLocationError(err):
			problemType = "invalid_location"
		}

		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType(problemType).
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	default:
		return internalError(c, err)
	}
}
