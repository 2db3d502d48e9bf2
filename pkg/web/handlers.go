package web

import (
	"net/http"
	"time"

	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/services"
	"github.com/dukex/flowops/pkg/templates"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	flowVersions *services.FlowVersions
	validator    *validator.Validate
}

func NewAPIHandlers(flowVersions *services.FlowVersions, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		flowVersions: flowVersions,
		validator:    validator,
	}
}

// Routes mounts every flow version endpoint on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	fv := router.Group("/flow-versions")
	fv.Post("/", h.CreateFlowVersion)
	fv.Get("/:id", h.GetFlowVersion)
	fv.Delete("/:id", h.DeleteFlowVersion)
	fv.Post("/:id/operations", h.ApplyOperation)
	fv.Post("/:id/drafts", h.CreateDraft)
	fv.Get("/:id/export", h.ExportFlowVersion)
	fv.Get("/:id/steps/:name/path", h.GetStepPath)

	router.Get("/flows/:flowId/versions", h.ListFlowVersions)
	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.flowVersions.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowops API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Flowops API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateFlowVersion(c fiber.Ctx) error {
	var req CreateFlowVersionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowVersions.Create(c.Context(), services.CreateFlowVersionRequest{
		FlowID:      req.FlowID,
		DisplayName: req.DisplayName,
		Template:    req.Template,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetFlowVersion(c fiber.Ctx) error {
	flowVersion, err := h.flowVersions.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flowVersion)
}

func (h *APIHandlers) ListFlowVersions(c fiber.Ctx) error {
	flowID := c.Params("flowId")
	if flowID == "" {
		return badRequest(c, "Flow ID is required")
	}

	versions, err := h.flowVersions.ListByFlow(c.Context(), flowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	summaries := make([]FlowVersionSummary, 0, len(versions))
	for _, version := range versions {
		summaries = append(summaries, TransformFlowVersionSummary(version))
	}

	return c.JSON(fiber.Map{
		"flow_id":  flowID,
		"versions": summaries,
	})
}

func (h *APIHandlers) DeleteFlowVersion(c fiber.Ctx) error {
	if err := h.flowVersions.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ApplyOperation decodes an operation envelope, {"type": ..., "request": {...}},
// and applies it to the flow version.
func (h *APIHandlers) ApplyOperation(c fiber.Ctx) error {
	var envelope models.OperationEnvelope
	if err := c.Bind().JSON(&envelope); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(envelope); err != nil {
		return badRequest(c, err.Error())
	}

	op, err := envelope.Decode()
	if err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.flowVersions.Apply(c.Context(), c.Params("id"), op)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) CreateDraft(c fiber.Ctx) error {
	draft, err := h.flowVersions.CreateDraft(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

// ExportFlowVersion returns the template of a flow version, as JSON unless
// ?format=yaml is given.
func (h *APIHandlers) ExportFlowVersion(c fiber.Ctx) error {
	format := templates.Format(c.Query("format", string(templates.FormatJSON)))
	if format != templates.FormatJSON && format != templates.FormatYAML {
		return badRequest(c, "format must be json or yaml")
	}

	template, err := h.flowVersions.Export(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	data, err := templates.Encode(template, format)
	if err != nil {
		return internalError(c, err)
	}

	contentType := fiber.MIMEApplicationJSON
	if format == templates.FormatYAML {
		contentType = "application/yaml"
	}

	c.Set(fiber.HeaderContentType, contentType)

	return c.Send(data)
}

func (h *APIHandlers) GetStepPath(c fiber.Ctx) error {
	name := c.Params("name")

	path, err := h.flowVersions.PathToStep(c.Context(), c.Params("id"), name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(StepPathResponse{Step: name, Path: path})
}
