package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/flowops/pkg/log"
	"github.com/dukex/flowops/pkg/mocks"
	"github.com/dukex/flowops/pkg/models"
	"github.com/dukex/flowops/pkg/persistence/file"
	"github.com/dukex/flowops/pkg/services"
	"github.com/dukex/flowops/pkg/templates"
	"github.com/dukex/flowops/pkg/testutil"
	"github.com/dukex/flowops/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.FlowVersions) {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flowVersions := services.NewFlowVersions(persistence, logger)
	handlers := web.NewAPIHandlers(flowVersions, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Routes(app)

	return app, flowVersions
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	value, _ := problem["type"].(string)

	return value
}

func operation(t *testing.T, op models.Operation) models.OperationEnvelope {
	t.Helper()

	envelope, err := models.NewOperationEnvelope(op)
	require.NoError(t, err)

	return envelope
}

func addStep(name string) models.AddActionRequest {
	return models.AddActionRequest{
		ParentStep:                   models.TriggerName,
		StepLocationRelativeToParent: models.StepLocationAfter,
		Action:                       *testutil.CreateTestStep(name),
	}
}

func TestAPIHandlers_CreateFlowVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name:           "empty draft",
			requestBody:    web.CreateFlowVersionRequest{FlowID: "flow-1", DisplayName: "Orders"},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var flowVersion models.FlowVersion
				require.NoError(t, json.Unmarshal(body, &flowVersion))
				assert.NotEmpty(t, flowVersion.ID)
				assert.Equal(t, "flow-1", flowVersion.FlowID)
				assert.Equal(t, "Orders", flowVersion.DisplayName)
				assert.Equal(t, models.FlowVersionStateDraft, flowVersion.State)
				assert.Equal(t, int64(1), flowVersion.Revision)
			},
		},
		{
			name: "from template",
			requestBody: web.CreateFlowVersionRequest{
				Template: &models.FlowTemplate{
					DisplayName: "Templated",
					Trigger: func() models.Trigger {
						trigger := models.NewEmptyTrigger()
						trigger.Steps = []string{"step_1"}

						return trigger
					}(),
					Steps: []models.Step{*testutil.CreateTestStep("step_1")},
				},
			},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var flowVersion models.FlowVersion
				require.NoError(t, json.Unmarshal(body, &flowVersion))
				assert.Equal(t, "Templated", flowVersion.DisplayName)
				assert.Contains(t, flowVersion.Steps, "step_1")
			},
		},
		{
			name: "template with orphan step",
			requestBody: web.CreateFlowVersionRequest{
				Template: &models.FlowTemplate{
					DisplayName: "Broken",
					Trigger:     models.NewEmptyTrigger(),
					Steps:       []models.Step{*testutil.CreateTestStep("step_1")},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, body := doRequest(t, app, http.MethodPost, "/flow-versions", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}
		})
	}
}

func TestAPIHandlers_GetAndDeleteFlowVersion(t *testing.T) {
	t.Parallel()

	app, flowVersions := setupTestApp(t)

	created, err := flowVersions.Create(t.Context(), services.CreateFlowVersionRequest{FlowID: "flow-1"})
	require.NoError(t, err)

	resp, body := doRequest(t, app, http.MethodGet, "/flow-versions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.FlowVersion
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	resp, _ = doRequest(t, app, http.MethodDelete, "/flow-versions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodGet, "/flow-versions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "flow_version_not_found", problemType(t, body))

	resp, _ = doRequest(t, app, http.MethodDelete, "/flow-versions/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ApplyOperation(t *testing.T) {
	t.Parallel()

	app, flowVersions := setupTestApp(t)

	created, err := flowVersions.Create(t.Context(), services.CreateFlowVersionRequest{FlowID: "flow-1"})
	require.NoError(t, err)

	path := "/flow-versions/" + created.ID + "/operations"

	resp, body := doRequest(t, app, http.MethodPost, path, operation(t, addStep("step_1")))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated models.FlowVersion
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, []string{"step_1"}, updated.Trigger.Steps)
	assert.Equal(t, int64(2), updated.Revision)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "unknown operation",
			requestBody:    models.OperationEnvelope{Type: "EXPLODE"},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "missing type",
			requestBody:    map[string]any{"request": map[string]any{}},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "duplicate name",
			requestBody:    operation(t, addStep("step_1")),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "structural_violation",
		},
		{
			name:           "unknown step",
			requestBody:    operation(t, models.DeleteActionRequest{Names: []string{"step_9"}}),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "reference_error",
		},
		{
			name:           "invalid location",
			requestBody:    operation(t, models.AddActionRequest{ParentStep: "step_1", StepLocationRelativeToParent: models.StepLocationInsideLoop, Action: *testutil.CreateTestStep("step_2")}),
			expectedStatus: http.StatusBadRequest,
			expectedType:   "invalid_location",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, http.MethodPost, path, tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))
			assert.Equal(t, tt.expectedType, problemType(t, body))
		})
	}

	resp, body = doRequest(t, app, http.MethodPost, "/flow-versions/missing/operations", operation(t, addStep("step_2")))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))
}

func TestAPIHandlers_LockAndDraft(t *testing.T) {
	t.Parallel()

	app, flowVersions := setupTestApp(t)

	created, err := flowVersions.Create(t.Context(), services.CreateFlowVersionRequest{FlowID: "flow-1"})
	require.NoError(t, err)

	resp, body := doRequest(t, app, http.MethodPost, "/flow-versions/"+created.ID+"/drafts", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", problemType(t, body))

	resp, _ = doRequest(t, app, http.MethodPost, "/flow-versions/"+created.ID+"/operations", operation(t, models.LockFlowRequest{}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPost, "/flow-versions/"+created.ID+"/operations", operation(t, addStep("step_1")))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "flow_version_locked", problemType(t, body))

	resp, body = doRequest(t, app, http.MethodPost, "/flow-versions/"+created.ID+"/drafts", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var draft models.FlowVersion
	require.NoError(t, json.Unmarshal(body, &draft))
	assert.NotEqual(t, created.ID, draft.ID)
	assert.Equal(t, models.FlowVersionStateDraft, draft.State)

	resp, body = doRequest(t, app, http.MethodGet, "/flows/flow-1/versions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		FlowID   string                   `json:"flow_id"`
		Versions []web.FlowVersionSummary `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(body, &listing))
	require.Len(t, listing.Versions, 2)
	assert.Equal(t, created.ID, listing.Versions[0].ID)
	assert.Equal(t, models.FlowVersionStateLocked, listing.Versions[0].State)
	assert.Equal(t, draft.ID, listing.Versions[1].ID)
}

func TestAPIHandlers_ExportFlowVersion(t *testing.T) {
	t.Parallel()

	app, flowVersions := setupTestApp(t)

	created, err := flowVersions.Create(t.Context(), services.CreateFlowVersionRequest{FlowID: "flow-1", DisplayName: "Orders"})
	require.NoError(t, err)

	_, err = flowVersions.Apply(t.Context(), created.ID, addStep("step_1"))
	require.NoError(t, err)

	resp, body := doRequest(t, app, http.MethodGet, "/flow-versions/"+created.ID+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	template, err := templates.Decode(body, templates.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "Orders", template.DisplayName)
	assert.Equal(t, []string{"step_1"}, template.Trigger.Steps)

	resp, body = doRequest(t, app, http.MethodGet, "/flow-versions/"+created.ID+"/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	template, err = templates.Decode(body, templates.FormatYAML)
	require.NoError(t, err)
	assert.Len(t, template.Steps, 1)

	resp, _ = doRequest(t, app, http.MethodGet, "/flow-versions/"+created.ID+"/export?format=toml", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_GetStepPath(t *testing.T) {
	t.Parallel()

	app, flowVersions := setupTestApp(t)

	created, err := flowVersions.Create(t.Context(), services.CreateFlowVersionRequest{FlowID: "flow-1"})
	require.NoError(t, err)

	_, err = flowVersions.Apply(t.Context(), created.ID, addStep("step_2"))
	require.NoError(t, err)
	_, err = flowVersions.Apply(t.Context(), created.ID, addStep("step_1"))
	require.NoError(t, err)

	resp, body := doRequest(t, app, http.MethodGet, "/flow-versions/"+created.ID+"/steps/step_2/path", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var path web.StepPathResponse
	require.NoError(t, json.Unmarshal(body, &path))
	assert.Equal(t, "step_2", path.Step)
	assert.Equal(t, []string{models.TriggerName, "step_1"}, path.Path)

	resp, body = doRequest(t, app, http.MethodGet, "/flow-versions/"+created.ID+"/steps/step_7/path", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "step_not_found", problemType(t, body))
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestTransformFlowVersionSummary(t *testing.T) {
	flowVersion := testutil.CreateTestFlowVersion(
		testutil.WithSteps(testutil.CreateTestStep("step_1")),
		testutil.WithMainChain("step_1"),
		testutil.WithLocked(),
	)
	flowVersion.Revision = 3

	summary := web.TransformFlowVersionSummary(flowVersion)

	assert.Equal(t, flowVersion.ID, summary.ID)
	assert.Equal(t, flowVersion.FlowID, summary.FlowID)
	assert.Equal(t, models.FlowVersionStateLocked, summary.State)
	assert.Equal(t, int64(3), summary.Revision)
	assert.Equal(t, 1, summary.StepCount)
}

func TestHandleServiceError_InternalErrorIsLoggedNotExposed(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var logs bytes.Buffer
	log.SetupWriter(&logs, "error")

	persistence := mocks.NewMockPersistence()
	persistence.GetMockFlowVersionRepository().
		On("GetByID", mock.Anything, "fv-1").
		Return(nil, errors.New("disk on fire"))

	flowVersions := services.NewFlowVersions(persistence, slog.New(slog.NewTextHandler(io.Discard, nil)))

	app := fiber.New()
	web.NewAPIHandlers(flowVersions, validator.New()).Routes(app)

	resp, body := doRequest(t, app, http.MethodGet, "/flow-versions/fv-1", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", problemType(t, body))
	assert.NotContains(t, string(body), "disk on fire")
	assert.Contains(t, logs.String(), "disk on fire")
	assert.Contains(t, logs.String(), "/flow-versions/fv-1")
}
