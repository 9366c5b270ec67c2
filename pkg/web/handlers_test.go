package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence/memory"
	"github.com/seoforge/intent-engine/pkg/ratelimit"
	"github.com/seoforge/intent-engine/pkg/services"
	"github.com/seoforge/intent-engine/pkg/web"
)

const testOrg = "org-1"

func setupTestApp(t *testing.T, limiter ratelimit.Limiter) (*fiber.App, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	logger := slog.Default()
	engine := services.NewEngine(store, logger, nil)

	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(1000, time.Minute)
	}

	handlers := web.NewAPIHandlers(
		services.NewWorkflows(store),
		engine,
		services.NewApprovals(store, engine, logger),
		services.NewLinking(store, engine, logger),
		services.NewAnalytics(store),
		validator.New(validator.WithRequiredStructEnabled()),
		nil,
		limiter,
		logger,
	)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/transition", handlers.TransitionWorkflow)
	w.Post("/:id/force-transition", handlers.ForceTransitionWorkflow)
	w.Post("/:id/events", handlers.ReportCompletion)
	w.Post("/:id/approval", handlers.ProcessApproval)
	w.Post("/:id/link-articles", handlers.LinkArticles)
	w.Put("/:id/artifacts/:stage", handlers.AttachArtifact)
	w.Get("/:id/history", handlers.GetTransitionHistory)
	w.Get("/:id/durations", handlers.GetStateDurations)
	w.Get("/:id/keywords", handlers.ListKeywords)
	w.Get("/:id/articles", handlers.ListArticles)

	app.Get("/analytics/funnel", handlers.GetFunnelAnalytics)
	app.Get("/health", handlers.HealthCheck)

	return app, store
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func orgHeaders() map[string]string {
	return map[string]string{web.HeaderOrganizationID: testOrg}
}

func adminHeaders() map[string]string {
	return map[string]string{
		web.HeaderOrganizationID: testOrg,
		web.HeaderUserID:         "admin-1",
		web.HeaderUserRole:       "admin",
	}
}

func seedWorkflow(t *testing.T, store *memory.Persistence, id string, state models.State) {
	t.Helper()

	err := store.WorkflowRepository().Create(t.Context(), &models.Workflow{
		ID:             id,
		OrganizationID: testOrg,
		Name:           "Test Pipeline",
		State:          state,
	})
	require.NoError(t, err)
}

func TestCreateWorkflow(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	resp, body := doRequest(t, app, http.MethodPost, "/workflows",
		web.CreateWorkflowRequest{Name: "Q3 content push"}, orgHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, models.StateStep1ICP, workflow.State)
	assert.Equal(t, testOrg, workflow.OrganizationID)
	assert.NotEmpty(t, workflow.ID)
}

func TestCreateWorkflow_MissingOrgHeader(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows",
		web.CreateWorkflowRequest{Name: "Q3 content push"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateWorkflow_ValidationError(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows",
		web.CreateWorkflowRequest{}, orgHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow_NotFoundAndCrossTenant(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, _ := doRequest(t, app, http.MethodGet, "/workflows/missing", nil, orgHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/wf-1", nil,
		map[string]string{web.HeaderOrganizationID: "org-other"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransitionWorkflow(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, body := doRequest(t, app, http.MethodPost, "/workflows/wf-1/transition",
		web.TransitionRequest{From: models.StateStep1ICP, To: models.StateStep2Competitors, Reason: "icp done"},
		orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, models.StateStep2Competitors, workflow.State)
}

func TestTransitionWorkflow_IllegalEdgeIs400(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/transition",
		web.TransitionRequest{From: models.StateStep1ICP, To: models.StateStep9Articles},
		orgHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransitionWorkflow_LostRaceIs409(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep2Competitors)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/transition",
		web.TransitionRequest{From: models.StateStep1ICP, To: models.StateStep2Competitors},
		orgHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTransitionWorkflow_RateLimited(t *testing.T) {
	app, store := setupTestApp(t, ratelimit.NewMemoryLimiter(1, time.Minute))
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/transition",
		web.TransitionRequest{From: models.StateStep1ICP, To: models.StateStep2Competitors},
		orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPost, "/workflows/wf-1/transition",
		web.TransitionRequest{From: models.StateStep2Competitors, To: models.StateStep3SeedsRunning},
		orgHeaders())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestForceTransition_RoleEnforcedFromHeaders(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep5Filtering)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/force-transition",
		web.ForceTransitionRequest{To: models.StateFailed, Reason: "worker wedged"},
		map[string]string{
			web.HeaderOrganizationID: testOrg,
			web.HeaderUserID:         "user-1",
			web.HeaderUserRole:       "member",
		})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doRequest(t, app, http.MethodPost, "/workflows/wf-1/force-transition",
		web.ForceTransitionRequest{To: models.StateFailed, Reason: "worker wedged"},
		adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, models.StateFailed, workflow.State)
}

func TestReportCompletion_DrivesAutomation(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep4Longtails)

	resp, body := doRequest(t, app, http.MethodPost, "/workflows/wf-1/events",
		web.CompletionRequest{Event: "LONGTAIL_SUCCESS"}, orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.TransitionResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, models.StateStep5Filtering, result.Workflow.State)
	assert.Equal(t, "intent.step5.filtering", string(result.Emit))
}

func TestReportCompletion_UnknownEventIs400(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/events",
		web.CompletionRequest{Event: "ICP_START"}, orgHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessApproval_EndToEnd(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep3Seeds)

	resp, body := doRequest(t, app, http.MethodPost, "/workflows/wf-1/approval",
		web.ApprovalRequestBody{Decision: "approved", Feedback: "ship it"}, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.ApprovalResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, models.StateStep4Longtails, result.Workflow.State)
}

func TestProcessApproval_RejectionResetBounds(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep8Subtopics)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/approval",
		web.ApprovalRequestBody{Decision: "rejected", ResetToStep: 9}, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doRequest(t, app, http.MethodPost, "/workflows/wf-1/approval",
		web.ApprovalRequestBody{Decision: "rejected", ResetToStep: 3}, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.ApprovalResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, models.StateStep3Seeds, result.Workflow.State)
}

func TestLinkArticles_WrongStateIs400(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep5Filtering)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/link-articles", nil, orgHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAttachArtifact_SchemaEnforced(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, _ := doRequest(t, app, http.MethodPut, "/workflows/wf-1/artifacts/icp_document",
		web.AttachArtifactRequest{Payload: map[string]any{"persona": "growth marketer"}},
		orgHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPut, "/workflows/wf-1/artifacts/icp_document",
		web.AttachArtifactRequest{Payload: map[string]any{
			"persona":     "growth marketer",
			"pain_points": []string{"low organic traffic"},
		}},
		orgHeaders())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetHistoryAndDurations(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/transition",
		web.TransitionRequest{From: models.StateStep1ICP, To: models.StateStep2Competitors},
		orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, app, http.MethodGet, "/workflows/wf-1/history", nil, orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history struct {
		Transitions []*models.TransitionRecord `json:"transitions"`
	}
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history.Transitions, 1)
	assert.Equal(t, models.StateStep2Competitors, history.Transitions[0].NewState)

	resp, body = doRequest(t, app, http.MethodGet, "/workflows/wf-1/durations", nil, orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var durations struct {
		Durations []*models.StateDuration `json:"durations"`
	}
	require.NoError(t, json.Unmarshal(body, &durations))
	require.Len(t, durations.Durations, 1)
	assert.True(t, durations.Durations[0].Current)
}

func TestGetFunnelAnalytics(t *testing.T) {
	app, store := setupTestApp(t, nil)
	seedWorkflow(t, store, "wf-1", models.StateStep1ICP)

	resp, _ := doRequest(t, app, http.MethodPost, "/workflows/wf-1/transition",
		web.TransitionRequest{From: models.StateStep1ICP, To: models.StateStep2Competitors},
		orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, app, http.MethodGet, "/analytics/funnel", nil, orgHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var funnel struct {
		Funnel []*models.FunnelStep `json:"funnel"`
	}
	require.NoError(t, json.Unmarshal(body, &funnel))
	require.Len(t, funnel.Funnel, 9)
	assert.Equal(t, 1, funnel.Funnel[1].Entered)
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	resp, _ := doRequest(t, app, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
