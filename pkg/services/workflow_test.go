package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoforge/intent-engine/pkg/artifacts"
	"github.com/seoforge/intent-engine/pkg/models"
	"github.com/seoforge/intent-engine/pkg/persistence/memory"
)

func TestWorkflows_CreateStartsAtStepOne(t *testing.T) {
	store := memory.NewPersistence()
	workflows := NewWorkflows(store)

	workflow, err := workflows.Create(t.Context(), testOrg, "Q2 content push")
	require.NoError(t, err)

	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, models.StateStep1ICP, workflow.State)
	assert.Equal(t, testOrg, workflow.OrganizationID)

	// Creation is not a transition; the audit trail starts empty.
	records, err := store.AuditRepository().ListByWorkflow(t.Context(), workflow.ID, testOrg)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWorkflows_FetchByIDIsTenantScoped(t *testing.T) {
	store := memory.NewPersistence()
	workflows := NewWorkflows(store)

	created, err := workflows.Create(t.Context(), testOrg, "Q2 content push")
	require.NoError(t, err)

	fetched, err := workflows.FetchByID(t.Context(), created.ID, testOrg)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	_, err = workflows.FetchByID(t.Context(), created.ID, "org-other")
	assert.Error(t, err)
}

func TestWorkflows_AttachArtifactValidatesSchema(t *testing.T) {
	store := memory.NewPersistence()
	workflows := NewWorkflows(store)

	created, err := workflows.Create(t.Context(), testOrg, "Q2 content push")
	require.NoError(t, err)

	_, err = workflows.AttachArtifact(t.Context(), created.ID, testOrg, artifacts.StageICPDocument,
		map[string]any{"persona": "growth marketer"})
	assert.Error(t, err, "pain_points is required")

	updated, err := workflows.AttachArtifact(t.Context(), created.ID, testOrg, artifacts.StageICPDocument,
		map[string]any{
			"persona":     "growth marketer",
			"pain_points": []any{"low organic traffic"},
		})
	require.NoError(t, err)
	assert.Equal(t, "growth marketer", updated.ICPDocument["persona"])

	// Attaching never touches the state column.
	assert.Equal(t, models.StateStep1ICP, updated.State)
}

func TestWorkflows_AttachArtifactUnknownStage(t *testing.T) {
	store := memory.NewPersistence()
	workflows := NewWorkflows(store)

	created, err := workflows.Create(t.Context(), testOrg, "Q2 content push")
	require.NoError(t, err)

	_, err = workflows.AttachArtifact(t.Context(), created.ID, testOrg, artifacts.Stage("meeting_notes"), map[string]any{})
	assert.ErrorIs(t, err, artifacts.ErrUnknownStage)
}

func TestWorkflows_ListChildEntitiesRequireWorkflow(t *testing.T) {
	store := memory.NewPersistence()
	workflows := NewWorkflows(store)

	_, err := workflows.ListKeywords(t.Context(), "missing", testOrg)
	assert.Error(t, err)

	_, err = workflows.ListArticles(t.Context(), "missing", testOrg)
	assert.Error(t, err)
}

func TestWorkflows_ListKeywords(t *testing.T) {
	store := memory.NewPersistence()
	workflows := NewWorkflows(store)

	created, err := workflows.Create(t.Context(), testOrg, "Q2 content push")
	require.NoError(t, err)

	err = store.KeywordRepository().Save(t.Context(), &models.Keyword{
		ID:             "kw-1",
		WorkflowID:     created.ID,
		OrganizationID: testOrg,
		Phrase:         "seo audit checklist",
		Seed:           true,
		LongtailStatus: models.LongtailPending,
	})
	require.NoError(t, err)

	keywords, err := workflows.ListKeywords(t.Context(), created.ID, testOrg)
	require.NoError(t, err)
	require.Len(t, keywords, 1)
	assert.Equal(t, "seo audit checklist", keywords[0].Phrase)
}
