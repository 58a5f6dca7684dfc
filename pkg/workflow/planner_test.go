package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/notify"
)

func assignWorkflow(id string, order int, assignment *models.AssignmentAction) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Order:   order,
		Enabled: true,
		Actions: []models.WorkflowAction{
			{ID: id + "-a1", Type: models.ActionAssignment, Assignment: assignment},
		},
	}
}

func removalWorkflow(id string, order int, removal *models.RemovalAction) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Order:   order,
		Enabled: true,
		Actions: []models.WorkflowAction{
			{ID: id + "-r1", Type: models.ActionRemoval, Removal: removal},
		},
	}
}

func TestPlanScalarLastWins(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1"}

	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{CorrespondentID: strPtr("c1")})
	w2 := assignWorkflow("wf-2", 2, &models.AssignmentAction{CorrespondentID: strPtr("c2")})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2})
	require.NoError(t, err)
	require.NotNil(t, changeSet.Document.CorrespondentID)
	assert.Equal(t, "c2", *changeSet.Document.CorrespondentID)
}

func TestPlanCollectionUnion(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1"}

	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{TagIDs: []string{"t1", "t2"}})
	w2 := assignWorkflow("wf-2", 2, &models.AssignmentAction{TagIDs: []string{"t3"}})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, changeSet.Document.TagIDs)
}

func TestPlanRemovalPrecedence(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1"}

	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{TagIDs: []string{"t1", "t2"}})
	w2 := removalWorkflow("wf-2", 2, &models.RemovalAction{TagIDs: []string{"t1"}})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, changeSet.Document.TagIDs)
}

func TestPlanRemovalNetsOutAfterAllAssignments(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1"}

	// The removal fires in an earlier workflow than the assignment, yet
	// removals still have final say for the categories they target.
	w1 := removalWorkflow("wf-1", 1, &models.RemovalAction{TagIDs: []string{"t1"}})
	w2 := assignWorkflow("wf-2", 2, &models.AssignmentAction{TagIDs: []string{"t1", "t2"}})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, changeSet.Document.TagIDs)
}

func TestPlanRemoveAllSupersedesPendingAdditions(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1", TagIDs: []string{"t0"}}

	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{TagIDs: []string{"t1"}})
	w2 := removalWorkflow("wf-2", 2, &models.RemovalAction{RemoveAllTags: true})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2})
	require.NoError(t, err)
	assert.Empty(t, changeSet.Document.TagIDs)
}

func TestPlanRemovalNeverResurrects(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1", CorrespondentID: strPtr("c1")}

	// Removing a value that no assignment re-stages leaves it cleared;
	// removing an unrelated value leaves the assignment intact.
	w1 := removalWorkflow("wf-1", 1, &models.RemovalAction{CorrespondentIDs: []string{"c1"}})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1})
	require.NoError(t, err)
	assert.Nil(t, changeSet.Document.CorrespondentID)

	w2 := assignWorkflow("wf-2", 2, &models.AssignmentAction{CorrespondentID: strPtr("c2")})
	changeSet, err = planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2})
	require.NoError(t, err)
	require.NotNil(t, changeSet.Document.CorrespondentID)
	assert.Equal(t, "c2", *changeSet.Document.CorrespondentID)
}

func TestPlanTitleTemplate(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1", Title: "Original", CorrespondentID: strPtr("ACME")}

	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{Title: strPtr("{correspondent} archive")})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1})
	require.NoError(t, err)
	assert.Equal(t, "ACME archive", changeSet.Document.Title)
	assert.Empty(t, changeSet.Errors)
}

func TestPlanTitleTemplateFailureKeepsOriginalTitle(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1", Title: "Original"}

	// The broken title template is recorded, but the owner assignment in
	// the same action still applies.
	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{
		Title:   strPtr("{no_such_placeholder}"),
		OwnerID: strPtr("u2"),
	})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1})
	require.NoError(t, err)
	assert.Equal(t, "Original", changeSet.Document.Title)
	require.NotNil(t, changeSet.Document.OwnerID)
	assert.Equal(t, "u2", *changeSet.Document.OwnerID)
	require.Len(t, changeSet.Errors, 1)
	assert.Contains(t, changeSet.Errors[0].Message, "title template")
}

func TestPlanCustomFieldIdempotent(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{
		ID:           "doc-1",
		CustomFields: []models.CustomFieldInstance{{FieldID: "cf1", Value: "existing"}},
	}

	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{
		CustomFields: []models.CustomFieldAssignment{
			{FieldID: "cf1", Value: "overwrite-attempt"},
			{FieldID: "cf2", Value: "fresh"},
		},
	})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1})
	require.NoError(t, err)
	require.Len(t, changeSet.Document.CustomFields, 2)

	cf1, ok := changeSet.Document.CustomField("cf1")
	require.True(t, ok)
	assert.Equal(t, "existing", cf1.Value)

	cf2, ok := changeSet.Document.CustomField("cf2")
	require.True(t, ok)
	assert.Equal(t, "fresh", cf2.Value)
}

func TestPlanPermissions(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{
		ID:          "doc-1",
		Permissions: models.Permissions{ViewUserIDs: []string{"u1"}},
	}

	w1 := assignWorkflow("wf-1", 1, &models.AssignmentAction{
		ViewUserIDs:   []string{"u2"},
		ChangeUserIDs: []string{"u3"},
	})
	w2 := removalWorkflow("wf-2", 2, &models.RemovalAction{ViewUserIDs: []string{"u1"}})

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, changeSet.Document.Permissions.ViewUserIDs)
	assert.Equal(t, []string{"u3"}, changeSet.Document.Permissions.ChangeUserIDs)

	w3 := removalWorkflow("wf-3", 3, &models.RemovalAction{RemoveAllPermissions: true})
	changeSet, err = planner.Plan(context.Background(), doc, []*models.Workflow{w1, w2, w3})
	require.NoError(t, err)
	assert.Empty(t, changeSet.Document.Permissions.ViewUserIDs)
	assert.Empty(t, changeSet.Document.Permissions.ChangeUserIDs)
}

func TestPlanNotifications(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1", Title: "Report", CorrespondentID: strPtr("ACME")}

	workflow := &models.Workflow{
		ID:      "wf-1",
		Enabled: true,
		Actions: []models.WorkflowAction{
			{
				ID:   "a-email",
				Type: models.ActionEmail,
				Email: &models.EmailAction{
					To:      "one@example.com, two@example.com",
					Subject: "New document from {correspondent}",
					Body:    "Title: {doc_title}",
				},
			},
			{
				ID:   "a-webhook",
				Type: models.ActionWebhook,
				Webhook: &models.WebhookAction{
					URL:     "https://hooks.example.com/{correspondent}",
					Body:    `{"title": "{doc_title}"}`,
					AsJSON:  true,
					Headers: map[string]string{"X-Doc": "{doc_title}"},
				},
			},
		},
	}

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{workflow})
	require.NoError(t, err)
	require.Len(t, changeSet.Notifications, 2)

	email := changeSet.Notifications[0]
	assert.Equal(t, notify.KindEmail, email.Kind)
	assert.Equal(t, []string{"one@example.com", "two@example.com"}, email.Email.To)
	assert.Equal(t, "New document from ACME", email.Email.Subject)

	webhook := changeSet.Notifications[1]
	assert.Equal(t, notify.KindWebhook, webhook.Kind)
	assert.Equal(t, "https://hooks.example.com/ACME", webhook.Webhook.URL)
	assert.Equal(t, "Report", webhook.Webhook.Headers["X-Doc"])
}

func TestPlanNotificationTemplateFailureIsolated(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1", Title: "Report"}

	workflow := &models.Workflow{
		ID:      "wf-1",
		Enabled: true,
		Actions: []models.WorkflowAction{
			{
				ID:   "a-bad",
				Type: models.ActionWebhook,
				Webhook: &models.WebhookAction{
					URL: "https://hooks.example.com/{nope}",
				},
			},
			{
				ID:   "a-good",
				Type: models.ActionEmail,
				Email: &models.EmailAction{
					To:      "one@example.com",
					Subject: "Subject",
					Body:    "Body",
				},
			},
		},
	}

	changeSet, err := planner.Plan(context.Background(), doc, []*models.Workflow{workflow})
	require.NoError(t, err)
	require.Len(t, changeSet.Notifications, 1)
	assert.Equal(t, notify.KindEmail, changeSet.Notifications[0].Kind)
	require.Len(t, changeSet.Errors, 1)
	assert.Equal(t, "a-bad", changeSet.Errors[0].ActionID)
}

func TestPlanUnknownActionTypeFailsHard(t *testing.T) {
	planner := NewPlanner(testLogger(), nil)
	doc := &models.Document{ID: "doc-1"}

	workflow := &models.Workflow{
		ID:      "wf-1",
		Actions: []models.WorkflowAction{{ID: "a1", Type: "teleport"}},
	}

	_, err := planner.Plan(context.Background(), doc, []*models.Workflow{workflow})
	assert.ErrorIs(t, err, ErrUnknownActionType)
}
