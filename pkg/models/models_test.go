package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestWorkflowActionValidate(t *testing.T) {
	tests := []struct {
		name    string
		action  WorkflowAction
		wantErr bool
	}{
		{
			name:   "assignment with payload",
			action: WorkflowAction{Type: ActionAssignment, Assignment: &AssignmentAction{}},
		},
		{
			name:    "assignment missing payload",
			action:  WorkflowAction{Type: ActionAssignment},
			wantErr: true,
		},
		{
			name:   "removal with payload",
			action: WorkflowAction{Type: ActionRemoval, Removal: &RemovalAction{RemoveAllTags: true}},
		},
		{
			name:    "email missing payload",
			action:  WorkflowAction{Type: ActionEmail},
			wantErr: true,
		},
		{
			name:   "webhook with payload",
			action: WorkflowAction{Type: ActionWebhook, Webhook: &WebhookAction{URL: "https://example.com"}},
		},
		{
			name:    "unknown type",
			action:  WorkflowAction{Type: "mystery"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAction)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowTriggerValidate(t *testing.T) {
	t.Run("custom field date requires field reference", func(t *testing.T) {
		trigger := WorkflowTrigger{
			Type:              TriggerScheduled,
			ScheduleDateField: ScheduleDateCustomField,
		}
		assert.ErrorIs(t, trigger.Validate(), ErrInvalidTrigger)

		trigger.ScheduleDateCustomFieldID = strPtr("cf-due")
		assert.NoError(t, trigger.Validate())
	})

	t.Run("recurring requires interval", func(t *testing.T) {
		trigger := WorkflowTrigger{
			Type:                TriggerScheduled,
			ScheduleDateField:   ScheduleDateCreated,
			ScheduleIsRecurring: true,
		}
		assert.ErrorIs(t, trigger.Validate(), ErrInvalidTrigger)

		trigger.ScheduleRecurringIntervalDays = 7
		assert.NoError(t, trigger.Validate())
	})

	t.Run("matching algorithm requires pattern", func(t *testing.T) {
		trigger := WorkflowTrigger{
			Type:              TriggerConsumption,
			MatchingAlgorithm: MatchAny,
		}
		assert.ErrorIs(t, trigger.Validate(), ErrInvalidTrigger)

		trigger.Match = "invoice"
		assert.NoError(t, trigger.Validate())
	})
}

func TestDocumentClone(t *testing.T) {
	correspondent := "corr-1"
	doc := &Document{
		ID:              "doc-1",
		Title:           "Original",
		TagIDs:          []string{"t1", "t2"},
		CorrespondentID: &correspondent,
		Permissions:     Permissions{ViewUserIDs: []string{"u1"}},
		CustomFields:    []CustomFieldInstance{{FieldID: "cf1", Value: "x"}},
	}

	clone := doc.Clone()
	require.Equal(t, doc, clone)

	clone.TagIDs[0] = "changed"
	clone.Permissions.ViewUserIDs[0] = "changed"
	*clone.CorrespondentID = "changed"

	assert.Equal(t, "t1", doc.TagIDs[0])
	assert.Equal(t, "u1", doc.Permissions.ViewUserIDs[0])
	assert.Equal(t, "corr-1", *doc.CorrespondentID)
}

func TestDocumentCustomField(t *testing.T) {
	doc := &Document{CustomFields: []CustomFieldInstance{{FieldID: "cf1", Value: "42"}}}

	cf, ok := doc.CustomField("cf1")
	require.True(t, ok)
	assert.Equal(t, "42", cf.Value)

	_, ok = doc.CustomField("missing")
	assert.False(t, ok)
}
