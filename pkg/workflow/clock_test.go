package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow/pkg/models"
)

// fakeLedger serves canned last-run rows.
type fakeLedger struct {
	runs map[string]*models.WorkflowRun
}

func (l *fakeLedger) LastRun(_ context.Context, workflowID, documentID string) (*models.WorkflowRun, error) {
	return l.runs[workflowID+"/"+documentID], nil
}

func TestClockDue(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	workflow := &models.Workflow{ID: "wf-1"}

	baseDoc := func() *models.Document {
		return &models.Document{
			ID:         "doc-1",
			CreatedAt:  now.AddDate(0, 0, -30),
			AddedAt:    now.AddDate(0, 0, -10),
			ModifiedAt: now.AddDate(0, 0, -1),
		}
	}

	tests := []struct {
		name    string
		trigger models.WorkflowTrigger
		mutate  func(*models.Document)
		lastRun *models.WorkflowRun
		want    bool
	}{
		{
			name: "due when offset passed",
			trigger: models.WorkflowTrigger{
				Type:               models.TriggerScheduled,
				ScheduleDateField:  models.ScheduleDateCreated,
				ScheduleOffsetDays: 7,
			},
			want: true,
		},
		{
			name: "not due before offset",
			trigger: models.WorkflowTrigger{
				Type:               models.TriggerScheduled,
				ScheduleDateField:  models.ScheduleDateAdded,
				ScheduleOffsetDays: 30,
			},
			want: false,
		},
		{
			name: "negative offset fires before the date",
			trigger: models.WorkflowTrigger{
				Type:               models.TriggerScheduled,
				ScheduleDateField:  models.ScheduleDateCreated,
				ScheduleOffsetDays: -5,
			},
			mutate: func(d *models.Document) {
				d.CreatedAt = now.AddDate(0, 0, 3) // created in the future, fires 5 days early
			},
			want: true,
		},
		{
			name: "non-recurring fires once ever",
			trigger: models.WorkflowTrigger{
				Type:              models.TriggerScheduled,
				ScheduleDateField: models.ScheduleDateCreated,
			},
			lastRun: &models.WorkflowRun{RunAt: now.AddDate(0, 0, -20)},
			want:    false,
		},
		{
			name: "recurring suppressed within interval",
			trigger: models.WorkflowTrigger{
				Type:                          models.TriggerScheduled,
				ScheduleDateField:             models.ScheduleDateCreated,
				ScheduleIsRecurring:           true,
				ScheduleRecurringIntervalDays: 7,
			},
			lastRun: &models.WorkflowRun{RunAt: now.AddDate(0, 0, -6)},
			want:    false,
		},
		{
			name: "recurring fires after interval",
			trigger: models.WorkflowTrigger{
				Type:                          models.TriggerScheduled,
				ScheduleDateField:             models.ScheduleDateCreated,
				ScheduleIsRecurring:           true,
				ScheduleRecurringIntervalDays: 7,
			},
			lastRun: &models.WorkflowRun{RunAt: now.AddDate(0, 0, -8)},
			want:    true,
		},
		{
			name: "custom field date",
			trigger: models.WorkflowTrigger{
				Type:                      models.TriggerScheduled,
				ScheduleDateField:         models.ScheduleDateCustomField,
				ScheduleDateCustomFieldID: strPtr("cf-due"),
			},
			mutate: func(d *models.Document) {
				d.CustomFields = []models.CustomFieldInstance{{FieldID: "cf-due", Value: "2024-06-01"}}
			},
			want: true,
		},
		{
			name: "unset custom field is not due",
			trigger: models.WorkflowTrigger{
				Type:                      models.TriggerScheduled,
				ScheduleDateField:         models.ScheduleDateCustomField,
				ScheduleDateCustomFieldID: strPtr("cf-due"),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := baseDoc()
			if tt.mutate != nil {
				tt.mutate(doc)
			}

			ledger := &fakeLedger{runs: map[string]*models.WorkflowRun{}}
			if tt.lastRun != nil {
				ledger.runs["wf-1/doc-1"] = tt.lastRun
			}

			clock := NewClock(ledger, testLogger())

			due, err := clock.Due(context.Background(), doc, workflow, &tt.trigger, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, due)
		})
	}
}
