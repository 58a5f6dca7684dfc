package workflow

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/docflow/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func strPtr(s string) *string { return &s }

func consumptionDoc() *models.Document {
	return &models.Document{
		ID:               "doc-1",
		OriginalFilename: "simple.pdf",
		StoragePathName:  "/tmp/scratch/x/simple.pdf",
		Source:           models.SourceConsumeFolder,
		Content:          "Invoice 0042 from ACME Corporation",
		TagIDs:           []string{"tag-a", "tag-b"},
	}
}

func TestMatchesWildcardTrigger(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	doc := consumptionDoc()

	// A trigger with every filter unset matches everything of its type.
	for _, triggerType := range []models.TriggerType{
		models.TriggerConsumption,
		models.TriggerDocumentAdded,
		models.TriggerDocumentUpdated,
	} {
		workflow := &models.Workflow{
			ID:       "wf-1",
			Enabled:  true,
			Triggers: []models.WorkflowTrigger{{Type: triggerType}},
		}

		result, err := evaluator.Matches(context.Background(), doc, workflow, triggerType)
		require.NoError(t, err)
		assert.True(t, result.Matched, "trigger type %s", triggerType)
	}
}

func TestMatchesTypeMismatch(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	workflow := &models.Workflow{
		ID:       "wf-1",
		Triggers: []models.WorkflowTrigger{{Type: models.TriggerDocumentUpdated}},
	}

	result, err := evaluator.Matches(context.Background(), consumptionDoc(), workflow, models.TriggerConsumption)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Contains(t, result.Reason, "no consumption trigger configured")
}

func TestMatchesUnknownTriggerTypeFailsHard(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	workflow := &models.Workflow{ID: "wf-1"}

	_, err := evaluator.Matches(context.Background(), consumptionDoc(), workflow, "time_travel")
	assert.ErrorIs(t, err, ErrUnknownTriggerType)
}

func TestMatchesFilters(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	tests := []struct {
		name       string
		trigger    models.WorkflowTrigger
		mutate     func(*models.Document)
		want       bool
		wantReason string
	}{
		{
			name:    "filename glob hit",
			trigger: models.WorkflowTrigger{Type: models.TriggerConsumption, FilterFilename: "*simple*"},
			want:    true,
		},
		{
			name:       "filename glob miss",
			trigger:    models.WorkflowTrigger{Type: models.TriggerConsumption, FilterFilename: "*invoice*"},
			want:       false,
			wantReason: "filename",
		},
		{
			name:    "path glob crosses separators",
			trigger: models.WorkflowTrigger{Type: models.TriggerConsumption, FilterPath: "*/scratch/*"},
			want:    true,
		},
		{
			name:       "path glob miss",
			trigger:    models.WorkflowTrigger{Type: models.TriggerConsumption, FilterPath: "*/archive/*"},
			want:       false,
			wantReason: "path",
		},
		{
			name:    "source hit",
			trigger: models.WorkflowTrigger{Type: models.TriggerConsumption, Sources: []models.DocumentSource{models.SourceConsumeFolder}},
			want:    true,
		},
		{
			name:       "source miss",
			trigger:    models.WorkflowTrigger{Type: models.TriggerConsumption, Sources: []models.DocumentSource{models.SourceMailFetch}},
			want:       false,
			wantReason: "source",
		},
		{
			name:    "tag superset hit",
			trigger: models.WorkflowTrigger{Type: models.TriggerConsumption, FilterHasTags: []string{"tag-a", "tag-b"}},
			want:    true,
		},
		{
			name:       "tag superset miss",
			trigger:    models.WorkflowTrigger{Type: models.TriggerConsumption, FilterHasTags: []string{"tag-a", "tag-z"}},
			want:       false,
			wantReason: "tags",
		},
		{
			name:       "mail rule on non-mail document is a non-match",
			trigger:    models.WorkflowTrigger{Type: models.TriggerConsumption, FilterMailRuleID: strPtr("rule-1")},
			want:       false,
			wantReason: "mail rule",
		},
		{
			name:    "mail rule hit",
			trigger: models.WorkflowTrigger{Type: models.TriggerConsumption, FilterMailRuleID: strPtr("rule-1")},
			mutate: func(d *models.Document) {
				d.MailRuleID = strPtr("rule-1")
			},
			want: true,
		},
		{
			name:       "correspondent miss",
			trigger:    models.WorkflowTrigger{Type: models.TriggerConsumption, FilterHasCorrespondentID: strPtr("corr-1")},
			want:       false,
			wantReason: "correspondent",
		},
		{
			name:    "correspondent hit",
			trigger: models.WorkflowTrigger{Type: models.TriggerConsumption, FilterHasCorrespondentID: strPtr("corr-1")},
			mutate: func(d *models.Document) {
				d.CorrespondentID = strPtr("corr-1")
			},
			want: true,
		},
		{
			name:       "document type miss",
			trigger:    models.WorkflowTrigger{Type: models.TriggerConsumption, FilterHasDocumentTypeID: strPtr("dt-1")},
			want:       false,
			wantReason: "type",
		},
		{
			name: "content match hit",
			trigger: models.WorkflowTrigger{
				Type:              models.TriggerConsumption,
				MatchingAlgorithm: models.MatchLiteral,
				Match:             "acme corporation",
				IsInsensitive:     true,
			},
			want: true,
		},
		{
			name: "content match miss",
			trigger: models.WorkflowTrigger{
				Type:              models.TriggerConsumption,
				MatchingAlgorithm: models.MatchLiteral,
				Match:             "globex",
				IsInsensitive:     true,
			},
			want:       false,
			wantReason: "content",
		},
		{
			name: "invalid regex is a non-match",
			trigger: models.WorkflowTrigger{
				Type:              models.TriggerConsumption,
				MatchingAlgorithm: models.MatchRegex,
				Match:             "(",
			},
			want:       false,
			wantReason: "content match error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := consumptionDoc()
			if tt.mutate != nil {
				tt.mutate(doc)
			}

			workflow := &models.Workflow{
				ID:       "wf-1",
				Triggers: []models.WorkflowTrigger{tt.trigger},
			}

			result, err := evaluator.Matches(context.Background(), doc, workflow, models.TriggerConsumption)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Matched)

			if !tt.want && tt.wantReason != "" {
				assert.Contains(t, result.Reason, tt.wantReason)
			}
		})
	}
}

func TestMatchesAnyTriggerSuffices(t *testing.T) {
	evaluator := NewEvaluator(testLogger())
	workflow := &models.Workflow{
		ID: "wf-1",
		Triggers: []models.WorkflowTrigger{
			{Type: models.TriggerConsumption, FilterFilename: "*invoice*"}, // misses
			{Type: models.TriggerConsumption, FilterFilename: "*simple*"},  // hits
		},
	}

	result, err := evaluator.Matches(context.Background(), consumptionDoc(), workflow, models.TriggerConsumption)
	require.NoError(t, err)
	assert.True(t, result.Matched)
}

func TestMatchesReasonReportsFirstFailingFilter(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	// Both filename and tags would fail; the reason names the filename
	// filter because the chain stops there.
	workflow := &models.Workflow{
		ID: "wf-1",
		Triggers: []models.WorkflowTrigger{{
			Type:           models.TriggerConsumption,
			FilterFilename: "*invoice*",
			FilterHasTags:  []string{"tag-z"},
		}},
	}

	result, err := evaluator.Matches(context.Background(), consumptionDoc(), workflow, models.TriggerConsumption)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Contains(t, result.Reason, "filename")
	assert.NotContains(t, result.Reason, "tag-z")
}
