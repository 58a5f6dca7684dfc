package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/notify"
	"github.com/docflow/docflow/pkg/template"
)

var (
	// ErrUnknownActionType indicates an action type this engine version
	// does not know. Configuration/version skew, never swallowed.
	ErrUnknownActionType = errors.New("unknown action type")
)

// ActionError records a recoverable per-action failure (bad template,
// malformed payload). The rest of the plan still applies.
type ActionError struct {
	WorkflowID string `json:"workflow_id"`
	ActionID   string `json:"action_id"`
	Message    string `json:"message"`
}

// ChangeSet is the consolidated result of folding every matched
// workflow's actions: the staged document snapshot, the side effects to
// queue after commit, and any per-action errors.
type ChangeSet struct {
	Document      *models.Document
	Notifications []notify.Notification
	Errors        []ActionError
}

// Planner folds matched workflows' actions into one ChangeSet.
type Planner struct {
	logger   *slog.Logger
	resolver template.NameResolver
}

// NewPlanner creates an action merge planner. resolver may be nil; raw
// IDs are then used in rendered templates.
func NewPlanner(logger *slog.Logger, resolver template.NameResolver) *Planner {
	return &Planner{
		logger:   logger.With("module", "action_planner"),
		resolver: resolver,
	}
}

// removalFold accumulates removal actions across the whole event so they
// are netted out after every assignment, category by category.
type removalFold struct {
	revertTitle bool

	correspondents    map[string]struct{}
	allCorrespondents bool
	documentTypes     map[string]struct{}
	allDocumentTypes  bool
	storagePaths      map[string]struct{}
	allStoragePaths   bool
	owners            map[string]struct{}
	allOwners         bool

	tags    map[string]struct{}
	allTags bool

	viewUsers      map[string]struct{}
	viewGroups     map[string]struct{}
	changeUsers    map[string]struct{}
	changeGroups   map[string]struct{}
	allPermissions bool

	customFields    map[string]struct{}
	allCustomFields bool
}

func newRemovalFold() *removalFold {
	return &removalFold{
		correspondents: make(map[string]struct{}),
		documentTypes:  make(map[string]struct{}),
		storagePaths:   make(map[string]struct{}),
		owners:         make(map[string]struct{}),
		tags:           make(map[string]struct{}),
		viewUsers:      make(map[string]struct{}),
		viewGroups:     make(map[string]struct{}),
		changeUsers:    make(map[string]struct{}),
		changeGroups:   make(map[string]struct{}),
		customFields:   make(map[string]struct{}),
	}
}

// Plan folds the matched workflows, in the order given, into one
// ChangeSet drawn from the document's current state. Assignments fold
// first (scalars last-wins, collections union); removals net out
// afterwards per category, so they always have final say for the
// categories they target.
func (p *Planner) Plan(ctx context.Context, doc *models.Document, matched []*models.Workflow) (*ChangeSet, error) {
	staged := doc.Clone()
	removals := newRemovalFold()
	changeSet := &ChangeSet{}

	templateData := template.DocumentContext(doc, p.resolver)

	for _, workflow := range matched {
		for i := range workflow.Actions {
			action := &workflow.Actions[i]

			switch action.Type {
			case models.ActionAssignment:
				p.foldAssignment(ctx, staged, doc, workflow, action, templateData, changeSet)
			case models.ActionRemoval:
				foldRemoval(removals, action.Removal)
			case models.ActionEmail:
				p.foldEmail(workflow, action, templateData, changeSet)
			case models.ActionWebhook:
				p.foldWebhook(workflow, action, templateData, changeSet)
			default:
				return nil, fmt.Errorf("%w: %q in workflow %s", ErrUnknownActionType, action.Type, workflow.ID)
			}
		}
	}

	applyRemovals(staged, doc, removals)

	changeSet.Document = staged

	return changeSet, nil
}

func (p *Planner) foldAssignment(ctx context.Context, staged, original *models.Document, workflow *models.Workflow, action *models.WorkflowAction, templateData map[string]string, changeSet *ChangeSet) {
	assignment := action.Assignment
	if assignment == nil {
		return
	}

	if assignment.Title != nil {
		rendered, err := template.Render(*assignment.Title, templateData)
		if err != nil {
			// Bad title template keeps the current title; the rest of the
			// assignment still applies.
			p.logger.ErrorContext(ctx, "Title template failed",
				"workflow_id", workflow.ID,
				"action_id", action.ID,
				"template", *assignment.Title,
				"error", err)
			changeSet.Errors = append(changeSet.Errors, ActionError{
				WorkflowID: workflow.ID,
				ActionID:   action.ID,
				Message:    fmt.Sprintf("title template: %v", err),
			})
		} else {
			staged.Title = rendered
		}
	}

	if assignment.CorrespondentID != nil {
		staged.CorrespondentID = copyRef(assignment.CorrespondentID)
	}

	if assignment.DocumentTypeID != nil {
		staged.DocumentTypeID = copyRef(assignment.DocumentTypeID)
	}

	if assignment.StoragePathID != nil {
		staged.StoragePathID = copyRef(assignment.StoragePathID)
	}

	if assignment.OwnerID != nil {
		staged.OwnerID = copyRef(assignment.OwnerID)
	}

	staged.TagIDs = unionInto(staged.TagIDs, assignment.TagIDs)
	staged.Permissions.ViewUserIDs = unionInto(staged.Permissions.ViewUserIDs, assignment.ViewUserIDs)
	staged.Permissions.ViewGroupIDs = unionInto(staged.Permissions.ViewGroupIDs, assignment.ViewGroupIDs)
	staged.Permissions.ChangeUserIDs = unionInto(staged.Permissions.ChangeUserIDs, assignment.ChangeUserIDs)
	staged.Permissions.ChangeGroupIDs = unionInto(staged.Permissions.ChangeGroupIDs, assignment.ChangeGroupIDs)

	for _, cf := range assignment.CustomFields {
		// Idempotent attach: a field already on the document keeps its
		// current value.
		if _, ok := staged.CustomField(cf.FieldID); ok {
			continue
		}

		staged.CustomFields = append(staged.CustomFields, models.CustomFieldInstance{
			FieldID: cf.FieldID,
			Value:   cf.Value,
		})
	}
}

func foldRemoval(fold *removalFold, removal *models.RemovalAction) {
	if removal == nil {
		return
	}

	fold.revertTitle = fold.revertTitle || removal.RemoveTitle

	fold.allCorrespondents = fold.allCorrespondents || removal.RemoveAllCorrespondents
	addAll(fold.correspondents, removal.CorrespondentIDs)

	fold.allDocumentTypes = fold.allDocumentTypes || removal.RemoveAllDocumentTypes
	addAll(fold.documentTypes, removal.DocumentTypeIDs)

	fold.allStoragePaths = fold.allStoragePaths || removal.RemoveAllStoragePaths
	addAll(fold.storagePaths, removal.StoragePathIDs)

	fold.allOwners = fold.allOwners || removal.RemoveAllOwners
	addAll(fold.owners, removal.OwnerIDs)

	fold.allTags = fold.allTags || removal.RemoveAllTags
	addAll(fold.tags, removal.TagIDs)

	fold.allPermissions = fold.allPermissions || removal.RemoveAllPermissions
	addAll(fold.viewUsers, removal.ViewUserIDs)
	addAll(fold.viewGroups, removal.ViewGroupIDs)
	addAll(fold.changeUsers, removal.ChangeUserIDs)
	addAll(fold.changeGroups, removal.ChangeGroupIDs)

	fold.allCustomFields = fold.allCustomFields || removal.RemoveAllCustomFields
	addAll(fold.customFields, removal.CustomFieldIDs)
}

// applyRemovals nets the accumulated removals out of the staged snapshot.
// A remove-all flag clears the whole category, superseding any pending
// additions from the same event.
func applyRemovals(staged, original *models.Document, fold *removalFold) {
	if fold.revertTitle {
		staged.Title = original.Title
	}

	staged.CorrespondentID = removeScalar(staged.CorrespondentID, fold.correspondents, fold.allCorrespondents)
	staged.DocumentTypeID = removeScalar(staged.DocumentTypeID, fold.documentTypes, fold.allDocumentTypes)
	staged.StoragePathID = removeScalar(staged.StoragePathID, fold.storagePaths, fold.allStoragePaths)
	staged.OwnerID = removeScalar(staged.OwnerID, fold.owners, fold.allOwners)

	if fold.allTags {
		staged.TagIDs = nil
	} else {
		staged.TagIDs = subtract(staged.TagIDs, fold.tags)
	}

	if fold.allPermissions {
		staged.Permissions = models.Permissions{}
	} else {
		staged.Permissions.ViewUserIDs = subtract(staged.Permissions.ViewUserIDs, fold.viewUsers)
		staged.Permissions.ViewGroupIDs = subtract(staged.Permissions.ViewGroupIDs, fold.viewGroups)
		staged.Permissions.ChangeUserIDs = subtract(staged.Permissions.ChangeUserIDs, fold.changeUsers)
		staged.Permissions.ChangeGroupIDs = subtract(staged.Permissions.ChangeGroupIDs, fold.changeGroups)
	}

	if fold.allCustomFields {
		staged.CustomFields = nil
	} else if len(fold.customFields) > 0 {
		kept := staged.CustomFields[:0]

		for _, cf := range staged.CustomFields {
			if _, drop := fold.customFields[cf.FieldID]; !drop {
				kept = append(kept, cf)
			}
		}

		staged.CustomFields = kept
	}
}

func (p *Planner) foldEmail(workflow *models.Workflow, action *models.WorkflowAction, templateData map[string]string, changeSet *ChangeSet) {
	email := action.Email
	if email == nil {
		return
	}

	subject, err := template.Render(email.Subject, templateData)
	if err == nil {
		var body string

		body, err = template.Render(email.Body, templateData)
		if err == nil {
			recipients := splitRecipients(email.To)

			changeSet.Notifications = append(changeSet.Notifications, notify.Notification{
				WorkflowID: workflow.ID,
				Kind:       notify.KindEmail,
				Email: &notify.EmailMessage{
					To:             recipients,
					Subject:        subject,
					Body:           body,
					AttachDocument: email.IncludeDocument,
				},
			})

			return
		}
	}

	changeSet.Errors = append(changeSet.Errors, ActionError{
		WorkflowID: workflow.ID,
		ActionID:   action.ID,
		Message:    fmt.Sprintf("email template: %v", err),
	})
}

func (p *Planner) foldWebhook(workflow *models.Workflow, action *models.WorkflowAction, templateData map[string]string, changeSet *ChangeSet) {
	webhook := action.Webhook
	if webhook == nil {
		return
	}

	message, err := renderWebhook(webhook, templateData)
	if err != nil {
		changeSet.Errors = append(changeSet.Errors, ActionError{
			WorkflowID: workflow.ID,
			ActionID:   action.ID,
			Message:    fmt.Sprintf("webhook template: %v", err),
		})

		return
	}

	changeSet.Notifications = append(changeSet.Notifications, notify.Notification{
		WorkflowID: workflow.ID,
		Kind:       notify.KindWebhook,
		Webhook:    message,
	})
}

func renderWebhook(webhook *models.WebhookAction, templateData map[string]string) (*notify.WebhookMessage, error) {
	url, err := template.Render(webhook.URL, templateData)
	if err != nil {
		return nil, err
	}

	body, err := template.Render(webhook.Body, templateData)
	if err != nil {
		return nil, err
	}

	params, err := renderMap(webhook.Params, templateData)
	if err != nil {
		return nil, err
	}

	headers, err := renderMap(webhook.Headers, templateData)
	if err != nil {
		return nil, err
	}

	return &notify.WebhookMessage{
		URL:            url,
		Headers:        headers,
		Body:           body,
		Params:         params,
		UseParams:      webhook.UseParams,
		AsJSON:         webhook.AsJSON,
		AttachDocument: webhook.IncludeDocument,
	}, nil
}

func renderMap(values map[string]string, templateData map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	rendered := make(map[string]string, len(values))

	for key, value := range values {
		out, err := template.Render(value, templateData)
		if err != nil {
			return nil, err
		}

		rendered[key] = out
	}

	return rendered, nil
}

func splitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	recipients := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}

	return recipients
}

func copyRef(ref *string) *string {
	v := *ref

	return &v
}

func addAll(set map[string]struct{}, ids []string) {
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

func unionInto(dst, add []string) []string {
	for _, id := range add {
		found := false

		for _, existing := range dst {
			if existing == id {
				found = true

				break
			}
		}

		if !found {
			dst = append(dst, id)
		}
	}

	return dst
}

func subtract(ids []string, drop map[string]struct{}) []string {
	if len(drop) == 0 {
		return ids
	}

	kept := ids[:0]

	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}

	return kept
}

func removeScalar(current *string, drop map[string]struct{}, all bool) *string {
	if current == nil {
		return nil
	}

	if all {
		return nil
	}

	if _, ok := drop[*current]; ok {
		return nil
	}

	return current
}
