package models

import "time"

// DocumentSource identifies where a document entered the system.
type DocumentSource string

const (
	SourceConsumeFolder DocumentSource = "consume_folder"
	SourceAPIUpload     DocumentSource = "api_upload"
	SourceMailFetch     DocumentSource = "mail_fetch"
)

// CustomFieldInstance is one custom-field value attached to a document.
type CustomFieldInstance struct {
	FieldID string `json:"field_id" validate:"required"`
	Value   string `json:"value"`
}

// Permissions is the document's ACL: who may view and who may change it.
type Permissions struct {
	ViewUserIDs    []string `json:"view_user_ids"`
	ViewGroupIDs   []string `json:"view_group_ids"`
	ChangeUserIDs  []string `json:"change_user_ids"`
	ChangeGroupIDs []string `json:"change_group_ids"`
}

// Document is the engine's snapshot of a stored document. The workflow
// engine reads every field and mutates metadata, permissions and custom
// fields through a ChangeSet; file content is owned by the consumption
// pipeline.
type Document struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	OriginalFilename string         `json:"original_filename"`
	StoragePathName  string         `json:"storage_path_name"`
	Source           DocumentSource `json:"source"`
	MailRuleID       *string        `json:"mail_rule_id,omitempty"`
	Content          string         `json:"content"`

	CreatedAt  time.Time `json:"created_at"`
	AddedAt    time.Time `json:"added_at"`
	ModifiedAt time.Time `json:"modified_at"`

	CorrespondentID *string `json:"correspondent_id,omitempty"`
	DocumentTypeID  *string `json:"document_type_id,omitempty"`
	StoragePathID   *string `json:"storage_path_id,omitempty"`
	OwnerID         *string `json:"owner_id,omitempty"`

	TagIDs       []string              `json:"tag_ids"`
	Permissions  Permissions           `json:"permissions"`
	CustomFields []CustomFieldInstance `json:"custom_fields"`
}

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(tagID string) bool {
	for _, id := range d.TagIDs {
		if id == tagID {
			return true
		}
	}

	return false
}

// CustomField returns the instance for fieldID, if attached.
func (d *Document) CustomField(fieldID string) (CustomFieldInstance, bool) {
	for _, cf := range d.CustomFields {
		if cf.FieldID == fieldID {
			return cf, true
		}
	}

	return CustomFieldInstance{}, false
}

// Clone returns a deep copy of the document so planners can stage changes
// without touching the caller's snapshot.
func (d *Document) Clone() *Document {
	clone := *d

	clone.TagIDs = append([]string(nil), d.TagIDs...)
	clone.CustomFields = append([]CustomFieldInstance(nil), d.CustomFields...)
	clone.Permissions = Permissions{
		ViewUserIDs:    append([]string(nil), d.Permissions.ViewUserIDs...),
		ViewGroupIDs:   append([]string(nil), d.Permissions.ViewGroupIDs...),
		ChangeUserIDs:  append([]string(nil), d.Permissions.ChangeUserIDs...),
		ChangeGroupIDs: append([]string(nil), d.Permissions.ChangeGroupIDs...),
	}

	if d.MailRuleID != nil {
		v := *d.MailRuleID
		clone.MailRuleID = &v
	}

	clone.CorrespondentID = cloneRef(d.CorrespondentID)
	clone.DocumentTypeID = cloneRef(d.DocumentTypeID)
	clone.StoragePathID = cloneRef(d.StoragePathID)
	clone.OwnerID = cloneRef(d.OwnerID)

	return &clone
}

func cloneRef(ref *string) *string {
	if ref == nil {
		return nil
	}

	v := *ref

	return &v
}
