package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/persistence"
)

// DocumentRepository handles document snapshot storage. Scalar metadata
// lives in columns; tag, permission and custom-field collections are
// JSONB.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sql.DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

const documentColumns = `
	id
  , title
  , original_filename
  , storage_path_name
  , source
  , mail_rule_id
  , content
  , created_at
  , added_at
  , modified_at
  , correspondent_id
  , document_type_id
  , storage_path_id
  , owner_id
  , tag_ids
  , permissions
  , custom_fields
`

func (r *DocumentRepository) GetAll(ctx context.Context) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY added_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	documents := make([]*models.Document, 0)

	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		documents = append(documents, document)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	document, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrDocumentNotFound
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return document, nil
}

func (r *DocumentRepository) Save(ctx context.Context, document *models.Document) error {
	return r.upsert(ctx, r.db, document)
}

// Update locks the document row, applies fn, and writes the mutated
// snapshot plus any returned run rows in one transaction. This is the
// engine's apply boundary: concurrent dispatches for the same document
// serialize on the row lock.
func (r *DocumentRepository) Update(ctx context.Context, id string, fn persistence.DocumentUpdate, runs *RunRepository) (*models.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 FOR UPDATE`

	document, err := scanDocument(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrDocumentNotFound

			return nil, err
		}

		return nil, fmt.Errorf("failed to lock document %s: %w", id, err)
	}

	runRows, err := fn(document)
	if err != nil {
		err = persistence.NewStoreError("UpdateDocument", id, err)

		return nil, err
	}

	err = r.upsert(ctx, tx, document)
	if err != nil {
		return nil, err
	}

	for _, run := range runRows {
		err = runs.record(ctx, tx, run)
		if err != nil {
			return nil, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit document update: %w", err)
	}

	return document, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *DocumentRepository) upsert(ctx context.Context, db execer, document *models.Document) error {
	tagsJSON, err := json.Marshal(document.TagIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal tag ids: %w", err)
	}

	permissionsJSON, err := json.Marshal(document.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	customFieldsJSON, err := json.Marshal(document.CustomFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom fields: %w", err)
	}

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title
		  , original_filename = EXCLUDED.original_filename
		  , storage_path_name = EXCLUDED.storage_path_name
		  , source = EXCLUDED.source
		  , mail_rule_id = EXCLUDED.mail_rule_id
		  , content = EXCLUDED.content
		  , created_at = EXCLUDED.created_at
		  , added_at = EXCLUDED.added_at
		  , modified_at = EXCLUDED.modified_at
		  , correspondent_id = EXCLUDED.correspondent_id
		  , document_type_id = EXCLUDED.document_type_id
		  , storage_path_id = EXCLUDED.storage_path_id
		  , owner_id = EXCLUDED.owner_id
		  , tag_ids = EXCLUDED.tag_ids
		  , permissions = EXCLUDED.permissions
		  , custom_fields = EXCLUDED.custom_fields
	`

	_, err = db.ExecContext(ctx, query,
		document.ID, document.Title, document.OriginalFilename, document.StoragePathName,
		string(document.Source), document.MailRuleID, document.Content,
		document.CreatedAt, document.AddedAt, document.ModifiedAt,
		document.CorrespondentID, document.DocumentTypeID, document.StoragePathID, document.OwnerID,
		tagsJSON, permissionsJSON, customFieldsJSON)
	if err != nil {
		return persistence.NewStoreError("SaveDocument", document.ID, err)
	}

	return nil
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		document         models.Document
		source           string
		tagsJSON         []byte
		permissionsJSON  []byte
		customFieldsJSON []byte
	)

	err := row.Scan(
		&document.ID, &document.Title, &document.OriginalFilename, &document.StoragePathName,
		&source, &document.MailRuleID, &document.Content,
		&document.CreatedAt, &document.AddedAt, &document.ModifiedAt,
		&document.CorrespondentID, &document.DocumentTypeID, &document.StoragePathID, &document.OwnerID,
		&tagsJSON, &permissionsJSON, &customFieldsJSON)
	if err != nil {
		return nil, err
	}

	document.Source = models.DocumentSource(source)

	if err := json.Unmarshal(tagsJSON, &document.TagIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tag ids: %w", err)
	}

	if err := json.Unmarshal(permissionsJSON, &document.Permissions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
	}

	if err := json.Unmarshal(customFieldsJSON, &document.CustomFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom fields: %w", err)
	}

	return &document, nil
}
