package file

import (
	"context"

	"github.com/docflow/docflow/pkg/models"
	"github.com/docflow/docflow/pkg/persistence"
)

func (p *Persistence) Documents(ctx context.Context) ([]*models.Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.list("documents")
	if err != nil {
		return nil, err
	}

	documents := make([]*models.Document, 0, len(ids))

	for _, id := range ids {
		document := new(models.Document)
		if err := p.read("documents", id, document, persistence.ErrDocumentNotFound); err != nil {
			return nil, err
		}

		documents = append(documents, document)
	}

	return documents, nil
}

func (p *Persistence) DocumentByID(ctx context.Context, id string) (*models.Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	document := new(models.Document)
	if err := p.read("documents", id, document, persistence.ErrDocumentNotFound); err != nil {
		return nil, err
	}

	return document, nil
}

func (p *Persistence) SaveDocument(ctx context.Context, document *models.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.write("documents", document.ID, document)
}

// UpdateDocument applies fn to the stored document under the write lock.
// The mutated document is only written back when fn succeeds; run rows
// returned by fn are recorded in the same critical section.
func (p *Persistence) UpdateDocument(ctx context.Context, id string, fn persistence.DocumentUpdate) (*models.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	document := new(models.Document)
	if err := p.read("documents", id, document, persistence.ErrDocumentNotFound); err != nil {
		return nil, err
	}

	runs, err := fn(document)
	if err != nil {
		return nil, persistence.NewStoreError("UpdateDocument", id, err)
	}

	if err := p.write("documents", id, document); err != nil {
		return nil, err
	}

	for _, run := range runs {
		if err := p.recordRun(run); err != nil {
			return nil, err
		}
	}

	return document, nil
}
