package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kivik/kivik/v4"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

type DocumentRepository interface {
	Get(ctx context.Context, documentID string) (*domain.DocumentRecord, error)
	Save(ctx context.Context, doc *domain.DocumentRecord) error
}

type documentRepository struct {
	client *kivik.Client
	dbName string
}

func NewDocumentRepository(client *kivik.Client, dbName string) DocumentRepository {
	return &documentRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *documentRepository) Get(ctx context.Context, documentID string) (*domain.DocumentRecord, error) {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("document:%s", documentID)
	row := db.Get(ctx, docID)

	var doc domain.DocumentRecord
	if err := row.ScanDoc(&doc); err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// Save upserts the current document content, carrying the CouchDB revision
// forward when the document already exists.
func (r *documentRepository) Save(ctx context.Context, doc *domain.DocumentRecord) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("document:%s", doc.ID)

	payload := map[string]interface{}{
		"id":         doc.ID,
		"content":    doc.Content,
		"updated_at": time.Now(),
	}

	var existingDoc map[string]interface{}
	row := db.Get(ctx, docID)
	if err := row.ScanDoc(&existingDoc); err == nil {
		payload["_rev"] = existingDoc["_rev"]
	}

	if _, err := db.Put(ctx, docID, payload); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	return nil
}
