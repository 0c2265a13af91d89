package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-kivik/kivik/v4"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

type VersionRepository interface {
	Create(ctx context.Context, record *domain.VersionRecord) error
	FindByID(ctx context.Context, versionID string) (*domain.VersionRecord, error)
	List(ctx context.Context, documentID string) ([]*domain.VersionRecord, error)
	Latest(ctx context.Context, documentID string) (*domain.VersionRecord, error)
	UpdateFlags(ctx context.Context, record *domain.VersionRecord) error
	Delete(ctx context.Context, versionID string) error
}

type versionRepository struct {
	client *kivik.Client
	dbName string
}

func NewVersionRepository(client *kivik.Client, dbName string) VersionRepository {
	return &versionRepository{
		client: client,
		dbName: dbName,
	}
}

func (r *versionRepository) Create(ctx context.Context, record *domain.VersionRecord) error {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("version:%s", record.ID)
	_, err := db.Put(ctx, docID, record)
	if err != nil {
		return fmt.Errorf("failed to create version record: %w", err)
	}

	return nil
}

func (r *versionRepository) FindByID(ctx context.Context, versionID string) (*domain.VersionRecord, error) {
	db := r.client.DB(r.dbName)

	docID := fmt.Sprintf("version:%s", versionID)
	row := db.Get(ctx, docID)

	var record domain.VersionRecord
	if err := row.ScanDoc(&record); err != nil {
		return nil, fmt.Errorf("failed to find version record: %w", err)
	}

	return &record, nil
}

func (r *versionRepository) List(ctx context.Context, documentID string) ([]*domain.VersionRecord, error) {
	db := r.client.DB(r.dbName)

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"document_id": documentID,
			"version":     map[string]interface{}{"$exists": true},
		},
	}

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list version records: %w", err)
	}
	defer rows.Close()

	var records []*domain.VersionRecord
	for rows.Next() {
		var record domain.VersionRecord
		if err := rows.ScanDoc(&record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

// Latest returns the newest record by version order, nil when the document
// has no versions yet.
func (r *versionRepository) Latest(ctx context.Context, documentID string) (*domain.VersionRecord, error) {
	records, err := r.List(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	latest := records[0]
	for _, record := range records[1:] {
		if record.Version.Compare(latest.Version) > 0 {
			latest = record
		}
	}
	return latest, nil
}

// UpdateFlags persists the release/selection flags. Record content is
// immutable and deliberately not written back.
func (r *versionRepository) UpdateFlags(ctx context.Context, record *domain.VersionRecord) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("version:%s", record.ID)

	var existingDoc map[string]interface{}
	row := db.Get(ctx, docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		return fmt.Errorf("failed to fetch version record for update: %w", err)
	}

	existingDoc["is_released"] = record.IsReleased
	existingDoc["is_selected"] = record.IsSelected
	existingDoc["updated_at"] = time.Now()

	_, err := db.Put(ctx, docID, existingDoc)
	if err != nil {
		return fmt.Errorf("failed to update version record: %w", err)
	}

	return nil
}

func (r *versionRepository) Delete(ctx context.Context, versionID string) error {
	db := r.client.DB(r.dbName)
	docID := fmt.Sprintf("version:%s", versionID)

	var existingDoc map[string]interface{}
	row := db.Get(ctx, docID)
	if err := row.ScanDoc(&existingDoc); err != nil {
		return fmt.Errorf("failed to fetch version record for delete: %w", err)
	}

	existingDoc["_deleted"] = true
	if _, err := db.Put(ctx, docID, existingDoc); err != nil {
		return fmt.Errorf("failed to delete version record: %w", err)
	}

	return nil
}
