package service

import (
	"context"
	"errors"
	"sort"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

type mockVersionRepo struct {
	records     map[string]*domain.VersionRecord
	createErr   error
	createFails int
	createCalls int
}

func newMockVersionRepo() *mockVersionRepo {
	return &mockVersionRepo{
		records: make(map[string]*domain.VersionRecord),
	}
}

func (m *mockVersionRepo) Create(ctx context.Context, record *domain.VersionRecord) error {
	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	if m.createFails > 0 {
		m.createFails--
		return errors.New("transient write failure")
	}
	clone := *record
	m.records[record.ID] = &clone
	return nil
}

func (m *mockVersionRepo) FindByID(ctx context.Context, versionID string) (*domain.VersionRecord, error) {
	if record, exists := m.records[versionID]; exists {
		clone := *record
		return &clone, nil
	}
	return nil, errors.New("version not found")
}

func (m *mockVersionRepo) List(ctx context.Context, documentID string) ([]*domain.VersionRecord, error) {
	var records []*domain.VersionRecord
	for _, record := range m.records {
		if record.DocumentID == documentID {
			clone := *record
			records = append(records, &clone)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (m *mockVersionRepo) Latest(ctx context.Context, documentID string) (*domain.VersionRecord, error) {
	records, err := m.List(ctx, documentID)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	latest := records[0]
	for _, record := range records[1:] {
		if record.Version.Compare(latest.Version) > 0 {
			latest = record
		}
	}
	return latest, nil
}

func (m *mockVersionRepo) UpdateFlags(ctx context.Context, record *domain.VersionRecord) error {
	if _, exists := m.records[record.ID]; !exists {
		return errors.New("version not found")
	}
	clone := *record
	m.records[record.ID] = &clone
	return nil
}

func (m *mockVersionRepo) Delete(ctx context.Context, versionID string) error {
	if _, exists := m.records[versionID]; !exists {
		return errors.New("version not found")
	}
	delete(m.records, versionID)
	return nil
}

type mockDocumentRepo struct {
	docs      map[string]*domain.DocumentRecord
	saveErr   error
	saveCalls int
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{
		docs: make(map[string]*domain.DocumentRecord),
	}
}

func (m *mockDocumentRepo) Get(ctx context.Context, documentID string) (*domain.DocumentRecord, error) {
	if doc, exists := m.docs[documentID]; exists {
		clone := *doc
		return &clone, nil
	}
	return nil, errors.New("document not found")
}

func (m *mockDocumentRepo) Save(ctx context.Context, doc *domain.DocumentRecord) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	clone := *doc
	m.docs[doc.ID] = &clone
	return nil
}
