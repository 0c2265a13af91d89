package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

func newVersionService(repo *mockVersionRepo, docRepo *mockDocumentRepo) *VersionService {
	return NewVersionService(repo, docRepo, nil, zerolog.Nop())
}

func addPatch(key string, val float64) []domain.DiffOp {
	return []domain.DiffOp{{
		Op:    domain.OpAdd,
		Path:  domain.Path{domain.KeySegment(key)},
		Value: domain.Number(val),
	}}
}

func TestVersionService_CreateFirstVersion(t *testing.T) {
	repo := newMockVersionRepo()
	service := newVersionService(repo, newMockDocumentRepo())

	record, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.0.0",
		Description:  "initial",
		Tier:         domain.TierMinor,
		Patches:      addPatch("a", 1),
		FullDocument: json.RawMessage(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if record.ID == "" {
		t.Error("expected record ID to be generated")
	}
	if got := record.Version.String(); got != "0.1.0" {
		t.Errorf("expected version 0.1.0, got %s", got)
	}
	if record.DocumentID != "doc1" {
		t.Errorf("expected document ID doc1, got %s", record.DocumentID)
	}
	if !record.HasContent() {
		t.Error("expected record to carry content")
	}
	if repo.createCalls != 1 {
		t.Errorf("expected 1 create call, got %d", repo.createCalls)
	}
}

func TestVersionService_CreateRejectsEmptyContent(t *testing.T) {
	service := newVersionService(newMockVersionRepo(), newMockDocumentRepo())

	_, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:    "user1",
		BaseVersion: "0.0.0",
		Tier:        domain.TierPatch,
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestVersionService_CreateRejectsInvalidSnapshot(t *testing.T) {
	service := newVersionService(newMockVersionRepo(), newMockDocumentRepo())

	_, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.0.0",
		Tier:         domain.TierPatch,
		FullDocument: json.RawMessage(`{broken`),
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestVersionService_CreateRejectsInvalidBaseVersion(t *testing.T) {
	service := newVersionService(newMockVersionRepo(), newMockDocumentRepo())

	_, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "not-a-version",
		Tier:         domain.TierPatch,
		FullDocument: json.RawMessage(`{}`),
	})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestVersionService_StaleBaseVersionRejected(t *testing.T) {
	repo := newMockVersionRepo()
	service := newVersionService(repo, newMockDocumentRepo())

	_, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.0.0",
		Tier:         domain.TierMinor,
		FullDocument: json.RawMessage(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	// A second commit computed against the same base must be rejected.
	_, err = service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user2",
		BaseVersion:  "0.0.0",
		Tier:         domain.TierMinor,
		FullDocument: json.RawMessage(`{"a":2}`),
	})

	var staleErr *StaleBaseVersionError
	if !errors.As(err, &staleErr) {
		t.Fatalf("expected StaleBaseVersionError, got %v", err)
	}
	if got := staleErr.Latest.String(); got != "0.1.0" {
		t.Errorf("expected latest 0.1.0 in error, got %s", got)
	}
	if got := staleErr.Stated.String(); got != "0.0.0" {
		t.Errorf("expected stated 0.0.0 in error, got %s", got)
	}
	if len(repo.records) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(repo.records))
	}
}

func TestVersionService_MajorBumpResetsLowerTiers(t *testing.T) {
	repo := newMockVersionRepo()
	service := newVersionService(repo, newMockDocumentRepo())

	_, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.0.0",
		Tier:         domain.TierMinor,
		FullDocument: json.RawMessage(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	record, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.1.0",
		Tier:         domain.TierMajor,
		FullDocument: json.RawMessage(`{"b":2}`),
	})
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}

	if got := record.Version.String(); got != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", got)
	}
}

func TestVersionService_TierInferredFromPatches(t *testing.T) {
	repo := newMockVersionRepo()
	docRepo := newMockDocumentRepo()
	docRepo.docs["doc1"] = &domain.DocumentRecord{
		ID:      "doc1",
		Content: json.RawMessage(`{"a":1}`),
	}
	service := newVersionService(repo, docRepo)

	// No tier stated: an added property classifies as minor.
	record, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:    "user1",
		BaseVersion: "0.0.0",
		Patches:     addPatch("b", 2),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if record.Tier != domain.TierMinor {
		t.Errorf("expected inferred tier minor, got %s", record.Tier)
	}
	if got := record.Version.String(); got != "0.1.0" {
		t.Errorf("expected version 0.1.0, got %s", got)
	}
}

func TestVersionService_CreateRetriesTransientFailure(t *testing.T) {
	repo := newMockVersionRepo()
	repo.createFails = 1
	service := newVersionService(repo, newMockDocumentRepo())

	record, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.0.0",
		Tier:         domain.TierPatch,
		FullDocument: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	if repo.createCalls != 2 {
		t.Errorf("expected 2 create attempts, got %d", repo.createCalls)
	}
	if record == nil || record.Version.String() != "0.0.1" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestVersionService_UpdateFlags(t *testing.T) {
	repo := newMockVersionRepo()
	service := newVersionService(repo, newMockDocumentRepo())

	record, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.0.0",
		Tier:         domain.TierMinor,
		FullDocument: json.RawMessage(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	released := true
	updated, err := service.UpdateFlags(context.Background(), record.ID, &domain.UpdateVersionFlagsRequest{
		IsReleased: &released,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !updated.IsReleased {
		t.Error("expected record to be released")
	}
	if updated.IsSelected {
		t.Error("selection flag should be untouched")
	}
	if got := updated.Version.String(); got != "0.1.0" {
		t.Errorf("version must not change on flag update, got %s", got)
	}
}

func TestVersionService_Delete(t *testing.T) {
	repo := newMockVersionRepo()
	service := newVersionService(repo, newMockDocumentRepo())

	record, err := service.Create(context.Background(), "doc1", &domain.CreateVersionRequest{
		AuthorID:     "user1",
		BaseVersion:  "0.0.0",
		Tier:         domain.TierPatch,
		FullDocument: json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := service.Delete(context.Background(), record.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := service.Get(context.Background(), record.ID); err == nil {
		t.Error("expected record to be gone")
	}
}

func TestVersionService_LatestVersionEmptyLedger(t *testing.T) {
	service := newVersionService(newMockVersionRepo(), newMockDocumentRepo())

	latest, err := service.LatestVersion(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := latest.String(); got != "0.0.0" {
		t.Errorf("expected zero version, got %s", got)
	}
}
