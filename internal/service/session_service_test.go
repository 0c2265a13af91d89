package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
	"github.com/AJ-AI23/verjson-sub008/internal/session"
)

func newSessionFixture(t *testing.T) (*SessionService, *mockVersionRepo, *mockDocumentRepo) {
	t.Helper()

	versionRepo := newMockVersionRepo()
	docRepo := newMockDocumentRepo()
	versions := NewVersionService(versionRepo, docRepo, nil, zerolog.Nop())

	cache, err := session.NewCache(4, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	reconciler := session.NewReconciler(versions, cache)

	svc := NewSessionService(cache, reconciler, docRepo, versions, zerolog.Nop())
	return svc, versionRepo, docRepo
}

func TestSessionService_OpenHydratesFromDocument(t *testing.T) {
	svc, _, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{
		ID:      "doc1",
		Content: json.RawMessage(`{"a":1}`),
	}

	state, err := svc.Open(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if state.Content != `{"a":1}` {
		t.Errorf("expected hydrated content, got %q", state.Content)
	}
	if state.Dirty {
		t.Error("fresh session must be clean")
	}
	if got := state.OpenedAt.String(); got != "0.0.0" {
		t.Errorf("expected opened-at 0.0.0, got %s", got)
	}
}

func TestSessionService_EditWithoutSession(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	_, err := svc.Edit("doc1", &EditRequest{Action: "insert", Index: 0, Text: "x"})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSessionService_EditMarksDirtyAndReturnsOps(t *testing.T) {
	svc, _, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{}`)}

	if _, err := svc.Open(context.Background(), "doc1"); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	ops, err := svc.Edit("doc1", &EditRequest{Action: "insert", Index: 1, Text: `"a":1`})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ops) != 5 {
		t.Errorf("expected 5 ops, got %d", len(ops))
	}

	state, err := svc.Open(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if !state.Dirty {
		t.Error("expected session to be dirty after edit")
	}
	if state.Content != `{"a":1}` {
		t.Errorf("unexpected content %q", state.Content)
	}
}

func TestSessionService_CommitRejectsInvalidJSON(t *testing.T) {
	svc, _, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{}`)}

	if _, err := svc.Open(context.Background(), "doc1"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := svc.Edit("doc1", &EditRequest{Action: "insert", Index: 0, Text: "not json"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	_, err := svc.Commit(context.Background(), "doc1", "user1", "broken")

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(validationErr.Message, "JSON") {
		t.Errorf("unexpected message %q", validationErr.Message)
	}
}

func TestSessionService_CommitRejectsNoChanges(t *testing.T) {
	svc, _, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{"a":1}`)}

	if _, err := svc.Open(context.Background(), "doc1"); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	_, err := svc.Commit(context.Background(), "doc1", "user1", "no-op")

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSessionService_CommitCreatesVersionAndSavesDocument(t *testing.T) {
	svc, versionRepo, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{"a":1}`)}

	if _, err := svc.Open(context.Background(), "doc1"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	// {"a":1} -> {"a":1,"b":2}
	if _, err := svc.Edit("doc1", &EditRequest{Action: "insert", Index: 6, Text: `,"b":2`}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	record, err := svc.Commit(context.Background(), "doc1", "user1", "add b")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := record.Version.String(); got != "0.1.0" {
		t.Errorf("expected version 0.1.0, got %s", got)
	}
	if record.Tier != domain.TierMinor {
		t.Errorf("expected minor tier, got %s", record.Tier)
	}
	if len(record.Patches) != 1 {
		t.Errorf("expected 1 patch, got %d", len(record.Patches))
	}
	if len(versionRepo.records) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(versionRepo.records))
	}

	saved, err := docRepo.Get(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("document missing after commit: %v", err)
	}
	if string(saved.Content) != `{"a":1,"b":2}` {
		t.Errorf("unexpected saved content %s", saved.Content)
	}

	// The session's base advances so the next commit diffs against it.
	check, err := svc.CheckStale(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("stale check failed: %v", err)
	}
	if check.Stale {
		t.Error("session should not be stale right after its own commit")
	}
}

func TestSessionService_CommitWithStaleBase(t *testing.T) {
	svc, versionRepo, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{"a":1}`)}

	if _, err := svc.Open(context.Background(), "doc1"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := svc.Edit("doc1", &EditRequest{Action: "insert", Index: 6, Text: `,"b":2`}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	// Another collaborator commits while the session is open.
	versionRepo.records["other"] = &domain.VersionRecord{
		ID:         "other",
		DocumentID: "doc1",
		Version:    domain.Version{Minor: 1},
	}

	_, err := svc.Commit(context.Background(), "doc1", "user1", "late")

	var staleErr *StaleBaseVersionError
	if !errors.As(err, &staleErr) {
		t.Fatalf("expected StaleBaseVersionError, got %v", err)
	}

	check, err := svc.CheckStale(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("stale check failed: %v", err)
	}
	if !check.Stale {
		t.Error("expected session to be reported stale")
	}
	if got := check.Latest.String(); got != "0.1.0" {
		t.Errorf("expected latest 0.1.0, got %s", got)
	}
}

func TestSessionService_ResolveStaleStartFresh(t *testing.T) {
	svc, versionRepo, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{"a":1}`)}

	if _, err := svc.Open(context.Background(), "doc1"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := svc.Edit("doc1", &EditRequest{Action: "insert", Index: 0, Text: "junk"}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	versionRepo.records["other"] = &domain.VersionRecord{
		ID:         "other",
		DocumentID: "doc1",
		Version:    domain.Version{Minor: 1},
	}
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{"a":2}`)}

	state, err := svc.ResolveStale(context.Background(), "doc1", session.DecisionStartFresh)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if state.Content != `{"a":2}` {
		t.Errorf("expected fresh content, got %q", state.Content)
	}
	if state.Dirty {
		t.Error("fresh session must be clean")
	}
	if got := state.OpenedAt.String(); got != "0.1.0" {
		t.Errorf("expected opened-at 0.1.0, got %s", got)
	}
}

func TestSessionService_ResolveStaleRejectsUnknownDecision(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	_, err := svc.ResolveStale(context.Background(), "doc1", session.Decision("flip-coin"))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSessionService_Discard(t *testing.T) {
	svc, _, docRepo := newSessionFixture(t)
	docRepo.docs["doc1"] = &domain.DocumentRecord{ID: "doc1", Content: json.RawMessage(`{}`)}

	if _, err := svc.Open(context.Background(), "doc1"); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	svc.Discard("doc1")

	if _, err := svc.CheckStale(context.Background(), "doc1"); err == nil {
		t.Error("expected error for discarded session")
	}
}
