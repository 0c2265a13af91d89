package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/AJ-AI23/verjson-sub008/internal/diff"
	"github.com/AJ-AI23/verjson-sub008/internal/domain"
	"github.com/AJ-AI23/verjson-sub008/internal/repository"
	"github.com/AJ-AI23/verjson-sub008/internal/session"
)

// SessionService binds the collaborative session cache, the document
// store and the version ledger into the open / edit / commit lifecycle.
type SessionService struct {
	cache      *session.Cache
	reconciler *session.Reconciler
	docRepo    repository.DocumentRepository
	versions   *VersionService
	log        zerolog.Logger
}

func NewSessionService(
	cache *session.Cache,
	reconciler *session.Reconciler,
	docRepo repository.DocumentRepository,
	versions *VersionService,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cache:      cache,
		reconciler: reconciler,
		docRepo:    docRepo,
		versions:   versions,
		log:        log,
	}
}

// SessionState is what a caller needs to render an open session.
type SessionState struct {
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	OpenedAt   domain.Version `json:"opened_at_version"`
	Dirty      bool           `json:"dirty"`
}

// EditRequest is one local buffer mutation.
type EditRequest struct {
	Action string `json:"action" validate:"required,oneof=insert delete"`
	Index  int    `json:"index" validate:"min=0"`
	Text   string `json:"text,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// Open hydrates (or returns) the session for a document. A clean session
// picks up newer authoritative content; a dirty one keeps its edits.
func (s *SessionService) Open(ctx context.Context, documentID string) (*SessionState, error) {
	content := ""
	if doc, err := s.docRepo.Get(ctx, documentID); err == nil {
		content = string(doc.Content)
	}

	latest, err := s.versions.LatestVersion(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sess := s.cache.GetOrCreate(documentID, content, latest)
	return s.state(sess), nil
}

// Edit applies a local mutation and returns the replication ops.
func (s *SessionService) Edit(documentID string, req *EditRequest) ([]session.Op, error) {
	sess, ok := s.cache.Get(documentID)
	if !ok {
		return nil, &ValidationError{Message: "no open session for document"}
	}

	switch req.Action {
	case "insert":
		return sess.Insert(req.Index, req.Text), nil
	case "delete":
		return sess.Delete(req.Index, req.Count), nil
	}
	return nil, &ValidationError{Message: "unknown edit action"}
}

// Integrate applies a remote collaborator's buffer op to the local
// session, if one is open. Missing sessions are fine: the peer that owns
// none has nothing to converge.
func (s *SessionService) Integrate(documentID string, op session.Op) {
	if sess, ok := s.cache.Get(documentID); ok {
		sess.Integrate(op)
	}
}

// Commit turns the session buffer into a new version record. The commit
// states the session's opened-at version as its base, so a session that
// went stale is rejected with StaleBaseVersionError and the caller routes
// the content through the merge resolver instead.
func (s *SessionService) Commit(ctx context.Context, documentID, authorID, description string) (*domain.VersionRecord, error) {
	sess, ok := s.cache.Get(documentID)
	if !ok {
		return nil, &ValidationError{Message: "no open session for document"}
	}

	content := sess.Content()
	next, err := domain.ParseDocument([]byte(content))
	if err != nil {
		return nil, &ValidationError{Message: "session buffer is not a valid JSON document"}
	}

	current := domain.Object()
	if doc, err := s.docRepo.Get(ctx, documentID); err == nil {
		if parsed, err := domain.ParseDocument(doc.Content); err == nil {
			current = parsed
		}
	}

	ops := diff.Diff(current, next)
	if len(ops) == 0 {
		return nil, &ValidationError{Message: "no changes to commit"}
	}

	record, err := s.versions.Create(ctx, documentID, &domain.CreateVersionRequest{
		AuthorID:     authorID,
		BaseVersion:  sess.OpenedAt().String(),
		Description:  description,
		Tier:         diff.Classify(current, ops),
		Patches:      ops,
		FullDocument: json.RawMessage(content),
	})
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.Save(ctx, &domain.DocumentRecord{
		ID:      documentID,
		Content: json.RawMessage(content),
	}); err != nil {
		s.log.Error().Err(err).Str("document_id", documentID).Msg("failed to save committed document")
		return record, err
	}

	// The session stays dirty, but its base moves forward so the
	// staleness check reflects the commit it just made.
	sess.SetOpenedAt(record.Version)

	return record, nil
}

// CheckStale compares the session's base version with the ledger's
// latest.
func (s *SessionService) CheckStale(ctx context.Context, documentID string) (session.Check, error) {
	sess, ok := s.cache.Get(documentID)
	if !ok {
		return session.Check{}, &ValidationError{Message: "no open session for document"}
	}
	return s.reconciler.CheckStale(ctx, documentID, sess.OpenedAt())
}

// ResolveStale applies the user's start-fresh / keep-editing decision.
func (s *SessionService) ResolveStale(ctx context.Context, documentID string, decision session.Decision) (*SessionState, error) {
	if decision != session.DecisionStartFresh && decision != session.DecisionKeepEditing {
		return nil, &ValidationError{Message: "decision must be start-fresh or keep-editing"}
	}

	content := ""
	if doc, err := s.docRepo.Get(ctx, documentID); err == nil {
		content = string(doc.Content)
	}
	latest, err := s.versions.LatestVersion(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sess := s.reconciler.Resolve(documentID, decision, content, latest)
	if sess == nil {
		return nil, &ValidationError{Message: "no open session for document"}
	}
	return s.state(sess), nil
}

// Discard drops the session and its buffer.
func (s *SessionService) Discard(documentID string) {
	s.cache.Clear(documentID)
}

func (s *SessionService) state(sess *session.Session) *SessionState {
	return &SessionState{
		DocumentID: sess.DocumentID,
		Content:    sess.Content(),
		OpenedAt:   sess.OpenedAt(),
		Dirty:      sess.Dirty(),
	}
}
