package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AJ-AI23/verjson-sub008/internal/diff"
	"github.com/AJ-AI23/verjson-sub008/internal/domain"
	"github.com/AJ-AI23/verjson-sub008/internal/repository"
	"github.com/AJ-AI23/verjson-sub008/internal/websocket"
)

// VersionService is the version ledger: ordered version records per
// document with optimistic concurrency on creation and realtime
// notification after every successful mutation.
type VersionService struct {
	repo      repository.VersionRepository
	docRepo   repository.DocumentRepository
	wsManager *websocket.Manager
	log       zerolog.Logger

	// Serializes commits within this process; cross-process writers are
	// caught by the base-version validation.
	commitMu sync.Mutex
}

func NewVersionService(
	repo repository.VersionRepository,
	docRepo repository.DocumentRepository,
	wsManager *websocket.Manager,
	log zerolog.Logger,
) *VersionService {
	return &VersionService{
		repo:      repo,
		docRepo:   docRepo,
		wsManager: wsManager,
		log:       log,
	}
}

// Create appends a version record. The request's stated base version must
// match the ledger's current latest, otherwise the commit is rejected with
// StaleBaseVersionError and the caller re-diffs against latest.
func (s *VersionService) Create(ctx context.Context, documentID string, req *domain.CreateVersionRequest) (*domain.VersionRecord, error) {
	if len(req.Patches) == 0 && len(req.FullDocument) == 0 {
		return nil, &ValidationError{Message: "a version requires patches or a full document snapshot"}
	}
	if len(req.FullDocument) > 0 && !json.Valid(req.FullDocument) {
		return nil, &ValidationError{Message: "full document snapshot is not valid JSON"}
	}

	base, err := domain.ParseVersion(req.BaseVersion)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var latestVersion domain.Version
	latest, err := s.repo.Latest(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		latestVersion = latest.Version
	}

	if base.Compare(latestVersion) != 0 {
		return nil, &StaleBaseVersionError{Stated: base, Latest: latestVersion}
	}

	tier := req.Tier
	if !tier.Valid() {
		tier = s.classifyAgainstCurrent(ctx, documentID, req.Patches)
	}

	now := time.Now()
	record := &domain.VersionRecord{
		ID:           uuid.New().String(),
		DocumentID:   documentID,
		AuthorID:     req.AuthorID,
		Version:      latestVersion.Bump(tier),
		Description:  req.Description,
		Tier:         tier,
		Patches:      req.Patches,
		FullDocument: req.FullDocument,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.persist(ctx, record); err != nil {
		return nil, err
	}

	s.broadcast(websocket.TypeVersionCreated, record)
	return record, nil
}

func (s *VersionService) List(ctx context.Context, documentID string) ([]*domain.VersionRecord, error) {
	return s.repo.List(ctx, documentID)
}

func (s *VersionService) Get(ctx context.Context, versionID string) (*domain.VersionRecord, error) {
	return s.repo.FindByID(ctx, versionID)
}

// LatestVersion returns the ledger's current latest version for a
// document, zero when the document has no versions yet.
func (s *VersionService) LatestVersion(ctx context.Context, documentID string) (domain.Version, error) {
	latest, err := s.repo.Latest(ctx, documentID)
	if err != nil {
		return domain.Version{}, err
	}
	if latest == nil {
		return domain.Version{}, nil
	}
	return latest.Version, nil
}

// Latest exposes the full latest record for the staleness reconciler.
func (s *VersionService) Latest(ctx context.Context, documentID string) (*domain.VersionRecord, error) {
	return s.repo.Latest(ctx, documentID)
}

// UpdateFlags mutates the release/selection flags, the only fields a
// record allows to change after creation.
func (s *VersionService) UpdateFlags(ctx context.Context, versionID string, req *domain.UpdateVersionFlagsRequest) (*domain.VersionRecord, error) {
	record, err := s.repo.FindByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if req.IsReleased != nil {
		record.IsReleased = *req.IsReleased
	}
	if req.IsSelected != nil {
		record.IsSelected = *req.IsSelected
	}
	record.UpdatedAt = time.Now()

	if err := s.repo.UpdateFlags(ctx, record); err != nil {
		return nil, err
	}

	s.broadcast(websocket.TypeVersionUpdated, record)
	return record, nil
}

func (s *VersionService) Delete(ctx context.Context, versionID string) error {
	record, err := s.repo.FindByID(ctx, versionID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, versionID); err != nil {
		return err
	}

	s.broadcast(websocket.TypeVersionDeleted, record)
	return nil
}

// persist writes the record with bounded retries for transient backend
// failures. Delivery to listeners only happens after the write succeeds.
func (s *VersionService) persist(ctx context.Context, record *domain.VersionRecord) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		return s.repo.Create(ctx, record)
	}, policy)
}

func (s *VersionService) classifyAgainstCurrent(ctx context.Context, documentID string, patches []domain.DiffOp) domain.Tier {
	if len(patches) == 0 || s.docRepo == nil {
		return domain.TierPatch
	}
	current := domain.Object()
	if doc, err := s.docRepo.Get(ctx, documentID); err == nil {
		if parsed, err := domain.ParseDocument(doc.Content); err == nil {
			current = parsed
		}
	}
	return diff.Classify(current, patches)
}

// broadcast notifies document subscribers after a successful mutation.
// Delivery is at-least-once; consumers re-fetch and must tolerate
// duplicates.
func (s *VersionService) broadcast(event websocket.MessageType, record *domain.VersionRecord) {
	if s.wsManager == nil {
		return
	}

	msg, err := websocket.NewMessage(event, &websocket.VersionEventPayload{
		DocumentID: record.DocumentID,
		VersionID:  record.ID,
		Version:    record.Version.String(),
		Tier:       string(record.Tier),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build version event")
		return
	}

	if err := s.wsManager.BroadcastToDocument(record.DocumentID, msg, ""); err != nil {
		s.log.Error().Err(err).Str("document_id", record.DocumentID).Msg("failed to broadcast version event")
	}
}
