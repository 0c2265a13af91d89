package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/AJ-AI23/verjson-sub008/internal/diff"
	"github.com/AJ-AI23/verjson-sub008/internal/domain"
	"github.com/AJ-AI23/verjson-sub008/internal/merge"
	"github.com/AJ-AI23/verjson-sub008/internal/repository"
)

// ImportService merges an externally-imported candidate document into the
// current one. Preview is purely functional and cancellable; only Confirm
// persists anything.
type ImportService struct {
	docRepo  repository.DocumentRepository
	versions *VersionService
	resolver *merge.Resolver
	log      zerolog.Logger
}

func NewImportService(
	docRepo repository.DocumentRepository,
	versions *VersionService,
	resolver *merge.Resolver,
	log zerolog.Logger,
) *ImportService {
	return &ImportService{
		docRepo:  docRepo,
		versions: versions,
		resolver: resolver,
		log:      log,
	}
}

// Preview runs the partial merge and reports conflicts without side
// effects. Abandoning the import after a preview leaves no trace.
func (s *ImportService) Preview(ctx context.Context, documentID string, candidate json.RawMessage, prefs merge.Preferences) (*merge.Result, error) {
	imported, err := domain.ParseDocument(candidate)
	if err != nil {
		return nil, &ValidationError{Message: "imported content is not valid JSON"}
	}

	current, opts, err := s.currentState(ctx, documentID)
	if err != nil {
		return nil, err
	}

	result := s.resolver.MergePartial(current, imported, prefs, opts)
	return &result, nil
}

// Confirm finalizes the import: every conflict that required review must
// carry a decision, the merged document becomes the current one and a new
// version record is appended. Unresolved conflicts block confirmation.
func (s *ImportService) Confirm(ctx context.Context, documentID, authorID string, candidate json.RawMessage, prefs merge.Preferences, decisions map[string]domain.Resolution, description string) (*domain.VersionRecord, error) {
	imported, err := domain.ParseDocument(candidate)
	if err != nil {
		return nil, &ValidationError{Message: "imported content is not valid JSON"}
	}

	current, opts, err := s.currentState(ctx, documentID)
	if err != nil {
		return nil, err
	}

	result, err := s.resolver.MergeWithDecisions(current, imported, prefs, opts, decisions)
	if err != nil {
		return nil, err
	}

	if len(result.Patches) == 0 {
		return nil, &ValidationError{Message: "import produced no changes"}
	}

	baseVersion, err := s.versions.LatestVersion(ctx, documentID)
	if err != nil {
		return nil, err
	}

	mergedRaw := json.RawMessage(result.Merged.Serialize())

	record, err := s.versions.Create(ctx, documentID, &domain.CreateVersionRequest{
		AuthorID:     authorID,
		BaseVersion:  baseVersion.String(),
		Description:  description,
		Tier:         diff.Classify(current, result.Patches),
		Patches:      result.Patches,
		FullDocument: mergedRaw,
	})
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.Save(ctx, &domain.DocumentRecord{
		ID:      documentID,
		Content: mergedRaw,
	}); err != nil {
		// The version record is already persisted; the document store is
		// recoverable from it on the next read.
		s.log.Error().Err(err).Str("document_id", documentID).Msg("failed to save merged document")
		return record, err
	}

	return record, nil
}

// currentState loads the current document, treating a missing one as an
// empty object so first-time imports merge cleanly.
func (s *ImportService) currentState(ctx context.Context, documentID string) (*domain.Value, merge.Options, error) {
	opts := merge.Options{ImportedAt: time.Now()}

	doc, err := s.docRepo.Get(ctx, documentID)
	if err != nil {
		return domain.Object(), opts, nil
	}

	current, err := domain.ParseDocument(doc.Content)
	if err != nil {
		return domain.Object(), opts, nil
	}

	opts.CurrentUpdatedAt = doc.UpdatedAt
	return current, opts, nil
}
