package service

import (
	"fmt"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

// ValidationError rejects malformed input before anything is persisted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StaleBaseVersionError is the optimistic-concurrency rejection: the
// commit's stated base version is no longer the ledger's latest. The
// client recovers by re-diffing against Latest and retrying; nothing is
// ever silently overwritten.
type StaleBaseVersionError struct {
	Stated domain.Version
	Latest domain.Version
}

func (e *StaleBaseVersionError) Error() string {
	return fmt.Sprintf("stale base version: commit was based on %s but the ledger is at %s", e.Stated, e.Latest)
}
