package session

import (
	"context"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

// LatestVersioner is the slice of the version ledger the reconciler needs.
type LatestVersioner interface {
	Latest(ctx context.Context, documentID string) (*domain.VersionRecord, error)
}

// Check is the outcome of a staleness probe.
type Check struct {
	Stale  bool           `json:"stale"`
	Latest domain.Version `json:"latest_version"`
}

// Decision is the user's answer to a staleness warning.
type Decision string

const (
	// DecisionStartFresh discards the session and re-hydrates from the
	// latest ledger content.
	DecisionStartFresh Decision = "start-fresh"
	// DecisionKeepEditing dismisses the warning; the next commit is
	// diffed against the then-current latest version and may produce
	// conflicts that route through the merge resolver.
	DecisionKeepEditing Decision = "keep-editing"
)

// Reconciler compares the version a session was opened against with the
// ledger's latest and drives the keep-edits / start-fresh choice.
type Reconciler struct {
	ledger LatestVersioner
	cache  *Cache
}

func NewReconciler(ledger LatestVersioner, cache *Cache) *Reconciler {
	return &Reconciler{ledger: ledger, cache: cache}
}

// CheckStale reports whether openedAt is behind the ledger's latest
// version. Safe to call repeatedly for duplicate notifications: the probe
// has no side effects.
func (r *Reconciler) CheckStale(ctx context.Context, documentID string, openedAt domain.Version) (Check, error) {
	latest, err := r.ledger.Latest(ctx, documentID)
	if err != nil {
		return Check{}, err
	}
	if latest == nil {
		return Check{Stale: false, Latest: openedAt}, nil
	}
	return Check{
		Stale:  openedAt.Compare(latest.Version) < 0,
		Latest: latest.Version,
	}, nil
}

// Resolve applies the user's decision. start-fresh destroys the session
// and hydrates a new one from latestContent; keep-editing leaves the dirty
// buffer in charge.
func (r *Reconciler) Resolve(documentID string, decision Decision, latestContent string, latest domain.Version) *Session {
	if decision == DecisionStartFresh {
		r.cache.Clear(documentID)
		return r.cache.GetOrCreate(documentID, latestContent, latest)
	}
	sess, _ := r.cache.Get(documentID)
	return sess
}
