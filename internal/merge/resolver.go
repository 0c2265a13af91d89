// Package merge compares a current document against an imported one,
// classifies every structural difference against the conflict registry,
// auto-resolves where preferences allow and produces a merged document
// plus the list of conflicts. Merging is purely functional: persistence is
// the caller's responsibility and an abandoned merge leaves no trace.
package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/AJ-AI23/verjson-sub008/internal/diff"
	"github.com/AJ-AI23/verjson-sub008/internal/domain"
	"github.com/AJ-AI23/verjson-sub008/internal/registry"
)

// Preferences maps registry preference keys to resolution values chosen by
// the user, overriding catalogue defaults.
type Preferences map[string]string

// Options carries the timestamps prefer-newer arbitrates with.
type Options struct {
	CurrentUpdatedAt time.Time
	ImportedAt       time.Time
}

// Result is the outcome of a partial merge. Patches holds the ops that
// were applied to current to build Merged.
type Result struct {
	Merged    *domain.Value     `json:"merged_document"`
	Conflicts []domain.Conflict `json:"conflicts"`
	Patches   []domain.DiffOp   `json:"patches"`
}

// Unresolved returns the conflicts still awaiting an explicit decision.
func (r Result) Unresolved() []domain.Conflict {
	var pending []domain.Conflict
	for _, c := range r.Conflicts {
		if !c.Resolved {
			pending = append(pending, c)
		}
	}
	return pending
}

type Resolver struct {
	registry *registry.Registry
}

func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{registry: reg}
}

// MergePartial merges imported into current. Differences whose registry
// entry allows unattended resolution and whose preference supplies a
// deterministic strategy are applied and marked resolved; everything else
// stays unresolved and defaults to the current value in the provisional
// merged document, so user data is never silently dropped.
func (r *Resolver) MergePartial(current, imported *domain.Value, prefs Preferences, opts Options) Result {
	result, _ := r.merge(current, imported, prefs, opts, nil, false)
	return result
}

// MergeWithDecisions finalizes a merge: explicit decisions (keyed by
// conflict path) settle the conflicts that required manual review. It
// fails when any conflict is left undecided or a decision is not a valid
// resolution for the conflict's type.
func (r *Resolver) MergeWithDecisions(current, imported *domain.Value, prefs Preferences, opts Options, decisions map[string]domain.Resolution) (Result, error) {
	return r.merge(current, imported, prefs, opts, decisions, true)
}

func (r *Resolver) merge(current, imported *domain.Value, prefs Preferences, opts Options, decisions map[string]domain.Resolution, strict bool) (Result, error) {
	current = current.Normalize()
	imported = imported.Normalize()

	ops := diff.Diff(current, imported)

	var applied []domain.DiffOp
	conflicts := make([]domain.Conflict, 0, len(ops))
	var undecided []string

	for _, op := range ops {
		conflictType := classifyConflict(op)
		def := r.registry.Definition(conflictType)

		conflict := domain.Conflict{
			Type:                conflictType,
			Path:                op.Path,
			CurrentValue:        op.OldValue,
			ImportedValue:       op.Value,
			Severity:            def.Severity,
			Description:         r.registry.FormatDescription(conflictType, placeholderValues(op)),
			SuggestedResolution: suggestedResolution(def),
		}

		resolution := r.preferredResolution(def, prefs)

		if decision, ok := decisionFor(decisions, op.Path); ok {
			if !r.registry.IsResolutionValid(conflictType, decision) {
				return Result{}, fmt.Errorf("resolution %q is not valid for conflict type %q at %s", decision, conflictType, op.Path)
			}
			conflict.Resolved = true
			conflict.ChosenResolution = decision
			if r.takesImported(decision, opts) {
				applied = append(applied, op)
			}
		} else if !def.ManualReview && resolution != "" && r.registry.IsResolutionValid(conflictType, resolution) {
			conflict.Resolved = true
			conflict.ChosenResolution = resolution
			if r.takesImported(resolution, opts) {
				applied = append(applied, op)
			}
		} else {
			// Unresolved: provisional merge keeps the current value.
			undecided = append(undecided, op.Path.String())
		}

		conflicts = append(conflicts, conflict)
	}

	if strict && len(undecided) > 0 {
		sort.Strings(undecided)
		return Result{}, &UnresolvedError{Paths: undecided}
	}

	merged, err := diff.Apply(current, applied)
	if err != nil {
		// Ops came straight from Diff against current; replay cannot fail
		// for them. Guard anyway rather than returning a broken document.
		merged = current.Clone()
	}

	return Result{Merged: merged, Conflicts: conflicts, Patches: applied}, nil
}

// UnresolvedError reports the conflict paths that block a finalized merge.
type UnresolvedError struct {
	Paths []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%d conflicts require explicit resolution", len(e.Paths))
}

func decisionFor(decisions map[string]domain.Resolution, path domain.Path) (domain.Resolution, bool) {
	if decisions == nil {
		return "", false
	}
	decision, ok := decisions[path.String()]
	return decision, ok
}

// classifyConflict maps one diff op onto a registry conflict type. A path
// present only in the imported document is new content (the user imported
// to receive it); one op per path means a local addition colliding with an
// imported one already surfaced as a replace, so divergent-edit takes
// precedence naturally.
func classifyConflict(op domain.DiffOp) domain.ConflictType {
	switch op.Op {
	case domain.OpAdd, domain.OpCopy:
		return domain.ConflictNewContent
	case domain.OpRemove:
		return domain.ConflictRemovedInUse
	case domain.OpReplace:
		if op.OldValue.Normalize().Kind != op.Value.Normalize().Kind {
			return domain.ConflictTypeMismatch
		}
		return domain.ConflictDivergentEdit
	default: // move
		return domain.ConflictDivergentEdit
	}
}

// preferredResolution picks the first configured preference for the
// definition, falling back to catalogue defaults.
func (r *Resolver) preferredResolution(def registry.ConflictDefinition, prefs Preferences) domain.Resolution {
	for _, key := range def.Preferences {
		if val, ok := prefs[key]; ok && val != "" {
			return domain.Resolution(val)
		}
		if val := r.registry.PreferenceDefault(key); val != "" {
			return domain.Resolution(val)
		}
	}
	return ""
}

// takesImported reports whether a resolution applies the imported side's
// op. merge-both keeps both where possible; for a single op that means
// accepting the imported change on top of the current document.
func (r *Resolver) takesImported(res domain.Resolution, opts Options) bool {
	switch res {
	case domain.ResolutionPreferImported, domain.ResolutionMergeBoth:
		return true
	case domain.ResolutionPreferNewer:
		if opts.CurrentUpdatedAt.IsZero() || opts.ImportedAt.IsZero() {
			// Without timestamps the import, which the user just
			// initiated, counts as newer.
			return true
		}
		return opts.ImportedAt.After(opts.CurrentUpdatedAt)
	}
	return false
}

func suggestedResolution(def registry.ConflictDefinition) domain.Resolution {
	if len(def.Resolutions) == 0 {
		return ""
	}
	return def.Resolutions[0]
}

func placeholderValues(op domain.DiffOp) map[string]string {
	values := map[string]string{
		"path": op.Path.String(),
	}
	if op.OldValue != nil {
		values["current"] = op.OldValue.Serialize()
		values["currentType"] = op.OldValue.Kind.String()
	}
	if op.Value != nil {
		values["imported"] = op.Value.Serialize()
		values["importedType"] = op.Value.Kind.String()
	}
	return values
}
