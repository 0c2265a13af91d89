package domain

// ConflictType names the structural situations the merge resolver can
// classify a divergence into. Every type used here has an entry in the
// conflict registry.
type ConflictType string

const (
	ConflictDivergentEdit ConflictType = "divergent-edit"
	ConflictRemovedInUse  ConflictType = "removed-in-use"
	ConflictTypeMismatch  ConflictType = "type-conflict"
	ConflictNewContent    ConflictType = "new-content"
)

// Severity grades how risky an unreviewed resolution of a conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Resolution is a deterministic strategy for settling a conflict.
type Resolution string

const (
	ResolutionPreferCurrent  Resolution = "prefer-current"
	ResolutionPreferImported Resolution = "prefer-imported"
	ResolutionPreferNewer    Resolution = "prefer-newer"
	ResolutionMergeBoth      Resolution = "merge-both"
)

// Conflict is one divergent path found while merging an imported document
// into the current one. Conflicts live only for the duration of the merge
// request; the outcome is captured in the merged document.
type Conflict struct {
	Type                ConflictType `json:"type"`
	Path                Path         `json:"path"`
	CurrentValue        *Value       `json:"current_value,omitempty"`
	ImportedValue       *Value       `json:"imported_value,omitempty"`
	Severity            Severity     `json:"severity"`
	Description         string       `json:"description"`
	SuggestedResolution Resolution   `json:"suggested_resolution,omitempty"`
	Resolved            bool         `json:"resolved"`
	ChosenResolution    Resolution   `json:"chosen_resolution,omitempty"`
}
