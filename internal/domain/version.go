package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tier classifies the severity of a version bump, analogous to semantic
// versioning.
type Tier string

const (
	TierMajor Tier = "major"
	TierMinor Tier = "minor"
	TierPatch Tier = "patch"
)

func (t Tier) Valid() bool {
	return t == TierMajor || t == TierMinor || t == TierPatch
}

// rank orders tiers so classification can pick the highest applicable one.
func (t Tier) rank() int {
	switch t {
	case TierMajor:
		return 3
	case TierMinor:
		return 2
	case TierPatch:
		return 1
	}
	return 0
}

// Max returns the more severe of two tiers.
func (t Tier) Max(other Tier) Tier {
	if other.rank() > t.rank() {
		return other
	}
	return t
}

// Version is an immutable major.minor.patch triplet, totally ordered by
// lexicographic comparison.
type Version struct {
	Major uint64 `json:"major"`
	Minor uint64 `json:"minor"`
	Patch uint64 `json:"patch"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than
// other.
func (v Version) Compare(other Version) int {
	pairs := [][2]uint64{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

// Bump returns the next version for a change of the given tier.
func (v Version) Bump(tier Tier) Version {
	switch tier {
	case TierMajor:
		return Version{Major: v.Major + 1}
	case TierMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
}

// ParseVersion parses a "major.minor.patch" string.
func ParseVersion(s string) (Version, error) {
	var v Version
	n, err := fmt.Sscanf(s, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	if err != nil || n != 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

// VersionRecord is one entry of a document's version ledger. Content is
// immutable once created; only the release and selection flags may change.
// At least one of Patches or FullDocument is present.
type VersionRecord struct {
	ID           string          `json:"id"`
	DocumentID   string          `json:"document_id"`
	AuthorID     string          `json:"user_id"`
	Version      Version         `json:"version"`
	Description  string          `json:"description"`
	Tier         Tier            `json:"tier"`
	IsReleased   bool            `json:"is_released"`
	IsSelected   bool            `json:"is_selected"`
	Patches      []DiffOp        `json:"patches,omitempty"`
	FullDocument json.RawMessage `json:"full_document,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HasContent reports whether the record satisfies the patches-or-snapshot
// invariant.
func (r *VersionRecord) HasContent() bool {
	return len(r.Patches) > 0 || len(r.FullDocument) > 0
}

// CreateVersionRequest is the commit payload submitted to the ledger.
// BaseVersion is the version the change was computed against; the ledger
// rejects the commit when it is no longer the latest.
type CreateVersionRequest struct {
	AuthorID     string          `json:"author_id" validate:"required"`
	BaseVersion  string          `json:"base_version" validate:"required"`
	Description  string          `json:"description"`
	Tier         Tier            `json:"tier" validate:"omitempty,oneof=major minor patch"`
	Patches      []DiffOp        `json:"patches,omitempty"`
	FullDocument json.RawMessage `json:"full_document,omitempty"`
}

// UpdateVersionFlagsRequest carries the only mutations allowed on an
// existing record.
type UpdateVersionFlagsRequest struct {
	IsReleased *bool `json:"is_released"`
	IsSelected *bool `json:"is_selected"`
}

// DocumentRecord is the current authoritative content of a document,
// the hydration source for sessions and the "current" side of merges.
type DocumentRecord struct {
	ID        string          `json:"id"`
	Content   json.RawMessage `json:"content"`
	UpdatedAt time.Time       `json:"updated_at"`
}
