// Package registry holds the static catalogue of conflict types, their
// severities, valid resolutions and user-configurable preferences. The
// catalogue is read-only after load; lookups fail safe so the merge
// resolver never breaks on registry drift.
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

//go:embed conflicts.json
var embeddedCatalogue []byte

// ConflictDefinition describes one conflict type from the catalogue.
type ConflictDefinition struct {
	ConflictType        string              `json:"conflictType"`
	Severity            domain.Severity     `json:"severity"`
	Resolutions         []domain.Resolution `json:"resolutions"`
	ManualReview        bool                `json:"manualReview"`
	Preferences         []string            `json:"preferences"`
	DescriptionTemplate string              `json:"descriptionTemplate"`
}

// PreferenceDefinition describes one user-configurable preference key.
type PreferenceDefinition struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Default string `json:"default"`
}

type catalogueFile struct {
	Version     string                          `json:"version"`
	Conflicts   map[string]ConflictDefinition   `json:"conflicts"`
	Preferences map[string]PreferenceDefinition `json:"preferences"`
}

// Registry is the loaded catalogue.
type Registry struct {
	version     string
	conflicts   map[string]ConflictDefinition
	preferences map[string]PreferenceDefinition
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry built from the embedded
// catalogue, constructed once.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := parse(embeddedCatalogue)
		if err != nil {
			// The embedded catalogue ships with the binary; a parse
			// failure means a broken build, not a runtime condition.
			panic(fmt.Sprintf("registry: embedded catalogue invalid: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Load reads a catalogue from disk, falling back to the embedded default
// when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conflict catalogue: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Registry, error) {
	var file catalogueFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse conflict catalogue: %w", err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("conflict catalogue missing version")
	}
	reg := &Registry{
		version:     file.Version,
		conflicts:   make(map[string]ConflictDefinition, len(file.Conflicts)),
		preferences: file.Preferences,
	}
	for name, def := range file.Conflicts {
		if def.ConflictType == "" {
			def.ConflictType = name
		}
		reg.conflicts[name] = def
	}
	if reg.preferences == nil {
		reg.preferences = make(map[string]PreferenceDefinition)
	}
	return reg, nil
}

func (r *Registry) Version() string { return r.version }

// Definition looks up a conflict type. Unknown types return a conservative
// default (medium severity, manual review, no resolutions) instead of an
// error.
func (r *Registry) Definition(t domain.ConflictType) ConflictDefinition {
	if def, ok := r.conflicts[string(t)]; ok {
		return def
	}
	return ConflictDefinition{
		ConflictType: string(t),
		Severity:     domain.SeverityMedium,
		ManualReview: true,
	}
}

// ValidResolutions returns the ordered resolution set for a conflict type.
func (r *Registry) ValidResolutions(t domain.ConflictType) []domain.Resolution {
	return r.Definition(t).Resolutions
}

// IsResolutionValid reports whether a resolution is allowed for the type.
func (r *Registry) IsResolutionValid(t domain.ConflictType, res domain.Resolution) bool {
	for _, candidate := range r.Definition(t).Resolutions {
		if candidate == res {
			return true
		}
	}
	return false
}

// PreferenceDefault returns the configured default for a preference key,
// empty when the key is unknown or has no default.
func (r *Registry) PreferenceDefault(key string) string {
	return r.preferences[key].Default
}

// FormatDescription substitutes named {placeholders} in the conflict
// type's description template. Placeholders without a value are left
// verbatim; this never fails.
func (r *Registry) FormatDescription(t domain.ConflictType, values map[string]string) string {
	template := r.Definition(t).DescriptionTemplate
	if template == "" {
		return string(t)
	}

	var out strings.Builder
	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			out.WriteString(template)
			break
		}
		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			out.WriteString(template)
			break
		}
		end += open
		name := template[open+1 : end]
		out.WriteString(template[:open])
		if val, ok := values[name]; ok {
			out.WriteString(val)
		} else {
			out.WriteString(template[open : end+1])
		}
		template = template[end+1:]
	}
	return out.String()
}
