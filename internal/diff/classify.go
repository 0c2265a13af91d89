package diff

import (
	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

// Constraint keywords whose replacement can narrow the valid input space of
// an existing consumer. Upper bounds break when decreased, lower bounds
// when increased.
var upperBoundKeys = map[string]bool{
	"maximum":          true,
	"exclusiveMaximum": true,
	"maxLength":        true,
	"maxItems":         true,
	"maxProperties":    true,
}

var lowerBoundKeys = map[string]bool{
	"minimum":          true,
	"exclusiveMinimum": true,
	"minLength":        true,
	"minItems":         true,
	"minProperties":    true,
}

// Classify determines the version tier of a change set against the base
// document it was computed from. Ties resolve to the highest applicable
// tier; an empty diff classifies as patch (no-op commits are rejected
// upstream, not here).
func Classify(base *domain.Value, ops []domain.DiffOp) domain.Tier {
	tier := domain.TierPatch
	for _, op := range ops {
		tier = tier.Max(classifyOp(base.Normalize(), op))
		if tier == domain.TierMajor {
			return tier
		}
	}
	return tier
}

func classifyOp(base *domain.Value, op domain.DiffOp) domain.Tier {
	switch op.Op {
	case domain.OpAdd:
		return domain.TierMinor

	case domain.OpCopy:
		// Copies introduce new content, same weight as an add.
		return domain.TierMinor

	case domain.OpRemove:
		// Dropping an enum member narrows the accepted value set.
		if isEnumMember(op.Path) {
			return domain.TierMajor
		}
		if isRequiredProperty(base, op.Path) {
			return domain.TierMajor
		}
		return domain.TierPatch

	case domain.OpMove:
		// Relocating a required field removes it from where consumers
		// expect it.
		if isRequiredProperty(base, op.From) {
			return domain.TierMajor
		}
		return domain.TierPatch

	case domain.OpReplace:
		return classifyReplace(op)
	}
	return domain.TierPatch
}

func classifyReplace(op domain.DiffOp) domain.Tier {
	oldKind := op.OldValue.Normalize().Kind
	newKind := op.Value.Normalize().Kind
	if oldKind != newKind {
		return domain.TierMajor
	}

	// Rewriting an enum member drops the value it used to accept.
	if isEnumMember(op.Path) {
		return domain.TierMajor
	}

	_, last, ok := op.Path.Parent()
	if !ok || last.IsIndex {
		return domain.TierPatch
	}

	// Changing a declared type breaks every consumer of the field.
	if last.Key == "type" {
		return domain.TierMajor
	}

	if upperBoundKeys[last.Key] || lowerBoundKeys[last.Key] || last.Key == "enum" {
		if narrowsConstraint(last.Key, op.OldValue, op.Value) {
			return domain.TierMajor
		}
		return domain.TierMinor
	}

	return domain.TierPatch
}

// isEnumMember reports whether path addresses an element of an "enum"
// array.
func isEnumMember(path domain.Path) bool {
	parent, last, ok := path.Parent()
	if !ok || !last.IsIndex {
		return false
	}
	_, owner, ok := parent.Parent()
	return ok && !owner.IsIndex && owner.Key == "enum"
}

// narrowsConstraint reports whether replacing a constraint value shrinks
// the set of inputs the previous constraint accepted.
func narrowsConstraint(key string, oldVal, newVal *domain.Value) bool {
	if key == "enum" {
		return narrowsEnum(oldVal, newVal)
	}
	if oldVal == nil || newVal == nil ||
		oldVal.Kind != domain.KindNumber || newVal.Kind != domain.KindNumber {
		return false
	}
	if upperBoundKeys[key] {
		return newVal.Num < oldVal.Num
	}
	return newVal.Num > oldVal.Num
}

// narrowsEnum reports whether the new enum drops any previously valid
// member.
func narrowsEnum(oldVal, newVal *domain.Value) bool {
	if oldVal == nil || newVal == nil ||
		oldVal.Kind != domain.KindArray || newVal.Kind != domain.KindArray {
		return false
	}
	for _, member := range oldVal.Arr {
		found := false
		for _, candidate := range newVal.Arr {
			if member.Equal(candidate) {
				found = true
				break
			}
		}
		if !found {
			return true
		}
	}
	return false
}

// isRequiredProperty reports whether the property at path is named in a
// sibling "required" array, either directly on the parent object or, for
// JSON Schema shapes, on the schema object owning the "properties" map.
func isRequiredProperty(base *domain.Value, path domain.Path) bool {
	parentPath, last, ok := path.Parent()
	if !ok || last.IsIndex {
		return false
	}

	if requiredLists(base, parentPath, last.Key) {
		return true
	}

	// properties/<name> with required on the grandparent schema object.
	if grandPath, parentSeg, ok := parentPath.Parent(); ok &&
		!parentSeg.IsIndex && parentSeg.Key == "properties" {
		return requiredLists(base, grandPath, last.Key)
	}

	return false
}

func requiredLists(base *domain.Value, ownerPath domain.Path, name string) bool {
	required := base.Lookup(ownerPath.Child(domain.KeySegment("required")))
	if required == nil || required.Kind != domain.KindArray {
		return false
	}
	for _, entry := range required.Arr {
		if entry.Kind == domain.KindString && entry.Str == name {
			return true
		}
	}
	return false
}
