// Package diff computes ordered structural change operations between two
// JSON-like documents and replays them. Output is deterministic: object
// keys are visited in canonical sort order and equal subtrees never appear
// in the result.
package diff

import (
	"sort"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

// Diff calculates the operations needed to transform a into b. An empty
// result means the documents are deeply equal. Nil documents compare as
// empty objects.
func Diff(a, b *domain.Value) []domain.DiffOp {
	ops := diffValues(a.Normalize(), b.Normalize(), domain.Path{})
	return coalesceMoves(ops)
}

func diffValues(a, b *domain.Value, path domain.Path) []domain.DiffOp {
	if a.Kind != b.Kind {
		return []domain.DiffOp{{
			Op:       domain.OpReplace,
			Path:     path,
			Value:    b.Clone(),
			OldValue: a.Clone(),
		}}
	}

	switch a.Kind {
	case domain.KindObject:
		return diffObjects(a, b, path)
	case domain.KindArray:
		return diffArrays(a, b, path)
	default:
		if !a.Equal(b) {
			return []domain.DiffOp{{
				Op:       domain.OpReplace,
				Path:     path,
				Value:    b.Clone(),
				OldValue: a.Clone(),
			}}
		}
		return nil
	}
}

func diffObjects(a, b *domain.Value, path domain.Path) []domain.DiffOp {
	var ops []domain.DiffOp

	for _, key := range unionKeys(a, b) {
		av, inA := a.Obj[key]
		bv, inB := b.Obj[key]
		childPath := path.Child(domain.KeySegment(key))

		switch {
		case inA && !inB:
			ops = append(ops, domain.DiffOp{
				Op:       domain.OpRemove,
				Path:     childPath,
				OldValue: av.Clone(),
			})
		case !inA && inB:
			ops = append(ops, domain.DiffOp{
				Op:    domain.OpAdd,
				Path:  childPath,
				Value: bv.Clone(),
			})
		default:
			ops = append(ops, diffValues(av, bv, childPath)...)
		}
	}

	return ops
}

// diffArrays aligns elements by index. Removals of the old tail are emitted
// in descending index order so sequential replay never shifts an index out
// from under a later removal; additions follow in ascending order.
func diffArrays(a, b *domain.Value, path domain.Path) []domain.DiffOp {
	var ops []domain.DiffOp

	common := len(a.Arr)
	if len(b.Arr) < common {
		common = len(b.Arr)
	}

	for i := 0; i < common; i++ {
		ops = append(ops, diffValues(a.Arr[i], b.Arr[i], path.Child(domain.IndexSegment(i)))...)
	}

	for i := len(a.Arr) - 1; i >= common; i-- {
		ops = append(ops, domain.DiffOp{
			Op:       domain.OpRemove,
			Path:     path.Child(domain.IndexSegment(i)),
			OldValue: a.Arr[i].Clone(),
		})
	}

	for i := common; i < len(b.Arr); i++ {
		ops = append(ops, domain.DiffOp{
			Op:    domain.OpAdd,
			Path:  path.Child(domain.IndexSegment(i)),
			Value: b.Arr[i].Clone(),
		})
	}

	return ops
}

func unionKeys(a, b *domain.Value) []string {
	keys := a.SortedKeys()
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range b.SortedKeys() {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	// Union may append unsorted keys from b; resort for determinism.
	if len(keys) > len(seen) {
		sort.Strings(keys)
	}
	return keys
}

// coalesceMoves rewrites an unambiguous remove/add pair carrying the same
// value into a single move op. Only pure object paths qualify: ops on
// object members commute, so dropping the remove and rewriting the add in
// place preserves replay. Array paths keep the remove+add form because
// index shifting makes reordering ambiguous.
func coalesceMoves(ops []domain.DiffOp) []domain.DiffOp {
	matchedRemove := make(map[int]int) // add index -> remove index
	usedRemove := make(map[int]bool)

	for i, add := range ops {
		if add.Op != domain.OpAdd || add.Path.HasIndex() {
			continue
		}
		match := -1
		for j, rm := range ops {
			if rm.Op != domain.OpRemove || rm.Path.HasIndex() || usedRemove[j] {
				continue
			}
			if rm.OldValue.Equal(add.Value) {
				if match >= 0 {
					match = -1 // ambiguous, keep remove+add
					break
				}
				match = j
			}
		}
		if match >= 0 {
			matchedRemove[i] = match
			usedRemove[match] = true
		}
	}

	if len(matchedRemove) == 0 {
		return ops
	}

	out := make([]domain.DiffOp, 0, len(ops))
	for i, op := range ops {
		if usedRemove[i] && op.Op == domain.OpRemove {
			continue
		}
		if rm, ok := matchedRemove[i]; ok {
			out = append(out, domain.DiffOp{
				Op:    domain.OpMove,
				Path:  op.Path,
				From:  ops[rm].Path,
				Value: op.Value,
			})
			continue
		}
		out = append(out, op)
	}
	return out
}
