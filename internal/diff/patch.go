package diff

import (
	"fmt"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

// Apply replays an ordered diff against a document and returns the result.
// The input document is never mutated. Apply(a, Diff(a, b)) reproduces b.
func Apply(doc *domain.Value, ops []domain.DiffOp) (*domain.Value, error) {
	out := doc.Normalize().Clone()
	var err error
	for i, op := range ops {
		out, err = applyOp(out, op)
		if err != nil {
			return nil, fmt.Errorf("op %d (%s %s): %w", i, op.Op, op.Path, err)
		}
	}
	return out, nil
}

func applyOp(root *domain.Value, op domain.DiffOp) (*domain.Value, error) {
	switch op.Op {
	case domain.OpAdd:
		return insertAt(root, op.Path, op.Value.Clone())
	case domain.OpReplace:
		return replaceAt(root, op.Path, op.Value.Clone())
	case domain.OpRemove:
		return removeAt(root, op.Path)
	case domain.OpMove:
		moved := root.Lookup(op.From)
		if moved == nil {
			return nil, fmt.Errorf("move source %s not found", op.From)
		}
		moved = moved.Clone()
		root, err := removeAt(root, op.From)
		if err != nil {
			return nil, err
		}
		return insertAt(root, op.Path, moved)
	case domain.OpCopy:
		copied := root.Lookup(op.From)
		if copied == nil {
			return nil, fmt.Errorf("copy source %s not found", op.From)
		}
		return insertAt(root, op.Path, copied.Clone())
	}
	return nil, fmt.Errorf("unknown op type %q", op.Op)
}

// insertAt sets an object member or splices an array element in. Inserting
// at the array length appends.
func insertAt(root *domain.Value, path domain.Path, val *domain.Value) (*domain.Value, error) {
	parentPath, last, ok := path.Parent()
	if !ok {
		return val, nil
	}
	parent := root.Lookup(parentPath)
	if parent == nil {
		return nil, fmt.Errorf("parent %s not found", parentPath)
	}
	if last.IsIndex {
		if parent.Kind != domain.KindArray {
			return nil, fmt.Errorf("%s is not an array", parentPath)
		}
		if last.Index < 0 || last.Index > len(parent.Arr) {
			return nil, fmt.Errorf("index %d out of range at %s", last.Index, parentPath)
		}
		parent.Arr = append(parent.Arr, nil)
		copy(parent.Arr[last.Index+1:], parent.Arr[last.Index:])
		parent.Arr[last.Index] = val
		return root, nil
	}
	if parent.Kind != domain.KindObject {
		return nil, fmt.Errorf("%s is not an object", parentPath)
	}
	if parent.Obj == nil {
		parent.Obj = make(map[string]*domain.Value)
	}
	parent.Obj[last.Key] = val
	return root, nil
}

func replaceAt(root *domain.Value, path domain.Path, val *domain.Value) (*domain.Value, error) {
	parentPath, last, ok := path.Parent()
	if !ok {
		return val, nil
	}
	parent := root.Lookup(parentPath)
	if parent == nil {
		return nil, fmt.Errorf("parent %s not found", parentPath)
	}
	if last.IsIndex {
		if parent.Kind != domain.KindArray || last.Index < 0 || last.Index >= len(parent.Arr) {
			return nil, fmt.Errorf("no element %d at %s", last.Index, parentPath)
		}
		parent.Arr[last.Index] = val
		return root, nil
	}
	if parent.Kind != domain.KindObject {
		return nil, fmt.Errorf("%s is not an object", parentPath)
	}
	if _, exists := parent.Obj[last.Key]; !exists {
		return nil, fmt.Errorf("no member %q at %s", last.Key, parentPath)
	}
	parent.Obj[last.Key] = val
	return root, nil
}

func removeAt(root *domain.Value, path domain.Path) (*domain.Value, error) {
	parentPath, last, ok := path.Parent()
	if !ok {
		return domain.Object(), nil
	}
	parent := root.Lookup(parentPath)
	if parent == nil {
		return nil, fmt.Errorf("parent %s not found", parentPath)
	}
	if last.IsIndex {
		if parent.Kind != domain.KindArray || last.Index < 0 || last.Index >= len(parent.Arr) {
			return nil, fmt.Errorf("no element %d at %s", last.Index, parentPath)
		}
		parent.Arr = append(parent.Arr[:last.Index], parent.Arr[last.Index+1:]...)
		return root, nil
	}
	if parent.Kind != domain.KindObject {
		return nil, fmt.Errorf("%s is not an object", parentPath)
	}
	if _, exists := parent.Obj[last.Key]; !exists {
		return nil, fmt.Errorf("no member %q at %s", last.Key, parentPath)
	}
	delete(parent.Obj, last.Key)
	return root, nil
}
