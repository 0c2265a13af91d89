package domain

// OpType enumerates the structural change operations a diff can contain.
type OpType string

const (
	OpAdd     OpType = "add"
	OpRemove  OpType = "remove"
	OpReplace OpType = "replace"
	OpMove    OpType = "move"
	OpCopy    OpType = "copy"
)

// DiffOp is one structural change between two documents. Ops are ordered
// for deterministic replay but each carries enough context (old and new
// values) to be displayed on its own.
type DiffOp struct {
	Op       OpType `json:"op"`
	Path     Path   `json:"path"`
	Value    *Value `json:"value,omitempty"`
	OldValue *Value `json:"old_value,omitempty"`
	From     Path   `json:"from,omitempty"`
}
