package session

import (
	"sort"
	"strings"
	"sync"
)

// positionBase is the digit range for position vectors. Wide enough that
// sequential typing rarely needs to grow a vector's depth.
const positionBase = 1 << 16

// CharID uniquely identifies a character across peers, combining a logical
// clock with the id of the peer that created it.
type CharID struct {
	Clock  int    `json:"clock"`
	PeerID string `json:"peerID"`
}

// Char is a single character in the shared sequence. Position is a dense
// vector that determines its place in the document; ties between peers
// resolve on PeerID then Clock.
type Char struct {
	ID       CharID `json:"id"`
	Value    rune   `json:"value"`
	Position []int  `json:"position"`
}

// OpAction labels a buffer operation for replication.
type OpAction string

const (
	OpActionInsert OpAction = "insert"
	OpActionDelete OpAction = "delete"
)

// Op is a replicable buffer operation. Applying the same set of ops in any
// order on any replica converges to the same content.
type Op struct {
	Action OpAction `json:"action"`
	Char   Char     `json:"char"`
}

// Buffer is a conflict-free replicated text sequence. All methods are safe
// for concurrent use; a destroyed buffer ignores further mutation.
type Buffer struct {
	mu        sync.Mutex
	peer      string
	clock     int
	chars     []Char
	destroyed bool
}

func NewBuffer(peer string) *Buffer {
	return &Buffer{peer: peer}
}

// Insert places text before the visible character at index and returns the
// generated ops for replication. Index is clamped to the document bounds.
func (b *Buffer) Insert(index int, text string) []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed || text == "" {
		return nil
	}

	if index < 0 {
		index = 0
	}
	if index > len(b.chars) {
		index = len(b.chars)
	}

	ops := make([]Op, 0, len(text))
	for _, r := range text {
		left, right := b.neighbors(index)
		b.clock++
		ch := Char{
			ID:       CharID{Clock: b.clock, PeerID: b.peer},
			Value:    r,
			Position: positionBetween(left, right),
		}
		b.chars = append(b.chars, Char{})
		copy(b.chars[index+1:], b.chars[index:])
		b.chars[index] = ch
		ops = append(ops, Op{Action: OpActionInsert, Char: ch})
		index++
	}
	return ops
}

// Delete removes count visible characters starting at index, returning the
// delete ops for replication.
func (b *Buffer) Delete(index, count int) []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed || count <= 0 || index < 0 || index >= len(b.chars) {
		return nil
	}
	if index+count > len(b.chars) {
		count = len(b.chars) - index
	}

	ops := make([]Op, 0, count)
	for _, ch := range b.chars[index : index+count] {
		ops = append(ops, Op{Action: OpActionDelete, Char: ch})
	}
	b.chars = append(b.chars[:index], b.chars[index+count:]...)
	return ops
}

// Integrate applies a remote op. Duplicate inserts and deletes of unknown
// ids are ignored, so delivery may repeat.
func (b *Buffer) Integrate(op Op) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}

	switch op.Action {
	case OpActionInsert:
		if b.indexOf(op.Char.ID) >= 0 {
			return
		}
		at := sort.Search(len(b.chars), func(i int) bool {
			return !lessChar(b.chars[i], op.Char)
		})
		b.chars = append(b.chars, Char{})
		copy(b.chars[at+1:], b.chars[at:])
		b.chars[at] = op.Char
		if op.Char.ID.Clock > b.clock {
			b.clock = op.Char.ID.Clock
		}
	case OpActionDelete:
		if at := b.indexOf(op.Char.ID); at >= 0 {
			b.chars = append(b.chars[:at], b.chars[at+1:]...)
		}
	}
}

// String renders the current visible content.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for _, ch := range b.chars {
		sb.WriteRune(ch.Value)
	}
	return sb.String()
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chars)
}

// SetContent replaces the whole sequence in one step. Used for hydration
// from authoritative content before local editing begins.
func (b *Buffer) SetContent(content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.chars = b.chars[:0]
	var left []int
	for _, r := range content {
		b.clock++
		pos := positionBetween(left, nil)
		b.chars = append(b.chars, Char{
			ID:       CharID{Clock: b.clock, PeerID: b.peer},
			Value:    r,
			Position: pos,
		})
		left = pos
	}
}

// Destroy releases the sequence. Further mutation is ignored.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
	b.chars = nil
}

func (b *Buffer) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func (b *Buffer) neighbors(index int) (left, right []int) {
	if index > 0 {
		left = b.chars[index-1].Position
	}
	if index < len(b.chars) {
		right = b.chars[index].Position
	}
	return left, right
}

func (b *Buffer) indexOf(id CharID) int {
	for i, ch := range b.chars {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// positionBetween generates a dense position strictly between left and
// right. Nil left is the document start, nil right the end.
func positionBetween(left, right []int) []int {
	// Appending at the end never needs extra depth: digits are plain ints
	// and only compare against each other.
	if right == nil {
		if left == nil {
			return []int{positionBase / 2}
		}
		return []int{left[0] + 1}
	}

	var pos []int
	for depth := 0; ; depth++ {
		lo := 0
		hi := positionBase
		if depth < len(left) {
			lo = left[depth]
		}
		if depth < len(right) {
			hi = right[depth]
		}
		if hi-lo > 1 {
			return append(pos, lo+(hi-lo)/2)
		}
		pos = append(pos, lo)
	}
}

func lessChar(a, b Char) bool {
	if c := comparePositions(a.Position, b.Position); c != 0 {
		return c < 0
	}
	if a.ID.PeerID != b.ID.PeerID {
		return a.ID.PeerID < b.ID.PeerID
	}
	return a.ID.Clock < b.ID.Clock
}

func comparePositions(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
