package session

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_InsertAndDelete(t *testing.T) {
	b := NewBuffer("peer-a")

	ops := b.Insert(0, "hello")
	require.Len(t, ops, 5)
	assert.Equal(t, "hello", b.String())

	b.Insert(5, " world")
	assert.Equal(t, "hello world", b.String())

	ops = b.Delete(0, 6)
	require.Len(t, ops, 6)
	assert.Equal(t, "world", b.String())
}

func TestBuffer_InsertClampsIndex(t *testing.T) {
	b := NewBuffer("peer-a")
	b.Insert(100, "ab")
	b.Insert(-5, "x")
	assert.Equal(t, "xab", b.String())
}

func TestBuffer_DeleteOutOfRange(t *testing.T) {
	b := NewBuffer("peer-a")
	b.Insert(0, "abc")

	assert.Empty(t, b.Delete(5, 1))
	assert.Empty(t, b.Delete(0, 0))

	// Count past the end is clamped.
	ops := b.Delete(1, 10)
	assert.Len(t, ops, 2)
	assert.Equal(t, "a", b.String())
}

func TestBuffer_SetContent(t *testing.T) {
	b := NewBuffer("peer-a")
	b.Insert(0, "old")

	b.SetContent(`{"a":1}`)
	assert.Equal(t, `{"a":1}`, b.String())
}

func TestBuffer_Destroy(t *testing.T) {
	b := NewBuffer("peer-a")
	b.Insert(0, "data")
	b.Destroy()

	assert.True(t, b.Destroyed())
	assert.Empty(t, b.Insert(0, "more"))
	assert.Empty(t, b.String())
}

func TestBuffer_TwoPeersConverge(t *testing.T) {
	a := NewBuffer("peer-a")
	b := NewBuffer("peer-b")

	opsA := a.Insert(0, "abc")
	opsB := b.Insert(0, "xyz")

	for _, op := range opsA {
		b.Integrate(op)
	}
	for _, op := range opsB {
		a.Integrate(op)
	}

	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, 6, a.Len())
}

func TestBuffer_ConvergesRegardlessOfInsertOrder(t *testing.T) {
	a := NewBuffer("peer-a")
	b := NewBuffer("peer-b")

	inserts := a.Insert(0, "hello")
	deletes := a.Delete(0, 1)
	inserts = append(inserts, a.Insert(0, "H")...)

	// Inserts commute with each other; a delete is delivered after the
	// insert it targets.
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(inserts), func(i, j int) {
		inserts[i], inserts[j] = inserts[j], inserts[i]
	})

	for _, op := range inserts {
		b.Integrate(op)
	}
	for _, op := range deletes {
		b.Integrate(op)
	}

	assert.Equal(t, "Hello", a.String())
	assert.Equal(t, a.String(), b.String())
}

func TestBuffer_DuplicateDeliveryIsIdempotent(t *testing.T) {
	a := NewBuffer("peer-a")
	b := NewBuffer("peer-b")

	ops := a.Insert(0, "dup")
	for i := 0; i < 3; i++ {
		for _, op := range ops {
			b.Integrate(op)
		}
	}

	assert.Equal(t, "dup", b.String())
}

func TestBuffer_DeleteOfUnknownCharIgnored(t *testing.T) {
	a := NewBuffer("peer-a")
	b := NewBuffer("peer-b")

	a.Insert(0, "x")
	deletes := a.Delete(0, 1)

	// b never saw the insert; the delete must not break it.
	for _, op := range deletes {
		b.Integrate(op)
	}
	assert.Equal(t, "", b.String())
}

func TestBuffer_SequentialAppendsKeepShallowPositions(t *testing.T) {
	b := NewBuffer("peer-a")
	for i := 0; i < 200; i++ {
		b.Insert(b.Len(), "a")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.chars {
		assert.Len(t, ch.Position, 1)
	}
}
