// Package session manages live collaborative editing state: one shared
// CRDT text buffer per document, bounded by an LRU cache, plus the
// staleness check against the version ledger.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

// Session is the live editing state for one document. At most one session
// per document exists process-wide; the cache owns its lifecycle.
type Session struct {
	DocumentID string

	mu         sync.Mutex
	openedAt   domain.Version
	buffer     *Buffer
	dirty      bool
	lastAccess time.Time
}

// Dirty reports whether the session has local edits. Once true it stays
// true for the session's lifetime: the cache stops re-hydrating and the
// buffer is authoritative until explicitly discarded.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// OpenedAt returns the ledger version the session's content is based on.
func (s *Session) OpenedAt() domain.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openedAt
}

// SetOpenedAt advances the session's base version, typically after the
// session's own commit lands in the ledger.
func (s *Session) SetOpenedAt(v domain.Version) {
	s.mu.Lock()
	s.openedAt = v
	s.mu.Unlock()
}

// Content returns the buffer's current text.
func (s *Session) Content() string {
	return s.buffer.String()
}

// Insert applies a local edit, flipping the session dirty. The mutation
// and the flag share one critical section so a concurrent re-hydration
// cannot slip between them and wipe the edit.
func (s *Session) Insert(index int, text string) []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.buffer.Insert(index, text)
	if len(ops) > 0 {
		s.dirty = true
	}
	return ops
}

// Delete applies a local edit, flipping the session dirty.
func (s *Session) Delete(index, count int) []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.buffer.Delete(index, count)
	if len(ops) > 0 {
		s.dirty = true
	}
	return ops
}

// Integrate applies a remote peer's op. Remote convergence is the CRDT's
// job, so this does not affect the dirty flag.
func (s *Session) Integrate(op Op) {
	s.buffer.Integrate(op)
}

// rehydrate replaces a clean session's content with newer authoritative
// content. The dirty check and the buffer rewrite hold the lock the edit
// path takes, so a local edit either lands first and blocks re-hydration
// or lands after the rewrite and survives it.
func (s *Session) rehydrate(content string, openedAt domain.Version) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty || s.buffer.String() == content {
		return
	}
	s.buffer.SetContent(content)
	s.openedAt = openedAt
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

// LastAccess returns the time of the most recent cache access.
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

func (s *Session) destroy() {
	s.buffer.Destroy()
}

// Destroyed reports whether the underlying buffer has been released.
func (s *Session) Destroyed() bool {
	return s.buffer.Destroyed()
}

const DefaultCapacity = 10

// Cache bounds the number of concurrent sessions. When full it evicts the
// least-recently-accessed clean session first; a dirty session goes only
// as a last resort, since its edits may not have been committed yet.
type Cache struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
	capacity int
	log      zerolog.Logger
}

func NewCache(capacity int, log zerolog.Logger) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{capacity: capacity, log: log}

	sessions, err := lru.NewWithEvict(capacity, func(documentID string, sess *Session) {
		if sess.Dirty() {
			c.log.Warn().
				Str("document_id", documentID).
				Msg("evicting dirty session; uncommitted edits are lost")
		}
		sess.destroy()
	})
	if err != nil {
		return nil, err
	}
	c.sessions = sessions
	return c, nil
}

// GetOrCreate returns the session for a document, creating and hydrating
// it when absent. An existing clean session is re-hydrated when the
// authoritative content differs, letting another collaborator's commit
// flow in before local edits begin; a dirty session is never re-hydrated.
// Content that does not parse as JSON is silently ignored and the buffer
// left untouched.
func (c *Cache) GetOrCreate(documentID, authoritativeContent string, openedAt domain.Version) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	hydratable := authoritativeContent != "" && json.Valid([]byte(authoritativeContent))

	if sess, ok := c.sessions.Get(documentID); ok {
		if hydratable {
			sess.rehydrate(authoritativeContent, openedAt)
		}
		sess.touch()
		return sess
	}

	c.makeRoom()

	sess := &Session{
		DocumentID: documentID,
		openedAt:   openedAt,
		buffer:     NewBuffer(newPeerID()),
		lastAccess: time.Now(),
	}
	if hydratable {
		sess.buffer.SetContent(authoritativeContent)
	}
	c.sessions.Add(documentID, sess)
	return sess
}

// Get returns an existing session without creating one.
func (c *Cache) Get(documentID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions.Get(documentID)
	if ok {
		sess.touch()
	}
	return sess, ok
}

// Clear discards a session explicitly, destroying its buffer.
func (c *Cache) Clear(documentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions.Remove(documentID)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions.Len()
}

// makeRoom removes the oldest clean session when the cache is full. When
// every session is dirty the Add below falls through to plain LRU
// eviction, which the eviction callback reports as data loss.
func (c *Cache) makeRoom() {
	if c.sessions.Len() < c.capacity {
		return
	}
	for _, key := range c.sessions.Keys() { // oldest first
		if sess, ok := c.sessions.Peek(key); ok && !sess.Dirty() {
			c.sessions.Remove(key)
			return
		}
	}
}

func newPeerID() string {
	return uuid.New().String()
}
