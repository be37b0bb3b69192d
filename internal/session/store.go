// Package session keeps the live chat sessions of the process.
package session

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikkelr/chat-with-PDF/internal/index"
	"github.com/nikkelr/chat-with-PDF/internal/models"
)

// Session is one uploaded document and its conversation. A session owns its
// index exclusively; the index is closed when the session is deleted.
type Session struct {
	ID        string
	PDFName   string
	CreatedAt time.Time
	// Text is the extracted document text, kept for the detail preview.
	Text      string
	NumChunks int

	seq   uint64
	index index.Index

	// exchangeMu serializes asks and delete; mu guards the fields below.
	exchangeMu sync.Mutex
	mu         sync.RWMutex
	deleted    bool
	history    []models.ChatTurn
}

// Store holds sessions by id. Operations on different sessions never wait on
// each other except for the brief map lookup.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	seq      uint64
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// NewID returns a fresh opaque session id.
func NewID() string {
	return uuid.NewString()
}

// Create registers a new session that takes ownership of idx. id comes from
// NewID so the index backend can key its storage before the session exists.
func (s *Store) Create(id, pdfName, text string, idx index.Index) *Session {
	sess := &Session{
		ID:        id,
		PDFName:   pdfName,
		CreatedAt: s.now().UTC(),
		Text:      text,
		index:     idx,
	}
	if idx != nil {
		sess.NumChunks = idx.Len()
	}

	s.mu.Lock()
	s.seq++
	sess.seq = s.seq
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// Get retrieves a session by ID.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	return sess, nil
}

// List returns a summary of every live session, oldest first.
func (s *Store) List() []models.SessionInfo {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].seq < sessions[j].seq })

	result := make([]models.SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sess.Info())
	}
	return result
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete removes the session and closes its index. It waits for an ask in
// progress on the same session to finish. Unknown ids, including ids that
// were already deleted, fail with NotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return notFound(id)
	}

	sess.exchangeMu.Lock()
	defer sess.exchangeMu.Unlock()

	sess.mu.Lock()
	sess.deleted = true
	sess.history = nil
	sess.mu.Unlock()

	if sess.index == nil {
		return nil
	}
	if err := sess.index.Close(ctx); err != nil {
		log.Printf("Warning: failed to release index for session %s: %v", id, err)
	}
	sess.index = nil
	return nil
}

// CloseAll deletes every session, releasing their indexes.
func (s *Store) CloseAll(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		_ = s.Delete(ctx, id)
	}
}

// Exchange runs fn with exclusive access to the session's index and, when fn
// succeeds, appends the returned turn to the history. Concurrent exchanges on
// the same session are serialized, so history follows completion order. The
// recorded timestamp never goes backwards.
func (sess *Session) Exchange(fn func(idx index.Index) (models.ChatTurn, error)) (models.ChatTurn, error) {
	sess.exchangeMu.Lock()
	defer sess.exchangeMu.Unlock()

	sess.mu.RLock()
	deleted := sess.deleted
	sess.mu.RUnlock()
	if deleted {
		return models.ChatTurn{}, notFound(sess.ID)
	}

	turn, err := fn(sess.index)
	if err != nil {
		return models.ChatTurn{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if n := len(sess.history); n > 0 && turn.Timestamp.Before(sess.history[n-1].Timestamp) {
		turn.Timestamp = sess.history[n-1].Timestamp
	}
	sess.history = append(sess.history, turn)
	return turn, nil
}

// Info returns the chat-free summary of the session.
func (sess *Session) Info() models.SessionInfo {
	return models.SessionInfo{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
		PDFName:   sess.PDFName,
		NumChunks: sess.NumChunks,
	}
}

// History returns a copy of the chat history. It does not wait for an ask in progress.
func (sess *Session) History() []models.ChatTurn {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return append([]models.ChatTurn{}, sess.history...)
}

func notFound(id string) error {
	return models.NewError(models.KindNotFound, "session %s not found", id)
}
