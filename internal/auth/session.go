package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/tbeaumont/folio/internal/models"
)

// SessionStore abstracts session persistence so the guard can be tested
// without an HTTP stack and sessions can later move to backing storage.
type SessionStore interface {
	// Get retrieves a session by ID. Returns false if no session exists.
	Get(id string) (*models.Session, bool)
	// Put creates or replaces the session stored under id.
	Put(id string, session *models.Session)
	// Delete removes a session. Deleting a missing session is a no-op.
	Delete(id string)
	// Touch updates the session's last-activity time only if the session
	// still exists, and reports whether it did. A plain Get-then-Put would
	// let an activity refresh resurrect a concurrently destroyed session.
	Touch(id string, at time.Time) bool
}

// NewSessionID generates a 256-bit random session identifier.
func NewSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// MemorySessionStore is the default in-process SessionStore. Sessions are
// copied on Get and Put so callers never share mutable state with the store;
// the last Put for a given ID wins.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]models.Session),
	}
}

func (s *MemorySessionStore) Get(id string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	copied := session
	return &copied, true
}

func (s *MemorySessionStore) Put(id string, session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = *session
}

func (s *MemorySessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *MemorySessionStore) Touch(id string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return false
	}
	session.LastActivity = at
	s.sessions[id] = session
	return true
}

// PruneIdle removes sessions whose last activity is older than their
// effective idle window and returns the number removed. Used by the
// background cleanup task; the guard also expires sessions lazily on access.
func (s *MemorySessionStore) PruneIdle(now time.Time, idle, rememberIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		window := idle
		if session.RememberMe {
			window = rememberIdle
		}
		if now.Sub(session.LastActivity) > window {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
