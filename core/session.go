package core

import (
	"fmt"
	"sync"
	"time"
)

// DefaultSessionID is used when the caller supplies no session identifier
// (single-session mode).
const DefaultSessionID = "default"

// Session binds an opaque identifier to exactly one ConversationLog. The
// log is owned by the session and never shared across sessions.
type Session struct {
	ID      string
	Log     *ConversationLog
	Created time.Time

	mu         sync.Mutex
	lastActive time.Time
}

// NewSession creates a session with a fresh empty log.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Log: NewConversationLog(), Created: now, lastActive: now}
}

// Touch updates the last-activity timestamp. Called by the store on
// resolve and by the runner on appends.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now().UTC()
}

// LastActive reports when the session last saw a resolve or an append.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Store owns session lifecycle. Implementations must guarantee that no two
// concurrent calls produce distinct Session instances for the same id, and
// that Acquire admits at most one active orchestration loop per session.
type Store interface {
	// ResolveOrCreate returns the session for id, creating an empty one on
	// first reference. The returned session is shared, never a copy.
	ResolveOrCreate(id string) (*Session, error)

	// Reset discards the session's log. A subsequent resolve observes an
	// empty log under the same id. Resetting an unknown id is a no-op.
	Reset(id string)

	// Exists reports whether a session has been created for id.
	Exists(id string) bool

	// Acquire takes the per-session turn lease. It returns a release
	// function on success and a *SessionBusyError when another turn for the
	// same id is still in flight.
	Acquire(id string) (release func(), err error)
}

// SessionBusyError reports a second concurrent turn for a session whose
// previous turn has not finished. It surfaces to the caller unmodified;
// retry policy is the caller's decision.
type SessionBusyError struct {
	SessionID string
}

func (e *SessionBusyError) Error() string {
	return fmt.Sprintf("session %q is busy: a turn is already in progress", e.SessionID)
}
