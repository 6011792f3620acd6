package session

import (
	"context"
	"sync"
	"time"

	"github.com/parley-ai/parley/core"
	"github.com/parley-ai/parley/logging"
)

// Options configure the in-memory store.
type Options struct {
	// TTL is the inactivity window after which the janitor removes a
	// session. Zero disables expiry.
	TTL time.Duration
	// SweepInterval controls how often the janitor scans for idle
	// sessions. Only used when TTL > 0.
	SweepInterval time.Duration
	// Logger receives janitor activity. Defaults to NoOp.
	Logger logging.Logger
}

// InMemoryStore is a volatile core.Store keeping sessions in a process
// local map. It is safe for concurrent access. Logs are handed out by
// reference: every caller for the same id observes the same
// ConversationLog instance.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
	leases   map[string]*sync.Mutex

	ttl           time.Duration
	sweepInterval time.Duration
	logger        logging.Logger
}

var _ core.Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{
		SweepInterval: time.Minute,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{
		sessions:      map[string]*core.Session{},
		leases:        map[string]*sync.Mutex{},
		ttl:           opts.TTL,
		sweepInterval: opts.SweepInterval,
		logger:        opts.Logger,
	}
}

// ResolveOrCreate returns the session for id, creating an empty one on
// first reference. Holding the store lock for the whole lookup guarantees
// no two concurrent calls can produce distinct instances for one id.
func (s *InMemoryStore) ResolveOrCreate(id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = core.NewSession(id)
		s.sessions[id] = sess
	}
	sess.Touch()

	return sess, nil
}

// Reset discards the session's log. The session entry survives so the id
// can be reused with an empty log; resetting twice equals resetting once.
func (s *InMemoryStore) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.Log.Clear()
		sess.Touch()
	}
}

// Exists reports whether a session has been created for id.
func (s *InMemoryStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	return ok
}

// Acquire takes the per-session turn lease without queueing: a second
// concurrent turn is rejected with *core.SessionBusyError rather than
// blocked behind the first.
func (s *InMemoryStore) Acquire(id string) (func(), error) {
	s.mu.Lock()
	lease, ok := s.leases[id]
	if !ok {
		lease = &sync.Mutex{}
		s.leases[id] = lease
	}
	s.mu.Unlock()

	if !lease.TryLock() {
		return nil, &core.SessionBusyError{SessionID: id}
	}

	return lease.Unlock, nil
}

// StartJanitor runs the inactivity sweeper until ctx is cancelled. It is a
// no-op when TTL is zero. Sessions whose lease is currently held are never
// expired mid-turn.
func (s *InMemoryStore) StartJanitor(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *InMemoryStore) sweep() {
	cutoff := time.Now().UTC().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.LastActive().After(cutoff) {
			continue
		}
		if lease, ok := s.leases[id]; ok {
			if !lease.TryLock() {
				continue // turn in flight
			}
			lease.Unlock()
		}
		delete(s.sessions, id)
		delete(s.leases, id)
		s.logger.Info("session.expired", "session_id", id, "last_active", sess.LastActive())
	}
}

// Len returns the number of live sessions. Intended for tests and health
// reporting.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}
