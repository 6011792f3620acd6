package core

import "sync"

// ConversationLog is the ordered, append-only turn history for exactly one
// session. It is safe for concurrent access.
//
// Contract:
//   - Append assigns the next sequence number; numbers are strictly
//     increasing and gapless for the life of the log
//   - Timestamps never decrease; a turn carrying an earlier timestamp than
//     its predecessor is clamped to the predecessor's timestamp
//   - Snapshot returns a point-in-time copy so a request already in flight
//     is never altered by later appends
//   - Turns are removed only by Clear (session reset)
type ConversationLog struct {
	mu      sync.Mutex
	turns   []Turn
	nextSeq int
}

// NewConversationLog creates an empty log with sequence numbering at zero.
func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

// Append stores the turn with the next sequence number and a normalized
// timestamp, returning the stored copy.
func (l *ConversationLog) Append(t Turn) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	t.Sequence = l.nextSeq
	l.nextSeq++

	if n := len(l.turns); n > 0 && t.Timestamp.Before(l.turns[n-1].Timestamp) {
		t.Timestamp = l.turns[n-1].Timestamp
	}

	l.turns = append(l.turns, t)

	return t
}

// Snapshot returns a copy of the full turn history in order. Callers may
// hold or mutate the slice without affecting the log.
func (l *ConversationLog) Snapshot() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	turns := make([]Turn, len(l.turns))
	copy(turns, l.turns)

	return turns
}

// Len returns the number of appended turns.
func (l *ConversationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.turns)
}

// Clear discards all turns and restarts sequence numbering. Used only by
// session reset.
func (l *ConversationLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = nil
	l.nextSeq = 0
}
