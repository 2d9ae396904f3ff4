package mcpsession

import (
	"sync"
	"time"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

// DefaultMaxSessions bounds concurrent sessions against unbounded memory
// growth from a client that never sends DELETE.
const DefaultMaxSessions = 10000

// minCleanupInterval prevents excessive cleanup frequency when idleTimeout
// is configured very short (as in tests).
const minCleanupInterval = time.Second

// Table is the SessionTable: a thread-safe registry of live sessions with
// idle-timeout sweeping. Callers must call Stop when done to release the
// sweeper goroutine.
type Table struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	maxSessions int
	stopSweep   chan struct{}
}

// New creates a session table with the given idle timeout and maximum
// concurrent session count, and starts its background sweeper. A
// non-positive idleTimeout falls back to DefaultIdleTimeout; a non-positive
// maxSessions falls back to DefaultMaxSessions.
func New(idleTimeout time.Duration, maxSessions int) *Table {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	t := &Table{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		maxSessions: maxSessions,
		stopSweep:   make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// Create allocates a new session with a fresh cryptographic random id,
// binding it to userID (empty for tier A, the resolved identity for tier
// B). Returns *SessionLimitExceededError if the table is at capacity.
func (t *Table) Create(userID string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sessions) >= t.maxSessions {
		return nil, &SessionLimitExceededError{Limit: t.maxSessions, Current: len(t.sessions)}
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{ID: id, UserID: userID, CreatedAt: now, lastActivity: now}
	t.sessions[id] = session
	logging.Debug("SessionTable", "created session %s (total=%d)", logging.TruncateSessionID(id), len(t.sessions))
	return session, nil
}

// GetOrCreate binds precondition state to an externally-minted transport
// session id (mcp-go generates its own cryptographically random session id
// for the Streamable-HTTP transport; this lets the table track precondition
// flags against that id instead of minting a second one).
func (t *Table) GetOrCreate(id string, userID string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if session, ok := t.sessions[id]; ok {
		session.touch()
		return session, nil
	}

	if len(t.sessions) >= t.maxSessions {
		return nil, &SessionLimitExceededError{Limit: t.maxSessions, Current: len(t.sessions)}
	}

	now := time.Now()
	session := &Session{ID: id, UserID: userID, CreatedAt: now, lastActivity: now}
	t.sessions[id] = session
	logging.Debug("SessionTable", "bound session %s (total=%d)", logging.TruncateSessionID(id), len(t.sessions))
	return session, nil
}

// Get returns the session for id, refreshing its activity timestamp, or
// *SessionNotFoundError if no such session is live.
func (t *Table) Get(id string) (*Session, error) {
	t.mu.RLock()
	session, ok := t.sessions[id]
	t.mu.RUnlock()

	if !ok {
		return nil, &SessionNotFoundError{SessionID: id}
	}
	session.touch()
	return session, nil
}

// Delete removes a session by id. Removing an absent id is a no-op, so
// DELETE /mcp is idempotent under retry.
func (t *Table) Delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.sessions[id]; !ok {
		return
	}
	delete(t.sessions, id)
	logging.Debug("SessionTable", "deleted session %s (total=%d)", logging.TruncateSessionID(id), len(t.sessions))
}

// IDs returns the ids of all currently live sessions, for notification
// fanout callers that need a roster (mcp-go itself exposes no enumeration).
func (t *Table) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live sessions.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Stop halts the sweeper goroutine and clears the table. Safe to call once.
func (t *Table) Stop() {
	close(t.stopSweep)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = make(map[string]*Session)
}

func (t *Table) sweepLoop() {
	interval := t.idleTimeout / 2
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stopSweep:
			return
		}
	}
}

func (t *Table) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, session := range t.sessions {
		if session.idleSince() > t.idleTimeout {
			delete(t.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("SessionTable", "swept %d idle session(s), %d remaining", removed, len(t.sessions))
	}
}
