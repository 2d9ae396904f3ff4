package mcpsession

import "github.com/daichi-629/obsiscripta-mcp/pkg/logging"

// SessionNotFoundError is returned when a lookup references a session id
// the table does not hold, either because it never existed or because it
// has since expired or been deleted.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return "session not found: " + logging.TruncateSessionID(e.SessionID)
}

// SessionLimitExceededError is returned when Create would exceed the
// table's configured maximum concurrent session count.
type SessionLimitExceededError struct {
	Limit   int
	Current int
}

func (e *SessionLimitExceededError) Error() string {
	return "session limit exceeded"
}
