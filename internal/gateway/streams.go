package gateway

import (
	"sync"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

// streamNotifyBacklog bounds how many pending notifications a single SSE
// stream can have queued before notify starts dropping them for that
// stream; a client that is not draining its stream should not be able to
// block the gateway.
const streamNotifyBacklog = 8

// streamRegistry is the transport-layer session-to-plugin index the
// UpstreamRouter feeds through BindNotifier, plus the live SSE output
// channels for tier B's GET /mcp stream. It lets notifyPlugin turn a
// fingerprint change on one plugin into a notifications/tools/list_changed
// frame on every open stream bound to that plugin.
type streamRegistry struct {
	mu             sync.Mutex
	conns          map[string]chan []byte
	sessionPlugin  map[string]string
	pluginSessions map[string]map[string]struct{}
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{
		conns:          make(map[string]chan []byte),
		sessionPlugin:  make(map[string]string),
		pluginSessions: make(map[string]map[string]struct{}),
	}
}

// bind records that sessionID is now routed to pluginID. Implements
// BindNotifier; passed straight to NewRouter.
func (sr *streamRegistry) bind(sessionID, pluginID string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if old, ok := sr.sessionPlugin[sessionID]; ok {
		if old == pluginID {
			return
		}
		if set, ok := sr.pluginSessions[old]; ok {
			delete(set, sessionID)
			if len(set) == 0 {
				delete(sr.pluginSessions, old)
			}
		}
	}

	sr.sessionPlugin[sessionID] = pluginID
	set, ok := sr.pluginSessions[pluginID]
	if !ok {
		set = make(map[string]struct{})
		sr.pluginSessions[pluginID] = set
	}
	set[sessionID] = struct{}{}
}

// open registers a live SSE stream for sessionID and returns the channel to
// read frames from. The caller must call close(sessionID) (via defer) when
// the stream ends.
func (sr *streamRegistry) open(sessionID string) <-chan []byte {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	ch := make(chan []byte, streamNotifyBacklog)
	sr.conns[sessionID] = ch
	return ch
}

// close tears down the SSE stream registered for sessionID, if any.
func (sr *streamRegistry) close(sessionID string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if ch, ok := sr.conns[sessionID]; ok {
		delete(sr.conns, sessionID)
		close(ch)
	}
}

// unbind drops every trace of sessionID, called on DELETE /mcp.
func (sr *streamRegistry) unbind(sessionID string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if ch, ok := sr.conns[sessionID]; ok {
		delete(sr.conns, sessionID)
		close(ch)
	}
	if pluginID, ok := sr.sessionPlugin[sessionID]; ok {
		delete(sr.sessionPlugin, sessionID)
		if set, ok := sr.pluginSessions[pluginID]; ok {
			delete(set, sessionID)
			if len(set) == 0 {
				delete(sr.pluginSessions, pluginID)
			}
		}
	}
}

// notify pushes payload to every session currently streaming SSE and bound
// to pluginID. Sessions with no open stream (client never issued a GET) are
// silently skipped; a full stream backlog drops the frame for that stream
// rather than blocking the fingerprint poller.
func (sr *streamRegistry) notify(pluginID string, payload []byte) {
	sr.mu.Lock()
	sessions := make([]string, 0, len(sr.pluginSessions[pluginID]))
	for sessionID := range sr.pluginSessions[pluginID] {
		sessions = append(sessions, sessionID)
	}
	chans := make([]chan []byte, 0, len(sessions))
	for _, sessionID := range sessions {
		if ch, ok := sr.conns[sessionID]; ok {
			chans = append(chans, ch)
		}
	}
	sr.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- payload:
		default:
			logging.Warn("UpstreamRouter", "dropped tools/list_changed notification, stream backlog full")
		}
	}
}
