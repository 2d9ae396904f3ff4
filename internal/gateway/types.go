// Package gateway implements the UpstreamRouter: tier B's per-session
// routing of MCP traffic to the plugin bridge registered to the session's
// resolved user, with one upstream MCP session kept open per local session.
package gateway

import (
	"net/http"
	"sync"
	"time"
)

// sessionState is the UpstreamRouter's per-session state machine.
type sessionState int

const (
	stateUnbound sessionState = iota
	stateOpen
	stateClosed
)

// DefaultHopTimeout bounds a single gateway-to-plugin HTTP round trip, per
// the specification's default for the gateway-to-plugin hop.
const DefaultHopTimeout = 30 * time.Second

// DefaultPollInterval is how often the router polls a bound plugin's tool
// list for fingerprint changes.
const DefaultPollInterval = 5 * time.Second

// sessionHeaderName is the MCP session header name in its canonical HTTP
// form; http.Header lookups are case-insensitive regardless.
const sessionHeaderName = "Mcp-Session-Id"

// upstreamSession tracks one local MCP session's binding to an upstream
// plugin bridge session. Access is serialised per session so that the
// initialize-then-replay sequence and 404 recovery never race with another
// request on the same session.
type upstreamSession struct {
	mu sync.Mutex

	state              sessionState
	pluginTokenID      string
	upstreamSessionID  string
	pluginHost         string
	pluginPort         int
	pluginSharedSecret string
	pluginRequiresAuth bool
}

// Config tunes the router's timeouts and polling cadence.
type Config struct {
	HopTimeout   time.Duration
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.HopTimeout <= 0 {
		c.HopTimeout = DefaultHopTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// PluginBinding is the subset of a PluginToken the router needs to reach a
// user's plugin bridge. Defined locally so gateway does not import
// oauthserver's full Store surface, only what PluginLookup exposes.
type PluginBinding struct {
	ID             string
	Host           string
	Port           int
	SharedSecret   string
	RequiresSecret bool
}

// PluginLookup resolves the plugin bridge binding for a resolved user id.
// Implemented by Server.lookupPlugin in production, which reads the
// PluginToken records of oauthserver's Store.
type PluginLookup func(userID string) (*PluginBinding, bool)

// Notifier pushes a tools/list_changed notification to every open local
// session bound to a given plugin. Implemented by the MCP transport layer
// that owns the actual client connections.
type Notifier func(pluginID string)

// BindNotifier reports that localSessionID has just been routed to
// pluginID, so a transport-layer session-to-plugin index can be kept in
// sync with the router's own binding decisions.
type BindNotifier func(localSessionID, pluginID string)

// httpDoer is the narrow surface Router needs from *http.Client, letting
// tests substitute a fake transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
