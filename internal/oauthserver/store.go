package oauthserver

import (
	"sync"
	"time"

	"github.com/daichi-629/obsiscripta-mcp/pkg/logging"
)

// sweepInterval matches the specification's minimum periodic-sweep cadence.
const sweepInterval = 60 * time.Second

// Store is the thread-safe, in-memory home for every OAuth entity the
// authorization server manages. A single mutex covers all maps: the
// entities are small and requests touching more than one of them (token
// exchange reads a code and writes a token pair) need a consistent view
// anyway.
type Store struct {
	mu sync.Mutex

	clients       map[string]*OAuthClient
	codes         map[string]*AuthorizationCode
	accessTokens  map[string]*AccessToken
	refreshTokens map[string]*RefreshToken
	pluginTokens  map[string]*PluginToken
	pendingAuths  map[string]*PendingAuth

	stopSweep chan struct{}
}

// NewStore creates an empty store and starts its background sweeper.
// Callers must call Stop when done.
func NewStore() *Store {
	s := &Store{
		clients:       make(map[string]*OAuthClient),
		codes:         make(map[string]*AuthorizationCode),
		accessTokens:  make(map[string]*AccessToken),
		refreshTokens: make(map[string]*RefreshToken),
		pluginTokens:  make(map[string]*PluginToken),
		pendingAuths:  make(map[string]*PendingAuth),
		stopSweep:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Stop halts the background sweeper.
func (s *Store) Stop() { close(s.stopSweep) }

// --- OAuthClient ---

func (s *Store) SaveClient(c *OAuthClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ClientID] = c
}

func (s *Store) GetClient(clientID string) (*OAuthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, &ErrClientNotFound{ClientID: clientID}
	}
	return c, nil
}

// --- AuthorizationCode ---

func (s *Store) SaveCode(c *AuthorizationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.Code] = c
}

// ConsumeCode atomically removes and returns the code if it exists and has
// not expired. A second call for the same code always fails, guaranteeing
// exactly-once redemption under concurrent requests.
func (s *Store) ConsumeCode(code string) (*AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, &ErrInvalidGrant{Reason: "unknown code"}
	}
	delete(s.codes, code)

	if c.expired() {
		return nil, &ErrInvalidGrant{Reason: "code expired"}
	}
	return c, nil
}

// --- AccessToken ---

func (s *Store) SaveAccessToken(t *AccessToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens[t.Token] = t
}

func (s *Store) GetAccessToken(token string) (*AccessToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.accessTokens[token]
	if !ok || t.expired() {
		return nil, false
	}
	return t, true
}

// RevokeAccessToken deletes a token if present. Never reports whether it
// existed, matching RFC 7009's non-disclosure requirement.
func (s *Store) RevokeAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accessTokens, token)
}

// --- RefreshToken ---

func (s *Store) SaveRefreshToken(t *RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[t.Token] = t
}

// ConsumeRefreshToken atomically removes and returns the refresh token,
// also revoking the access token it last minted (token rotation).
func (s *Store) ConsumeRefreshToken(token string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refreshTokens[token]
	if !ok {
		return nil, &ErrInvalidGrant{Reason: "unknown refresh token"}
	}
	delete(s.refreshTokens, token)
	delete(s.accessTokens, t.LastAccessToken)
	return t, nil
}

// --- PluginToken ---

func (s *Store) SavePluginToken(p *PluginToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pluginTokens[p.ID] = p
}

func (s *Store) DeletePluginToken(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pluginTokens, id)
}

func (s *Store) GetPluginToken(id string) (*PluginToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pluginTokens[id]
	return p, ok
}

// LookupPluginTokenByUser returns the first PluginToken bound to userID.
// A user has at most one active binding in practice; iteration order is
// irrelevant when that invariant holds.
func (s *Store) LookupPluginTokenByUser(userID string) (*PluginToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pluginTokens {
		if p.UserID == userID {
			return p, true
		}
	}
	return nil, false
}

func (s *Store) ListPluginTokens() []*PluginToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PluginToken, 0, len(s.pluginTokens))
	for _, p := range s.pluginTokens {
		out = append(out, p)
	}
	return out
}

// --- PendingAuth ---

func (s *Store) SavePendingAuth(p *PendingAuth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingAuths[p.UpstreamState] = p
}

// ConsumePendingAuth atomically removes and returns the pending auth for
// the upstream state token. Single-use: a replayed callback fails.
func (s *Store) ConsumePendingAuth(upstreamState string) (*PendingAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pendingAuths[upstreamState]
	if !ok {
		return nil, &ErrPendingAuthNotFound{}
	}
	delete(s.pendingAuths, upstreamState)

	if p.expired() {
		return nil, &ErrPendingAuthNotFound{}
	}
	return p, nil
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopSweep:
			return
		}
	}
}

// sweep purges expired access tokens, authorization codes, and pending
// auths, per the concurrency model's periodic-sweep requirement. Refresh
// tokens are not time-limited by the specification, so they are left to
// explicit consumption/rotation.
func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, v := range s.codes {
		if v.expired() {
			delete(s.codes, k)
			removed++
		}
	}
	for k, v := range s.accessTokens {
		if v.expired() {
			delete(s.accessTokens, k)
			removed++
		}
	}
	for k, v := range s.pendingAuths {
		if v.expired() {
			delete(s.pendingAuths, k)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("OAuthStore", "swept %d expired entries", removed)
	}
}
