package everify

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
)

// DefaultTokenTTL is the lifetime eVerify documents for access tokens.
const DefaultTokenTTL = 30 * time.Minute

// SessionState is a read-only view of the session for display.
type SessionState struct {
	Authenticated bool      `json:"authenticated"`
	Token         string    `json:"token,omitempty"` // masked
	IssuedAt      time.Time `json:"issued_at,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	Expired       bool      `json:"expired"`
	ExpirySource  string    `json:"expiry_source,omitempty"` // "jwt" or "ttl"
}

// Session holds the bearer token from the last successful authenticate call.
// Only the dispatcher sets it. Expiry is tracked for display; an expired
// token is still sent until the operator clears it or the API rejects it.
type Session struct {
	mu       sync.RWMutex
	token    *oauth2.Token
	issuedAt time.Time
	source   string

	clock clockwork.Clock
	ttl   time.Duration
}

func NewSession(clock clockwork.Clock, ttl time.Duration) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Session{clock: clock, ttl: ttl}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return ""
	}
	return s.token.AccessToken
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	s.issuedAt = time.Time{}
	s.source = ""
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return SessionState{}
	}
	return SessionState{
		Authenticated: true,
		Token:         Mask(s.token.AccessToken),
		IssuedAt:      s.issuedAt,
		ExpiresAt:     s.token.Expiry,
		Expired:       !s.token.Expiry.IsZero() && !s.clock.Now().Before(s.token.Expiry),
		ExpirySource:  s.source,
	}
}

func (s *Session) set(accessToken string) {
	now := s.clock.Now()
	expiry, source := tokenExpiry(accessToken, now, s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer", Expiry: expiry}
	s.issuedAt = now
	s.source = source
}

// tokenExpiry reads the exp claim when the token happens to be a JWT. The
// signature is not checked; this is only used to label the token in the UI.
func tokenExpiry(raw string, issuedAt time.Time, ttl time.Duration) (time.Time, string) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err == nil {
		if exp, err := tok.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time, "jwt"
		}
	}
	return issuedAt.Add(ttl), "ttl"
}
