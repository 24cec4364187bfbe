// Package session keeps the signed-cookie browser session: who is logged in,
// the CSRF token for their forms, and pending flash messages.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Session is the per-request view of a browser session. It is not safe for
// concurrent use; each request gets its own copy.
type Session struct {
	username string
	csrf     string
	flashes  []string
	dirty    bool
}

// New returns an anonymous session with a fresh CSRF token.
func New() *Session {
	return &Session{csrf: newToken(), dirty: true}
}

// Login records username as the authenticated identity, replacing any
// previous one. The CSRF token is rotated.
func (s *Session) Login(username string) {
	s.username = username
	s.csrf = newToken()
	s.dirty = true
}

// Logout clears the identity. A session that is not logged in is unchanged.
func (s *Session) Logout() {
	if s.username == "" {
		return
	}
	s.username = ""
	s.csrf = newToken()
	s.dirty = true
}

// CurrentUser returns the logged-in username, if any.
func (s *Session) CurrentUser() (string, bool) {
	if s == nil || s.username == "" {
		return "", false
	}
	return s.username, true
}

// CSRFToken returns the token forms must echo back in the csrf_token field.
func (s *Session) CSRFToken() string {
	return s.csrf
}

// ValidCSRF compares token with the session's token in constant time.
func (s *Session) ValidCSRF(token string) bool {
	if s == nil || s.csrf == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.csrf), []byte(token)) == 1
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlashes returns and clears the queued messages.
func (s *Session) PopFlashes() []string {
	if len(s.flashes) == 0 {
		return nil
	}
	flashes := s.flashes
	s.flashes = nil
	s.dirty = true
	return flashes
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool {
	return s.dirty
}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the request's session. Outside the session middleware
// it returns a throwaway anonymous session, never nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok && s != nil {
		return s
	}
	return New()
}

func newToken() string {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("session: crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf[:])
}
