package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/noteshelf/noteshelf/config"
)

const issuer = "noteshelf"

type claims struct {
	Username string   `json:"usr,omitempty"`
	CSRF     string   `json:"csrf"`
	Flashes  []string `json:"flash,omitempty"`
	jwt.RegisteredClaims
}

// Manager encodes sessions as HS256-signed tokens in an HttpOnly cookie.
type Manager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewManager(cfg config.SessionConfig) *Manager {
	return &Manager{
		secret:     []byte(cfg.Secret),
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.CookieSecure,
		now:        time.Now,
	}
}

// Load decodes the session cookie. A missing, tampered, expired or otherwise
// unreadable cookie yields a fresh anonymous session.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return New()
	}

	var c claims
	_, err = jwt.ParseWithClaims(cookie.Value, &c, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		slog.DebugContext(r.Context(), "discarding session cookie", "error", err)
		return New()
	}
	if c.CSRF == "" {
		return New()
	}

	return &Session{username: c.Username, csrf: c.CSRF, flashes: c.Flashes}
}

// Save writes s as the session cookie.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s == nil {
		return errors.New("session: nil session")
	}

	now := m.now()
	expires := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: s.username,
		CSRF:     s.csrf,
		Flashes:  s.flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	s.dirty = false
	return nil
}

// Middleware loads the session into the request context and writes it back,
// if it changed, before the response headers go out.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Load(r)
		sw := &sessionWriter{ResponseWriter: w, manager: m, session: s}
		next.ServeHTTP(sw, r.WithContext(NewContext(r.Context(), s)))
		if !sw.wroteHeader {
			sw.commit()
		}
	})
}

// sessionWriter saves the session just before the header is written, which
// is the last moment a Set-Cookie can still be added.
type sessionWriter struct {
	http.ResponseWriter
	manager     *Manager
	session     *Session
	wroteHeader bool
}

func (w *sessionWriter) commit() {
	w.wroteHeader = true
	if !w.session.Dirty() {
		return
	}
	if err := w.manager.Save(w.ResponseWriter, w.session); err != nil {
		slog.Error("save session", "error", err)
	}
}

func (w *sessionWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.commit()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.commit()
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
