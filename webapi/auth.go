package webapi

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost balances hashing time against brute-force resistance.
	bcryptCost = 12

	// sessionCookieName carries the session token.
	sessionCookieName = "img2img_session"

	// sessionTTL is how long a login stays valid.
	sessionTTL = 24 * time.Hour
)

// ErrPasswordMismatch is returned when password verification fails.
var ErrPasswordMismatch = errors.New("webapi: password does not match")

// HashPassword creates a bcrypt hash with a built-in random salt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("webapi: password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
func VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// SessionStore issues and validates opaque session tokens.
// Tokens are random UUIDs held in memory; restarting the process logs
// everyone out, which is acceptable for a demo deployment.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	now      func() time.Time
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Create issues a new session token.
func (s *SessionStore) Create() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = s.now().Add(sessionTTL)
	s.mu.Unlock()
	return token
}

// Valid reports whether the token names a live session.
// Expired sessions are pruned on access.
func (s *SessionStore) Valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.sessions[token]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Revoke removes a session.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// authMiddleware redirects unauthenticated page requests to /login and
// rejects unauthenticated API requests with 401. A nil passwordHash
// disables authentication entirely.
type authMiddleware struct {
	passwordHash string
	sessions     *SessionStore
}

func (a *authMiddleware) enabled() bool {
	return a.passwordHash != ""
}

func (a *authMiddleware) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	return a.sessions.Valid(cookie.Value)
}

func (a *authMiddleware) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled() || a.authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}
		if r.URL.Path == "/login" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if len(r.URL.Path) >= 5 && r.URL.Path[:5] == "/api/" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
