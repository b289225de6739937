package auth

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the name of the session cookie.
const CookieName = "wb_session"

// Session is the server-side state attached to a browser.
type Session struct {
	ID        string
	IsAdmin   bool
	ExpiresAt time.Time
}

// SessionManager keeps sessions in memory. The cookie carries only a
// signed token naming the session id.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	secret   []byte
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewSessionManager constructs a manager signing cookies with secret.
func NewSessionManager(secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		secret:   []byte(secret),
		ttl:      ttl,
		secure:   secure,
		now:      time.Now,
	}
}

// Get returns the live session for the request, or nil.
func (m *SessionManager) Get(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	id, err := m.parseToken(c.Value)
	if err != nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil
	}
	copied := *s
	return &copied
}

// IsAdmin reports whether the request carries an authenticated admin session.
func (m *SessionManager) IsAdmin(r *http.Request) bool {
	s := m.Get(r)
	return s != nil && s.IsAdmin
}

// CreateAdmin starts a new authenticated session and sets its cookie.
// Any session already attached to the request is discarded.
func (m *SessionManager) CreateAdmin(w http.ResponseWriter, r *http.Request) (Session, error) {
	m.drop(r)

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		IsAdmin:   true,
		ExpiresAt: now.Add(m.ttl),
	}
	token, err := m.issueToken(s.ID, now, s.ExpiresAt)
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
	})
	return *s, nil
}

// Destroy removes the request's session and expires the cookie.
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) {
	m.drop(r)
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
}

// Sweep deletes expired sessions and returns how many were removed.
func (m *SessionManager) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired or not.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) drop(r *http.Request) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return
	}
	id, err := m.parseToken(c.Value)
	if err != nil {
		return
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *SessionManager) issueToken(id string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *SessionManager) parseToken(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}
