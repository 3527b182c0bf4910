package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Session is an authenticated browsing session for one account.
type Session struct {
	Token     string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Manager issues and tracks sessions in memory. Sessions are created
// at login and destroyed at logout or when the account is purged.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a session manager with the given session lifetime.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session for username and returns it.
func (m *Manager) Create(username string) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := m.now()
	s := &Session{
		Token:     token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()

	return s, nil
}

// Get returns the session for token, or false when it does not exist
// or has expired. Expired sessions are removed on access.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if m.now().After(s.ExpiresAt) {
		m.Destroy(token)
		return nil, false
	}

	return s, true
}

// Destroy removes the session for token. Unknown tokens are a no-op.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// DestroyUser removes every session belonging to username and returns
// how many were removed.
func (m *Manager) DestroyUser(username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, s := range m.sessions {
		if s.Username == username {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// Cleanup removes expired sessions and returns how many were removed.
func (m *Manager) Cleanup() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// CleanExpired removes expired sessions. It exists so the manager can
// be registered with the cache cleanup loop.
func (m *Manager) CleanExpired() int {
	return m.Cleanup()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
