package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hqrms/hqrms/internal/platform/auth"
)

// Manager maps role selections onto users and tracks live sessions.
// Logging out revokes the session token.
type Manager struct {
	mu       sync.RWMutex
	users    map[Role]User
	sessions map[string]Session

	jwt    auth.JWTConfig
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager builds a manager for the given users. The first user listed
// for a role wins.
func NewManager(users []User, jwtCfg auth.JWTConfig, ttl time.Duration, logger zerolog.Logger) *Manager {
	m := &Manager{
		users:    make(map[Role]User, len(users)),
		sessions: make(map[string]Session),
		jwt:      jwtCfg,
		ttl:      ttl,
		logger:   logger.With().Str("component", "session").Logger(),
		now:      time.Now,
	}
	for _, u := range users {
		if _, ok := m.users[u.Role]; !ok {
			m.users[u.Role] = u
		}
	}
	return m
}

// Users returns the selectable identities in role order.
func (m *Manager) Users() []User {
	out := make([]User, 0, len(m.users))
	for _, r := range Roles {
		if u, ok := m.users[r]; ok {
			out = append(out, u)
		}
	}
	return out
}

// Login opens a session for role and issues its token.
func (m *Manager) Login(_ context.Context, role Role) (*Session, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	u, ok := m.users[role]
	if !ok {
		return nil, fmt.Errorf("%w: no user configured for %q", ErrUnknownRole, role)
	}

	now := m.now()
	s := Session{
		ID:        uuid.NewString(),
		User:      u,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	token, err := auth.SignToken(m.jwt, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
		Role: string(u.Role),
		Name: u.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	m.mu.Lock()
	m.purgeLocked(now)
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info().Str("session_id", s.ID).Str("user_id", u.ID).Str("role", string(role)).Msg("session opened")
	s.Token = token
	return &s, nil
}

// Current returns the live session with the given id.
func (m *Manager) Current(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// Logout ends the session and revokes its token.
func (m *Manager) Logout(_ context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if m.jwt.Revocations != nil {
		m.jwt.Revocations.Revoke(s.ID, s.User.ID, s.ExpiresAt)
	}
	m.logger.Info().Str("session_id", id).Str("user_id", s.User.ID).Msg("session closed")
	return nil
}

// Active returns the number of unexpired sessions.
func (m *Manager) Active() int {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.sessions {
		if now.Before(s.ExpiresAt) {
			n++
		}
	}
	return n
}

func (m *Manager) purgeLocked(now time.Time) {
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
}
