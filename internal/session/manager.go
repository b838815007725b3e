package session

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTTL = 12 * time.Hour

// ErrNoSession is returned for tokens that are invalid, expired, or whose
// session was closed or belongs to an earlier process.
var ErrNoSession = errors.New("no active session")

// Manager issues signed session tokens and tracks which are logged in.
// Sessions live in memory only; a restart logs everybody out.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]entry
}

type entry struct {
	state   State
	expires time.Time
}

// NewManager builds a Manager. An empty secret is replaced by random bytes,
// which is enough because tokens never outlive the process.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	key := []byte(strings.TrimSpace(secret))
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		secret:   key,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
	}, nil
}

// Open logs username in and returns the bearer token for the new session.
func (m *Manager) Open(username string) (string, error) {
	state, err := State{}.Login(username)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.pruneLocked(now)
	m.sessions[id] = entry{state: state, expires: now.Add(m.ttl)}
	m.mu.Unlock()
	return token, nil
}

// Resolve returns the LoggedIn state behind token. Expired sessions are
// dropped along the way.
func (m *Manager) Resolve(token string) (State, error) {
	m.mu.Lock()
	m.pruneLocked(m.now())
	m.mu.Unlock()

	claims, err := m.parse(token)
	if err != nil {
		return State{}, ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[claims.ID]
	if !ok || !e.state.IsLoggedIn() || e.state.Username() != claims.Subject {
		return State{}, ErrNoSession
	}
	return e.state, nil
}

// Close logs the session out. Closing an unknown session is an error so
// callers can tell a stale token apart.
func (m *Manager) Close(token string) (State, error) {
	claims, err := m.parse(token)
	if err != nil {
		return State{}, ErrNoSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[claims.ID]
	if !ok {
		return State{}, ErrNoSession
	}
	delete(m.sessions, claims.ID)
	return e.state.Logout(), nil
}

// Active reports the number of logged-in, unexpired sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	return len(m.sessions)
}

func (m *Manager) pruneLocked(now time.Time) {
	for id, e := range m.sessions {
		if !now.Before(e.expires) {
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) parse(tokenString string) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}
	if !token.Valid {
		return jwt.RegisteredClaims{}, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return jwt.RegisteredClaims{}, errors.New("missing subject")
	}
	return claims, nil
}
