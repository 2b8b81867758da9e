package session

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// validID matches caller-supplied session IDs
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// maxIDAttempts bounds retries on generated ID collisions
const maxIDAttempts = 16

// Manager handles simulation session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	opts     []engine.Option
	mu       sync.RWMutex
}

// NewManager creates a new session manager. The engine options are applied
// to every robot it creates.
func NewManager(opts ...engine.Option) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		opts:     opts,
	}
}

// Create creates a new session with the given ID and configuration
func (m *Manager) Create(id string, config *engine.Config) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		generated, err := m.generateSessionID()
		if err != nil {
			return nil, err
		}
		id = generated
	} else if !validID.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	// Check if session already exists (case-insensitive)
	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}

	sess, err := service.NewSession(id, config, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.sessions[strings.ToLower(id)] = sess
	return sess, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, config *engine.Config) (*service.Session, error) {
	sess, err := m.Get(id)
	if err == nil {
		return sess, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, config)
	}
	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Delete removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	sess.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions removes idle sessions that haven't been accessed
// in the given duration. Robots still following a path or with a pending
// start are never expired.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, sess := range m.sessions {
		if !sess.LastAccessed().Before(cutoff) {
			continue
		}
		var active bool
		sess.Do(func(r *engine.Robot) {
			active = r.Active() || r.StartPending()
		})
		if active {
			continue
		}
		delete(m.sessions, id)
		removed++
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID returns the first group of a random UUID. Callers hold
// the write lock.
func (m *Manager) generateSessionID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := strings.SplitN(uuid.NewString(), "-", 2)[0]
		if _, exists := m.sessions[id]; !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: could not generate a unique ID", ErrInvalidSessionID)
}
