package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
)

// Session represents an active simulation session. The robot is only
// touched under the session lock; Do is the way in.
type Session struct {
	ID        string
	Config    *engine.Config
	CreatedAt time.Time

	mu           sync.Mutex
	robot        *engine.Robot
	lastAccessed time.Time
	onAsync      func(sessionID string, state engine.State)
}

// NewSession builds a session whose deferred activations run under the
// session lock
func NewSession(id string, config *engine.Config, opts ...engine.Option) (*Session, error) {
	if config == nil {
		return nil, fmt.Errorf("session %s: config is nil", id)
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		Config:       config,
		CreatedAt:    now,
		lastAccessed: now,
	}

	scheduler := engine.SchedulerFunc(func(d time.Duration, fn func()) engine.Timer {
		return time.AfterFunc(d, func() {
			sess.mu.Lock()
			fn()
			state := sess.robot.Snapshot()
			hook := sess.onAsync
			sess.mu.Unlock()

			if hook != nil {
				hook(sess.ID, state)
			}
		})
	})

	opts = append([]engine.Option{engine.WithScheduler(scheduler)}, opts...)
	robot, err := engine.NewRobot(*config, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create robot: %w", err)
	}
	sess.robot = robot
	return sess, nil
}

// Do runs fn with exclusive access to the robot
func (s *Session) Do(fn func(r *engine.Robot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.robot)
}

// Snapshot returns the robot state under the session lock
func (s *Session) Snapshot() engine.State {
	var state engine.State
	s.Do(func(r *engine.Robot) {
		state = r.Snapshot()
	})
	return state
}

// SetAsyncHook registers the callback fired after a deferred activation
func (s *Session) SetAsyncHook(fn func(sessionID string, state engine.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAsync = fn
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = t
}

// LastAccessed returns the time of the last recorded access
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}
