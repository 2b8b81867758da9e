package service

import (
	"context"
	"errors"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/planner"
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
)

// Notification events
const (
	EventCreated    = "created"
	EventStart      = "start"
	EventActivated  = "activated"
	EventStop       = "stop"
	EventReset      = "reset"
	EventForbidden  = "forbidden_area"
	EventRotate     = "rotate"
	EventTick       = "tick"
	EventModeChange = "mode_change"
	EventDeleted    = "deleted"
)

// SimService defines all simulation operations
type SimService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context, opts SessionListOptions) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Robot commands
	Start(ctx context.Context, sessionID string) (engine.State, error)
	Stop(ctx context.Context, sessionID string) (engine.State, error)
	Reset(ctx context.Context, sessionID string, pose *Pose) (engine.State, error)
	SetForbiddenArea(ctx context.Context, sessionID string, region *grid.Region) (engine.State, error)
	Rotate(ctx context.Context, sessionID, direction string, steps int) (engine.State, error)
	Tick(ctx context.Context, sessionID string, ticks int) (*TickResult, error)
	TickAll(ctx context.Context) int

	// Queries
	GetState(ctx context.Context, sessionID string, includePath bool) (engine.State, error)
	GetPlan(ctx context.Context, sessionID string) (*planner.Plan, error)
	GetEvents(ctx context.Context, sessionID string, opts HistoryOptions) (*EventsResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.Config, error)
	SaveConfig(ctx context.Context, configName string, config *engine.Config) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.Config) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.Config) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles simulation configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.Config, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.Config
	SaveConfig(name string, config *engine.Config) error
}

// Notifier receives state changes of a session
type Notifier interface {
	Notify(sessionID, event string, state engine.State)
}

// Notifiers fans a notification out to several notifiers
type Notifiers []Notifier

// Notify calls every non-nil notifier in order
func (n Notifiers) Notify(sessionID, event string, state engine.State) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(sessionID, event, state)
		}
	}
}
