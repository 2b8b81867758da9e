package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/planner"
)

// MaxRotateSteps caps the steps of a single Rotate call
const MaxRotateSteps = 360

// simServiceImpl implements the SimService interface
type simServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	notifier Notifier
	mu       sync.RWMutex
}

// Option configures the service
type Option func(*simServiceImpl)

// WithNotifier sets the receiver of state changes
func WithNotifier(n Notifier) Option {
	return func(s *simServiceImpl) {
		s.notifier = n
	}
}

// NewSimService creates a new simulation service instance
func NewSimService(sessions SessionManager, configs ConfigManager, opts ...Option) SimService {
	s := &simServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *simServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *simServiceImpl) notify(sessionID, event string, state engine.State) {
	if s.notifier != nil {
		s.notifier.Notify(sessionID, event, state)
	}
}

// session looks up a session and marks it accessed
func (s *simServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *simServiceImpl) info(sess *Session, configID string) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		State:          sess.Snapshot(),
		Config:         sess.Config,
	}
}

// CreateSession creates a new simulation session
func (s *simServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.Config
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.SetAsyncHook(func(id string, state engine.State) {
		s.notify(id, EventActivated, state)
	})

	configID := configName
	if configID == "" {
		configID = s.getConfigID(config.Name)
	}

	info := s.info(sess, configID)
	s.notify(sess.ID, EventCreated, info.State)
	return info, nil
}

// GetSession retrieves session information
func (s *simServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess, s.getConfigID(sess.Config.Name)), nil
}

// ListSessions returns active sessions ordered by access or creation time
func (s *simServiceImpl) ListSessions(ctx context.Context, opts SessionListOptions) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, s.getConfigID(sess.Config.Name)))
	}

	if opts.SortBy == "" {
		opts.SortBy = "accessed"
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	sort.SliceStable(result, func(i, j int) bool {
		ti, tj := result[i].LastAccessedAt, result[j].LastAccessedAt
		if opts.SortBy == "created" {
			ti, tj = result[i].CreatedAt, result[j].CreatedAt
		}
		if ti.Equal(tj) {
			return result[i].ID < result[j].ID
		}
		if opts.Order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

// DeleteSession stops the robot and removes the session
func (s *simServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	var state engine.State
	sess.Do(func(r *engine.Robot) {
		r.Stop()
		state = r.Snapshot()
	})
	sess.SetAsyncHook(nil)

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.notify(sessionID, EventDeleted, state)
	return nil
}

// command runs fn under the session lock and notifies the new state
func (s *simServiceImpl) command(sessionID, event string, fn func(r *engine.Robot)) (engine.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return engine.State{}, err
	}

	var state engine.State
	sess.Do(func(r *engine.Robot) {
		fn(r)
		state = r.Snapshot()
	})
	s.notify(sess.ID, event, state)
	return state, nil
}

// Start schedules the robot's activation from a fresh home station
func (s *simServiceImpl) Start(ctx context.Context, sessionID string) (engine.State, error) {
	return s.command(sessionID, EventStart, func(r *engine.Robot) {
		r.Start()
	})
}

// Stop halts the robot
func (s *simServiceImpl) Stop(ctx context.Context, sessionID string) (engine.State, error) {
	return s.command(sessionID, EventStop, func(r *engine.Robot) {
		r.Stop()
	})
}

// Reset returns the robot to pose, or to the configured start pose when nil
func (s *simServiceImpl) Reset(ctx context.Context, sessionID string, pose *Pose) (engine.State, error) {
	return s.command(sessionID, EventReset, func(r *engine.Robot) {
		p := Pose{X: r.Config().StartX, Y: r.Config().StartY, Angle: r.Config().StartAngle}
		if pose != nil {
			p = *pose
		}
		r.Reset(p.X, p.Y, p.Angle)
	})
}

// SetForbiddenArea stores the region and replans; nil clears it
func (s *simServiceImpl) SetForbiddenArea(ctx context.Context, sessionID string, region *grid.Region) (engine.State, error) {
	return s.command(sessionID, EventForbidden, func(r *engine.Robot) {
		r.SetForbiddenArea(region)
	})
}

// Rotate turns the robot by steps angular increments
func (s *simServiceImpl) Rotate(ctx context.Context, sessionID, direction string, steps int) (engine.State, error) {
	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction != "left" && direction != "right" {
		return engine.State{}, fmt.Errorf("%w: %q (use left or right)", ErrInvalidDirection, direction)
	}
	if steps <= 0 {
		steps = 1
	}
	if steps > MaxRotateSteps {
		steps = MaxRotateSteps
	}

	return s.command(sessionID, EventRotate, func(r *engine.Robot) {
		for i := 0; i < steps; i++ {
			if direction == "left" {
				r.RotateLeft()
			} else {
				r.RotateRight()
			}
		}
	})
}

// Tick advances a session by up to ticks steps, stopping early once the
// robot is idle or has no waypoints left
func (s *simServiceImpl) Tick(ctx context.Context, sessionID string, ticks int) (*TickResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if ticks <= 0 {
		ticks = 1
	}
	result := &TickResult{RequestedTicks: ticks}
	if ticks > engine.MaxTicksPerCall {
		ticks = engine.MaxTicksPerCall
		result.Truncated = true
		result.Limit = engine.MaxTicksPerCall
	}

	sess.Do(func(r *engine.Robot) {
		result.StartMode = r.Mode()
		result.StartBattery = r.Battery()
		result.StartIndex = r.Index()
		eventsBefore := lastEventSeq(r.Events())

		for i := 0; i < ticks; i++ {
			if err := ctx.Err(); err != nil {
				result.StoppedReason = StopCancelled
				break
			}
			if !r.Active() {
				result.StoppedReason = StopIdle
				if r.Mode() != engine.Idle {
					result.StoppedReason = StopNoPath
				}
				break
			}
			r.Advance()
			result.TicksExecuted++
		}

		result.EndMode = r.Mode()
		result.EndBattery = r.Battery()
		result.EndIndex = r.Index()
		result.Transitions = eventsAfter(r.Events(), eventsBefore)
		result.State = r.Snapshot()
	})

	s.notify(sess.ID, EventTick, result.State)
	return result, nil
}

// TickAll advances every active session by one tick and returns how many
// sessions moved. A robot left moving without waypoints is skipped.
func (s *simServiceImpl) TickAll(ctx context.Context) int {
	s.mu.RLock()
	sessions := s.sessions.List()
	s.mu.RUnlock()

	advanced := 0
	for _, sess := range sessions {
		if ctx.Err() != nil {
			break
		}

		var (
			state   engine.State
			changed bool
			moved   bool
		)
		sess.Do(func(r *engine.Robot) {
			if !r.Active() {
				return
			}
			before := r.Mode()
			r.Advance()
			state = r.Snapshot()
			changed = state.Mode != before
			moved = true
		})
		if !moved {
			continue
		}

		advanced++
		event := EventTick
		if changed {
			event = EventModeChange
		}
		s.notify(sess.ID, event, state)
	}
	return advanced
}

// GetState returns the robot snapshot, with the active path when requested
func (s *simServiceImpl) GetState(ctx context.Context, sessionID string, includePath bool) (engine.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return engine.State{}, err
	}

	var state engine.State
	sess.Do(func(r *engine.Robot) {
		state = r.Snapshot()
		if includePath {
			state.Path = r.ActivePath()
		}
	})
	return state, nil
}

// GetPlan returns the diagnostics of the robot's current coverage plan
func (s *simServiceImpl) GetPlan(ctx context.Context, sessionID string) (*planner.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var plan planner.Plan
	sess.Do(func(r *engine.Robot) {
		plan = r.Plan()
	})
	return &plan, nil
}

// GetEvents returns a page of the mode transition log
func (s *simServiceImpl) GetEvents(ctx context.Context, sessionID string, opts HistoryOptions) (*EventsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	var history []engine.Event
	sess.Do(func(r *engine.Robot) {
		history = r.Events()
	})
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	var events []engine.Event
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = history[start:end]
	}

	if events == nil {
		events = []engine.Event{}
	}

	return &EventsResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available simulation configurations
func (s *simServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific simulation configuration
func (s *simServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.Config, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a simulation configuration to disk
func (s *simServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.Config) error {
	if err := s.configs.SaveConfig(configName, config); err != nil {
		return err
	}
	log.Printf("[CONFIG] saved %s (%dx%d)", configName, config.GridWidth, config.GridHeight)
	return nil
}

func lastEventSeq(events []engine.Event) int {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Seq
}

// eventsAfter returns the events with a sequence number above seq
func eventsAfter(events []engine.Event, seq int) []engine.Event {
	idx := sort.Search(len(events), func(i int) bool {
		return events[i].Seq > seq
	})
	out := make([]engine.Event, len(events)-idx)
	copy(out, events[idx:])
	return out
}
