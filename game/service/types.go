package service

import (
	"time"

	"github.com/wricardo/mcp-training/coveragebot/game/engine"
)

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string         `json:"id"`
	ConfigName     string         `json:"config_name"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	State          engine.State   `json:"state"`
	Config         *engine.Config `json:"config"`
}

// SessionListOptions controls ListSessions ordering
type SessionListOptions struct {
	SortBy string `json:"sort"`  // "created" or "accessed" (default)
	Order  string `json:"order"` // "asc" or "desc" (default)
	Limit  int    `json:"limit"` // 0 means all
}

// Pose is an explicit reset position
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Reasons a Tick call stopped before running every requested tick
const (
	StopIdle      = "idle"
	StopNoPath    = "no_path"
	StopCancelled = "cancelled"
)

// TickResult summarizes a manual stepping call
type TickResult struct {
	RequestedTicks int            `json:"requested_ticks"`
	TicksExecuted  int            `json:"ticks_executed"`
	Truncated      bool           `json:"truncated,omitempty"`
	Limit          int            `json:"limit,omitempty"`
	StoppedReason  string         `json:"stopped_reason,omitempty"`
	StartMode      engine.Mode    `json:"start_mode"`
	EndMode        engine.Mode    `json:"end_mode"`
	StartBattery   float64        `json:"start_battery"`
	EndBattery     float64        `json:"end_battery"`
	StartIndex     int            `json:"start_index"`
	EndIndex       int            `json:"end_index"`
	Transitions    []engine.Event `json:"transitions"`
	State          engine.State   `json:"state"`
}

// HistoryOptions configures event log retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// EventsResponse contains a page of the mode transition log
type EventsResponse struct {
	Events      []engine.Event `json:"events"`
	TotalEvents int            `json:"total_events"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// ConfigInfo provides information about a simulation configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	GridWidth   int    `json:"grid_width"`
	GridHeight  int    `json:"grid_height"`
	Footprint   int    `json:"footprint"`
	Format      string `json:"format"`
}
