package engine

import (
	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/planner"
)

// Mode is the robot's motion state
type Mode string

const (
	Idle            Mode = "idle"
	Moving          Mode = "moving"
	DivertingToHome Mode = "diverting_to_home"
	Charging        Mode = "charging"

	// Battery bounds
	MinBattery = 0.0
	MaxBattery = 100.0

	// MaxTicksPerCall caps the number of ticks a single Tick request may run
	MaxTicksPerCall = 100000
	// MaxEvents is the number of transition events retained per robot
	MaxEvents = 500
)

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	switch m {
	case Idle, Moving, DivertingToHome, Charging:
		return true
	}
	return false
}

// State is a read-only snapshot of the robot
type State struct {
	Position      grid.Waypoint   `json:"position"`
	Heading       float64         `json:"heading"`
	Battery       float64         `json:"battery"`
	BatteryStatus string          `json:"battery_status"`
	Mode          Mode            `json:"mode"`
	Home          grid.Waypoint   `json:"home"`
	HomeCell      grid.Cell       `json:"home_cell"`
	ForbiddenArea *grid.Region    `json:"forbidden_area,omitempty"`
	PathIndex     int             `json:"path_index"`
	PathLength    int             `json:"path_length"`
	ResumeIndex   int             `json:"resume_index"`
	SkippedCount  int             `json:"skipped_targets"`
	StartPending  bool            `json:"start_pending"`
	Ticks         int64           `json:"ticks"`
	ConfigName    string          `json:"config_name"`
	Grid          grid.Grid       `json:"grid"`
	Path          []grid.Waypoint `json:"path,omitempty"`
}

// Event records a mode transition
type Event struct {
	Seq      int           `json:"seq"`
	Tick     int64         `json:"tick"`
	From     Mode          `json:"from"`
	To       Mode          `json:"to"`
	Reason   string        `json:"reason"`
	Battery  float64       `json:"battery"`
	Position grid.Waypoint `json:"position"`
}

// Event reasons
const (
	ReasonStart         = "start"
	ReasonActivated     = "activated"
	ReasonStop          = "stop"
	ReasonReset         = "reset"
	ReasonLowBattery    = "low_battery"
	ReasonArrivedHome   = "arrived_home"
	ReasonCharged       = "charged"
	ReasonPathCompleted = "path_completed"
)

// Engine is the command and query surface of a simulated robot
type Engine interface {
	// Commands
	Start()
	Stop()
	Reset(x, y, angle float64)
	SetForbiddenArea(region *grid.Region)
	RotateLeft()
	RotateRight()
	Advance()

	// Queries
	Snapshot() State
	Path() []grid.Waypoint
	ActivePath() []grid.Waypoint
	Plan() planner.Plan
	Events() []Event
	Mode() Mode
	Active() bool
	Battery() float64
	Position() grid.Waypoint
	Heading() float64
	Home() grid.Waypoint
	ForbiddenArea() *grid.Region
	Config() Config
}
