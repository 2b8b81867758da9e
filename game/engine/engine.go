package engine

import (
	"math/rand"
	"slices"
	"time"

	"github.com/wricardo/mcp-training/coveragebot/game/grid"
	"github.com/wricardo/mcp-training/coveragebot/game/planner"
)

// Robot implements the Engine interface
type Robot struct {
	config    Config
	grid      grid.Grid
	rng       *rand.Rand
	scheduler Scheduler

	position grid.Waypoint
	heading  float64
	battery  float64
	mode     Mode

	home     grid.Waypoint
	homeCell grid.Cell
	region   *grid.Region

	plan        planner.Plan
	path        []grid.Waypoint
	index       int
	resumeIndex int
	homePath    []grid.Waypoint

	// epoch invalidates deferred activations scheduled before the last command
	epoch   uint64
	pending Timer

	ticks    int64
	events   []Event
	eventSeq int
}

var _ Engine = (*Robot)(nil)

// Option configures a Robot
type Option func(*Robot)

// WithRand sets the random source used to place the home station
func WithRand(rng *rand.Rand) Option {
	return func(r *Robot) {
		r.rng = rng
	}
}

// WithScheduler sets the scheduler used for the deferred start
func WithScheduler(s Scheduler) Option {
	return func(r *Robot) {
		r.scheduler = s
	}
}

// NewRobot creates a robot at the configured start pose with a full battery
func NewRobot(config Config, opts ...Option) (*Robot, error) {
	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	r := &Robot{
		config:    config,
		grid:      config.Grid(),
		scheduler: RealScheduler{},
		position:  grid.Waypoint{X: config.StartX, Y: config.StartY},
		heading:   config.StartAngle,
		battery:   MaxBattery,
		mode:      Idle,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if config.ForbiddenArea != nil {
		region := config.ForbiddenArea.Normalized()
		r.region = &region
	}

	r.chooseHome()
	return r, nil
}

// Start relocates the robot to a fresh home station and activates it after
// the configured delay. A plan is generated when none is loaded or the
// current one has been fully traversed.
func (r *Robot) Start() {
	r.cancelPending()

	r.chooseHome()
	if r.index >= len(r.path) {
		r.regeneratePlan()
	}
	r.position = r.home
	r.homePath = nil
	r.record(Idle, ReasonStart)

	epoch := r.epoch
	delay := r.config.StartDelay()
	if delay <= 0 {
		r.activate(epoch)
		return
	}
	r.pending = r.scheduler.AfterFunc(delay, func() {
		r.activate(epoch)
	})
}

// activate switches to moving unless a later command superseded the start
func (r *Robot) activate(epoch uint64) {
	if epoch != r.epoch || r.mode != Idle {
		return
	}
	r.pending = nil
	r.setMode(Moving, ReasonActivated)
}

// Stop halts the robot, keeping its path, progress and battery
func (r *Robot) Stop() {
	r.cancelPending()
	r.homePath = nil
	r.setMode(Idle, ReasonStop)
}

// Reset places the robot at the given pose with a full battery and no plan
func (r *Robot) Reset(x, y, angle float64) {
	r.cancelPending()

	r.position = grid.Waypoint{X: x, Y: y}
	r.heading = angle
	r.battery = MaxBattery
	r.plan = planner.Plan{}
	r.path = nil
	r.index = 0
	r.resumeIndex = 0
	r.homePath = nil
	r.setMode(Idle, ReasonReset)
	r.chooseHome()
}

// SetForbiddenArea stores the region (nil clears it) and replans from home
func (r *Robot) SetForbiddenArea(region *grid.Region) {
	if region == nil {
		r.region = nil
	} else {
		normalized := region.Normalized()
		r.region = &normalized
	}
	r.regeneratePlan()
}

// RotateLeft turns the robot counter-clockwise by one angular step
func (r *Robot) RotateLeft() {
	r.heading -= r.config.AngularStep
}

// RotateRight turns the robot clockwise by one angular step
func (r *Robot) RotateRight() {
	r.heading += r.config.AngularStep
}

// Snapshot returns the current state without the path waypoints
func (r *Robot) Snapshot() State {
	return State{
		Position:      r.position,
		Heading:       r.heading,
		Battery:       r.battery,
		BatteryStatus: BatteryStatus(r.battery, r.config.LowBatteryThreshold),
		Mode:          r.mode,
		Home:          r.home,
		HomeCell:      r.homeCell,
		ForbiddenArea: grid.CloneRegion(r.region),
		PathIndex:     r.index,
		PathLength:    len(r.path),
		ResumeIndex:   r.resumeIndex,
		SkippedCount:  len(r.plan.Skipped),
		StartPending:  r.pending != nil,
		Ticks:         r.ticks,
		ConfigName:    r.config.Name,
		Grid:          r.grid,
	}
}

// Path returns a copy of the coverage path
func (r *Robot) Path() []grid.Waypoint {
	return slices.Clone(r.path)
}

// ActivePath returns the path currently being followed: the single home
// waypoint while diverting or charging, the coverage path otherwise
func (r *Robot) ActivePath() []grid.Waypoint {
	if r.mode == DivertingToHome || r.mode == Charging {
		return slices.Clone(r.homePath)
	}
	return r.Path()
}

// Plan returns the diagnostics of the last generated plan
func (r *Robot) Plan() planner.Plan {
	plan := r.plan
	plan.Targets = slices.Clone(r.plan.Targets)
	plan.Path = slices.Clone(r.plan.Path)
	plan.Skipped = slices.Clone(r.plan.Skipped)
	return plan
}

// Events returns the retained mode transitions, oldest first
func (r *Robot) Events() []Event {
	return slices.Clone(r.events)
}

// Mode returns the current mode
func (r *Robot) Mode() Mode {
	return r.mode
}

// Battery returns the battery level in percent
func (r *Robot) Battery() float64 {
	return r.battery
}

// Position returns the current position
func (r *Robot) Position() grid.Waypoint {
	return r.position
}

// Heading returns the heading in radians
func (r *Robot) Heading() float64 {
	return r.heading
}

// Home returns the home station waypoint
func (r *Robot) Home() grid.Waypoint {
	return r.home
}

// HomeCell returns the footprint origin of the home station
func (r *Robot) HomeCell() grid.Cell {
	return r.homeCell
}

// ForbiddenArea returns a copy of the forbidden region, or nil
func (r *Robot) ForbiddenArea() *grid.Region {
	return grid.CloneRegion(r.region)
}

// Config returns the robot's configuration
func (r *Robot) Config() Config {
	return r.config
}

// Grid returns the grid the robot moves on
func (r *Robot) Grid() grid.Grid {
	return r.grid
}

// Index returns the position in the coverage path
func (r *Robot) Index() int {
	return r.index
}

// StartPending reports whether a deferred activation is scheduled
func (r *Robot) StartPending() bool {
	return r.pending != nil
}

// Active reports whether Advance can still change the robot: it is not idle
// and, while moving, has waypoints left
func (r *Robot) Active() bool {
	switch r.mode {
	case Idle:
		return false
	case Moving:
		return r.index < len(r.path)
	}
	return true
}

// cancelPending stops any scheduled activation and invalidates its epoch
func (r *Robot) cancelPending() {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.epoch++
}

func (r *Robot) regeneratePlan() {
	r.plan = planner.GenerateCoveragePlan(r.grid, r.region, r.homeCell)
	r.path = r.plan.Path
	r.index = 0
	r.resumeIndex = 0
}

func (r *Robot) chooseHome() {
	if r.config.FixedHome != nil {
		r.homeCell = *r.config.FixedHome
	} else {
		r.homeCell = pickHome(r.grid, r.region, r.config.HomeMargin, r.rng)
	}
	r.home = r.grid.TileCenter(r.homeCell)
}

// setMode switches mode and records the transition
func (r *Robot) setMode(mode Mode, reason string) {
	if r.mode == mode {
		return
	}
	r.record(mode, reason)
}

// record appends a transition event even when the mode is unchanged
func (r *Robot) record(mode Mode, reason string) {
	r.eventSeq++
	r.events = append(r.events, Event{
		Seq:      r.eventSeq,
		Tick:     r.ticks,
		From:     r.mode,
		To:       mode,
		Reason:   reason,
		Battery:  r.battery,
		Position: r.position,
	})
	if len(r.events) > MaxEvents {
		r.events = slices.Delete(r.events, 0, len(r.events)-MaxEvents)
	}
	r.mode = mode
}
