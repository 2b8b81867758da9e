package engine

import (
	"math"

	"github.com/wricardo/mcp-training/coveragebot/game/grid"
)

// Advance runs one simulation tick
func (r *Robot) Advance() {
	r.ticks++

	switch r.mode {
	case Charging:
		r.charge()
	case Moving:
		r.followPath()
	case DivertingToHome:
		r.driveHome()
	}
}

// charge tops up the battery and resumes the coverage path once full
func (r *Robot) charge() {
	r.battery += r.config.ChargeRate
	if r.battery < MaxBattery {
		return
	}
	r.battery = MaxBattery
	r.index = r.resumeIndex
	r.homePath = nil
	r.setMode(Moving, ReasonCharged)
}

func (r *Robot) followPath() {
	if r.index >= len(r.path) {
		return
	}

	if r.battery <= r.config.LowBatteryThreshold {
		r.resumeIndex = r.index
		r.homePath = []grid.Waypoint{r.home}
		r.setMode(DivertingToHome, ReasonLowBattery)
		return
	}

	arrived := r.stepToward(r.path[r.index])
	r.drain()
	if !arrived {
		return
	}
	r.index++
	if r.index >= len(r.path) {
		r.setMode(Idle, ReasonPathCompleted)
	}
}

func (r *Robot) driveHome() {
	if len(r.homePath) == 0 {
		return
	}
	if r.stepToward(r.homePath[0]) {
		r.setMode(Charging, ReasonArrivedHome)
		return
	}
	r.drain()
}

// stepToward moves one speed step toward target, snapping onto it when it is
// closer than a step. It reports whether the robot arrived.
func (r *Robot) stepToward(target grid.Waypoint) bool {
	dx := target.X - r.position.X
	dy := target.Y - r.position.Y
	if math.Hypot(dx, dy) < r.config.Speed {
		r.position = target
		return true
	}

	bearing := math.Atan2(dy, dx)
	r.position.X += r.config.Speed * math.Cos(bearing)
	r.position.Y += r.config.Speed * math.Sin(bearing)
	r.heading = bearing
	return false
}

func (r *Robot) drain() {
	r.battery = math.Max(r.battery-r.config.DrainRate, MinBattery)
}
